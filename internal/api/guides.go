package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/export"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guides"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/redact"
)

func (s *Server) listGuides(w http.ResponseWriter, r *http.Request) {
	all, err := s.guides.List(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusOK, all)
}

func (s *Server) createGuide(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string   `json:"name"`
		Tags []string `json:"tags"`
	}
	if err := decodeBody(r, &body); err != nil || body.Name == "" {
		s.respondError(w, http.StatusBadRequest, "a guide name is required")
		return
	}
	g, err := s.guides.Create(r.Context(), uuid.NewString(), body.Name, body.Tags)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusCreated, g)
}

func (s *Server) getGuide(w http.ResponseWriter, r *http.Request) {
	g, err := s.guides.Get(r.Context(), chi.URLParam(r, "guideID"))
	if err != nil {
		s.guideError(w, err)
		return
	}
	s.respond(w, http.StatusOK, g)
}

func (s *Server) deleteGuide(w http.ResponseWriter, r *http.Request) {
	if err := s.guides.Delete(r.Context(), chi.URLParam(r, "guideID")); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renameGuide(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil || body.Name == "" {
		s.respondError(w, http.StatusBadRequest, "a guide name is required")
		return
	}
	if err := s.guides.Rename(r.Context(), chi.URLParam(r, "guideID"), body.Name); err != nil {
		s.guideError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setTags(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tags []string `json:"tags"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.guides.SetTags(r.Context(), chi.URLParam(r, "guideID"), body.Tags); err != nil {
		s.guideError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportGuide(w http.ResponseWriter, r *http.Request) {
	g, err := s.guides.Get(r.Context(), chi.URLParam(r, "guideID"))
	if err != nil {
		s.guideError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(export.Markdown(g)))
	case "html":
		doc, err := export.HTML(g)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(doc)
	default:
		s.respondError(w, http.StatusBadRequest, "unknown export format "+format)
	}
}

func (s *Server) describeGuide(w http.ResponseWriter, r *http.Request) {
	if s.describer == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no AI endpoint configured")
		return
	}
	if err := s.describer.ProcessGuide(r.Context(), chi.URLParam(r, "guideID")); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteStep(w http.ResponseWriter, r *http.Request) {
	index, ok := s.stepIndex(w, r)
	if !ok {
		return
	}
	if err := s.guides.DeleteStep(r.Context(), chi.URLParam(r, "guideID"), index); err != nil {
		s.guideError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveStep(w http.ResponseWriter, r *http.Request) {
	index, ok := s.stepIndex(w, r)
	if !ok {
		return
	}
	var body struct {
		To int `json:"to"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.guides.MoveStep(r.Context(), chi.URLParam(r, "guideID"), index, body.To); err != nil {
		s.guideError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setDescription(w http.ResponseWriter, r *http.Request) {
	index, ok := s.stepIndex(w, r)
	if !ok {
		return
	}
	var body struct {
		Description string `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.guides.SetDescription(r.Context(), chi.URLParam(r, "guideID"), index, body.Description); err != nil {
		s.guideError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putRegions replaces a step's redaction regions and commits the
// recomposited blurred screenshot in the same operation.
func (s *Server) putRegions(w http.ResponseWriter, r *http.Request) {
	index, ok := s.stepIndex(w, r)
	if !ok {
		return
	}
	var body struct {
		Regions []guide.Region `json:"regions"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	guideID := chi.URLParam(r, "guideID")
	editor, err := redact.OpenEditor(r.Context(), s.records, s.blobs, guideID, index, s.maxDisplayWidth)
	if errors.Is(err, redact.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "guide or step not found")
		return
	}
	if errors.Is(err, redact.ErrNoScreenshot) {
		s.respondError(w, http.StatusConflict, "step has no screenshot to redact")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	editor.SetRegions(body.Regions)
	committed, err := editor.Commit(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !committed {
		s.respondError(w, http.StatusNotFound, "guide disappeared before commit")
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"regions": editor.Store().List()})
}

// stepImage serves a step's screenshot. The default variant is the
// redacted one when it exists, matching what viewers should see;
// variant=original forces the unredacted pixels.
func (s *Server) stepImage(w http.ResponseWriter, r *http.Request) {
	index, ok := s.stepIndex(w, r)
	if !ok {
		return
	}
	g, err := s.guides.Get(r.Context(), chi.URLParam(r, "guideID"))
	if err != nil {
		s.guideError(w, err)
		return
	}
	if index < 0 || index >= len(g.Steps) {
		s.respondError(w, http.StatusNotFound, "step not found")
		return
	}
	step := &g.Steps[index]

	ref := step.ImageRef()
	legacy := step.LegacyBlurredScreenshot
	if legacy == "" {
		legacy = step.LegacyScreenshot
	}
	if r.URL.Query().Get("variant") == "original" {
		ref = step.ScreenshotRef
		legacy = step.LegacyScreenshot
	}

	if ref != "" {
		img, err := s.blobs.GetBlob(r.Context(), ref)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if img != nil {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(img)
			return
		}
	}
	if img := decodeInline(legacy); img != nil {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
		return
	}
	s.respondError(w, http.StatusNotFound, "step has no screenshot")
}

func (s *Server) stepIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "step index must be a number")
		return 0, false
	}
	return index, true
}

func (s *Server) guideError(w http.ResponseWriter, err error) {
	if errors.Is(err, guides.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "guide not found")
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

// decodeInline extracts the payload of a legacy base64 data URL.
func decodeInline(s string) []byte {
	if !strings.HasPrefix(s, "data:") {
		return nil
	}
	_, rest, ok := strings.Cut(s, ";base64,")
	if !ok {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil
	}
	return data
}
