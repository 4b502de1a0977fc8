// Package api exposes guides, redaction, export, and recording control
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/capture"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/describe"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guides"
)

// Recorder is the recording control surface. A capture session satisfies
// it; a server without a browser runs with a nil Recorder and answers 503
// on the recording routes.
type Recorder interface {
	Start(ctx context.Context, guideID string) error
	Stop()
	State() capture.State
	GuideID() string
	StepCount() int
	Events() *capture.Fanout
}

// BlobStore is the screenshot storage view the handlers need.
type BlobStore interface {
	GetBlob(ctx context.Context, key guide.BlobRef) ([]byte, error)
	PutBlob(ctx context.Context, key guide.BlobRef, data []byte) error
	DeleteBlob(ctx context.Context, key guide.BlobRef) error
}

// GuideStore is the raw guide record access the redaction editor needs.
type GuideStore interface {
	GetGuide(ctx context.Context, id string) (*guide.Guide, error)
	PutGuide(ctx context.Context, g *guide.Guide) error
}

// Server holds the HTTP handler dependencies.
type Server struct {
	guides          *guides.Service
	records         GuideStore
	blobs           BlobStore
	recorder        Recorder
	describer       *describe.Processor
	maxDisplayWidth float64
	logger          *log.Logger
}

// NewServer wires the handlers. recorder and describer may be nil; the
// corresponding routes then report the feature as unavailable.
func NewServer(svc *guides.Service, records GuideStore, blobs BlobStore, recorder Recorder, describer *describe.Processor, maxDisplayWidth float64, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if maxDisplayWidth <= 0 {
		maxDisplayWidth = 1200
	}
	return &Server{
		guides:          svc,
		records:         records,
		blobs:           blobs,
		recorder:        recorder,
		describer:       describer,
		maxDisplayWidth: maxDisplayWidth,
		logger:          logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/guides", func(r chi.Router) {
			r.Get("/", s.listGuides)
			r.Post("/", s.createGuide)
			r.Route("/{guideID}", func(r chi.Router) {
				r.Get("/", s.getGuide)
				r.Delete("/", s.deleteGuide)
				r.Put("/name", s.renameGuide)
				r.Put("/tags", s.setTags)
				r.Get("/export", s.exportGuide)
				r.Post("/describe", s.describeGuide)
				r.Route("/steps/{step}", func(r chi.Router) {
					r.Delete("/", s.deleteStep)
					r.Post("/move", s.moveStep)
					r.Put("/description", s.setDescription)
					r.Put("/regions", s.putRegions)
					r.Get("/image", s.stepImage)
				})
			})
		})
		r.Route("/recording", func(r chi.Router) {
			r.Get("/", s.recordingStatus)
			r.Post("/start", s.startRecording)
			r.Post("/stop", s.stopRecording)
			r.Get("/events", s.recordingEvents)
		})
	})
	return r
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.logger.Error("response encode failed", "err", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
