// Package describe drafts step descriptions with an OpenAI-compatible
// chat endpoint, typically a local llama-server. It is entirely optional:
// when unconfigured nothing runs, and any failure leaves the step's
// description untouched.
package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

const defaultSystemPrompt = "You write one-sentence instructions for a step-by-step guide. " +
	"Given the page and the element the user clicked, answer with a single " +
	"imperative sentence and nothing else."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages        []chatMessage `json:"messages"`
	Stream          bool          `json:"stream"`
	Temperature     float64       `json:"temperature"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Config points the processor at a chat endpoint. An empty Endpoint
// disables AI descriptions entirely.
type Config struct {
	Endpoint        string
	SystemPrompt    string
	Temperature     float64
	ReasoningEffort string
	MaxRetries      int
	RequestTimeout  time.Duration
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// GuideStore is the persistence view the processor needs.
type GuideStore interface {
	GetGuide(ctx context.Context, id string) (*guide.Guide, error)
	PutGuide(ctx context.Context, g *guide.Guide) error
}

// Processor fills in missing step descriptions for a guide.
type Processor struct {
	client  *http.Client
	cfg     Config
	guides  GuideStore
	limiter *RateLimiter
	logger  *log.Logger

	sleep func(time.Duration)
}

// NewProcessor wires a processor. Returns an error when no endpoint is
// configured; callers should check Config.Enabled first.
func NewProcessor(cfg Config, guides GuideStore, logger *log.Logger) (*Processor, error) {
	if !cfg.Enabled() {
		return nil, errors.New("no AI endpoint configured")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 360 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		cfg:     cfg,
		guides:  guides,
		limiter: NewRateLimiter(5, 12*time.Second),
		logger:  logger,
		sleep:   time.Sleep,
	}, nil
}

// ProcessGuide drafts a description for every step that has none. Steps
// that already carry a custom description are left alone, and a step
// whose request fails keeps its generated fallback. The guide is written
// back once at the end.
func (p *Processor) ProcessGuide(ctx context.Context, guideID string) error {
	g, err := p.guides.GetGuide(ctx, guideID)
	if err != nil {
		return fmt.Errorf("load guide: %w", err)
	}
	if g == nil {
		return fmt.Errorf("guide %s not found", guideID)
	}

	changed := false
	for i := range g.Steps {
		step := &g.Steps[i]
		if step.CustomDescription != "" {
			continue
		}
		text, err := p.describeStep(ctx, step)
		if err != nil {
			p.logger.Warn("AI description failed, keeping generated text",
				"guide", guideID, "step", i, "err", err)
			continue
		}
		step.CustomDescription = text
		changed = true
	}

	if !changed {
		return nil
	}
	if err := p.guides.PutGuide(ctx, g); err != nil {
		return fmt.Errorf("save guide: %w", err)
	}
	return nil
}

func (p *Processor) describeStep(ctx context.Context, step *guide.Step) (string, error) {
	stepJSON, err := json.MarshalIndent(map[string]any{
		"url":         step.URL,
		"pageTitle":   step.Title,
		"elementInfo": step.ElementInfo,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	var lastErr error
	delay := time.Second
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if !p.limiter.GetToken() {
			p.sleep(time.Second)
			continue
		}
		if attempt > 0 {
			p.logger.Debug("retrying AI request", "attempt", attempt)
		}

		text, err := p.requestOnce(ctx, string(stepJSON))
		if err == nil {
			return text, nil
		}
		lastErr = err

		jitter := time.Duration(rand.Int63n(int64(delay) / 2))
		p.sleep(delay + jitter)
		delay *= 2
	}
	return "", fmt.Errorf("after %d attempts: %w", p.cfg.MaxRetries, lastErr)
}

func (p *Processor) requestOnce(ctx context.Context, stepJSON string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: p.cfg.SystemPrompt},
			{Role: "user", Content: "Describe this recorded click:\n\n" + stepJSON},
		},
		Temperature:     p.cfg.Temperature,
		ReasoningEffort: p.cfg.ReasoningEffort,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty choices in response")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty description in response")
	}
	return text, nil
}
