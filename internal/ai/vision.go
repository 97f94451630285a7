// vision.go - Tier 2: single-shot vision completion via Gemini.
//
// Last tier in the chain: the image goes inline with the required-keys
// contract and the model is constrained to emit JSON only. There is no
// further fallback, so a missing totals object here is fatal.

package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

// VisionConfig configures the Tier-2 client.
type VisionConfig struct {
	APIKey  string
	Model   string        // default gemini-2.5-flash
	Timeout time.Duration // shorter than Tier 1: nothing catches us
}

// Vision is the Tier-2 extraction strategy.
type Vision struct {
	cfg    VisionConfig
	client *genai.Client
	model  *genai.GenerativeModel
	log    *slog.Logger
}

func NewVision(ctx context.Context, cfg VisionConfig, logger *slog.Logger) (*Vision, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"

	return &Vision{cfg: cfg, client: client, model: model, log: logger}, nil
}

func (v *Vision) Name() string { return "vision" }

// Close releases the underlying client.
func (v *Vision) Close() error { return v.client.Close() }

// Attempt sends the image inline and parses the JSON-only response.
func (v *Vision) Attempt(ctx context.Context, doc invoice.RawDocument) (*invoice.RawExtraction, error) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	start := time.Now()
	parts := []genai.Part{
		genai.ImageData(imageFormat(doc.MediaType), doc.Data),
		genai.Text(extractionInstructions),
	}

	resp, err := v.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, &invoice.ExtractionFailed{Strategy: v.Name(), Reason: "completion call", Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &invoice.ExtractionFailed{Strategy: v.Name(), Reason: "empty completion"}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	raw, err := ParsePayload(text.String(), invoice.SourceVisionFallback)
	if err != nil {
		return nil, &invoice.ExtractionFailed{Strategy: v.Name(), Reason: "parse response", Err: err}
	}
	if raw.Totals == nil {
		return nil, &invoice.ExtractionFailed{Strategy: v.Name(), Reason: "response missing totals"}
	}

	v.log.Info("vision.extract_ok",
		"model", v.cfg.Model,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return raw, nil
}

// imageFormat maps a media type to the format suffix genai expects.
func imageFormat(mediaType string) string {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	default:
		return "png"
	}
}
