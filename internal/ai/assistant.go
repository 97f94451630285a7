// assistant.go - Tier 1: document-assistant extraction over the OpenAI
// Assistants API.
//
// The flow is upload file -> create thread+run -> poll until terminal ->
// read the latest message -> delete the file. Any failure here only means
// fallthrough to Tier 2; this tier never fails the whole request.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

// AssistantConfig configures the Tier-1 client.
type AssistantConfig struct {
	APIKey       string
	BaseURL      string // default https://api.openai.com/v1
	AssistantID  string
	Timeout      time.Duration // hard wall clock for the whole tier
	PollInterval time.Duration
}

// Assistant is the Tier-1 extraction strategy.
type Assistant struct {
	cfg        AssistantConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewAssistant(cfg AssistantConfig, logger *slog.Logger) *Assistant {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

// Configured reports whether the tier has credentials to run at all.
func (a *Assistant) Configured() bool {
	return a.cfg.APIKey != "" && a.cfg.AssistantID != ""
}

func (a *Assistant) Name() string { return "assistant" }

// Attempt runs the assistant session against the source image. The
// uploaded file handle is a scoped resource in the external service and is
// deleted on both success and failure paths.
func (a *Assistant) Attempt(ctx context.Context, doc invoice.RawDocument) (*invoice.RawExtraction, error) {
	if !a.Configured() {
		return nil, &invoice.ExtractionFailed{Strategy: a.Name(), Reason: "not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	start := time.Now()
	fileID, err := a.uploadFile(ctx, doc)
	if err != nil {
		return nil, &invoice.ExtractionFailed{Strategy: a.Name(), Reason: "upload", Err: err}
	}
	defer func() {
		// Cleanup must run even when the tier timed out.
		cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cleanupCancel()
		if err := a.deleteFile(cleanupCtx, fileID); err != nil {
			a.log.Warn("assistant.file_cleanup_failed", "file_id", fileID, "error", err)
		}
	}()

	run, err := a.createThreadAndRun(ctx, fileID)
	if err != nil {
		return nil, &invoice.ExtractionFailed{Strategy: a.Name(), Reason: "create run", Err: err}
	}

	if err := a.waitForRun(ctx, run); err != nil {
		return nil, &invoice.ExtractionFailed{Strategy: a.Name(), Reason: "run did not complete", Err: err}
	}

	text, err := a.latestMessageText(ctx, run.ThreadID)
	if err != nil {
		return nil, &invoice.ExtractionFailed{Strategy: a.Name(), Reason: "read message", Err: err}
	}

	raw, err := ParsePayload(text, invoice.SourceAssistant)
	if err != nil {
		return nil, &invoice.ExtractionFailed{Strategy: a.Name(), Reason: "parse response", Err: err}
	}
	if raw.Totals == nil {
		return nil, &invoice.ExtractionFailed{Strategy: a.Name(), Reason: "response missing totals"}
	}

	a.log.Info("assistant.extract_ok",
		"thread_id", run.ThreadID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return raw, nil
}

type assistantRun struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

func (a *Assistant) uploadFile(ctx context.Context, doc invoice.RawDocument) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "vision"); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", "invoice.png")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(doc.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	a.setAuth(req)

	var out struct {
		ID string `json:"id"`
	}
	if err := a.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload returned no file id")
	}
	return out.ID, nil
}

func (a *Assistant) createThreadAndRun(ctx context.Context, fileID string) (*assistantRun, error) {
	payload := map[string]any{
		"assistant_id": a.cfg.AssistantID,
		"thread": map[string]any{
			"messages": []map[string]any{{
				"role": "user",
				"content": []map[string]any{
					{"type": "image_file", "image_file": map[string]string{"file_id": fileID}},
					{"type": "text", "text": extractionInstructions},
				},
			}},
		},
	}

	req, err := a.jsonRequest(ctx, http.MethodPost, "/threads/runs", payload)
	if err != nil {
		return nil, err
	}
	var run assistantRun
	if err := a.do(req, &run); err != nil {
		return nil, err
	}
	if run.ID == "" || run.ThreadID == "" {
		return nil, fmt.Errorf("run creation returned no identifiers")
	}
	return &run, nil
}

// waitForRun polls until the run reaches a terminal state or the tier
// deadline expires.
func (a *Assistant) waitForRun(ctx context.Context, run *assistantRun) error {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		req, err := a.jsonRequest(ctx, http.MethodGet,
			fmt.Sprintf("/threads/%s/runs/%s", run.ThreadID, run.ID), nil)
		if err != nil {
			return err
		}
		var current assistantRun
		if err := a.do(req, &current); err != nil {
			return err
		}

		switch current.Status {
		case "completed":
			return nil
		case "failed", "cancelled", "expired", "requires_action", "incomplete":
			return fmt.Errorf("run ended in state %q", current.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Assistant) latestMessageText(ctx context.Context, threadID string) (string, error) {
	req, err := a.jsonRequest(ctx, http.MethodGet,
		fmt.Sprintf("/threads/%s/messages?order=desc&limit=1", threadID), nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := a.do(req, &out); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, msg := range out.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" {
				b.WriteString(part.Text.Value)
			}
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no assistant message in thread")
	}
	return b.String(), nil
}

func (a *Assistant) deleteFile(ctx context.Context, fileID string) error {
	req, err := a.jsonRequest(ctx, http.MethodDelete, "/files/"+fileID, nil)
	if err != nil {
		return err
	}
	return a.do(req, nil)
}

func (a *Assistant) jsonRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	a.setAuth(req)
	return req, nil
}

func (a *Assistant) setAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
}

func (a *Assistant) do(req *http.Request, out any) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("assistant service status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
