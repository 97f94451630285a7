package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/processor"
)

// stubStrategy counts its invocations and returns a fixed result or error.
type stubStrategy struct {
	name  string
	raw   *invoice.RawExtraction
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Attempt(ctx context.Context, doc invoice.RawDocument) (*invoice.RawExtraction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.raw, nil
}

func strongHeader() invoice.InvoiceHeader {
	return invoice.InvoiceHeader{
		InvoiceNumber:  "2313044",
		InvoiceDate:    "03.11.2023",
		ServiceNumber:  "41285",
		ProjectNumber:  "90213",
		TechnicianName: "Ola Nordmann",
		WorkOrderText:  "Reklamasjon kombidamper",
		DeclaredTotal:  3075,
	}
}

func strongRows() []invoice.InvoiceRow {
	return []invoice.InvoiceRow{
		{Code: "T1", Description: "Servicetime", Quantity: 2, UnitPrice: 750, LineTotal: 1500},
		{Code: "T1", Description: "Overtid", Quantity: 1, UnitPrice: 450, LineTotal: 450},
		{Code: "V200", Description: "Dørpakning", Quantity: 1, UnitPrice: 1125, LineTotal: 1125},
	}
}

func newTestPipeline(threshold int, strategies ...Strategy) *Pipeline {
	return New(strategies, processor.NewMapper(processor.MapperConfig{}), threshold, nil)
}

func TestExtractDeterministicSufficient(t *testing.T) {
	det := &stubStrategy{name: "deterministic", raw: &invoice.RawExtraction{
		Header: strongHeader(),
		Rows:   strongRows(),
		Source: invoice.SourceDeterministic,
	}}
	ai := &stubStrategy{name: "assistant", err: errors.New("must not run")}

	result, err := newTestPipeline(60, det, ai).Extract(t.Context(), invoice.RawDocument{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != invoice.SourceDeterministic {
		t.Errorf("Source = %q", result.Source)
	}
	if det.calls != 1 {
		t.Errorf("deterministic called %d times, want 1", det.calls)
	}
	if ai.calls != 0 {
		t.Errorf("AI tier called %d times, want 0", ai.calls)
	}
}

func TestExtractTierOneFailureInvokesTierTwoOnce(t *testing.T) {
	det := &stubStrategy{name: "deterministic",
		err: &invoice.OcrEngineError{Reason: "engine unavailable"}}
	tier1 := &stubStrategy{name: "assistant",
		err: &invoice.ExtractionFailed{Strategy: "assistant", Reason: "response missing totals"}}
	tier2 := &stubStrategy{name: "vision", raw: &invoice.RawExtraction{
		Header: strongHeader(),
		Totals: &invoice.Totals{Labour: 1950, Parts: 1125, GrandTotal: 3075},
		Rows:   strongRows(),
		Source: invoice.SourceVisionFallback,
	}}

	result, err := newTestPipeline(60, det, tier1, tier2).Extract(t.Context(), invoice.RawDocument{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != invoice.SourceVisionFallback {
		t.Errorf("Source = %q", result.Source)
	}
	if tier1.calls != 1 {
		t.Errorf("tier 1 called %d times, want exactly 1", tier1.calls)
	}
	if tier2.calls != 1 {
		t.Errorf("tier 2 called %d times, want exactly 1", tier2.calls)
	}
}

func TestExtractLowConfidenceDeterministicPrefersAI(t *testing.T) {
	det := &stubStrategy{name: "deterministic", raw: &invoice.RawExtraction{
		Header: invoice.InvoiceHeader{InvoiceNumber: "2313044"},
		Source: invoice.SourceDeterministic,
	}}
	ai := &stubStrategy{name: "assistant", raw: &invoice.RawExtraction{
		Header: strongHeader(),
		Totals: &invoice.Totals{Labour: 1950, Parts: 1125, GrandTotal: 3075},
		Rows:   strongRows(),
		Source: invoice.SourceAssistant,
	}}

	result, err := newTestPipeline(60, det, ai).Extract(t.Context(), invoice.RawDocument{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != invoice.SourceAssistant {
		t.Errorf("Source = %q, want the AI result preferred", result.Source)
	}
	if det.calls != 1 || ai.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", det.calls, ai.calls)
	}
}

func TestExtractLowConfidenceCandidateSurvivesAIFailure(t *testing.T) {
	det := &stubStrategy{name: "deterministic", raw: &invoice.RawExtraction{
		Header: invoice.InvoiceHeader{InvoiceNumber: "2313044"},
		Source: invoice.SourceDeterministic,
	}}
	ai := &stubStrategy{name: "assistant",
		err: &invoice.ExtractionFailed{Strategy: "assistant", Reason: "upload"}}

	result, err := newTestPipeline(60, det, ai).Extract(t.Context(), invoice.RawDocument{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != invoice.SourceDeterministic {
		t.Errorf("Source = %q", result.Source)
	}

	var found bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "review all fields") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want the low-confidence review warning", result.Warnings)
	}
}

func TestExtractDecodeErrorAbortsChain(t *testing.T) {
	det := &stubStrategy{name: "deterministic",
		err: &invoice.DecodeError{Reason: "unreadable image bytes"}}
	ai := &stubStrategy{name: "assistant"}

	_, err := newTestPipeline(60, det, ai).Extract(t.Context(), invoice.RawDocument{})

	var decodeErr *invoice.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want *invoice.DecodeError", err)
	}
	if ai.calls != 0 {
		t.Errorf("AI tier called %d times after decode failure, want 0", ai.calls)
	}
}

func TestExtractAllStrategiesFail(t *testing.T) {
	det := &stubStrategy{name: "deterministic",
		err: &invoice.OcrEngineError{Reason: "engine unavailable"}}
	ai := &stubStrategy{name: "assistant",
		err: &invoice.ExtractionFailed{Strategy: "assistant", Reason: "run did not complete"}}

	_, err := newTestPipeline(60, det, ai).Extract(t.Context(), invoice.RawDocument{})

	var failed *invoice.ExtractionFailed
	if !errors.As(err, &failed) {
		t.Fatalf("err = %v, want *invoice.ExtractionFailed", err)
	}
	if failed.Strategy != "assistant" {
		t.Errorf("Strategy = %q, want the last failing tier", failed.Strategy)
	}
}

func TestExtractNoStrategies(t *testing.T) {
	_, err := newTestPipeline(60).Extract(t.Context(), invoice.RawDocument{})
	var failed *invoice.ExtractionFailed
	if !errors.As(err, &failed) {
		t.Fatalf("err = %v, want *invoice.ExtractionFailed", err)
	}
}

func TestExtractCancelledContext(t *testing.T) {
	det := &stubStrategy{name: "deterministic"}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newTestPipeline(60, det).Extract(ctx, invoice.RawDocument{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if det.calls != 0 {
		t.Errorf("strategy called %d times after cancellation, want 0", det.calls)
	}
}
