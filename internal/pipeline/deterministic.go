// deterministic.go - The offline strategy: normalize, recognize, parse.

package pipeline

import (
	"context"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/ocr"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/processor"
)

// Deterministic runs the regex/heuristic path against a local OCR engine.
// No AI, no network; it is always tried first.
type Deterministic struct {
	engine ocr.Engine
}

func NewDeterministic(engine ocr.Engine) *Deterministic {
	return &Deterministic{engine: engine}
}

func (d *Deterministic) Name() string { return "deterministic" }

// Attempt normalizes the image, recognizes it, and applies the layout
// parser. An engine failure surfaces as OcrEngineError, which the
// orchestrator treats as "deterministic path unavailable".
func (d *Deterministic) Attempt(ctx context.Context, doc invoice.RawDocument) (*invoice.RawExtraction, error) {
	img, err := processor.Normalize(doc)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := d.engine.Recognize(img)
	if err != nil {
		return nil, err
	}

	header, rows := processor.ParseLayout(text)
	return &invoice.RawExtraction{
		Header: header,
		Rows:   rows,
		Source: invoice.SourceDeterministic,
	}, nil
}
