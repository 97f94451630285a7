// types.go - Canonical records produced and consumed by the extraction pipeline.

package invoice

import "strings"

// Source identifies which extraction strategy produced a result.
type Source string

const (
	SourceDeterministic  Source = "DETERMINISTIC"
	SourceAssistant      Source = "AI_ASSISTANT"
	SourceVisionFallback Source = "AI_VISION_FALLBACK"
)

// RawDocument is the immutable pipeline input: the captured bytes plus the
// media type the capture collaborator declared for them.
type RawDocument struct {
	Data      []byte
	MediaType string
}

// NormalizedImage is the OCR-ready pixel buffer. It only lives for the
// duration of one pipeline run.
type NormalizedImage struct {
	Data   []byte // PNG-encoded, grayscale, thresholded
	Width  int
	Height int
}

// OcrLine is one recognized text line. Geometry is optional; Tesseract in
// single-block mode only gives us line order.
type OcrLine struct {
	Text   string
	X      int
	Y      int
	Width  int
	Height int
}

// OcrText is the ordered recognized text for one document.
type OcrText struct {
	Lines []OcrLine
}

// Plain joins the recognized lines back into a single newline-separated string.
func (t OcrText) Plain() string {
	parts := make([]string, 0, len(t.Lines))
	for _, l := range t.Lines {
		parts = append(parts, l.Text)
	}
	return strings.Join(parts, "\n")
}

// InvoiceRow is one parsed table line. LineTotal is authoritative when it
// disagrees with Quantity*UnitPrice: OCR noise hits the small quantity and
// price cells far more often than the printed total.
type InvoiceRow struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// InvoiceHeader holds the scalar fields read off the invoice head. Every
// field is optional; an empty value is a valid state, never an error.
type InvoiceHeader struct {
	InvoiceNumber     string  `json:"invoiceNumber"`
	InvoiceDate       string  `json:"invoiceDate"`
	ServiceNumber     string  `json:"serviceNumber"`
	ProjectNumber     string  `json:"projectNumber"`
	CustomerNumber    string  `json:"customerNumber"`
	OrderNumber       string  `json:"orderNumber"`
	OrderAddress      string  `json:"orderAddress"`
	WorkOrderText     string  `json:"workOrderText"`
	WorkPerformedText string  `json:"workPerformedText"`
	TechnicianName    string  `json:"technicianName"`
	DeclaredTotal     float64 `json:"declaredTotal"`
}

// CostBreakdown is the classified aggregate over the parsed rows.
type CostBreakdown struct {
	LaborCost  float64 `json:"laborCost"`
	TravelCost float64 `json:"travelCost"`
	PartsCost  float64 `json:"partsCost"`
}

// Sum returns labor+travel+parts.
func (b CostBreakdown) Sum() float64 {
	return b.LaborCost + b.TravelCost + b.PartsCost
}

// Totals is the canonical totals object every AI tier must populate. The
// British "labour" spelling is the wire contract both tiers are prompted
// with; the mapper translates it to CostBreakdown.
type Totals struct {
	Labour     float64 `json:"labour"`
	Travel     float64 `json:"travel"`
	Parts      float64 `json:"parts"`
	GrandTotal float64 `json:"grandTotal"`
}

// RawExtraction is the strategy-neutral intermediate shape: whichever
// strategy ran hands one of these to the canonical mapper. Totals is nil
// only for the deterministic path, where the breakdown is derived from the
// classified rows instead.
type RawExtraction struct {
	Header InvoiceHeader
	Totals *Totals
	Rows   []InvoiceRow
	Source Source
}

// ExtractionResult is the only object that crosses the boundary to the
// claim-form collaborator. It is immutable once built; the consuming form
// pre-fills editable inputs from it and must never treat it as validated.
type ExtractionResult struct {
	Header     InvoiceHeader `json:"header"`
	Breakdown  CostBreakdown `json:"costBreakdown"`
	Rows       []InvoiceRow  `json:"rows"`
	Confidence int           `json:"confidence"`
	Warnings   []string      `json:"warnings"`
	Source     Source        `json:"source"`
}
