// payload.go - Lenient decoding of the canonical JSON both AI tiers emit.
//
// Assistant replies can wrap the JSON in prose or markdown fences, number
// fields sometimes come back as formatted strings, and the British
// "labour" key occasionally turns into "labor". Everything here exists to
// absorb that noise before the canonical mapper sees the data.

package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/processor"
)

// flexFloat unmarshals from a JSON number, a formatted string ("1 234,56")
// or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*f = flexFloat(processor.ParseAmount(str))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type payloadTotals struct {
	Labour     flexFloat
	Travel     flexFloat
	Parts      flexFloat
	GrandTotal flexFloat
}

func (t *payloadTotals) UnmarshalJSON(data []byte) error {
	var m map[string]flexFloat
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	pick := func(keys ...string) flexFloat {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				return v
			}
		}
		return 0
	}
	t.Labour = pick("labour", "labor")
	t.Travel = pick("travel")
	t.Parts = pick("parts")
	t.GrandTotal = pick("grandTotal", "grand_total", "total")
	return nil
}

type payloadRow struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Quantity    flexFloat `json:"quantity"`
	UnitPrice   flexFloat `json:"unitPrice"`
	LineTotal   flexFloat `json:"lineTotal"`
}

type payload struct {
	InvoiceNumber     string         `json:"invoiceNumber"`
	InvoiceDate       string         `json:"invoiceDate"`
	ServiceNumber     string         `json:"serviceNumber"`
	ProjectNumber     string         `json:"projectNumber"`
	CustomerNumber    string         `json:"customerNumber"`
	OrderNumber       string         `json:"orderNumber"`
	OrderAddress      string         `json:"orderAddress"`
	WorkOrderText     string         `json:"workOrderText"`
	WorkPerformedText string         `json:"workPerformedText"`
	TechnicianName    string         `json:"technicianName"`
	DeclaredTotal     flexFloat      `json:"declaredTotal"`
	Totals            *payloadTotals `json:"totals"`
	Rows              []payloadRow   `json:"rows"`
}

// ParsePayload extracts the first balanced JSON object from free text and
// decodes it into the strategy-neutral extraction shape. Totals may come
// back nil; the callers decide whether that fails their tier.
func ParsePayload(text string, source invoice.Source) (*invoice.RawExtraction, error) {
	block, ok := firstJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var p payload
	if err := json.Unmarshal([]byte(block), &p); err != nil {
		// Models sometimes emit literal control characters inside string
		// values; repair once and retry before giving up.
		repaired := escapeControlChars(block)
		if err2 := json.Unmarshal([]byte(repaired), &p); err2 != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	raw := &invoice.RawExtraction{
		Header: invoice.InvoiceHeader{
			InvoiceNumber:     strings.TrimSpace(p.InvoiceNumber),
			InvoiceDate:       strings.TrimSpace(p.InvoiceDate),
			ServiceNumber:     strings.TrimSpace(p.ServiceNumber),
			ProjectNumber:     strings.TrimSpace(p.ProjectNumber),
			CustomerNumber:    strings.TrimSpace(p.CustomerNumber),
			OrderNumber:       strings.TrimSpace(p.OrderNumber),
			OrderAddress:      strings.TrimSpace(p.OrderAddress),
			WorkOrderText:     strings.TrimSpace(p.WorkOrderText),
			WorkPerformedText: strings.TrimSpace(p.WorkPerformedText),
			TechnicianName:    strings.TrimSpace(p.TechnicianName),
			DeclaredTotal:     float64(p.DeclaredTotal),
		},
		Source: source,
	}

	if p.Totals != nil {
		raw.Totals = &invoice.Totals{
			Labour:     float64(p.Totals.Labour),
			Travel:     float64(p.Totals.Travel),
			Parts:      float64(p.Totals.Parts),
			GrandTotal: float64(p.Totals.GrandTotal),
		}
	}

	for _, r := range p.Rows {
		if strings.TrimSpace(r.Code) == "" {
			continue
		}
		raw.Rows = append(raw.Rows, invoice.InvoiceRow{
			Code:        strings.TrimSpace(r.Code),
			Description: strings.TrimSpace(r.Description),
			Quantity:    float64(r.Quantity),
			UnitPrice:   float64(r.UnitPrice),
			LineTotal:   float64(r.LineTotal),
		})
	}

	return raw, nil
}

// firstJSONObject returns the first balanced {...} block, tolerating
// surrounding prose and markdown fences.
func firstJSONObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// escapeControlChars replaces raw control characters inside string values
// with their JSON escapes.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if inString && !escaped && r < 0x20 {
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				fmt.Fprintf(&b, `\u%04x`, r)
			}
			continue
		}
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		}
		b.WriteRune(r)
	}
	return b.String()
}
