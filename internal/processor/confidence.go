// confidence.go - Weighted confidence rubric and numeric cross-validation.
//
// The score is "% of expected signal found", not a probability: each field
// the extraction recovered earns its rubric weight, and the score is the
// achieved share of the maximum, scaled to 0-100.

package processor

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

const (
	weightHigh   = 20
	weightMedium = 10
	weightLow    = 5
)

var digitsRe = regexp.MustCompile(`\d`)

// invoiceDateFormats are the formats the pipeline accepts as well-formed:
// the supplier prints DD.MM.YYYY, the AI tiers are prompted for ISO dates.
var invoiceDateFormats = []string{"02.01.2006", "2006-01-02"}

type rubricCheck struct {
	name   string
	weight int
	ok     func(h invoice.InvoiceHeader, rows []invoice.InvoiceRow) bool
}

var rubric = []rubricCheck{
	{"invoice number", weightHigh, func(h invoice.InvoiceHeader, _ []invoice.InvoiceRow) bool {
		return len(digitsRe.FindAllString(h.InvoiceNumber, -1)) >= 6
	}},
	{"invoice date", weightHigh, func(h invoice.InvoiceHeader, _ []invoice.InvoiceRow) bool {
		_, ok := parseInvoiceDate(h.InvoiceDate)
		return ok
	}},
	{"declared total", weightHigh, func(h invoice.InvoiceHeader, _ []invoice.InvoiceRow) bool {
		return h.DeclaredTotal > 0
	}},
	{"service number", weightMedium, func(h invoice.InvoiceHeader, _ []invoice.InvoiceRow) bool {
		return h.ServiceNumber != ""
	}},
	{"project number", weightMedium, func(h invoice.InvoiceHeader, _ []invoice.InvoiceRow) bool {
		return h.ProjectNumber != ""
	}},
	{"technician name", weightMedium, func(h invoice.InvoiceHeader, _ []invoice.InvoiceRow) bool {
		return h.TechnicianName != ""
	}},
	{"work order text", weightMedium, func(h invoice.InvoiceHeader, _ []invoice.InvoiceRow) bool {
		return h.WorkOrderText != ""
	}},
	{"line items", weightLow, func(_ invoice.InvoiceHeader, rows []invoice.InvoiceRow) bool {
		return len(rows) > 0
	}},
	{"labor row", weightLow, func(_ invoice.InvoiceHeader, rows []invoice.InvoiceRow) bool {
		for _, r := range rows {
			if BucketFor(r.Code) == BucketLabor {
				return true
			}
		}
		return false
	}},
	{"classified row", weightLow, func(_ invoice.InvoiceHeader, rows []invoice.InvoiceRow) bool {
		for _, r := range rows {
			if b := BucketFor(r.Code); b == BucketLabor || b == BucketTravel {
				return true
			}
		}
		return false
	}},
}

// Score evaluates the rubric and returns the 0-100 confidence value.
// Adding signal can only raise it: every check is independent and
// positively weighted.
func Score(header invoice.InvoiceHeader, rows []invoice.InvoiceRow) int {
	achieved, max := 0, 0
	for _, c := range rubric {
		max += c.weight
		if c.ok(header, rows) {
			achieved += c.weight
		}
	}
	return int(math.Round(float64(achieved) / float64(max) * 100))
}

// Validate cross-checks the extraction and returns human-readable warnings
// for the operator. It never fails: OCR output is inherently noisy and the
// design degrades to "flag for human review" instead of hard-failing.
func Validate(header invoice.InvoiceHeader, rows []invoice.InvoiceRow, tolerance float64, now time.Time) []string {
	warnings := make([]string, 0)

	if len(rows) == 0 {
		warnings = append(warnings, "no line items found")
	} else if header.DeclaredTotal > 0 {
		var sum float64
		for _, r := range rows {
			sum += r.LineTotal
		}
		if diff := math.Abs(sum - header.DeclaredTotal); diff >= tolerance {
			warnings = append(warnings, fmt.Sprintf(
				"line totals sum to %.2f but the invoice declares %.2f", sum, header.DeclaredTotal))
		}
	}

	if d, ok := parseInvoiceDate(header.InvoiceDate); ok && d.After(now) {
		warnings = append(warnings, fmt.Sprintf("invoice date %s is in the future", header.InvoiceDate))
	}

	if header.InvoiceNumber == "" {
		warnings = append(warnings, "invoice number not found")
	}
	if header.DeclaredTotal <= 0 {
		warnings = append(warnings, "declared total not found")
	}
	if header.TechnicianName == "" {
		warnings = append(warnings, "technician name not found")
	}

	return warnings
}

func parseInvoiceDate(s string) (time.Time, bool) {
	for _, f := range invoiceDateFormats {
		if d, err := time.Parse(f, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
