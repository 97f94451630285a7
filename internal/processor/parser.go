// parser.go - Deterministic layout parser for the known supplier invoice.
//
// This is the fast, free, offline path: fixed regex extractors for the
// header fields and a column heuristic for the itemized table. It never
// touches the network and never uses AI; missing fields are never fatal.

package processor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

// fieldExtractor is one (field, pattern, post-processor) tuple. The header
// extractors are a flat table evaluated once per document so that adding a
// field is a one-line change and each pattern is testable on its own.
type fieldExtractor struct {
	field string
	re    *regexp.Regexp
	post  func(string) string
}

var trimPost = strings.TrimSpace

var headerExtractors = []fieldExtractor{
	{"invoiceNumber", regexp.MustCompile(`(?i)faktura\s*nr\.?\s*:?\s*(\d{6,})`), trimPost},
	{"invoiceDate", regexp.MustCompile(`(?i)faktura\s*dato\s*:?\s*(\d{2}\.\d{2}\.\d{4})`), trimPost},
	{"serviceNumber", regexp.MustCompile(`(?i)service\s*nr\.?\s*:?\s*(\d{4,})`), trimPost},
	{"projectNumber", regexp.MustCompile(`(?i)prosjekt\s*(?:nr\.?)?\s*:?\s*(\d{4,})`), trimPost},
	{"customerNumber", regexp.MustCompile(`(?i)kunde\s*nr\.?\s*:?\s*(\d{3,})`), trimPost},
	{"orderNumber", regexp.MustCompile(`(?i)ordre\s*nr\.?\s*:?\s*(\d{4,})`), trimPost},
	{"orderAddress", regexp.MustCompile(`(?i)leverings?adresse\s*:?\s*([^\n]+)`), trimPost},
	{"workOrderText", regexp.MustCompile(`(?i)arbeids?ordre\s*:?\s*([^\n]+)`), trimPost},
	{"technicianName", regexp.MustCompile(`(?i)(?:tekniker|mont[øo]r)\s*:?\s*([^\n0-9][^\n]*)`), trimPost},
	{"workPerformedText", regexp.MustCompile(`(?is)utf[øo]rt\s+arbeid\s*:?\s*\n?(.*?)(?:\n[A-ZÆØÅ][A-ZÆØÅ0-9 /.-]{3,}(?:\n|$)|$)`), trimPost},
	{"declaredTotal", regexp.MustCompile(`(?i)(?:å\s+betale|sum\s+å\s+betale|totalt?|sum\s+inkl\.?\s*mva)\s*:?\s*(?:nok|kr\.?)?\s*([0-9][0-9 .,]*)`), trimPost},
}

// columnTitles mark table-header lines that would otherwise pass the
// column-split heuristic.
var columnTitles = []string{
	"varenr", "art.nr", "artikkel", "beskrivelse", "antall",
	"enhet", "pris", "rabatt", "linjesum", "belop", "beløp",
}

// discountColRe matches the discount column, e.g. "10 %" or "12,5%".
var discountColRe = regexp.MustCompile(`^\d+(?:[.,]\d+)?\s*%$`)

// columnSplitRe splits a table line on runs of two or more spaces, the
// column delimiter that survives OCR of the fixed layout.
var columnSplitRe = regexp.MustCompile(`\s{2,}`)

// ParseLayout runs the deterministic extraction over recognized text and
// returns the partial header plus whatever table rows survive the
// acceptance rules. Rows is never nil.
func ParseLayout(text invoice.OcrText) (invoice.InvoiceHeader, []invoice.InvoiceRow) {
	plain := text.Plain()

	fields := make(map[string]string, len(headerExtractors))
	for _, ex := range headerExtractors {
		fields[ex.field] = extractField(ex, plain)
	}

	header := invoice.InvoiceHeader{
		InvoiceNumber:     fields["invoiceNumber"],
		InvoiceDate:       fields["invoiceDate"],
		ServiceNumber:     fields["serviceNumber"],
		ProjectNumber:     fields["projectNumber"],
		CustomerNumber:    fields["customerNumber"],
		OrderNumber:       fields["orderNumber"],
		OrderAddress:      fields["orderAddress"],
		WorkOrderText:     fields["workOrderText"],
		WorkPerformedText: fields["workPerformedText"],
		TechnicianName:    fields["technicianName"],
		DeclaredTotal:     ParseAmount(fields["declaredTotal"]),
	}

	rows := make([]invoice.InvoiceRow, 0)
	for _, line := range text.Lines {
		if row, ok := parseRowLine(line.Text); ok {
			rows = append(rows, row)
		}
	}
	return header, rows
}

// extractField applies one extractor and returns the first match or "".
func extractField(ex fieldExtractor, text string) string {
	m := ex.re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	if ex.post != nil {
		return ex.post(m[1])
	}
	return m[1]
}

// parseRowLine applies the column heuristic to one OCR line.
func parseRowLine(line string) (invoice.InvoiceRow, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.Contains(trimmed, "  ") {
		return invoice.InvoiceRow{}, false
	}

	cols := columnSplitRe.Split(trimmed, -1)
	if isColumnTitleLine(cols[0]) {
		return invoice.InvoiceRow{}, false
	}

	// Six columns means the layout printed its optional discount column.
	// Prefer dropping the column that actually looks like a percentage;
	// fall back to the third-from-last position, where the layout puts it.
	if len(cols) == 6 {
		cols = dropDiscountColumn(cols)
	}
	if len(cols) < 4 {
		return invoice.InvoiceRow{}, false
	}

	n := len(cols)
	row := invoice.InvoiceRow{
		Code:        strings.TrimSpace(cols[0]),
		Description: strings.TrimSpace(strings.Join(cols[1:n-3], " ")),
		Quantity:    ParseAmount(cols[n-3]),
		UnitPrice:   ParseAmount(cols[n-2]),
		LineTotal:   ParseAmount(cols[n-1]),
	}

	if row.Code == "" || (row.UnitPrice <= 0 && row.LineTotal <= 0) {
		return invoice.InvoiceRow{}, false
	}
	return row, true
}

func isColumnTitleLine(first string) bool {
	lower := strings.ToLower(strings.TrimSpace(first))
	for _, title := range columnTitles {
		if strings.HasPrefix(lower, title) {
			return true
		}
	}
	return false
}

func dropDiscountColumn(cols []string) []string {
	for i, c := range cols {
		if discountColRe.MatchString(strings.TrimSpace(c)) {
			return append(cols[:i:i], cols[i+1:]...)
		}
	}
	i := len(cols) - 3
	return append(cols[:i:i], cols[i+1:]...)
}

// ParseAmount parses a Norwegian-formatted number ("1 234,56", "kr 450,00")
// into a float. Unparseable input yields 0, in line with the principle that
// the pipeline never guesses a numeric value beyond zero.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.NewReplacer(" ", "", " ", "", "kr", "", "KR", "", "Kr", "").Replace(s)

	// "1.234,56": dot is a thousands separator when a comma follows it.
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
