package processor

import (
	"testing"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

func textFrom(lines ...string) invoice.OcrText {
	t := invoice.OcrText{}
	for _, l := range lines {
		t.Lines = append(t.Lines, invoice.OcrLine{Text: l})
	}
	return t
}

func TestParseLayoutHeaderFields(t *testing.T) {
	text := textFrom(
		"T.MYHRVOLD AS",
		"Faktura nr. 2313044",
		"Fakturadato: 03.11.2023",
		"Servicenr: 41285",
		"Prosjektnr: 90213",
		"Kundenr: 10456",
		"Ordrenr: 552101",
		"Leveringsadresse: Storgata 1, 0155 Oslo",
		"Arbeidsordre: Reklamasjon kombidamper",
		"Tekniker: Ola Nordmann",
		"Sum å betale: kr 3 075,00",
	)

	header, rows := ParseLayout(text)

	if header.InvoiceNumber != "2313044" {
		t.Errorf("InvoiceNumber = %q, want 2313044", header.InvoiceNumber)
	}
	if header.InvoiceDate != "03.11.2023" {
		t.Errorf("InvoiceDate = %q, want 03.11.2023", header.InvoiceDate)
	}
	if header.ServiceNumber != "41285" {
		t.Errorf("ServiceNumber = %q, want 41285", header.ServiceNumber)
	}
	if header.ProjectNumber != "90213" {
		t.Errorf("ProjectNumber = %q, want 90213", header.ProjectNumber)
	}
	if header.CustomerNumber != "10456" {
		t.Errorf("CustomerNumber = %q, want 10456", header.CustomerNumber)
	}
	if header.OrderNumber != "552101" {
		t.Errorf("OrderNumber = %q, want 552101", header.OrderNumber)
	}
	if header.OrderAddress != "Storgata 1, 0155 Oslo" {
		t.Errorf("OrderAddress = %q", header.OrderAddress)
	}
	if header.WorkOrderText != "Reklamasjon kombidamper" {
		t.Errorf("WorkOrderText = %q", header.WorkOrderText)
	}
	if header.TechnicianName != "Ola Nordmann" {
		t.Errorf("TechnicianName = %q", header.TechnicianName)
	}
	if header.DeclaredTotal != 3075 {
		t.Errorf("DeclaredTotal = %v, want 3075", header.DeclaredTotal)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %v, want none", rows)
	}
}

func TestParseLayoutHeaderOnlyScenario(t *testing.T) {
	// Header text with no table rows must yield the header values and an
	// empty, non-nil row slice.
	header, rows := ParseLayout(textFrom(
		"Faktura nr. 2313044",
		"Fakturadato: 03.11.2023",
	))

	if header.InvoiceNumber != "2313044" || header.InvoiceDate != "03.11.2023" {
		t.Fatalf("header = %+v", header)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("rows = %#v, want empty slice", rows)
	}
}

func TestParseLayoutMissingFieldsAreEmpty(t *testing.T) {
	header, _ := ParseLayout(textFrom("helt urelatert tekst"))
	if header.InvoiceNumber != "" || header.DeclaredTotal != 0 {
		t.Errorf("expected empty header, got %+v", header)
	}
}

func TestParseLayoutWorkPerformedBlock(t *testing.T) {
	header, _ := ParseLayout(textFrom(
		"Utført arbeid:",
		"Byttet dørpakning og kalibrert termostat.",
		"Testkjørt maskinen i 30 min.",
		"SPESIFIKASJON",
		"T1  Servicetime  2,0  750,00  1500,00",
	))

	want := "Byttet dørpakning og kalibrert termostat.\nTestkjørt maskinen i 30 min."
	if header.WorkPerformedText != want {
		t.Errorf("WorkPerformedText = %q, want %q", header.WorkPerformedText, want)
	}
}

func TestParseRowLineSevenColumns(t *testing.T) {
	row, ok := parseRowLine("T1  Servicetime  tekniker  el.arbeid  2,0  750,00  1500,00")
	if !ok {
		t.Fatal("expected row to be accepted")
	}
	if row.Code != "T1" {
		t.Errorf("Code = %q", row.Code)
	}
	if row.Description != "Servicetime tekniker el.arbeid" {
		t.Errorf("Description = %q", row.Description)
	}
	if row.Quantity != 2 || row.UnitPrice != 750 || row.LineTotal != 1500 {
		t.Errorf("numbers = %v %v %v", row.Quantity, row.UnitPrice, row.LineTotal)
	}
}

func TestParseRowLineDiscountColumnDropped(t *testing.T) {
	// Six columns: the percentage column is the discount and must go,
	// leaving the same trailing quantity/price/total as the seven-column
	// form of the same line.
	withDiscount, ok := parseRowLine("T1  Servicetime  10 %  2,0  750,00  1500,00")
	if !ok {
		t.Fatal("expected discounted row to be accepted")
	}
	plain, ok := parseRowLine("T1  Servicetime  tekniker  montering  2,0  750,00  1500,00")
	if !ok {
		t.Fatal("expected plain row to be accepted")
	}

	if withDiscount.Quantity != plain.Quantity ||
		withDiscount.UnitPrice != plain.UnitPrice ||
		withDiscount.LineTotal != plain.LineTotal {
		t.Errorf("trailing columns differ: %+v vs %+v", withDiscount, plain)
	}
}

func TestParseRowLineDiscountFallbackThirdFromLast(t *testing.T) {
	// No percentage column present in a six-column line: the third-from-
	// last column goes instead.
	row, ok := parseRowLine("V200  Dørpakning  1,0  0,00  1125,00  1125,00")
	if !ok {
		t.Fatal("expected row to be accepted")
	}
	if row.Quantity != 1 || row.UnitPrice != 1125 || row.LineTotal != 1125 {
		t.Errorf("numbers = %v %v %v", row.Quantity, row.UnitPrice, row.LineTotal)
	}
	if row.Description != "Dørpakning" {
		t.Errorf("Description = %q", row.Description)
	}
}

func TestParseRowLineRejections(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"single spaces only", "T1 Servicetime 2,0 750,00 1500,00"},
		{"column title line", "Varenr  Beskrivelse  Antall  Pris  Sum"},
		{"no amounts", "T1  Servicetime  0,0  0,00  0,00"},
		{"too few columns", "T1  1500,00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := parseRowLine(tc.line); ok {
				t.Errorf("line %q should be rejected", tc.line)
			}
		})
	}
}

func TestParseRowLineTotalAuthoritative(t *testing.T) {
	// The printed total survives even when quantity x price disagrees;
	// nothing recalculates it.
	row, ok := parseRowLine("KM  Kjøregodtgjørelse  45,0  7,50  425,00")
	if !ok {
		t.Fatal("expected row to be accepted")
	}
	if row.LineTotal != 425 {
		t.Errorf("LineTotal = %v, want 425", row.LineTotal)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1500,00", 1500},
		{"1 234,56", 1234.56},
		{"1.234,56", 1234.56},
		{"kr 450,00", 450},
		{"3075", 3075},
		{"", 0},
		{"ikke et tall", 0},
		{"-5,00", 0},
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got != tc.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
