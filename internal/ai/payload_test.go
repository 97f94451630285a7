package ai

import (
	"testing"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

const canonicalResponse = `{
  "invoiceNumber": "2313044",
  "invoiceDate": "2023-11-03",
  "serviceNumber": "41285",
  "projectNumber": "90213",
  "customerNumber": "10456",
  "orderNumber": "552101",
  "orderAddress": "Storgata 1, 0155 Oslo",
  "workOrderText": "Reklamasjon kombidamper",
  "workPerformedText": "Byttet dørpakning og kalibrert termostat.",
  "technicianName": "Ola Nordmann",
  "declaredTotal": 3075,
  "totals": {"labour": 1950, "travel": 0, "parts": 1125, "grandTotal": 3075},
  "rows": [
    {"code": "T1", "description": "Servicetime", "quantity": 2, "unitPrice": 750, "lineTotal": 1500},
    {"code": "T1", "description": "Overtid", "quantity": 1, "unitPrice": 450, "lineTotal": 450},
    {"code": "V200", "description": "Dørpakning", "quantity": 1, "unitPrice": 1125, "lineTotal": 1125}
  ]
}`

func TestParsePayloadCanonical(t *testing.T) {
	raw, err := ParsePayload(canonicalResponse, invoice.SourceAssistant)
	if err != nil {
		t.Fatal(err)
	}

	if raw.Header.InvoiceNumber != "2313044" {
		t.Errorf("InvoiceNumber = %q", raw.Header.InvoiceNumber)
	}
	if raw.Header.DeclaredTotal != 3075 {
		t.Errorf("DeclaredTotal = %v", raw.Header.DeclaredTotal)
	}
	if raw.Totals == nil {
		t.Fatal("Totals = nil")
	}
	if raw.Totals.Labour != 1950 || raw.Totals.Parts != 1125 || raw.Totals.GrandTotal != 3075 {
		t.Errorf("Totals = %+v", raw.Totals)
	}
	if len(raw.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(raw.Rows))
	}
	if raw.Rows[2].Code != "V200" || raw.Rows[2].LineTotal != 1125 {
		t.Errorf("row[2] = %+v", raw.Rows[2])
	}
	if raw.Source != invoice.SourceAssistant {
		t.Errorf("Source = %q", raw.Source)
	}
}

func TestParsePayloadMarkdownFence(t *testing.T) {
	text := "Here is the extraction:\n```json\n" + canonicalResponse + "\n```"
	raw, err := ParsePayload(text, invoice.SourceVisionFallback)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Header.InvoiceNumber != "2313044" {
		t.Errorf("InvoiceNumber = %q", raw.Header.InvoiceNumber)
	}
	if raw.Source != invoice.SourceVisionFallback {
		t.Errorf("Source = %q", raw.Source)
	}
}

func TestParsePayloadStringNumbers(t *testing.T) {
	raw, err := ParsePayload(`{
		"invoiceNumber": "2313044",
		"declaredTotal": "3 075,00",
		"totals": {"labor": "1 950,00", "travel": null, "parts": "1.125,00", "grand_total": "3075"}
	}`, invoice.SourceAssistant)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Header.DeclaredTotal != 3075 {
		t.Errorf("DeclaredTotal = %v", raw.Header.DeclaredTotal)
	}
	if raw.Totals.Labour != 1950 {
		t.Errorf("Labour = %v (labor alias)", raw.Totals.Labour)
	}
	if raw.Totals.Travel != 0 {
		t.Errorf("Travel = %v", raw.Totals.Travel)
	}
	if raw.Totals.Parts != 1125 {
		t.Errorf("Parts = %v", raw.Totals.Parts)
	}
	if raw.Totals.GrandTotal != 3075 {
		t.Errorf("GrandTotal = %v", raw.Totals.GrandTotal)
	}
}

func TestParsePayloadMissingTotals(t *testing.T) {
	raw, err := ParsePayload(`{"invoiceNumber": "2313044"}`, invoice.SourceAssistant)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Totals != nil {
		t.Errorf("Totals = %+v, want nil", raw.Totals)
	}
}

func TestParsePayloadSkipsRowsWithoutCode(t *testing.T) {
	raw, err := ParsePayload(`{
		"rows": [
			{"code": "", "description": "stray", "lineTotal": 10},
			{"code": "T1", "description": "Servicetime", "lineTotal": 1500}
		]
	}`, invoice.SourceAssistant)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw.Rows) != 1 || raw.Rows[0].Code != "T1" {
		t.Errorf("rows = %+v", raw.Rows)
	}
}

func TestParsePayloadRawControlChars(t *testing.T) {
	raw, err := ParsePayload("{\"workPerformedText\": \"linje en\nlinje to\"}", invoice.SourceAssistant)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Header.WorkPerformedText != "linje en\nlinje to" {
		t.Errorf("WorkPerformedText = %q", raw.Header.WorkPerformedText)
	}
}

func TestParsePayloadNoJSON(t *testing.T) {
	if _, err := ParsePayload("beklager, jeg kan ikke lese fakturaen", invoice.SourceAssistant); err == nil {
		t.Fatal("expected error for prose-only response")
	}
}

func TestFirstJSONObjectBracesInStrings(t *testing.T) {
	block, ok := firstJSONObject(`noise {"a": "va{lue}", "b": {"c": 1}} trailing`)
	if !ok {
		t.Fatal("no object found")
	}
	if block != `{"a": "va{lue}", "b": {"c": 1}}` {
		t.Errorf("block = %q", block)
	}
}
