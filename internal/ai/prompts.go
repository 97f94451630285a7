// prompts.go - Fixed extraction instructions shared by both AI tiers.

package ai

// extractionInstructions is the instruction prompt for both tiers. Both
// are held to the same canonical JSON contract so the mapper never has to
// special-case which tier answered. The totals object is mandatory: a
// response without it fails the tier.
const extractionInstructions = `You are extracting data from a photographed Norwegian service invoice from T.Myhrvold AS.
Read the document carefully and return ONLY one JSON object with exactly these keys:

{
  "invoiceNumber": "string, the number after 'Faktura nr'",
  "invoiceDate": "string, DD.MM.YYYY",
  "serviceNumber": "string or empty",
  "projectNumber": "string or empty",
  "customerNumber": "string or empty",
  "orderNumber": "string or empty",
  "orderAddress": "string or empty",
  "workOrderText": "string or empty",
  "workPerformedText": "string, the free-text description of work performed",
  "technicianName": "string or empty",
  "declaredTotal": 0.0,
  "totals": {
    "labour": 0.0,
    "travel": 0.0,
    "parts": 0.0,
    "grandTotal": 0.0
  },
  "rows": [
    {"code": "string", "description": "string", "quantity": 0.0, "unitPrice": 0.0, "lineTotal": 0.0}
  ]
}

Rules:
- "totals" is required. Sum line items with codes starting with T into labour,
  codes starting with RT plus the KM kilometer code into travel, and everything
  else into parts. grandTotal is the invoice total to pay.
- Amounts are plain numbers with a dot decimal separator, never strings.
- Use an empty string for text you cannot read; never invent values.
- Do not wrap the JSON in markdown fences and do not add commentary.`
