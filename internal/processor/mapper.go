// mapper.go - Canonical mapper: every strategy's output converges here.
//
// Whichever strategy produced header+totals (+ optional rows), the mapper
// normalizes it into one immutable ExtractionResult on the same validated
// confidence scale, so the claim form never needs to care which path ran.

package processor

import (
	"fmt"
	"math"
	"time"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

// MapperConfig carries the reconciliation constants. They are tuned to one
// supplier's layout and deliberately configurable.
type MapperConfig struct {
	TotalTolerance  float64 // currency units; mismatch at or beyond it warns
	MismatchPenalty int     // confidence points deducted on total mismatch
	ConfidenceFloor int     // penalty never pushes confidence below this

	// Defaults for the single known supplier entity; empty disables.
	DefaultCustomerNumber string
	DefaultOrderAddress   string
}

// Mapper builds the canonical ExtractionResult.
type Mapper struct {
	cfg MapperConfig
	now func() time.Time
}

func NewMapper(cfg MapperConfig) *Mapper {
	if cfg.TotalTolerance <= 0 {
		cfg.TotalTolerance = 2.0
	}
	if cfg.MismatchPenalty <= 0 {
		cfg.MismatchPenalty = 20
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = 50
	}
	return &Mapper{cfg: cfg, now: time.Now}
}

// Map normalizes a raw extraction into the canonical result. It scores the
// rubric, runs cross-validation, reconciles totals, and applies the
// mismatch penalty instead of ever rejecting a result.
func (m *Mapper) Map(raw invoice.RawExtraction) invoice.ExtractionResult {
	header := raw.Header

	if header.CustomerNumber == "" {
		header.CustomerNumber = m.cfg.DefaultCustomerNumber
	}
	if header.OrderAddress == "" {
		header.OrderAddress = m.cfg.DefaultOrderAddress
	}

	var breakdown invoice.CostBreakdown
	declared := header.DeclaredTotal
	if raw.Totals != nil {
		breakdown = invoice.CostBreakdown{
			LaborCost:  raw.Totals.Labour,
			TravelCost: raw.Totals.Travel,
			PartsCost:  raw.Totals.Parts,
		}
		if declared <= 0 && raw.Totals.GrandTotal > 0 {
			declared = raw.Totals.GrandTotal
			header.DeclaredTotal = declared
		}
	} else {
		breakdown = Classify(raw.Rows)
	}

	rows := raw.Rows
	if rows == nil {
		rows = []invoice.InvoiceRow{}
	}

	confidence := Score(header, rows)
	warnings := Validate(header, rows, m.cfg.TotalTolerance, m.now())

	// Reconcile the bucket sums against whichever total this strategy
	// produced. A mismatch costs confidence but never the result. With no
	// totals and no rows there is nothing to reconcile.
	if reference := referenceTotal(raw, declared); reference > 0 && (raw.Totals != nil || len(rows) > 0) {
		if diff := math.Abs(breakdown.Sum() - reference); diff >= m.cfg.TotalTolerance {
			if raw.Totals != nil {
				// The deterministic path already warned about this via
				// row-sum validation; AI totals need their own warning.
				warnings = append(warnings, fmt.Sprintf(
					"cost buckets sum to %.2f but the invoice declares %.2f", breakdown.Sum(), reference))
			}
			confidence -= m.cfg.MismatchPenalty
			if confidence < m.cfg.ConfidenceFloor {
				confidence = m.cfg.ConfidenceFloor
			}
		}
	}

	return invoice.ExtractionResult{
		Header:     header,
		Breakdown:  breakdown,
		Rows:       rows,
		Confidence: confidence,
		Warnings:   warnings,
		Source:     raw.Source,
	}
}

// referenceTotal picks the total to reconcile the buckets against: the AI
// tiers' grandTotal when present, otherwise the declared header total.
func referenceTotal(raw invoice.RawExtraction, declared float64) float64 {
	if raw.Totals != nil && raw.Totals.GrandTotal > 0 {
		return raw.Totals.GrandTotal
	}
	return declared
}
