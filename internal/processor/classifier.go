// classifier.go - Partition of invoice rows into cost buckets.

package processor

import (
	"strings"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

// CostBucket is one of the three claim cost categories.
type CostBucket string

const (
	BucketLabor  CostBucket = "labor"
	BucketTravel CostBucket = "travel"
	BucketParts  CostBucket = "parts"
)

// Supplier line-item code convention: T* is booked technician time, RT* is
// travel time, KM is the kilometer allowance. Everything else is a part.
const (
	laborCodePrefix  = "T"
	travelCodePrefix = "RT"
	kilometerCode    = "KM"
)

// BucketFor classifies one line-item code. Every code lands in exactly one
// bucket; unknown codes are parts.
func BucketFor(code string) CostBucket {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(c, travelCodePrefix) || c == kilometerCode:
		return BucketTravel
	case strings.HasPrefix(c, laborCodePrefix):
		return BucketLabor
	default:
		return BucketParts
	}
}

// Classify sums LineTotal per bucket. The partition is total: no row is
// dropped or double-counted, so the bucket sums always add up to the row
// sum exactly.
func Classify(rows []invoice.InvoiceRow) invoice.CostBreakdown {
	var b invoice.CostBreakdown
	for _, row := range rows {
		switch BucketFor(row.Code) {
		case BucketLabor:
			b.LaborCost += row.LineTotal
		case BucketTravel:
			b.TravelCost += row.LineTotal
		default:
			b.PartsCost += row.LineTotal
		}
	}
	return b
}
