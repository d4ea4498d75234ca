package proration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CoefficientParams describes one slice of a billing period to be prorated.
// PeriodStart/PeriodEnd delimit the full natural period; SliceStart/SliceEnd
// delimit the charged portion inside it.
type CoefficientParams struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	SliceStart  time.Time
	SliceEnd    time.Time
	// Timezone is the account timezone whose calendar days drive the count
	Timezone string
}

// Calculator computes the prorated fraction of a billing period covered by a
// slice. Implementations must count calendar days in the account timezone,
// not elapsed wall-clock time, so a DST transition never changes the price.
type Calculator interface {
	Coefficient(ctx context.Context, params CoefficientParams) (decimal.Decimal, error)
}
