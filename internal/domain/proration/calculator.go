package proration

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/reinvoice/reinvoice/internal/errors"
)

// CalculatorType defines the type of proration calculation to use
type CalculatorType string

const (
	CalculatorTypeDay CalculatorType = "day"
)

// NewCalculator creates a proration calculator of the specified type.
func NewCalculator(calculatorType CalculatorType) Calculator {
	switch calculatorType {
	default:
		return &dayBasedCalculator{}
	}
}

// dayBasedCalculator implements the default day-based proration logic.
type dayBasedCalculator struct{}

func (c *dayBasedCalculator) Coefficient(ctx context.Context, params CoefficientParams) (decimal.Decimal, error) {
	if err := validateParams(params); err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHintf("invalid proration params: %+v", err).
			Mark(ierr.ErrValidation)
	}

	loc, err := time.LoadLocation(params.Timezone)
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHintf("failed to load timezone '%s': %v", params.Timezone, err).
			Mark(ierr.ErrSystem)
	}

	totalDays := DaysInDuration(params.PeriodStart, params.PeriodEnd, loc)
	if totalDays <= 0 {
		return decimal.Zero, ierr.NewError("invalid billing period").
			WithHintf("total days is zero or negative (%v to %v)", params.PeriodStart, params.PeriodEnd).
			Mark(ierr.ErrValidation)
	}

	sliceDays := DaysInDuration(params.SliceStart, params.SliceEnd, loc)
	if sliceDays < 0 {
		sliceDays = 0
	}
	if sliceDays > totalDays {
		sliceDays = totalDays
	}

	return decimal.NewFromInt(int64(sliceDays)).
		Div(decimal.NewFromInt(int64(totalDays))), nil
}

// DaysInDuration calculates the number of calendar days between two points in
// time, considering the given timezone for day boundaries and handling DST
// transitions.
func DaysInDuration(start, end time.Time, loc *time.Location) int {
	startIn := start.In(loc)
	endIn := end.In(loc)

	startDay := time.Date(startIn.Year(), startIn.Month(), startIn.Day(), 0, 0, 0, 0, loc)
	endDay := time.Date(endIn.Year(), endIn.Month(), endIn.Day(), 0, 0, 0, 0, loc)

	// Step calendar dates, not wall-clock hours: a 25-hour fall-back day
	// would otherwise never advance past its own midnight.
	days := 0
	for current := startDay; current.Before(endDay); {
		days++
		current = time.Date(current.Year(), current.Month(), current.Day()+1, 0, 0, 0, 0, loc)
	}

	return days
}

// validateParams checks if essential parameters are provided.
func validateParams(params CoefficientParams) error {
	if params.PeriodStart.IsZero() || params.PeriodEnd.IsZero() {
		return fmt.Errorf("billing period start and end dates are required")
	}
	if params.PeriodEnd.Before(params.PeriodStart) {
		return fmt.Errorf("billing period end date cannot be before start date")
	}
	if params.SliceStart.IsZero() || params.SliceEnd.IsZero() {
		return fmt.Errorf("slice start and end dates are required")
	}
	if params.SliceEnd.Before(params.SliceStart) {
		return fmt.Errorf("slice end date cannot be before start date")
	}
	if params.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	return nil
}
