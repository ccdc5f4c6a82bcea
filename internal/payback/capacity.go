// Package payback projects a user's balance at the point their paycheck is
// expected to run out (spec.md §4.3).
package payback

import "math"

// Label categorizes the projected capacity.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Result is the payback capacity projection.
type Result struct {
	CapacityCents float64
	Label         Label
}

// Inputs bundles the values the capacity projection depends on.
type Inputs struct {
	AvgDailyBalanceCents float64
	BurnDays              *float64
	AvgDailySpendCents    float64
	AvgPaycheckCents      *int64
}

// Project computes the payback capacity projection from in.
func Project(in Inputs) Result {
	effectiveBurn := 30.0
	if in.BurnDays != nil && *in.BurnDays > 0 {
		effectiveBurn = *in.BurnDays
	}

	projectedSpending := math.Floor(effectiveBurn * in.AvgDailySpendCents)
	capacity := in.AvgDailyBalanceCents - projectedSpending

	threshold := 5000.0
	if in.AvgPaycheckCents != nil {
		threshold = math.Floor(0.1 * float64(*in.AvgPaycheckCents))
	}

	label := LabelNegative
	switch {
	case capacity > 0:
		label = LabelPositive
	case capacity >= -threshold:
		label = LabelNeutral
	}

	return Result{CapacityCents: capacity, Label: label}
}
