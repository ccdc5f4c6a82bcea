// Package cooldown detects a recent prior advance and, if found within the
// cooldown window, blocks new credit (spec.md §4.4).
package cooldown

import (
	"strings"
	"time"

	txdomain "github.com/geraldco/bnpl-decision-gateway/internal/transaction/domain"
)

// DefaultHours is the cooldown window applied when none is configured.
const DefaultHours = 72

// Result is the cooldown check outcome.
type Result struct {
	InCooldown     bool
	RemainingHours *float64
	LastAdvanceAt  *time.Time
}

// Check inspects events first, falling back to transaction heuristics, to
// find the most recent advance and reports whether now is still within the
// cooldown window.
func Check(now time.Time, events []txdomain.Event, txs []txdomain.Transaction, cooldownHours int) Result {
	if cooldownHours <= 0 {
		cooldownHours = DefaultHours
	}

	last := lastAdvanceFromEvents(events)
	if last == nil {
		last = lastAdvanceFromTransactions(txs)
	}
	if last == nil {
		return Result{InCooldown: false}
	}

	elapsed := now.Sub(*last)
	window := time.Duration(cooldownHours) * time.Hour
	if elapsed < window {
		remaining := roundTo1DP((window - elapsed).Hours())
		return Result{InCooldown: true, RemainingHours: &remaining, LastAdvanceAt: last}
	}

	zero := 0.0
	return Result{InCooldown: false, RemainingHours: &zero, LastAdvanceAt: last}
}

func lastAdvanceFromEvents(events []txdomain.Event) *time.Time {
	var last *time.Time
	for _, e := range events {
		t := strings.ToLower(e.Type)
		if t != txdomain.EventAdvanceTaken && t != txdomain.EventCashAdvance && t != txdomain.EventDisbursement {
			continue
		}
		ts := e.Timestamp.UTC()
		if last == nil || ts.After(*last) {
			last = &ts
		}
	}
	return last
}

func lastAdvanceFromTransactions(txs []txdomain.Transaction) *time.Time {
	var last *time.Time
	for _, t := range txs {
		if t.Type != txdomain.TransactionCredit {
			continue
		}
		desc := strings.ToLower(t.Description)
		isAdvance := strings.Contains(desc, "advance") ||
			strings.Contains(desc, "gerald") ||
			strings.Contains(desc, "disbursement") ||
			strings.EqualFold(t.Category, "cash_advance")
		if !isAdvance {
			continue
		}
		ts := t.Date.UTC()
		if last == nil || ts.After(*last) {
			last = &ts
		}
	}
	return last
}

func roundTo1DP(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
