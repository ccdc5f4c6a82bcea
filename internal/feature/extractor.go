// Package feature normalizes a transaction history into the basic signals
// the rest of the decision pipeline builds on (spec.md §4.1).
package feature

import (
	"errors"
	"sort"
	"time"

	txdomain "github.com/geraldco/bnpl-decision-gateway/internal/transaction/domain"
)

// ErrEmptyTransactions is returned when the input transaction list is empty.
var ErrEmptyTransactions = errors.New("empty_transactions")

// Features is the normalized output of the extractor.
type Features struct {
	AvgDailyBalanceCents float64
	MonthlyIncomeCents   float64
	MonthlySpendCents    float64
	NSFCount             int
}

// Extract computes Features from an ordered transaction history. The slice
// is sorted by calendar day with a stable sort so within-day input order is
// preserved.
func Extract(transactions []txdomain.Transaction) (Features, error) {
	if len(transactions) == 0 {
		return Features{}, ErrEmptyTransactions
	}

	txs := make([]txdomain.Transaction, len(transactions))
	copy(txs, transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		return truncateToDay(txs[i].Date).Before(truncateToDay(txs[j].Date))
	})

	avgDailyBalance := avgDailyBalanceCarryForward(txs)

	var totalIncome, totalSpend float64
	nsfCount := 0
	for _, t := range txs {
		amt := float64(t.AmountCents)
		switch t.Type {
		case txdomain.TransactionCredit:
			totalIncome += amt
		case txdomain.TransactionDebit:
			totalSpend += amt
		}

		isNSF := t.NSF
		if !isNSF && t.Type == txdomain.TransactionDebit && t.BalanceCents != nil && *t.BalanceCents < 0 {
			isNSF = true
		}
		if isNSF {
			nsfCount++
		}
	}

	start := truncateToDay(txs[0].Date)
	end := truncateToDay(txs[len(txs)-1].Date)
	periodDays := end.Sub(start).Hours()/24 + 1
	months := periodDays / 30.0
	if months < 1.0/30.0 {
		months = 1.0 / 30.0
	}

	return Features{
		AvgDailyBalanceCents: avgDailyBalance,
		MonthlyIncomeCents:   totalIncome / months,
		MonthlySpendCents:    totalSpend / months,
		NSFCount:             nsfCount,
	}, nil
}

// avgDailyBalanceCarryForward computes the average daily balance across the
// inclusive [d0, dn] day range, carrying the last known balance forward into
// days with no reported balance (initial carry = 0).
func avgDailyBalanceCarryForward(txs []txdomain.Transaction) float64 {
	firstBalanceOfDay := make(map[time.Time]int64)
	for _, t := range txs {
		day := truncateToDay(t.Date)
		if t.BalanceCents == nil {
			continue
		}
		if _, seen := firstBalanceOfDay[day]; !seen {
			firstBalanceOfDay[day] = *t.BalanceCents
		}
	}

	start := truncateToDay(txs[0].Date)
	end := truncateToDay(txs[len(txs)-1].Date)
	numDays := int(end.Sub(start).Hours()/24) + 1

	var sum float64
	carry := int64(0)
	for i := 0; i < numDays; i++ {
		d := start.AddDate(0, 0, i)
		if bal, ok := firstBalanceOfDay[d]; ok {
			carry = bal
		}
		sum += float64(carry)
	}
	return sum / float64(numDays)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
