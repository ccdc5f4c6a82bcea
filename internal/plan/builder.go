// Package plan splits a granted amount into fixed biweekly installments
// (spec.md §4.6).
package plan

import "time"

const (
	DefaultInstallmentsCount     = 4
	DefaultDaysBetweenInstallments = 14
)

// Installment is one scheduled repayment.
type Installment struct {
	Sequence    int
	AmountCents int64
	DueDate     time.Time
}

// Build splits totalCents into installmentsCount installments, due every
// daysBetween days starting from createdAt. The trailing installment
// absorbs the remainder of integer division so the sum always equals total.
func Build(totalCents int64, installmentsCount, daysBetween int, createdAt time.Time) []Installment {
	if installmentsCount <= 0 {
		installmentsCount = DefaultInstallmentsCount
	}
	if daysBetween <= 0 {
		daysBetween = DefaultDaysBetweenInstallments
	}

	base := totalCents / int64(installmentsCount)
	remainder := totalCents % int64(installmentsCount)

	installments := make([]Installment, 0, installmentsCount)
	for i := 1; i <= installmentsCount; i++ {
		amount := base
		if i == installmentsCount {
			amount += remainder
		}
		installments = append(installments, Installment{
			Sequence:    i,
			AmountCents: amount,
			DueDate:     createdAt.AddDate(0, 0, i*daysBetween),
		})
	}
	return installments
}
