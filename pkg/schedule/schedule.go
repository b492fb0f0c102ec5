// Package schedule computes amortization schedules for debt accounts.
//
// All arithmetic is done in money.Cents. Each period accrues one month of
// interest on the running balance, pays max(minimum payment, interest) and
// applies the remainder to principal; the period that would overshoot the
// balance is clamped so the principal parts sum to the starting balance
// exactly.
package schedule

import (
	"time"

	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/shopspring/decimal"
)

// MaxMonths caps every generated schedule.
const MaxMonths = 600

var maxInterestRate = decimal.NewFromInt(100)

// Terms are the parts of a debt account that drive its schedule.
type Terms struct {
	InterestRate      decimal.Decimal // annual percentage
	MinMonthlyPayment money.Cents
	DueDay            int
}

// TermsOf extracts the schedule terms of a debt account.
func TermsOf(d *models.DebtAccount) Terms {
	return Terms{
		InterestRate:      d.InterestRate,
		MinMonthlyPayment: d.MinMonthlyPayment,
		DueDay:            d.DueDay,
	}
}

// Validate returns an *models.InvalidTermsError for terms the generator rejects.
func (t Terms) Validate() error {
	switch {
	case t.InterestRate.IsNegative():
		return &models.InvalidTermsError{Reason: "interest rate must not be negative"}
	case t.InterestRate.GreaterThan(maxInterestRate):
		return &models.InvalidTermsError{Reason: "interest rate must not exceed 100"}
	case t.MinMonthlyPayment <= 0:
		return &models.InvalidTermsError{Reason: "minimum monthly payment must be positive"}
	case t.MinMonthlyPayment > money.MaxAmount:
		return &models.InvalidTermsError{Reason: "minimum monthly payment is too large"}
	case t.DueDay < 1 || t.DueDay > 31:
		return &models.InvalidTermsError{Reason: "due day must be between 1 and 31"}
	}
	return nil
}

// Payment is one generated period.
type Payment struct {
	DueDate   models.Date
	Payment   money.Cents
	Interest  money.Cents
	Principal money.Cents
	Balance   money.Cents // remaining after this payment
}

// Generate produces the schedule for balance starting at the first due date
// on or after from. months > 0 caps the number of periods; months == 0 runs
// until payoff, truncated at MaxMonths.
func Generate(terms Terms, balance money.Cents, from models.Date, months int) ([]Payment, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if months < 0 || months > MaxMonths {
		return nil, models.Invalid("months", "must be between 1 and 600")
	}
	if balance <= 0 {
		return []Payment{}, nil
	}
	// Keeps principal + interest within int64.
	if balance > money.MaxAmount {
		return nil, models.Invalid("balance", "exceeds the largest supported amount")
	}

	limit := MaxMonths
	if months > 0 {
		limit = months
	} else if firstPrincipal(terms, balance) == 0 {
		return nil, &models.InvalidTermsError{Reason: "minimum monthly payment does not cover monthly interest"}
	}

	payments := make([]Payment, 0, min(limit, 64))
	due := FirstDueDate(from, terms.DueDay)
	for i := 0; i < limit && balance > 0; i++ {
		interest := money.MonthlyInterest(balance, terms.InterestRate)
		payment := money.Max(terms.MinMonthlyPayment, interest)
		principal := payment - interest

		if principal >= balance {
			principal = balance
			payment = principal + interest
		}
		balance -= principal

		payments = append(payments, Payment{
			DueDate:   due,
			Payment:   payment,
			Interest:  interest,
			Principal: principal,
			Balance:   balance,
		})
		due = NextDueDate(due, terms.DueDay)
	}
	return payments, nil
}

func firstPrincipal(terms Terms, balance money.Cents) money.Cents {
	interest := money.MonthlyInterest(balance, terms.InterestRate)
	return money.Max(terms.MinMonthlyPayment, interest) - interest
}

// DueDate anchors dueDay in the given month, rolling back to the month's last
// day when dueDay does not exist in it.
func DueDate(year int, month time.Month, dueDay int) models.Date {
	if last := daysIn(year, month); dueDay > last {
		dueDay = last
	}
	return models.NewDate(year, month, dueDay)
}

// FirstDueDate is the first due date on or after from.
func FirstDueDate(from models.Date, dueDay int) models.Date {
	d := DueDate(from.Year(), from.Month(), dueDay)
	if d.Before(from) {
		return NextDueDate(d, dueDay)
	}
	return d
}

// NextDueDate is the due date in the month following d.
func NextDueDate(d models.Date, dueDay int) models.Date {
	year, month := d.Year(), d.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	return DueDate(year, month, dueDay)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Totals sums the payment, interest and principal columns of a schedule.
func Totals(payments []Payment) (payment, interest, principal money.Cents) {
	for _, p := range payments {
		payment += p.Payment
		interest += p.Interest
		principal += p.Principal
	}
	return payment, interest, principal
}
