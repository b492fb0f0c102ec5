package models

import (
	"time"

	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/shopspring/decimal"
)

func init() {
	// Rates travel as JSON numbers, same as money.
	decimal.MarshalJSONWithoutQuotes = true
}

type DebtType string

const (
	DebtTypeLoan       DebtType = "loan"
	DebtTypeCreditCard DebtType = "credit_card"
	DebtTypeOverdraft  DebtType = "overdraft"
)

// Valid reports whether t is one of the known debt types.
func (t DebtType) Valid() bool {
	switch t {
	case DebtTypeLoan, DebtTypeCreditCard, DebtTypeOverdraft:
		return true
	}
	return false
}

type DebtAccount struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Type              DebtType        `json:"type"`
	Principal         money.Cents     `json:"principal"`
	InterestRate      decimal.Decimal `json:"interestRate"` // annual percentage, 0-100
	MinMonthlyPayment money.Cents     `json:"minMonthlyPayment"`
	DueDay            int             `json:"dueDay"` // 1-31, clamped to the month's last day
	StartDate         Date            `json:"startDate"`
	CurrentBalance    money.Cents     `json:"currentBalance"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ScheduleEntry is one planned (or completed) payment of a debt.
type ScheduleEntry struct {
	ID               string      `json:"id"`
	DebtAccountID    string      `json:"debtAccountId"`
	DueDate          Date        `json:"dueDate"`
	PlannedPayment   money.Cents `json:"plannedPayment"`
	PlannedInterest  money.Cents `json:"plannedInterest"`
	PlannedPrincipal money.Cents `json:"plannedPrincipal"`
	IsPaid           bool        `json:"isPaid"`
	TransactionID    string      `json:"transactionId,omitempty"` // set when confirmation posted a transaction
}

type MonthlyPlan struct {
	ID    string `json:"id"`
	Month Date   `json:"month"` // first day of the month
	Note  string `json:"note,omitempty"`

	// Derived from the plan's items on every read.
	TotalPlannedIncome   money.Cents `json:"totalPlannedIncome"`
	TotalPlannedExpenses money.Cents `json:"totalPlannedExpenses"`
	TotalPlannedSavings  money.Cents `json:"totalPlannedSavings"`
}

const (
	IncomeStatusPlanned  = "planned"
	ExpenseFrequencyOnce = "once"
)

type PlannedIncome struct {
	ID             string      `json:"id"`
	MonthlyPlanID  string      `json:"monthlyPlanId"`
	SourceName     string      `json:"sourceName"`
	Type           string      `json:"type"`
	ExpectedAmount money.Cents `json:"expectedAmount"`
	ActualAmount   money.Cents `json:"actualAmount"`
	ExpectedDate   *Date       `json:"expectedDate,omitempty"`
	IsFixed        bool        `json:"isFixed"`
	AccountID      string      `json:"accountId,omitempty"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"-"`
}

type PlannedExpense struct {
	ID             string      `json:"id"`
	MonthlyPlanID  string      `json:"monthlyPlanId"`
	Label          string      `json:"label"`
	CategoryID     string      `json:"categoryId,omitempty"`
	ExpectedAmount money.Cents `json:"expectedAmount"`
	ActualAmount   money.Cents `json:"actualAmount"`
	Frequency      string      `json:"frequency"`
	CreatedAt      time.Time   `json:"-"`
}

type PlannedSaving struct {
	ID             string      `json:"id"`
	MonthlyPlanID  string      `json:"monthlyPlanId"`
	GoalID         string      `json:"goalId,omitempty"`
	ExpectedAmount money.Cents `json:"expectedAmount"`
	ActualAmount   money.Cents `json:"actualAmount"`
	CreatedAt      time.Time   `json:"-"`
}

// PlanActual compares planned and actual totals for one monthly plan.
type PlanActual struct {
	PlanID          string      `json:"planId"`
	PlannedIncome   money.Cents `json:"plannedIncome"`
	ActualIncome    money.Cents `json:"actualIncome"`
	PlannedExpenses money.Cents `json:"plannedExpenses"`
	ActualExpenses  money.Cents `json:"actualExpenses"`
	PlannedSavings  money.Cents `json:"plannedSavings"`
	ActualSavings   money.Cents `json:"actualSavings"`
}

type TransactionType string

const (
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction is a ledger posting created when a scheduled payment is confirmed.
type Transaction struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"accountId"`
	CategoryID      string          `json:"categoryId,omitempty"`
	DebtAccountID   string          `json:"debtAccountId"`
	ScheduleEntryID string          `json:"scheduleEntryId"`
	Type            TransactionType `json:"type"`
	Amount          money.Cents     `json:"amount"`
	OccurredOn      Date            `json:"occurredOn"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type ReminderStatus string

const (
	ReminderStatusScheduled ReminderStatus = "scheduled"
	ReminderStatusSent      ReminderStatus = "sent"
	ReminderStatusDismissed ReminderStatus = "dismissed"
)

// Reminder announces an upcoming scheduled payment.
type Reminder struct {
	ID              string         `json:"id"`
	DebtAccountID   string         `json:"debtAccountId"`
	ScheduleEntryID string         `json:"scheduleEntryId"`
	Title           string         `json:"title"`
	Amount          money.Cents    `json:"amount"`
	DueDate         Date           `json:"dueDate"`
	FireAt          time.Time      `json:"fireAt"`
	Status          ReminderStatus `json:"status"`
	SentAt          *time.Time     `json:"sentAt,omitempty"`
}
