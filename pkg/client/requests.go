package client

import (
	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/shopspring/decimal"
)

// Command inputs as sent on the wire. The server validates them; pointer
// fields are optional and omitted when nil.

type GenerateScheduleRequest struct {
	DebtAccountID string `json:"debtAccountId"`
	Months        *int   `json:"months,omitempty"`
}

type ConfirmPaymentRequest struct {
	ScheduleID string `json:"scheduleId"`
	AccountID  string `json:"accountId,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
}

type NewDebtAccount struct {
	Name              string          `json:"name"`
	Type              models.DebtType `json:"type"`
	Principal         money.Cents     `json:"principal"`
	InterestRate      decimal.Decimal `json:"interestRate"`
	MinMonthlyPayment money.Cents     `json:"minMonthlyPayment"`
	DueDay            int             `json:"dueDay"`
	StartDate         models.Date     `json:"startDate"`
	CurrentBalance    *money.Cents    `json:"currentBalance,omitempty"`
}

type DebtAccountPatch struct {
	ID                string           `json:"id"`
	Name              *string          `json:"name,omitempty"`
	Type              *models.DebtType `json:"type,omitempty"`
	Principal         *money.Cents     `json:"principal,omitempty"`
	InterestRate      *decimal.Decimal `json:"interestRate,omitempty"`
	MinMonthlyPayment *money.Cents     `json:"minMonthlyPayment,omitempty"`
	DueDay            *int             `json:"dueDay,omitempty"`
	StartDate         *models.Date     `json:"startDate,omitempty"`
	CurrentBalance    *money.Cents     `json:"currentBalance,omitempty"`
}

type NewMonthlyPlan struct {
	Month models.Date `json:"month"`
	Note  string      `json:"note,omitempty"`
}

type NewPlannedIncome struct {
	MonthlyPlanID  string       `json:"monthlyPlanId"`
	SourceName     string       `json:"sourceName"`
	Type           string       `json:"type"`
	ExpectedAmount money.Cents  `json:"expectedAmount"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
	ExpectedDate   *models.Date `json:"expectedDate,omitempty"`
	IsFixed        *bool        `json:"isFixed,omitempty"`
	AccountID      string       `json:"accountId,omitempty"`
	Status         string       `json:"status,omitempty"`
}

type PlannedIncomePatch struct {
	ID             string       `json:"id"`
	SourceName     *string      `json:"sourceName,omitempty"`
	Type           *string      `json:"type,omitempty"`
	ExpectedAmount *money.Cents `json:"expectedAmount,omitempty"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
	ExpectedDate   *models.Date `json:"expectedDate,omitempty"`
	IsFixed        *bool        `json:"isFixed,omitempty"`
	AccountID      *string      `json:"accountId,omitempty"`
	Status         *string      `json:"status,omitempty"`
}

type NewPlannedExpense struct {
	MonthlyPlanID  string       `json:"monthlyPlanId"`
	Label          string       `json:"label"`
	CategoryID     string       `json:"categoryId,omitempty"`
	ExpectedAmount money.Cents  `json:"expectedAmount"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
	Frequency      string       `json:"frequency,omitempty"`
}

type PlannedExpensePatch struct {
	ID             string       `json:"id"`
	Label          *string      `json:"label,omitempty"`
	CategoryID     *string      `json:"categoryId,omitempty"`
	ExpectedAmount *money.Cents `json:"expectedAmount,omitempty"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
	Frequency      *string      `json:"frequency,omitempty"`
}

type NewPlannedSaving struct {
	MonthlyPlanID  string       `json:"monthlyPlanId"`
	GoalID         string       `json:"goalId,omitempty"`
	ExpectedAmount money.Cents  `json:"expectedAmount"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
}

type PlannedSavingPatch struct {
	ID             string       `json:"id"`
	GoalID         *string      `json:"goalId,omitempty"`
	ExpectedAmount *money.Cents `json:"expectedAmount,omitempty"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
}
