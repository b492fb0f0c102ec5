package ledger

import (
	"strings"

	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/mcclellann/debtplan/pkg/schedule"
	"github.com/shopspring/decimal"
)

// Request inputs. Each Validate returns a *models.ValidationError (or, for
// debt terms, a *models.InvalidTermsError) before anything is written.
// Pointer fields are optional; nil leaves the stored value alone.

type GenerateScheduleInput struct {
	DebtAccountID string `json:"debtAccountId"`
	Months        *int   `json:"months,omitempty"`
}

func (in GenerateScheduleInput) Validate() error {
	if strings.TrimSpace(in.DebtAccountID) == "" {
		return models.Invalid("debtAccountId", "is required")
	}
	if in.Months != nil && (*in.Months < 1 || *in.Months > schedule.MaxMonths) {
		return models.Invalid("months", "must be between 1 and 600")
	}
	return nil
}

type ConfirmPaymentInput struct {
	ScheduleID string `json:"scheduleId"`
	AccountID  string `json:"accountId,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
}

func (in ConfirmPaymentInput) Validate() error {
	if strings.TrimSpace(in.ScheduleID) == "" {
		return models.Invalid("scheduleId", "is required")
	}
	return nil
}

type NewDebtAccount struct {
	Name              string          `json:"name"`
	Type              models.DebtType `json:"type"`
	Principal         money.Cents     `json:"principal"`
	InterestRate      decimal.Decimal `json:"interestRate"`
	MinMonthlyPayment money.Cents     `json:"minMonthlyPayment"`
	DueDay            int             `json:"dueDay"`
	StartDate         models.Date     `json:"startDate"`
	// Defaults to Principal.
	CurrentBalance *money.Cents `json:"currentBalance,omitempty"`
}

func (in NewDebtAccount) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return models.Invalid("name", "is required")
	case !in.Type.Valid():
		return models.Invalid("type", "must be one of loan, credit_card, overdraft")
	case in.Principal <= 0:
		return models.Invalid("principal", "must be positive")
	case in.StartDate.IsZero():
		return models.Invalid("startDate", "is required")
	case in.CurrentBalance != nil && *in.CurrentBalance < 0:
		return models.Invalid("currentBalance", "must not be negative")
	}
	return schedule.Terms{
		InterestRate:      in.InterestRate,
		MinMonthlyPayment: in.MinMonthlyPayment,
		DueDay:            in.DueDay,
	}.Validate()
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

func (p DebtAccountPatch) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return models.Invalid("id", "is required")
	case p.Name != nil && strings.TrimSpace(*p.Name) == "":
		return models.Invalid("name", "must not be empty")
	case p.Type != nil && !p.Type.Valid():
		return models.Invalid("type", "must be one of loan, credit_card, overdraft")
	case p.Principal != nil && *p.Principal <= 0:
		return models.Invalid("principal", "must be positive")
	case p.StartDate != nil && p.StartDate.IsZero():
		return models.Invalid("startDate", "must be a date")
	case p.CurrentBalance != nil && *p.CurrentBalance < 0:
		return models.Invalid("currentBalance", "must not be negative")
	}
	return nil
}

func (p DebtAccountPatch) apply(d *models.DebtAccount) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Principal != nil {
		d.Principal = *p.Principal
	}
	if p.InterestRate != nil {
		d.InterestRate = *p.InterestRate
	}
	if p.MinMonthlyPayment != nil {
		d.MinMonthlyPayment = *p.MinMonthlyPayment
	}
	if p.DueDay != nil {
		d.DueDay = *p.DueDay
	}
	if p.StartDate != nil {
		d.StartDate = *p.StartDate
	}
	if p.CurrentBalance != nil {
		d.CurrentBalance = *p.CurrentBalance
	}
}

type NewMonthlyPlan struct {
	Month models.Date `json:"month"`
	Note  string      `json:"note,omitempty"`
}

func (in NewMonthlyPlan) Validate() error {
	if in.Month.IsZero() {
		return models.Invalid("month", "is required")
	}
	return nil
}

func nonNegative(field string, amount *money.Cents) error {
	if amount != nil && *amount < 0 {
		return models.Invalid(field, "must not be negative")
	}
	return nil
}

type NewPlannedIncome struct {
	MonthlyPlanID  string       `json:"monthlyPlanId"`
	SourceName     string       `json:"sourceName"`
	Type           string       `json:"type"`
	ExpectedAmount money.Cents  `json:"expectedAmount"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
	ExpectedDate   *models.Date `json:"expectedDate,omitempty"`
	IsFixed        *bool        `json:"isFixed,omitempty"` // defaults to true
	AccountID      string       `json:"accountId,omitempty"`
	Status         string       `json:"status,omitempty"` // defaults to planned
}

func (in NewPlannedIncome) Validate() error {
	switch {
	case strings.TrimSpace(in.MonthlyPlanID) == "":
		return models.Invalid("monthlyPlanId", "is required")
	case strings.TrimSpace(in.SourceName) == "":
		return models.Invalid("sourceName", "is required")
	case strings.TrimSpace(in.Type) == "":
		return models.Invalid("type", "is required")
	}
	if err := nonNegative("expectedAmount", &in.ExpectedAmount); err != nil {
		return err
	}
	return nonNegative("actualAmount", in.ActualAmount)
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

func (p PlannedIncomePatch) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return models.Invalid("id", "is required")
	case p.SourceName != nil && strings.TrimSpace(*p.SourceName) == "":
		return models.Invalid("sourceName", "must not be empty")
	case p.Status != nil && strings.TrimSpace(*p.Status) == "":
		return models.Invalid("status", "must not be empty")
	}
	if err := nonNegative("expectedAmount", p.ExpectedAmount); err != nil {
		return err
	}
	return nonNegative("actualAmount", p.ActualAmount)
}

func (p PlannedIncomePatch) apply(i *models.PlannedIncome) {
	if p.SourceName != nil {
		i.SourceName = *p.SourceName
	}
	if p.Type != nil {
		i.Type = *p.Type
	}
	if p.ExpectedAmount != nil {
		i.ExpectedAmount = *p.ExpectedAmount
	}
	if p.ActualAmount != nil {
		i.ActualAmount = *p.ActualAmount
	}
	if p.ExpectedDate != nil {
		i.ExpectedDate = p.ExpectedDate
	}
	if p.IsFixed != nil {
		i.IsFixed = *p.IsFixed
	}
	if p.AccountID != nil {
		i.AccountID = *p.AccountID
	}
	if p.Status != nil {
		i.Status = *p.Status
	}
}

type NewPlannedExpense struct {
	MonthlyPlanID  string       `json:"monthlyPlanId"`
	Label          string       `json:"label"`
	CategoryID     string       `json:"categoryId,omitempty"`
	ExpectedAmount money.Cents  `json:"expectedAmount"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
	Frequency      string       `json:"frequency,omitempty"` // defaults to once
}

func (in NewPlannedExpense) Validate() error {
	switch {
	case strings.TrimSpace(in.MonthlyPlanID) == "":
		return models.Invalid("monthlyPlanId", "is required")
	case strings.TrimSpace(in.Label) == "":
		return models.Invalid("label", "is required")
	}
	if err := nonNegative("expectedAmount", &in.ExpectedAmount); err != nil {
		return err
	}
	return nonNegative("actualAmount", in.ActualAmount)
}

type PlannedExpensePatch struct {
	ID             string       `json:"id"`
	Label          *string      `json:"label,omitempty"`
	CategoryID     *string      `json:"categoryId,omitempty"`
	ExpectedAmount *money.Cents `json:"expectedAmount,omitempty"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
	Frequency      *string      `json:"frequency,omitempty"`
}

func (p PlannedExpensePatch) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return models.Invalid("id", "is required")
	case p.Label != nil && strings.TrimSpace(*p.Label) == "":
		return models.Invalid("label", "must not be empty")
	case p.Frequency != nil && strings.TrimSpace(*p.Frequency) == "":
		return models.Invalid("frequency", "must not be empty")
	}
	if err := nonNegative("expectedAmount", p.ExpectedAmount); err != nil {
		return err
	}
	return nonNegative("actualAmount", p.ActualAmount)
}

func (p PlannedExpensePatch) apply(e *models.PlannedExpense) {
	if p.Label != nil {
		e.Label = *p.Label
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.ExpectedAmount != nil {
		e.ExpectedAmount = *p.ExpectedAmount
	}
	if p.ActualAmount != nil {
		e.ActualAmount = *p.ActualAmount
	}
	if p.Frequency != nil {
		e.Frequency = *p.Frequency
	}
}

type NewPlannedSaving struct {
	MonthlyPlanID  string       `json:"monthlyPlanId"`
	GoalID         string       `json:"goalId,omitempty"`
	ExpectedAmount money.Cents  `json:"expectedAmount"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
}

func (in NewPlannedSaving) Validate() error {
	if strings.TrimSpace(in.MonthlyPlanID) == "" {
		return models.Invalid("monthlyPlanId", "is required")
	}
	if err := nonNegative("expectedAmount", &in.ExpectedAmount); err != nil {
		return err
	}
	return nonNegative("actualAmount", in.ActualAmount)
}

type PlannedSavingPatch struct {
	ID             string       `json:"id"`
	GoalID         *string      `json:"goalId,omitempty"`
	ExpectedAmount *money.Cents `json:"expectedAmount,omitempty"`
	ActualAmount   *money.Cents `json:"actualAmount,omitempty"`
}

func (p PlannedSavingPatch) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return models.Invalid("id", "is required")
	}
	if err := nonNegative("expectedAmount", p.ExpectedAmount); err != nil {
		return err
	}
	return nonNegative("actualAmount", p.ActualAmount)
}

func (p PlannedSavingPatch) apply(s *models.PlannedSaving) {
	if p.GoalID != nil {
		s.GoalID = *p.GoalID
	}
	if p.ExpectedAmount != nil {
		s.ExpectedAmount = *p.ExpectedAmount
	}
	if p.ActualAmount != nil {
		s.ActualAmount = *p.ActualAmount
	}
}
