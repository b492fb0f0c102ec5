package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/store"
)

// CreateMonthlyPlan opens the plan for a month. Any day of the month may be
// given; plans are keyed by the first.
func (l *Ledger) CreateMonthlyPlan(ctx context.Context, in NewMonthlyPlan) (*models.MonthlyPlan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	plan := &models.MonthlyPlan{
		ID:    uuid.NewString(),
		Month: in.Month.MonthStart(),
		Note:  in.Note,
	}
	if err := l.storage.CreateMonthlyPlan(ctx, plan); err != nil {
		return nil, translateErr("create monthly plan for "+plan.Month.String(), "monthly plan", plan.ID, err)
	}
	l.log.WithField("plan_id", plan.ID).WithField("month", plan.Month.String()).Info("Created monthly plan")
	return plan, nil
}

func (l *Ledger) GetMonthlyPlan(ctx context.Context, id string) (*models.MonthlyPlan, error) {
	plan, err := l.storage.GetMonthlyPlan(ctx, id)
	if err != nil {
		return nil, translateErr("get monthly plan", "monthly plan", id, err)
	}
	return plan, nil
}

func (l *Ledger) ListMonthlyPlans(ctx context.Context) ([]*models.MonthlyPlan, error) {
	plans, err := l.storage.GetAllMonthlyPlans(ctx)
	if err != nil {
		return nil, translateErr("list monthly plans", "monthly plan", "", err)
	}
	return plans, nil
}

// DeleteMonthlyPlan deletes a plan and all of its planned items.
func (l *Ledger) DeleteMonthlyPlan(ctx context.Context, id string) error {
	if id == "" {
		return models.Invalid("id", "is required")
	}
	if err := l.storage.DeleteMonthlyPlan(ctx, id); err != nil {
		return translateErr("delete monthly plan", "monthly plan", id, err)
	}
	l.log.WithField("plan_id", id).Info("Deleted monthly plan")
	return nil
}

// addToPlan runs create inside a transaction after checking the plan exists.
func (l *Ledger) addToPlan(ctx context.Context, planID string, create func(store.Storage) error) error {
	return l.storage.RunInTx(ctx, func(tx store.Storage) error {
		if _, err := tx.GetMonthlyPlan(ctx, planID); err != nil {
			return translateErr("", "monthly plan", planID, err)
		}
		return create(tx)
	})
}

// ---- incomes ----

func (l *Ledger) AddPlannedIncome(ctx context.Context, in NewPlannedIncome) (*models.PlannedIncome, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	income := &models.PlannedIncome{
		ID:             uuid.NewString(),
		MonthlyPlanID:  in.MonthlyPlanID,
		SourceName:     in.SourceName,
		Type:           in.Type,
		ExpectedAmount: in.ExpectedAmount,
		ExpectedDate:   in.ExpectedDate,
		IsFixed:        true,
		AccountID:      in.AccountID,
		Status:         models.IncomeStatusPlanned,
		CreatedAt:      l.now().UTC(),
	}
	if in.ActualAmount != nil {
		income.ActualAmount = *in.ActualAmount
	}
	if in.IsFixed != nil {
		income.IsFixed = *in.IsFixed
	}
	if in.Status != "" {
		income.Status = in.Status
	}

	err := l.addToPlan(ctx, in.MonthlyPlanID, func(tx store.Storage) error {
		return tx.CreatePlannedIncome(ctx, income)
	})
	if err != nil {
		return nil, translateErr("add planned income", "planned income", income.ID, err)
	}
	return income, nil
}

func (l *Ledger) UpdatePlannedIncome(ctx context.Context, patch PlannedIncomePatch) (*models.PlannedIncome, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var income *models.PlannedIncome
	err := l.storage.RunInTx(ctx, func(tx store.Storage) error {
		var err error
		if income, err = tx.GetPlannedIncome(ctx, patch.ID); err != nil {
			return err
		}
		patch.apply(income)
		return tx.UpdatePlannedIncome(ctx, income)
	})
	if err != nil {
		return nil, translateErr("update planned income", "planned income", patch.ID, err)
	}
	return income, nil
}

func (l *Ledger) DeletePlannedIncome(ctx context.Context, id string) error {
	if id == "" {
		return models.Invalid("id", "is required")
	}
	return translateErr("delete planned income", "planned income", id, l.storage.DeletePlannedIncome(ctx, id))
}

func (l *Ledger) ListPlannedIncomes(ctx context.Context, planID string) ([]*models.PlannedIncome, error) {
	if _, err := l.GetMonthlyPlan(ctx, planID); err != nil {
		return nil, err
	}
	incomes, err := l.storage.GetPlannedIncomes(ctx, planID)
	if err != nil {
		return nil, translateErr("list planned incomes", "monthly plan", planID, err)
	}
	return incomes, nil
}

// ---- expenses ----

func (l *Ledger) AddPlannedExpense(ctx context.Context, in NewPlannedExpense) (*models.PlannedExpense, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	expense := &models.PlannedExpense{
		ID:             uuid.NewString(),
		MonthlyPlanID:  in.MonthlyPlanID,
		Label:          in.Label,
		CategoryID:     in.CategoryID,
		ExpectedAmount: in.ExpectedAmount,
		Frequency:      models.ExpenseFrequencyOnce,
		CreatedAt:      l.now().UTC(),
	}
	if in.ActualAmount != nil {
		expense.ActualAmount = *in.ActualAmount
	}
	if in.Frequency != "" {
		expense.Frequency = in.Frequency
	}

	err := l.addToPlan(ctx, in.MonthlyPlanID, func(tx store.Storage) error {
		return tx.CreatePlannedExpense(ctx, expense)
	})
	if err != nil {
		return nil, translateErr("add planned expense", "planned expense", expense.ID, err)
	}
	return expense, nil
}

func (l *Ledger) UpdatePlannedExpense(ctx context.Context, patch PlannedExpensePatch) (*models.PlannedExpense, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var expense *models.PlannedExpense
	err := l.storage.RunInTx(ctx, func(tx store.Storage) error {
		var err error
		if expense, err = tx.GetPlannedExpense(ctx, patch.ID); err != nil {
			return err
		}
		patch.apply(expense)
		return tx.UpdatePlannedExpense(ctx, expense)
	})
	if err != nil {
		return nil, translateErr("update planned expense", "planned expense", patch.ID, err)
	}
	return expense, nil
}

func (l *Ledger) DeletePlannedExpense(ctx context.Context, id string) error {
	if id == "" {
		return models.Invalid("id", "is required")
	}
	return translateErr("delete planned expense", "planned expense", id, l.storage.DeletePlannedExpense(ctx, id))
}

func (l *Ledger) ListPlannedExpenses(ctx context.Context, planID string) ([]*models.PlannedExpense, error) {
	if _, err := l.GetMonthlyPlan(ctx, planID); err != nil {
		return nil, err
	}
	expenses, err := l.storage.GetPlannedExpenses(ctx, planID)
	if err != nil {
		return nil, translateErr("list planned expenses", "monthly plan", planID, err)
	}
	return expenses, nil
}

// ---- savings ----

func (l *Ledger) AddPlannedSaving(ctx context.Context, in NewPlannedSaving) (*models.PlannedSaving, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	saving := &models.PlannedSaving{
		ID:             uuid.NewString(),
		MonthlyPlanID:  in.MonthlyPlanID,
		GoalID:         in.GoalID,
		ExpectedAmount: in.ExpectedAmount,
		CreatedAt:      l.now().UTC(),
	}
	if in.ActualAmount != nil {
		saving.ActualAmount = *in.ActualAmount
	}

	err := l.addToPlan(ctx, in.MonthlyPlanID, func(tx store.Storage) error {
		return tx.CreatePlannedSaving(ctx, saving)
	})
	if err != nil {
		return nil, translateErr("add planned saving", "planned saving", saving.ID, err)
	}
	return saving, nil
}

func (l *Ledger) UpdatePlannedSaving(ctx context.Context, patch PlannedSavingPatch) (*models.PlannedSaving, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var saving *models.PlannedSaving
	err := l.storage.RunInTx(ctx, func(tx store.Storage) error {
		var err error
		if saving, err = tx.GetPlannedSaving(ctx, patch.ID); err != nil {
			return err
		}
		patch.apply(saving)
		return tx.UpdatePlannedSaving(ctx, saving)
	})
	if err != nil {
		return nil, translateErr("update planned saving", "planned saving", patch.ID, err)
	}
	return saving, nil
}

func (l *Ledger) DeletePlannedSaving(ctx context.Context, id string) error {
	if id == "" {
		return models.Invalid("id", "is required")
	}
	return translateErr("delete planned saving", "planned saving", id, l.storage.DeletePlannedSaving(ctx, id))
}

func (l *Ledger) ListPlannedSavings(ctx context.Context, planID string) ([]*models.PlannedSaving, error) {
	if _, err := l.GetMonthlyPlan(ctx, planID); err != nil {
		return nil, err
	}
	savings, err := l.storage.GetPlannedSavings(ctx, planID)
	if err != nil {
		return nil, translateErr("list planned savings", "monthly plan", planID, err)
	}
	return savings, nil
}

// ---- plan vs actual ----

// ComputePlanActual summarizes a plan from its items as they are right now.
// Nothing is cached, so a confirmation is visible on the next call.
func (l *Ledger) ComputePlanActual(ctx context.Context, planID string) (*models.PlanActual, error) {
	if planID == "" {
		return nil, models.Invalid("planId", "is required")
	}
	if _, err := l.GetMonthlyPlan(ctx, planID); err != nil {
		return nil, err
	}
	incomes, err := l.storage.GetPlannedIncomes(ctx, planID)
	if err != nil {
		return nil, translateErr("plan vs actual", "monthly plan", planID, err)
	}
	expenses, err := l.storage.GetPlannedExpenses(ctx, planID)
	if err != nil {
		return nil, translateErr("plan vs actual", "monthly plan", planID, err)
	}
	savings, err := l.storage.GetPlannedSavings(ctx, planID)
	if err != nil {
		return nil, translateErr("plan vs actual", "monthly plan", planID, err)
	}
	return Aggregate(planID, incomes, expenses, savings), nil
}

// Aggregate sums expected and actual amounts per item kind. Empty input
// yields all zeros.
func Aggregate(planID string, incomes []*models.PlannedIncome, expenses []*models.PlannedExpense, savings []*models.PlannedSaving) *models.PlanActual {
	pa := &models.PlanActual{PlanID: planID}
	for _, i := range incomes {
		pa.PlannedIncome += i.ExpectedAmount
		pa.ActualIncome += i.ActualAmount
	}
	for _, e := range expenses {
		pa.PlannedExpenses += e.ExpectedAmount
		pa.ActualExpenses += e.ActualAmount
	}
	for _, s := range savings {
		pa.PlannedSavings += s.ExpectedAmount
		pa.ActualSavings += s.ActualAmount
	}
	return pa
}
