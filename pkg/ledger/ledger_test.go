package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/mcclellann/debtplan/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, *store.SQLiteStore) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"), log)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	l := NewLedger(s, WithLogger(log), WithClock(func() time.Time { return testNow }))
	return l, s
}

// referenceDebt is 1,200.00 at 12% APR, 50.00 minimum, due on the 15th.
func referenceDebt() NewDebtAccount {
	return NewDebtAccount{
		Name:              "Car loan",
		Type:              models.DebtTypeLoan,
		Principal:         120000,
		InterestRate:      decimal.NewFromInt(12),
		MinMonthlyPayment: 5000,
		DueDay:            15,
		StartDate:         models.NewDate(2025, time.January, 1),
	}
}

func addReferenceDebt(t *testing.T, l *Ledger) *models.DebtAccount {
	t.Helper()
	debt, err := l.AddDebtAccount(context.Background(), referenceDebt())
	if err != nil {
		t.Fatalf("Failed to add debt account: %v", err)
	}
	return debt
}

func sumPrincipal(entries []*models.ScheduleEntry, paid bool) money.Cents {
	var total money.Cents
	for _, e := range entries {
		if e.IsPaid == paid {
			total += e.PlannedPrincipal
		}
	}
	return total
}

func TestAddDebtAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	debt := addReferenceDebt(t, l)

	if debt.ID == "" {
		t.Error("Expected debt ID to be set")
	}
	if debt.CurrentBalance != 120000 {
		t.Errorf("Expected CurrentBalance to start at principal 120000, got %d", debt.CurrentBalance)
	}

	in := referenceDebt()
	override := money.Cents(80000)
	in.CurrentBalance = &override
	debt, err := l.AddDebtAccount(context.Background(), in)
	if err != nil {
		t.Fatalf("Failed to add debt account: %v", err)
	}
	if debt.CurrentBalance != 80000 {
		t.Errorf("Expected CurrentBalance override 80000, got %d", debt.CurrentBalance)
	}
}

func TestAddDebtAccount_Rejections(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	in := referenceDebt()
	in.MinMonthlyPayment = 0
	var termsErr *models.InvalidTermsError
	if _, err := l.AddDebtAccount(ctx, in); !errors.As(err, &termsErr) {
		t.Errorf("Expected InvalidTermsError for zero minimum payment, got %v", err)
	}

	in = referenceDebt()
	in.InterestRate = decimal.NewFromInt(-1)
	if _, err := l.AddDebtAccount(ctx, in); !errors.As(err, &termsErr) {
		t.Errorf("Expected InvalidTermsError for negative rate, got %v", err)
	}

	in = referenceDebt()
	in.Type = "mortgage"
	var validationErr *models.ValidationError
	if _, err := l.AddDebtAccount(ctx, in); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for unknown type, got %v", err)
	}

	debts, _ := l.ListDebtAccounts(ctx)
	if len(debts) != 0 {
		t.Errorf("Expected rejected inputs to leave no debts, got %d", len(debts))
	}
}

func TestGenerateSchedule_ReferenceScenario(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)

	entries, err := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID})
	if err != nil {
		t.Fatalf("Failed to generate schedule: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("Expected schedule entries")
	}

	first := entries[0]
	if first.DueDate.String() != "2025-01-15" {
		t.Errorf("Expected first due date 2025-01-15, got %s", first.DueDate)
	}
	if first.PlannedInterest != 1200 || first.PlannedPayment != 5000 || first.PlannedPrincipal != 3800 {
		t.Errorf("Unexpected first entry: %+v", first)
	}
	if got := sumPrincipal(entries, false); got != 120000 {
		t.Errorf("Expected principal to sum to 120000, got %d", got)
	}

	// One reminder per entry, three days ahead at 09:00 UTC.
	reminders, err := s.GetDueReminders(ctx, testNow.AddDate(10, 0, 0))
	if err != nil {
		t.Fatalf("Failed to get reminders: %v", err)
	}
	if len(reminders) != len(entries) {
		t.Errorf("Expected %d reminders, got %d", len(entries), len(reminders))
	}
	want := time.Date(2025, time.January, 12, 9, 0, 0, 0, time.UTC)
	if len(reminders) > 0 && !reminders[0].FireAt.Equal(want) {
		t.Errorf("Expected first reminder at %s, got %s", want, reminders[0].FireAt)
	}
}

func TestGenerateSchedule_Months(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)

	months := 6
	entries, err := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID, Months: &months})
	if err != nil {
		t.Fatalf("Failed to generate schedule: %v", err)
	}
	if len(entries) != 6 {
		t.Errorf("Expected 6 entries, got %d", len(entries))
	}

	// Regenerating replaces the unpaid entries rather than appending.
	entries, _ = l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID, Months: &months})
	if len(entries) != 6 {
		t.Errorf("Expected 6 entries after regeneration, got %d", len(entries))
	}

	bad := 0
	var validationErr *models.ValidationError
	if _, err := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID, Months: &bad}); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for months=0, got %v", err)
	}
}

func TestGenerateSchedule_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.GenerateSchedule(context.Background(), GenerateScheduleInput{DebtAccountID: "missing"})
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if nf.ID != "missing" {
		t.Errorf("Expected NotFoundError for id missing, got %s", nf.ID)
	}
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)

	entries, err := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID})
	if err != nil {
		t.Fatalf("Failed to generate schedule: %v", err)
	}

	for i := 0; i < 2; i++ {
		confirmed, err := l.ConfirmPayment(ctx, ConfirmPaymentInput{ScheduleID: entries[0].ID})
		if err != nil {
			t.Fatalf("Confirmation %d failed: %v", i+1, err)
		}
		if !confirmed[0].IsPaid {
			t.Errorf("Confirmation %d: expected first entry to be paid", i+1)
		}
		if len(confirmed) != len(entries) {
			t.Errorf("Confirmation %d: expected full schedule of %d, got %d", i+1, len(entries), len(confirmed))
		}

		fetched, _ := l.GetDebtAccount(ctx, debt.ID)
		if fetched.CurrentBalance != 116200 {
			t.Errorf("Confirmation %d: expected CurrentBalance 116200, got %d", i+1, fetched.CurrentBalance)
		}
	}
}

func TestConfirmPayment_Concurrent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)
	entries, _ := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.ConfirmPayment(ctx, ConfirmPaymentInput{ScheduleID: entries[0].ID}); err != nil {
				t.Errorf("Concurrent confirmation failed: %v", err)
			}
		}()
	}
	wg.Wait()

	fetched, _ := l.GetDebtAccount(ctx, debt.ID)
	if fetched.CurrentBalance != 116200 {
		t.Errorf("Expected CurrentBalance 116200 after concurrent confirmations, got %d", fetched.CurrentBalance)
	}
}

func TestGenerateSchedule_RacesConfirmPayment(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)
	if _, err := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID}); err != nil {
		t.Fatalf("Failed to generate schedule: %v", err)
	}

	confirmed := make(map[string]bool)
	for round := 0; round < 20; round++ {
		entries, err := l.ListSchedule(ctx, debt.ID)
		if err != nil {
			t.Fatalf("Failed to list schedule: %v", err)
		}
		var target *models.ScheduleEntry
		for _, e := range entries {
			if !e.IsPaid {
				target = e
				break
			}
		}
		if target == nil {
			t.Fatalf("Round %d: no unpaid entry left", round)
		}

		var wg sync.WaitGroup
		var confirmErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID}); err != nil {
				t.Errorf("Round %d: regeneration failed: %v", round, err)
			}
		}()
		go func() {
			defer wg.Done()
			_, confirmErr = l.ConfirmPayment(ctx, ConfirmPaymentInput{ScheduleID: target.ID})
		}()
		wg.Wait()

		var notFound *models.NotFoundError
		switch {
		case confirmErr == nil:
			confirmed[target.ID] = true
		case errors.As(confirmErr, &notFound):
			// Regeneration replaced the entry first.
		default:
			t.Fatalf("Round %d: confirmation failed: %v", round, confirmErr)
		}

		after, err := l.ListSchedule(ctx, debt.ID)
		if err != nil {
			t.Fatalf("Failed to list schedule: %v", err)
		}
		paidIDs := make(map[string]bool)
		for _, e := range after {
			if e.IsPaid {
				paidIDs[e.ID] = true
			}
		}
		for id := range confirmed {
			if !paidIDs[id] {
				t.Fatalf("Round %d: confirmed entry %s was dropped or unpaid", round, id)
			}
		}
		if len(paidIDs) != len(confirmed) {
			t.Errorf("Round %d: expected %d paid entries, got %d", round, len(confirmed), len(paidIDs))
		}

		fetched, err := l.GetDebtAccount(ctx, debt.ID)
		if err != nil {
			t.Fatalf("Failed to get debt account: %v", err)
		}
		if got := sumPrincipal(after, true) + fetched.CurrentBalance; got != 120000 {
			t.Errorf("Round %d: paid principal + balance = %d, want 120000", round, got)
		}
		if unpaid := sumPrincipal(after, false); unpaid != fetched.CurrentBalance {
			t.Errorf("Round %d: unpaid principal %d does not match balance %d", round, unpaid, fetched.CurrentBalance)
		}
	}
	if len(confirmed) == 0 {
		t.Log("Every confirmation lost the race to regeneration")
	}
}

func TestGenerateSchedule_PreservesPaidEntries(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)

	entries, _ := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID})
	paid := *entries[0]
	if _, err := l.ConfirmPayment(ctx, ConfirmPaymentInput{ScheduleID: paid.ID}); err != nil {
		t.Fatalf("Failed to confirm payment: %v", err)
	}

	regenerated, err := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID})
	if err != nil {
		t.Fatalf("Failed to regenerate schedule: %v", err)
	}

	first := regenerated[0]
	if first.ID != paid.ID || !first.IsPaid || first.PlannedPayment != paid.PlannedPayment ||
		first.PlannedPrincipal != paid.PlannedPrincipal || !first.DueDate.Equal(paid.DueDate) {
		t.Errorf("Paid entry changed by regeneration: before %+v, after %+v", paid, first)
	}
	if regenerated[1].DueDate.String() != "2025-02-15" {
		t.Errorf("Expected regenerated schedule to resume at 2025-02-15, got %s", regenerated[1].DueDate)
	}
	if got := sumPrincipal(regenerated, false); got != 116200 {
		t.Errorf("Expected unpaid principal to sum to the balance 116200, got %d", got)
	}
	for i := 1; i < len(regenerated); i++ {
		if !regenerated[i-1].DueDate.Before(regenerated[i].DueDate) {
			t.Errorf("Due dates not strictly ascending at %d", i)
		}
	}
}

func TestConfirmPayment_PostsTransactionAndCreditsPlan(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)
	entries, _ := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID})

	plan, err := l.CreateMonthlyPlan(ctx, NewMonthlyPlan{Month: models.NewDate(2025, time.January, 20)})
	if err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}
	if plan.Month.String() != "2025-01-01" {
		t.Errorf("Expected plan month to normalize to 2025-01-01, got %s", plan.Month)
	}
	if _, err := l.AddPlannedExpense(ctx, NewPlannedExpense{MonthlyPlanID: plan.ID, Label: "Car loan", CategoryID: "cat-debt", ExpectedAmount: 5000}); err != nil {
		t.Fatalf("Failed to add planned expense: %v", err)
	}

	before, _ := l.ComputePlanActual(ctx, plan.ID)
	if before.ActualExpenses != 0 {
		t.Errorf("Expected ActualExpenses 0 before confirmation, got %d", before.ActualExpenses)
	}

	confirmed, err := l.ConfirmPayment(ctx, ConfirmPaymentInput{ScheduleID: entries[0].ID, AccountID: "acct-checking", CategoryID: "cat-debt"})
	if err != nil {
		t.Fatalf("Failed to confirm payment: %v", err)
	}
	if confirmed[0].TransactionID == "" {
		t.Error("Expected confirmed entry to reference its transaction")
	}

	after, err := l.ComputePlanActual(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Failed to compute plan vs actual: %v", err)
	}
	if after.ActualExpenses != 5000 || after.PlannedExpenses != 5000 {
		t.Errorf("Expected planned and actual expenses of 5000, got %+v", after)
	}

	transactions, err := s.GetTransactionsForDebt(ctx, debt.ID)
	if err != nil {
		t.Fatalf("Failed to get transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Amount != 5000 || transactions[0].AccountID != "acct-checking" || transactions[0].ID != confirmed[0].TransactionID {
		t.Errorf("Unexpected transaction: %+v", transactions[0])
	}
	if !transactions[0].OccurredOn.Equal(entries[0].DueDate) {
		t.Errorf("Expected transaction dated on the due date %s, got %s", entries[0].DueDate, transactions[0].OccurredOn)
	}

	// The reminder for the confirmed entry is silenced.
	reminders, _ := s.GetDueReminders(ctx, testNow.AddDate(0, 1, 0))
	for _, r := range reminders {
		if r.ScheduleEntryID == entries[0].ID {
			t.Error("Expected reminder of confirmed entry to be dismissed")
		}
	}

	// Re-confirming must not post again or double-credit the plan.
	l.ConfirmPayment(ctx, ConfirmPaymentInput{ScheduleID: entries[0].ID, AccountID: "acct-checking", CategoryID: "cat-debt"})
	again, _ := l.ComputePlanActual(ctx, plan.ID)
	if again.ActualExpenses != 5000 {
		t.Errorf("Expected ActualExpenses to stay 5000, got %d", again.ActualExpenses)
	}
	transactions, _ = s.GetTransactionsForDebt(ctx, debt.ID)
	if len(transactions) != 1 {
		t.Errorf("Expected 1 transaction after re-confirmation, got %d", len(transactions))
	}
}

func TestConfirmPayment_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.ConfirmPayment(context.Background(), ConfirmPaymentInput{ScheduleID: "missing"})
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

// conflictStore delegates reads to the real store and loses every write race.
type conflictStore struct {
	store.Storage
}

func (c conflictStore) RunInTx(ctx context.Context, fn func(store.Storage) error) error {
	return fmt.Errorf("failed to begin transaction: %w", store.ErrConflict)
}

func TestConfirmPayment_Conflict(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)
	entries, _ := l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID})

	racy := NewLedger(conflictStore{s}, WithLogger(l.log), WithClock(l.now))
	_, err := racy.ConfirmPayment(ctx, ConfirmPaymentInput{ScheduleID: entries[0].ID})
	var ce *models.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}

	fetched, _ := l.GetDebtAccount(ctx, debt.ID)
	if fetched.CurrentBalance != 120000 {
		t.Errorf("Expected balance untouched after conflict, got %d", fetched.CurrentBalance)
	}
}

func TestUpdateDebtAccount_Partial(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)

	name := "Refinanced car loan"
	updated, err := l.UpdateDebtAccount(ctx, DebtAccountPatch{ID: debt.ID, Name: &name})
	if err != nil {
		t.Fatalf("Failed to update debt account: %v", err)
	}
	if updated.Name != name {
		t.Errorf("Expected Name %q, got %q", name, updated.Name)
	}
	if updated.DueDay != 15 || updated.MinMonthlyPayment != 5000 {
		t.Errorf("Expected untouched fields to survive, got %+v", updated)
	}

	dueDay := 40
	var termsErr *models.InvalidTermsError
	if _, err := l.UpdateDebtAccount(ctx, DebtAccountPatch{ID: debt.ID, DueDay: &dueDay}); !errors.As(err, &termsErr) {
		t.Errorf("Expected InvalidTermsError for due day 40, got %v", err)
	}
	fetched, _ := l.GetDebtAccount(ctx, debt.ID)
	if fetched.DueDay != 15 {
		t.Errorf("Expected rejected update to leave DueDay 15, got %d", fetched.DueDay)
	}

	var nf *models.NotFoundError
	if _, err := l.UpdateDebtAccount(ctx, DebtAccountPatch{ID: "missing", Name: &name}); !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestDeleteDebtAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	debt := addReferenceDebt(t, l)
	l.GenerateSchedule(ctx, GenerateScheduleInput{DebtAccountID: debt.ID})

	if err := l.DeleteDebtAccount(ctx, debt.ID); err != nil {
		t.Fatalf("Failed to delete debt account: %v", err)
	}
	var nf *models.NotFoundError
	if _, err := l.ListSchedule(ctx, debt.ID); !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError listing a deleted debt's schedule, got %v", err)
	}
	if err := l.DeleteDebtAccount(ctx, debt.ID); !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError deleting twice, got %v", err)
	}
}

func TestComputePlanActual(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	plan, err := l.CreateMonthlyPlan(ctx, NewMonthlyPlan{Month: models.NewDate(2025, time.February, 1)})
	if err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}

	empty, err := l.ComputePlanActual(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Failed to compute plan vs actual: %v", err)
	}
	if *empty != (models.PlanActual{PlanID: plan.ID}) {
		t.Errorf("Expected all zeros for an empty plan, got %+v", empty)
	}

	received := money.Cents(310000)
	l.AddPlannedIncome(ctx, NewPlannedIncome{MonthlyPlanID: plan.ID, SourceName: "Salary", Type: "salary", ExpectedAmount: 300000, ActualAmount: &received})
	saving, err := l.AddPlannedSaving(ctx, NewPlannedSaving{MonthlyPlanID: plan.ID, ExpectedAmount: 20000})
	if err != nil {
		t.Fatalf("Failed to add planned saving: %v", err)
	}
	saved := money.Cents(15000)
	if _, err := l.UpdatePlannedSaving(ctx, PlannedSavingPatch{ID: saving.ID, ActualAmount: &saved}); err != nil {
		t.Fatalf("Failed to update planned saving: %v", err)
	}

	pa, _ := l.ComputePlanActual(ctx, plan.ID)
	if pa.PlannedIncome != 300000 || pa.ActualIncome != 310000 {
		t.Errorf("Unexpected income totals: %+v", pa)
	}
	if pa.PlannedSavings != 20000 || pa.ActualSavings != 15000 {
		t.Errorf("Unexpected savings totals: %+v", pa)
	}

	fetched, _ := l.GetMonthlyPlan(ctx, plan.ID)
	if fetched.TotalPlannedIncome != pa.PlannedIncome || fetched.TotalPlannedSavings != pa.PlannedSavings {
		t.Errorf("Plan totals %+v disagree with aggregate %+v", fetched, pa)
	}

	var nf *models.NotFoundError
	if _, err := l.ComputePlanActual(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError for a missing plan, got %v", err)
	}
}

func TestPlannedItems_MissingPlan(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	var nf *models.NotFoundError
	if _, err := l.AddPlannedIncome(ctx, NewPlannedIncome{MonthlyPlanID: "missing", SourceName: "Salary", Type: "salary"}); !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError adding income to a missing plan, got %v", err)
	}
	if _, err := l.AddPlannedExpense(ctx, NewPlannedExpense{MonthlyPlanID: "missing", Label: "Rent"}); !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError adding expense to a missing plan, got %v", err)
	}
	if _, err := l.ListPlannedSavings(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError listing savings of a missing plan, got %v", err)
	}
}

func TestPlannedIncome_Defaults(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	plan, _ := l.CreateMonthlyPlan(ctx, NewMonthlyPlan{Month: models.NewDate(2025, time.March, 1)})

	income, err := l.AddPlannedIncome(ctx, NewPlannedIncome{MonthlyPlanID: plan.ID, SourceName: "Salary", Type: "salary", ExpectedAmount: 100})
	if err != nil {
		t.Fatalf("Failed to add planned income: %v", err)
	}
	if !income.IsFixed || income.Status != models.IncomeStatusPlanned || income.ActualAmount != 0 {
		t.Errorf("Expected fixed, planned income with no actual amount, got %+v", income)
	}

	status := "received"
	updated, err := l.UpdatePlannedIncome(ctx, PlannedIncomePatch{ID: income.ID, Status: &status})
	if err != nil {
		t.Fatalf("Failed to update planned income: %v", err)
	}
	if updated.Status != "received" || updated.SourceName != "Salary" {
		t.Errorf("Unexpected updated income: %+v", updated)
	}

	if err := l.DeletePlannedIncome(ctx, income.ID); err != nil {
		t.Fatalf("Failed to delete planned income: %v", err)
	}
	incomes, _ := l.ListPlannedIncomes(ctx, plan.ID)
	if len(incomes) != 0 {
		t.Errorf("Expected no incomes after delete, got %d", len(incomes))
	}
}

func TestCreateMonthlyPlan_DuplicateMonth(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateMonthlyPlan(ctx, NewMonthlyPlan{Month: models.NewDate(2025, time.April, 1)}); err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}
	var ce *models.ConflictError
	if _, err := l.CreateMonthlyPlan(ctx, NewMonthlyPlan{Month: models.NewDate(2025, time.April, 9)}); !errors.As(err, &ce) {
		t.Errorf("Expected ConflictError for a second April plan, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	pa := Aggregate("plan-1",
		[]*models.PlannedIncome{{ExpectedAmount: 100, ActualAmount: 90}, {ExpectedAmount: 50, ActualAmount: 60}},
		[]*models.PlannedExpense{{ExpectedAmount: 70, ActualAmount: 20}},
		nil,
	)
	want := models.PlanActual{PlanID: "plan-1", PlannedIncome: 150, ActualIncome: 150, PlannedExpenses: 70, ActualExpenses: 20}
	if *pa != want {
		t.Errorf("Expected %+v, got %+v", want, *pa)
	}
}

func TestKeyedMutex_ReleasesKeys(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlock()
	if len(k.locks) != 0 {
		t.Errorf("Expected lock table to be empty, got %d entries", len(k.locks))
	}
}
