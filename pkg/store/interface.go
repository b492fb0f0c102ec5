package store

import (
	"context"
	"errors"
	"time"

	"github.com/mcclellann/debtplan/pkg/models"
)

var (
	// ErrNotFound is wrapped by every lookup or mutation of a missing row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when the database refused a write because of a
	// concurrent writer or a uniqueness race.
	ErrConflict = errors.New("conflict")
)

// Storage defines the database operations behind debts, their payment
// schedules, monthly plans and payment reminders.
type Storage interface {
	CreateDebtAccount(ctx context.Context, debt *models.DebtAccount) error
	GetDebtAccount(ctx context.Context, id string) (*models.DebtAccount, error)
	UpdateDebtAccount(ctx context.Context, debt *models.DebtAccount) error
	DeleteDebtAccount(ctx context.Context, id string) error
	GetAllDebtAccounts(ctx context.Context) ([]*models.DebtAccount, error)

	CreateScheduleEntry(ctx context.Context, entry *models.ScheduleEntry) error
	GetScheduleEntry(ctx context.Context, id string) (*models.ScheduleEntry, error)
	GetScheduleForDebt(ctx context.Context, debtID string) ([]*models.ScheduleEntry, error)
	DeleteUnpaidSchedule(ctx context.Context, debtID string) (int64, error)
	// MarkSchedulePaid flips is_paid and reports whether this call did it.
	MarkSchedulePaid(ctx context.Context, id, transactionID string) (bool, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionsForDebt(ctx context.Context, debtID string) ([]*models.Transaction, error)

	CreateMonthlyPlan(ctx context.Context, plan *models.MonthlyPlan) error
	GetMonthlyPlan(ctx context.Context, id string) (*models.MonthlyPlan, error)
	GetMonthlyPlanByMonth(ctx context.Context, month models.Date) (*models.MonthlyPlan, error)
	GetAllMonthlyPlans(ctx context.Context) ([]*models.MonthlyPlan, error)
	DeleteMonthlyPlan(ctx context.Context, id string) error

	CreatePlannedIncome(ctx context.Context, income *models.PlannedIncome) error
	GetPlannedIncome(ctx context.Context, id string) (*models.PlannedIncome, error)
	UpdatePlannedIncome(ctx context.Context, income *models.PlannedIncome) error
	DeletePlannedIncome(ctx context.Context, id string) error
	GetPlannedIncomes(ctx context.Context, planID string) ([]*models.PlannedIncome, error)

	CreatePlannedExpense(ctx context.Context, expense *models.PlannedExpense) error
	GetPlannedExpense(ctx context.Context, id string) (*models.PlannedExpense, error)
	UpdatePlannedExpense(ctx context.Context, expense *models.PlannedExpense) error
	DeletePlannedExpense(ctx context.Context, id string) error
	GetPlannedExpenses(ctx context.Context, planID string) ([]*models.PlannedExpense, error)

	CreatePlannedSaving(ctx context.Context, saving *models.PlannedSaving) error
	GetPlannedSaving(ctx context.Context, id string) (*models.PlannedSaving, error)
	UpdatePlannedSaving(ctx context.Context, saving *models.PlannedSaving) error
	DeletePlannedSaving(ctx context.Context, id string) error
	GetPlannedSavings(ctx context.Context, planID string) ([]*models.PlannedSaving, error)

	CreateReminder(ctx context.Context, reminder *models.Reminder) error
	GetDueReminders(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
	DismissReminders(ctx context.Context, scheduleEntryID string) error

	// RunInTx runs fn against a Storage bound to one database transaction,
	// committing when fn returns nil and rolling back otherwise.
	RunInTx(ctx context.Context, fn func(Storage) error) error

	Ping(ctx context.Context) error
	Close() error
}
