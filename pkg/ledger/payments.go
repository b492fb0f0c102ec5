package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/mcclellann/debtplan/pkg/schedule"
	"github.com/mcclellann/debtplan/pkg/store"
	"github.com/sirupsen/logrus"
)

// Reminders fire at this hour (UTC) on their fire day.
const reminderHour = 9

// GenerateSchedule replaces every unpaid entry of a debt with a freshly
// amortized schedule of its current balance and returns the whole schedule,
// paid entries included, ordered by due date.
func (l *Ledger) GenerateSchedule(ctx context.Context, in GenerateScheduleInput) ([]*models.ScheduleEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	months := 0
	if in.Months != nil {
		months = *in.Months
	}

	unlock := l.locks.Lock(in.DebtAccountID)
	defer unlock()

	logger := l.log.WithField("debt_id", in.DebtAccountID)
	var entries []*models.ScheduleEntry
	err := l.storage.RunInTx(ctx, func(tx store.Storage) error {
		debt, err := tx.GetDebtAccount(ctx, in.DebtAccountID)
		if err != nil {
			return err
		}
		terms := schedule.TermsOf(debt)
		if err := terms.Validate(); err != nil {
			return err
		}

		existing, err := tx.GetScheduleForDebt(ctx, debt.ID)
		if err != nil {
			return err
		}
		from := l.anchor(debt, existing)

		payments, err := schedule.Generate(terms, debt.CurrentBalance, from, months)
		if err != nil {
			return err
		}
		if months == 0 && len(payments) == schedule.MaxMonths && payments[len(payments)-1].Balance > 0 {
			logger.WithField("remaining", payments[len(payments)-1].Balance.String()).
				Warn("Schedule truncated before payoff")
		}

		removed, err := tx.DeleteUnpaidSchedule(ctx, debt.ID)
		if err != nil {
			return err
		}

		for _, p := range payments {
			entry := &models.ScheduleEntry{
				ID:               uuid.NewString(),
				DebtAccountID:    debt.ID,
				DueDate:          p.DueDate,
				PlannedPayment:   p.Payment,
				PlannedInterest:  p.Interest,
				PlannedPrincipal: p.Principal,
			}
			if err := tx.CreateScheduleEntry(ctx, entry); err != nil {
				return err
			}
			if err := tx.CreateReminder(ctx, l.reminderFor(debt, entry)); err != nil {
				return err
			}
		}

		entries, err = tx.GetScheduleForDebt(ctx, debt.ID)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"replaced":  removed,
			"generated": len(payments),
			"from":      from.String(),
		}).Info("Generated debt schedule")
		return nil
	})
	if err != nil {
		return nil, translateErr("generate schedule", "debt account", in.DebtAccountID, err)
	}
	return entries, nil
}

// anchor is the earliest date a regenerated schedule may start: today, the
// debt's start date, or the day after its last paid entry, whichever is latest.
func (l *Ledger) anchor(debt *models.DebtAccount, existing []*models.ScheduleEntry) models.Date {
	from := l.today()
	if debt.StartDate.After(from) {
		from = debt.StartDate
	}
	for _, e := range existing {
		if e.IsPaid && !e.DueDate.Before(from) {
			from = e.DueDate.AddDays(1)
		}
	}
	return from
}

func (l *Ledger) reminderFor(debt *models.DebtAccount, entry *models.ScheduleEntry) *models.Reminder {
	day := entry.DueDate.AddDays(-l.leadDays)
	return &models.Reminder{
		ID:              uuid.NewString(),
		DebtAccountID:   debt.ID,
		ScheduleEntryID: entry.ID,
		Title:           fmt.Sprintf("%s payment due", debt.Name),
		Amount:          entry.PlannedPayment,
		DueDate:         entry.DueDate,
		FireAt:          day.Add(reminderHour * time.Hour),
		Status:          models.ReminderStatusScheduled,
	}
}

// ListSchedule returns a debt's schedule ordered by due date.
func (l *Ledger) ListSchedule(ctx context.Context, debtID string) ([]*models.ScheduleEntry, error) {
	if debtID == "" {
		return nil, models.Invalid("debtId", "is required")
	}
	if _, err := l.storage.GetDebtAccount(ctx, debtID); err != nil {
		return nil, translateErr("list schedule", "debt account", debtID, err)
	}
	entries, err := l.storage.GetScheduleForDebt(ctx, debtID)
	if err != nil {
		return nil, translateErr("list schedule", "debt account", debtID, err)
	}
	return entries, nil
}

// ConfirmPayment marks a scheduled payment as paid and applies it: the debt's
// balance drops by the entry's principal, the entry's reminder is dismissed, a
// transaction is posted when accountID is set and the matching planned expense
// is credited when categoryID is set. Confirming an already paid entry changes
// nothing. The debt's full schedule is returned either way.
func (l *Ledger) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) ([]*models.ScheduleEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	entry, err := l.storage.GetScheduleEntry(ctx, in.ScheduleID)
	if err != nil {
		return nil, translateErr("confirm payment", "schedule entry", in.ScheduleID, err)
	}
	unlock := l.locks.Lock(entry.DebtAccountID)
	defer unlock()

	logger := l.log.WithFields(logrus.Fields{"debt_id": entry.DebtAccountID, "schedule_id": entry.ID})
	var entries []*models.ScheduleEntry
	err = l.storage.RunInTx(ctx, func(tx store.Storage) error {
		// Reload under the lock; a regeneration may have replaced the entry.
		entry, err := tx.GetScheduleEntry(ctx, in.ScheduleID)
		if err != nil {
			return err
		}
		if entry.IsPaid {
			logger.Info("Payment already confirmed")
			entries, err = tx.GetScheduleForDebt(ctx, entry.DebtAccountID)
			return err
		}

		debt, err := tx.GetDebtAccount(ctx, entry.DebtAccountID)
		if err != nil {
			return err
		}

		var transactionID string
		if in.AccountID != "" {
			posted := &models.Transaction{
				ID:              uuid.NewString(),
				AccountID:       in.AccountID,
				CategoryID:      in.CategoryID,
				DebtAccountID:   debt.ID,
				ScheduleEntryID: entry.ID,
				Type:            models.TransactionTypeExpense,
				Amount:          entry.PlannedPayment,
				OccurredOn:      entry.DueDate,
				CreatedAt:       l.now().UTC(),
			}
			if err := tx.CreateTransaction(ctx, posted); err != nil {
				return fmt.Errorf("failed to post payment transaction: %w", err)
			}
			transactionID = posted.ID
		}

		changed, err := tx.MarkSchedulePaid(ctx, entry.ID, transactionID)
		if err != nil {
			return err
		}
		if !changed {
			return &models.ConflictError{Op: "confirm payment", Err: errors.New("entry was confirmed concurrently")}
		}

		debt.CurrentBalance = money.Max(0, debt.CurrentBalance-entry.PlannedPrincipal)
		debt.UpdatedAt = l.now().UTC()
		if err := tx.UpdateDebtAccount(ctx, debt); err != nil {
			return fmt.Errorf("failed to update debt balance: %w", err)
		}
		if err := tx.DismissReminders(ctx, entry.ID); err != nil {
			return err
		}
		if in.CategoryID != "" {
			if err := l.creditPlannedExpense(ctx, tx, entry, in.CategoryID, logger); err != nil {
				return err
			}
		}

		entries, err = tx.GetScheduleForDebt(ctx, debt.ID)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"amount":  entry.PlannedPayment.String(),
			"balance": debt.CurrentBalance.String(),
		}).Info("Confirmed debt payment")
		return nil
	})
	if err != nil {
		return nil, translateErr("confirm payment", "schedule entry", in.ScheduleID, err)
	}
	return entries, nil
}

// creditPlannedExpense adds a confirmed payment to the actual amount of the
// planned expense with categoryID in the plan covering the entry's month.
// Having no such plan or expense is not an error.
func (l *Ledger) creditPlannedExpense(ctx context.Context, tx store.Storage, entry *models.ScheduleEntry, categoryID string, logger logrus.FieldLogger) error {
	plan, err := tx.GetMonthlyPlanByMonth(ctx, entry.DueDate.MonthStart())
	if errors.Is(err, store.ErrNotFound) {
		logger.WithField("month", entry.DueDate.MonthStart().String()).Debug("No monthly plan to credit")
		return nil
	}
	if err != nil {
		return err
	}

	expenses, err := tx.GetPlannedExpenses(ctx, plan.ID)
	if err != nil {
		return err
	}
	for _, expense := range expenses {
		if expense.CategoryID != categoryID {
			continue
		}
		expense.ActualAmount += entry.PlannedPayment
		if err := tx.UpdatePlannedExpense(ctx, expense); err != nil {
			return fmt.Errorf("failed to credit planned expense: %w", err)
		}
		logger.WithField("expense_id", expense.ID).Debug("Credited planned expense")
		return nil
	}
	logger.WithField("category_id", categoryID).Debug("No planned expense with category")
	return nil
}
