package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/schedule"
	"github.com/mcclellann/debtplan/pkg/store"
	"github.com/sirupsen/logrus"
)

// DefaultReminderLeadDays is how many days before a due date its reminder fires.
const DefaultReminderLeadDays = 3

// Ledger handles the business logic for debts, their schedules and monthly plans.
type Ledger struct {
	storage  store.Storage
	log      logrus.FieldLogger
	now      func() time.Time
	leadDays int
	locks    *keyedMutex
}

type Option func(*Ledger)

func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithClock replaces time.Now, which decides "today" for schedule anchoring.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithReminderLeadDays(days int) Option {
	return func(l *Ledger) {
		if days >= 0 {
			l.leadDays = days
		}
	}
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, opts ...Option) *Ledger {
	l := &Ledger{
		storage:  s,
		log:      logrus.StandardLogger(),
		now:      time.Now,
		leadDays: DefaultReminderLeadDays,
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) today() models.Date {
	return models.DateOf(l.now())
}

// translateErr turns store sentinels into the error taxonomy. Errors that are
// already typed pass through.
func translateErr(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	var (
		nf *models.NotFoundError
		it *models.InvalidTermsError
		ve *models.ValidationError
		ce *models.ConflictError
	)
	switch {
	case errors.As(err, &nf), errors.As(err, &it), errors.As(err, &ve), errors.As(err, &ce):
		return err
	case errors.Is(err, store.ErrNotFound):
		return &models.NotFoundError{Entity: entity, ID: id}
	case errors.Is(err, store.ErrConflict):
		return &models.ConflictError{Op: op, Err: err}
	}
	return err
}

// AddDebtAccount creates a new debt. The running balance starts at the
// principal unless the input overrides it.
func (l *Ledger) AddDebtAccount(ctx context.Context, in NewDebtAccount) (*models.DebtAccount, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	debt := &models.DebtAccount{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Type:              in.Type,
		Principal:         in.Principal,
		InterestRate:      in.InterestRate,
		MinMonthlyPayment: in.MinMonthlyPayment,
		DueDay:            in.DueDay,
		StartDate:         in.StartDate,
		CurrentBalance:    in.Principal,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.CurrentBalance != nil {
		debt.CurrentBalance = *in.CurrentBalance
	}

	if err := l.storage.CreateDebtAccount(ctx, debt); err != nil {
		return nil, translateErr("add debt account", "debt account", debt.ID, err)
	}
	l.log.WithField("debt_id", debt.ID).Info("Added debt account")
	return debt, nil
}

// GetDebtAccount retrieves a debt account by its ID.
func (l *Ledger) GetDebtAccount(ctx context.Context, id string) (*models.DebtAccount, error) {
	debt, err := l.storage.GetDebtAccount(ctx, id)
	if err != nil {
		return nil, translateErr("get debt account", "debt account", id, err)
	}
	return debt, nil
}

// ListDebtAccounts retrieves all debt accounts.
func (l *Ledger) ListDebtAccounts(ctx context.Context) ([]*models.DebtAccount, error) {
	debts, err := l.storage.GetAllDebtAccounts(ctx)
	if err != nil {
		return nil, translateErr("list debt accounts", "debt account", "", err)
	}
	if debts == nil {
		debts = []*models.DebtAccount{}
	}
	return debts, nil
}

// UpdateDebtAccount applies a partial update. The existing schedule is kept;
// callers regenerate it when the terms change.
func (l *Ledger) UpdateDebtAccount(ctx context.Context, patch DebtAccountPatch) (*models.DebtAccount, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	unlock := l.locks.Lock(patch.ID)
	defer unlock()

	var updated *models.DebtAccount
	err := l.storage.RunInTx(ctx, func(tx store.Storage) error {
		debt, err := tx.GetDebtAccount(ctx, patch.ID)
		if err != nil {
			return err
		}
		patch.apply(debt)
		if err := schedule.TermsOf(debt).Validate(); err != nil {
			return err
		}
		debt.UpdatedAt = l.now().UTC()
		if err := tx.UpdateDebtAccount(ctx, debt); err != nil {
			return err
		}
		updated = debt
		return nil
	})
	if err != nil {
		return nil, translateErr("update debt account", "debt account", patch.ID, err)
	}
	l.log.WithField("debt_id", patch.ID).Info("Updated debt account")
	return updated, nil
}

// DeleteDebtAccount deletes a debt together with its schedule and reminders.
func (l *Ledger) DeleteDebtAccount(ctx context.Context, id string) error {
	if id == "" {
		return models.Invalid("id", "is required")
	}
	unlock := l.locks.Lock(id)
	defer unlock()

	if err := l.storage.DeleteDebtAccount(ctx, id); err != nil {
		return translateErr("delete debt account", "debt account", id, err)
	}
	l.log.WithField("debt_id", id).Info("Deleted debt account")
	return nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
