package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/sirupsen/logrus"

	"github.com/mattn/go-sqlite3"
)

// Connection parameters merged into every DSN unless the caller sets them.
// Immediate transactions take the write lock up front so two writers
// serialize instead of failing at commit.
var defaultDSNParams = map[string]string{
	"_journal_mode": "WAL",
	"_busy_timeout": "5000",
	"_txlock":       "immediate",
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements every data method of Storage against a querier.
type queries struct {
	q querier
}

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	queries
	db *sql.DB
}

// txStore is the Storage handed to RunInTx callbacks.
type txStore struct {
	queries
}

// NewSQLiteStore opens (and migrates) the database at dataSourceName, a file
// path or a file: URI, optionally with its own query parameters.
func NewSQLiteStore(dataSourceName string, log logrus.FieldLogger) (*SQLiteStore, error) {
	dsn, inMemory, err := buildDSN(dataSourceName)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if inMemory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{queries: queries{q: db}, db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.WithField("dsn", dataSourceName).Info("Database connection established and schema initialized")
	return s, nil
}

// buildDSN merges the default parameters into dataSourceName. Foreign keys
// are always enabled: deletes rely on ON DELETE CASCADE.
func buildDSN(dataSourceName string) (dsn string, inMemory bool, err error) {
	path, rawQuery, _ := strings.Cut(strings.TrimPrefix(dataSourceName, "file:"), "?")
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", false, fmt.Errorf("invalid database parameters %q: %w", rawQuery, err)
	}
	for key, value := range defaultDSNParams {
		if params.Get(key) == "" {
			params.Set(key, value)
		}
	}
	params.Del("_fk")
	params.Set("_foreign_keys", "on")

	inMemory = path == ":memory:" || path == "" || params.Get("mode") == "memory"
	return "file:" + path + "?" + params.Encode(), inMemory, nil
}

// initSchema creates the tables if they don't already exist. Money columns
// are INTEGER minor units; rates are TEXT so no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS debt_accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		principal INTEGER NOT NULL,
		interest_rate TEXT NOT NULL,
		min_monthly_payment INTEGER NOT NULL,
		due_day INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		current_balance INTEGER NOT NULL CHECK (current_balance >= 0),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS debt_schedule (
		id TEXT PRIMARY KEY,
		debt_account_id TEXT NOT NULL REFERENCES debt_accounts(id) ON DELETE CASCADE,
		due_date TEXT NOT NULL,
		planned_payment INTEGER NOT NULL,
		planned_interest INTEGER NOT NULL,
		planned_principal INTEGER NOT NULL,
		is_paid INTEGER NOT NULL DEFAULT 0,
		transaction_id TEXT,
		created_at DATETIME NOT NULL,
		UNIQUE (debt_account_id, due_date)
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		category_id TEXT,
		debt_account_id TEXT NOT NULL,
		schedule_entry_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		occurred_on TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS monthly_plans (
		id TEXT PRIMARY KEY,
		month TEXT NOT NULL UNIQUE,
		note TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS planned_incomes (
		id TEXT PRIMARY KEY,
		monthly_plan_id TEXT NOT NULL REFERENCES monthly_plans(id) ON DELETE CASCADE,
		source_name TEXT NOT NULL,
		type TEXT NOT NULL,
		expected_amount INTEGER NOT NULL,
		actual_amount INTEGER NOT NULL DEFAULT 0,
		expected_date TEXT,
		is_fixed INTEGER NOT NULL DEFAULT 1,
		account_id TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS planned_expenses (
		id TEXT PRIMARY KEY,
		monthly_plan_id TEXT NOT NULL REFERENCES monthly_plans(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		category_id TEXT,
		expected_amount INTEGER NOT NULL,
		actual_amount INTEGER NOT NULL DEFAULT 0,
		frequency TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS planned_savings (
		id TEXT PRIMARY KEY,
		monthly_plan_id TEXT NOT NULL REFERENCES monthly_plans(id) ON DELETE CASCADE,
		goal_id TEXT,
		expected_amount INTEGER NOT NULL,
		actual_amount INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		debt_account_id TEXT NOT NULL,
		schedule_entry_id TEXT NOT NULL REFERENCES debt_schedule(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		amount INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		fire_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		sent_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_debt_schedule_debt ON debt_schedule(debt_account_id, due_date);
	CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, fire_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RunInTx runs fn inside one database transaction.
func (s *SQLiteStore) RunInTx(ctx context.Context, fn func(Storage) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{queries: queries{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("failed to commit transaction", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RunInTx on a transaction-bound store joins the outer transaction.
func (t *txStore) RunInTx(ctx context.Context, fn func(Storage) error) error {
	return fn(t)
}

func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Close() error {
	return nil
}

// wrapErr classifies driver errors: lock contention and uniqueness races
// become ErrConflict.
func wrapErr(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

func checkAffected(result sql.Result, entity, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound(entity, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d *models.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ---- debt accounts ----

const debtColumns = `id, name, type, principal, interest_rate, min_monthly_payment, due_day, start_date, current_balance, created_at, updated_at`

func scanDebt(row scanner) (*models.DebtAccount, error) {
	var debt models.DebtAccount
	var principal, minPayment, balance int64
	if err := row.Scan(&debt.ID, &debt.Name, &debt.Type, &principal, &debt.InterestRate, &minPayment,
		&debt.DueDay, &debt.StartDate, &balance, &debt.CreatedAt, &debt.UpdatedAt); err != nil {
		return nil, err
	}
	debt.Principal = money.Cents(principal)
	debt.MinMonthlyPayment = money.Cents(minPayment)
	debt.CurrentBalance = money.Cents(balance)
	return &debt, nil
}

// CreateDebtAccount inserts a new debt account.
func (s *queries) CreateDebtAccount(ctx context.Context, debt *models.DebtAccount) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO debt_accounts (`+debtColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.Name, debt.Type, int64(debt.Principal), debt.InterestRate.String(), int64(debt.MinMonthlyPayment),
		debt.DueDay, debt.StartDate, int64(debt.CurrentBalance), debt.CreatedAt, debt.UpdatedAt,
	)
	if err != nil {
		return wrapErr("failed to create debt account", err)
	}
	return nil
}

// GetDebtAccount retrieves a debt account by its ID.
func (s *queries) GetDebtAccount(ctx context.Context, id string) (*models.DebtAccount, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debt_accounts WHERE id = ?`, id)
	debt, err := scanDebt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("debt account", id)
		}
		return nil, wrapErr("failed to get debt account", err)
	}
	return debt, nil
}

// UpdateDebtAccount overwrites every mutable column of a debt account.
func (s *queries) UpdateDebtAccount(ctx context.Context, debt *models.DebtAccount) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE debt_accounts SET name = ?, type = ?, principal = ?, interest_rate = ?, min_monthly_payment = ?, due_day = ?, start_date = ?, current_balance = ?, updated_at = ? WHERE id = ?`,
		debt.Name, debt.Type, int64(debt.Principal), debt.InterestRate.String(), int64(debt.MinMonthlyPayment),
		debt.DueDay, debt.StartDate, int64(debt.CurrentBalance), debt.UpdatedAt, debt.ID,
	)
	if err != nil {
		return wrapErr("failed to update debt account", err)
	}
	return checkAffected(result, "debt account", debt.ID)
}

// DeleteDebtAccount removes a debt; its schedule and reminders cascade.
func (s *queries) DeleteDebtAccount(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM debt_accounts WHERE id = ?`, id)
	if err != nil {
		return wrapErr("failed to delete debt account", err)
	}
	return checkAffected(result, "debt account", id)
}

// GetAllDebtAccounts retrieves all debt accounts, newest first.
func (s *queries) GetAllDebtAccounts(ctx context.Context) ([]*models.DebtAccount, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+debtColumns+` FROM debt_accounts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, wrapErr("failed to get all debt accounts", err)
	}
	defer rows.Close()

	var debts []*models.DebtAccount
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt account row: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return debts, nil
}

// ---- schedule ----

const scheduleColumns = `id, debt_account_id, due_date, planned_payment, planned_interest, planned_principal, is_paid, transaction_id`

func scanScheduleEntry(row scanner) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	var payment, interest, principal int64
	var isPaid int
	var txID sql.NullString
	if err := row.Scan(&entry.ID, &entry.DebtAccountID, &entry.DueDate, &payment, &interest, &principal, &isPaid, &txID); err != nil {
		return nil, err
	}
	entry.PlannedPayment = money.Cents(payment)
	entry.PlannedInterest = money.Cents(interest)
	entry.PlannedPrincipal = money.Cents(principal)
	entry.IsPaid = isPaid == 1
	entry.TransactionID = txID.String
	return &entry, nil
}

// CreateScheduleEntry inserts one schedule entry.
func (s *queries) CreateScheduleEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO debt_schedule (`+scheduleColumns+`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.DebtAccountID, entry.DueDate, int64(entry.PlannedPayment), int64(entry.PlannedInterest),
		int64(entry.PlannedPrincipal), boolInt(entry.IsPaid), nullString(entry.TransactionID), time.Now().UTC(),
	)
	if err != nil {
		return wrapErr("failed to create schedule entry", err)
	}
	return nil
}

// GetScheduleEntry retrieves a schedule entry by its ID.
func (s *queries) GetScheduleEntry(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM debt_schedule WHERE id = ?`, id)
	entry, err := scanScheduleEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("schedule entry", id)
		}
		return nil, wrapErr("failed to get schedule entry", err)
	}
	return entry, nil
}

// GetScheduleForDebt retrieves a debt's schedule ordered by due date.
func (s *queries) GetScheduleForDebt(ctx context.Context, debtID string) ([]*models.ScheduleEntry, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM debt_schedule WHERE debt_account_id = ? ORDER BY due_date ASC`, debtID)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get schedule for debt %s", debtID), err)
	}
	defer rows.Close()

	entries := []*models.ScheduleEntry{}
	for rows.Next() {
		entry, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for debt schedule: %w", err)
	}
	return entries, nil
}

// DeleteUnpaidSchedule removes every unpaid entry of a debt. Paid rows are
// never touched.
func (s *queries) DeleteUnpaidSchedule(ctx context.Context, debtID string) (int64, error) {
	result, err := s.q.ExecContext(ctx, `DELETE FROM debt_schedule WHERE debt_account_id = ? AND is_paid = 0`, debtID)
	if err != nil {
		return 0, wrapErr("failed to delete unpaid schedule", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}

// MarkSchedulePaid marks an unpaid entry paid. It returns false when the entry
// was already paid.
func (s *queries) MarkSchedulePaid(ctx context.Context, id, transactionID string) (bool, error) {
	result, err := s.q.ExecContext(ctx,
		`UPDATE debt_schedule SET is_paid = 1, transaction_id = COALESCE(?, transaction_id) WHERE id = ? AND is_paid = 0`,
		nullString(transactionID), id)
	if err != nil {
		return false, wrapErr("failed to mark schedule entry paid", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetScheduleEntry(ctx, id); err != nil {
			return false, err
		}
	}
	return n == 1, nil
}

// ---- transactions ----

// CreateTransaction inserts a new ledger transaction.
func (s *queries) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, category_id, debt_account_id, schedule_entry_id, type, amount, occurred_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.AccountID, nullString(tx.CategoryID), tx.DebtAccountID, tx.ScheduleEntryID, tx.Type,
		int64(tx.Amount), tx.OccurredOn, tx.CreatedAt,
	)
	if err != nil {
		return wrapErr("failed to create transaction", err)
	}
	return nil
}

// GetTransactionsForDebt retrieves all transactions posted against a debt.
func (s *queries) GetTransactionsForDebt(ctx context.Context, debtID string) ([]*models.Transaction, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, account_id, category_id, debt_account_id, schedule_entry_id, type, amount, occurred_on, created_at
		FROM transactions WHERE debt_account_id = ? ORDER BY occurred_on ASC, created_at ASC`, debtID)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get transactions for debt %s", debtID), err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var categoryID sql.NullString
		var amount int64
		if err := rows.Scan(&tx.ID, &tx.AccountID, &categoryID, &tx.DebtAccountID, &tx.ScheduleEntryID, &tx.Type,
			&amount, &tx.OccurredOn, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		tx.CategoryID = categoryID.String
		tx.Amount = money.Cents(amount)
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for debt transactions: %w", err)
	}
	return transactions, nil
}

// ---- monthly plans ----

// Plan totals are summed from the child tables on every read.
const planSelect = `SELECT p.id, p.month, p.note,
	(SELECT COALESCE(SUM(expected_amount), 0) FROM planned_incomes WHERE monthly_plan_id = p.id),
	(SELECT COALESCE(SUM(expected_amount), 0) FROM planned_expenses WHERE monthly_plan_id = p.id),
	(SELECT COALESCE(SUM(expected_amount), 0) FROM planned_savings WHERE monthly_plan_id = p.id)
	FROM monthly_plans p`

func scanPlan(row scanner) (*models.MonthlyPlan, error) {
	var plan models.MonthlyPlan
	var income, expenses, savings int64
	if err := row.Scan(&plan.ID, &plan.Month, &plan.Note, &income, &expenses, &savings); err != nil {
		return nil, err
	}
	plan.TotalPlannedIncome = money.Cents(income)
	plan.TotalPlannedExpenses = money.Cents(expenses)
	plan.TotalPlannedSavings = money.Cents(savings)
	return &plan, nil
}

// CreateMonthlyPlan inserts a plan. Totals are ignored; they are derived.
func (s *queries) CreateMonthlyPlan(ctx context.Context, plan *models.MonthlyPlan) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO monthly_plans (id, month, note, created_at) VALUES (?, ?, ?, ?)`,
		plan.ID, plan.Month, plan.Note, time.Now().UTC(),
	)
	if err != nil {
		return wrapErr("failed to create monthly plan", err)
	}
	return nil
}

// GetMonthlyPlan retrieves a plan with its derived totals.
func (s *queries) GetMonthlyPlan(ctx context.Context, id string) (*models.MonthlyPlan, error) {
	plan, err := scanPlan(s.q.QueryRowContext(ctx, planSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("monthly plan", id)
		}
		return nil, wrapErr("failed to get monthly plan", err)
	}
	return plan, nil
}

// GetMonthlyPlanByMonth retrieves the plan for the month starting at month.
func (s *queries) GetMonthlyPlanByMonth(ctx context.Context, month models.Date) (*models.MonthlyPlan, error) {
	plan, err := scanPlan(s.q.QueryRowContext(ctx, planSelect+` WHERE p.month = ?`, month))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("monthly plan for", month.String())
		}
		return nil, wrapErr("failed to get monthly plan", err)
	}
	return plan, nil
}

// GetAllMonthlyPlans retrieves every plan, latest month first.
func (s *queries) GetAllMonthlyPlans(ctx context.Context) ([]*models.MonthlyPlan, error) {
	rows, err := s.q.QueryContext(ctx, planSelect+` ORDER BY p.month DESC`)
	if err != nil {
		return nil, wrapErr("failed to get monthly plans", err)
	}
	defer rows.Close()

	plans := []*models.MonthlyPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly plan row: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return plans, nil
}

// DeleteMonthlyPlan removes a plan and, by cascade, its planned items.
func (s *queries) DeleteMonthlyPlan(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM monthly_plans WHERE id = ?`, id)
	if err != nil {
		return wrapErr("failed to delete monthly plan", err)
	}
	return checkAffected(result, "monthly plan", id)
}

// ---- planned incomes ----

const incomeColumns = `id, monthly_plan_id, source_name, type, expected_amount, actual_amount, expected_date, is_fixed, account_id, status, created_at`

func scanIncome(row scanner) (*models.PlannedIncome, error) {
	var income models.PlannedIncome
	var expected, actual int64
	var expectedDate, accountID sql.NullString
	var isFixed int
	if err := row.Scan(&income.ID, &income.MonthlyPlanID, &income.SourceName, &income.Type, &expected, &actual,
		&expectedDate, &isFixed, &accountID, &income.Status, &income.CreatedAt); err != nil {
		return nil, err
	}
	income.ExpectedAmount = money.Cents(expected)
	income.ActualAmount = money.Cents(actual)
	income.IsFixed = isFixed == 1
	income.AccountID = accountID.String
	if expectedDate.Valid {
		d, err := models.ParseDate(expectedDate.String)
		if err != nil {
			return nil, err
		}
		income.ExpectedDate = &d
	}
	return &income, nil
}

func (s *queries) CreatePlannedIncome(ctx context.Context, income *models.PlannedIncome) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO planned_incomes (`+incomeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		income.ID, income.MonthlyPlanID, income.SourceName, income.Type, int64(income.ExpectedAmount),
		int64(income.ActualAmount), nullDate(income.ExpectedDate), boolInt(income.IsFixed),
		nullString(income.AccountID), income.Status, income.CreatedAt,
	)
	if err != nil {
		return wrapErr("failed to create planned income", err)
	}
	return nil
}

func (s *queries) GetPlannedIncome(ctx context.Context, id string) (*models.PlannedIncome, error) {
	income, err := scanIncome(s.q.QueryRowContext(ctx, `SELECT `+incomeColumns+` FROM planned_incomes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("planned income", id)
		}
		return nil, wrapErr("failed to get planned income", err)
	}
	return income, nil
}

func (s *queries) UpdatePlannedIncome(ctx context.Context, income *models.PlannedIncome) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE planned_incomes SET source_name = ?, type = ?, expected_amount = ?, actual_amount = ?, expected_date = ?, is_fixed = ?, account_id = ?, status = ? WHERE id = ?`,
		income.SourceName, income.Type, int64(income.ExpectedAmount), int64(income.ActualAmount),
		nullDate(income.ExpectedDate), boolInt(income.IsFixed), nullString(income.AccountID), income.Status, income.ID,
	)
	if err != nil {
		return wrapErr("failed to update planned income", err)
	}
	return checkAffected(result, "planned income", income.ID)
}

func (s *queries) DeletePlannedIncome(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM planned_incomes WHERE id = ?`, id)
	if err != nil {
		return wrapErr("failed to delete planned income", err)
	}
	return checkAffected(result, "planned income", id)
}

// GetPlannedIncomes lists a plan's incomes by expected date, undated last.
func (s *queries) GetPlannedIncomes(ctx context.Context, planID string) ([]*models.PlannedIncome, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+incomeColumns+` FROM planned_incomes WHERE monthly_plan_id = ?
		ORDER BY expected_date IS NULL, expected_date, created_at DESC`, planID)
	if err != nil {
		return nil, wrapErr("failed to get planned incomes", err)
	}
	defer rows.Close()

	incomes := []*models.PlannedIncome{}
	for rows.Next() {
		income, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planned income row: %w", err)
		}
		incomes = append(incomes, income)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return incomes, nil
}

// ---- planned expenses ----

const expenseColumns = `id, monthly_plan_id, label, category_id, expected_amount, actual_amount, frequency, created_at`

func scanExpense(row scanner) (*models.PlannedExpense, error) {
	var expense models.PlannedExpense
	var expected, actual int64
	var categoryID sql.NullString
	if err := row.Scan(&expense.ID, &expense.MonthlyPlanID, &expense.Label, &categoryID, &expected, &actual,
		&expense.Frequency, &expense.CreatedAt); err != nil {
		return nil, err
	}
	expense.CategoryID = categoryID.String
	expense.ExpectedAmount = money.Cents(expected)
	expense.ActualAmount = money.Cents(actual)
	return &expense, nil
}

func (s *queries) CreatePlannedExpense(ctx context.Context, expense *models.PlannedExpense) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO planned_expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.MonthlyPlanID, expense.Label, nullString(expense.CategoryID),
		int64(expense.ExpectedAmount), int64(expense.ActualAmount), expense.Frequency, expense.CreatedAt,
	)
	if err != nil {
		return wrapErr("failed to create planned expense", err)
	}
	return nil
}

func (s *queries) GetPlannedExpense(ctx context.Context, id string) (*models.PlannedExpense, error) {
	expense, err := scanExpense(s.q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM planned_expenses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("planned expense", id)
		}
		return nil, wrapErr("failed to get planned expense", err)
	}
	return expense, nil
}

func (s *queries) UpdatePlannedExpense(ctx context.Context, expense *models.PlannedExpense) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE planned_expenses SET label = ?, category_id = ?, expected_amount = ?, actual_amount = ?, frequency = ? WHERE id = ?`,
		expense.Label, nullString(expense.CategoryID), int64(expense.ExpectedAmount), int64(expense.ActualAmount),
		expense.Frequency, expense.ID,
	)
	if err != nil {
		return wrapErr("failed to update planned expense", err)
	}
	return checkAffected(result, "planned expense", expense.ID)
}

func (s *queries) DeletePlannedExpense(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM planned_expenses WHERE id = ?`, id)
	if err != nil {
		return wrapErr("failed to delete planned expense", err)
	}
	return checkAffected(result, "planned expense", id)
}

// GetPlannedExpenses lists a plan's expenses in creation order.
func (s *queries) GetPlannedExpenses(ctx context.Context, planID string) ([]*models.PlannedExpense, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM planned_expenses WHERE monthly_plan_id = ? ORDER BY created_at ASC, id`, planID)
	if err != nil {
		return nil, wrapErr("failed to get planned expenses", err)
	}
	defer rows.Close()

	expenses := []*models.PlannedExpense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planned expense row: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return expenses, nil
}

// ---- planned savings ----

const savingColumns = `id, monthly_plan_id, goal_id, expected_amount, actual_amount, created_at`

func scanSaving(row scanner) (*models.PlannedSaving, error) {
	var saving models.PlannedSaving
	var expected, actual int64
	var goalID sql.NullString
	if err := row.Scan(&saving.ID, &saving.MonthlyPlanID, &goalID, &expected, &actual, &saving.CreatedAt); err != nil {
		return nil, err
	}
	saving.GoalID = goalID.String
	saving.ExpectedAmount = money.Cents(expected)
	saving.ActualAmount = money.Cents(actual)
	return &saving, nil
}

func (s *queries) CreatePlannedSaving(ctx context.Context, saving *models.PlannedSaving) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO planned_savings (`+savingColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		saving.ID, saving.MonthlyPlanID, nullString(saving.GoalID), int64(saving.ExpectedAmount),
		int64(saving.ActualAmount), saving.CreatedAt,
	)
	if err != nil {
		return wrapErr("failed to create planned saving", err)
	}
	return nil
}

func (s *queries) GetPlannedSaving(ctx context.Context, id string) (*models.PlannedSaving, error) {
	saving, err := scanSaving(s.q.QueryRowContext(ctx, `SELECT `+savingColumns+` FROM planned_savings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("planned saving", id)
		}
		return nil, wrapErr("failed to get planned saving", err)
	}
	return saving, nil
}

func (s *queries) UpdatePlannedSaving(ctx context.Context, saving *models.PlannedSaving) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE planned_savings SET goal_id = ?, expected_amount = ?, actual_amount = ? WHERE id = ?`,
		nullString(saving.GoalID), int64(saving.ExpectedAmount), int64(saving.ActualAmount), saving.ID,
	)
	if err != nil {
		return wrapErr("failed to update planned saving", err)
	}
	return checkAffected(result, "planned saving", saving.ID)
}

func (s *queries) DeletePlannedSaving(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM planned_savings WHERE id = ?`, id)
	if err != nil {
		return wrapErr("failed to delete planned saving", err)
	}
	return checkAffected(result, "planned saving", id)
}

func (s *queries) GetPlannedSavings(ctx context.Context, planID string) ([]*models.PlannedSaving, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+savingColumns+` FROM planned_savings WHERE monthly_plan_id = ? ORDER BY created_at ASC, id`, planID)
	if err != nil {
		return nil, wrapErr("failed to get planned savings", err)
	}
	defer rows.Close()

	savings := []*models.PlannedSaving{}
	for rows.Next() {
		saving, err := scanSaving(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planned saving row: %w", err)
		}
		savings = append(savings, saving)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return savings, nil
}

// ---- reminders ----

// CreateReminder inserts a reminder. fire_at is stored as unix seconds so
// due lookups compare integers.
func (s *queries) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO reminders (id, debt_account_id, schedule_entry_id, title, amount, due_date, fire_at, status, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reminder.ID, reminder.DebtAccountID, reminder.ScheduleEntryID, reminder.Title, int64(reminder.Amount),
		reminder.DueDate, reminder.FireAt.Unix(), reminder.Status, reminder.SentAt,
	)
	if err != nil {
		return wrapErr("failed to create reminder", err)
	}
	return nil
}

// GetDueReminders returns scheduled reminders whose fire time has passed.
func (s *queries) GetDueReminders(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, debt_account_id, schedule_entry_id, title, amount, due_date, fire_at, status, sent_at
		FROM reminders WHERE status = ? AND fire_at <= ? ORDER BY fire_at ASC`,
		models.ReminderStatusScheduled, now.Unix())
	if err != nil {
		return nil, wrapErr("failed to get due reminders", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		var r models.Reminder
		var amount, fireAt int64
		var sentAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.DebtAccountID, &r.ScheduleEntryID, &r.Title, &amount, &r.DueDate, &fireAt, &r.Status, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder row: %w", err)
		}
		r.Amount = money.Cents(amount)
		r.FireAt = time.Unix(fireAt, 0).UTC()
		if sentAt.Valid {
			r.SentAt = &sentAt.Time
		}
		reminders = append(reminders, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for reminders: %w", err)
	}
	return reminders, nil
}

// MarkReminderSent records a delivered reminder.
func (s *queries) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE reminders SET status = ?, sent_at = ? WHERE id = ?`, models.ReminderStatusSent, at.UTC(), id)
	if err != nil {
		return wrapErr("failed to mark reminder sent", err)
	}
	return checkAffected(result, "reminder", id)
}

// DismissReminders silences pending reminders of a schedule entry.
func (s *queries) DismissReminders(ctx context.Context, scheduleEntryID string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE reminders SET status = ? WHERE schedule_entry_id = ? AND status = ?`,
		models.ReminderStatusDismissed, scheduleEntryID, models.ReminderStatusScheduled)
	if err != nil {
		return wrapErr("failed to dismiss reminders", err)
	}
	return nil
}
