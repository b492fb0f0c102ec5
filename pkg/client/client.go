// Package client calls the debtplan invoke API and caches query results
// until a mutation touches them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidTerms = errors.New("invalid terms")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
)

var sentinelByKind = map[models.ErrorKind]error{
	models.KindNotFound:     ErrNotFound,
	models.KindInvalidTerms: ErrInvalidTerms,
	models.KindValidation:   ErrValidation,
	models.KindConflict:     ErrConflict,
}

// Error is a failure reported by the server. It matches the sentinel of its
// kind under errors.Is.
type Error struct {
	Status  int
	ErrKind models.ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.ErrKind, e.Status, e.Message)
}

func (e *Error) Kind() models.ErrorKind { return e.ErrKind }

func (e *Error) Unwrap() error { return sentinelByKind[e.ErrKind] }

// Client talks to one debtplan server.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
	cache   *Cache
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		log:     logrus.StandardLogger(),
		cache:   NewCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the query cache, mostly for inspection.
func (c *Client) Cache() *Cache { return c.cache }

// Invoke posts payload to the command and decodes the response into out,
// which may be nil. A nil payload is sent as {}. Invoke bypasses the cache.
func (c *Client) Invoke(ctx context.Context, command string, payload, out any) error {
	body, err := c.call(ctx, command, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: %v", command, ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, command string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", command, err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/invoke/"+command, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", command, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", command, err)
	}
	if res.StatusCode >= 300 {
		return nil, decodeError(res.StatusCode, body)
	}
	c.log.WithFields(logrus.Fields{"command": command, "status": res.StatusCode}).Debug("Invoked command")
	return body, nil
}

func decodeError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Kind    models.ErrorKind `json:"kind"`
			Message string           `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Kind == "" {
		return &Error{Status: status, ErrKind: models.KindInternal, Message: strings.TrimSpace(string(body))}
	}
	return &Error{Status: status, ErrKind: envelope.Error.Kind, Message: envelope.Error.Message}
}

func input(v any) map[string]any { return map[string]any{"input": v} }

// query serves key from the cache, or invokes the command and caches the
// response. The cache holds response bodies and every call decodes a fresh
// value, so callers may modify what they get back.
func query[T any](ctx context.Context, c *Client, key Key, command string, payload any, decode func([]byte) (T, error)) (T, error) {
	if body, ok := c.cache.Get(key); ok {
		return decode(body)
	}
	var zero T
	body, err := c.call(ctx, command, payload)
	if err != nil {
		return zero, err
	}
	out, err := decode(body)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", command, err)
	}
	c.cache.Put(key, body)
	return out, nil
}

func listOf[T any](s schema) func([]byte) ([]T, error) {
	return func(b []byte) ([]T, error) { return decodeList[T](b, s) }
}

func oneOf[T any](s schema) func([]byte) (*T, error) {
	return func(b []byte) (*T, error) { return decodeOne[T](b, s) }
}

// Debt accounts and schedules.

func (c *Client) ListDebtAccounts(ctx context.Context) ([]models.DebtAccount, error) {
	return query(ctx, c, Key{Kind: KindDebtAccounts}, "list_debt_accounts", nil, listOf[models.DebtAccount](debtAccountSchema))
}

func (c *Client) ListSchedule(ctx context.Context, debtID string) ([]models.ScheduleEntry, error) {
	return query(ctx, c, Key{KindDebtSchedule, debtID}, "list_debt_schedule",
		map[string]string{"debtId": debtID}, listOf[models.ScheduleEntry](scheduleEntrySchema))
}

func (c *Client) AddDebtAccount(ctx context.Context, in NewDebtAccount) (*models.DebtAccount, error) {
	body, err := c.call(ctx, "add_debt_account", input(in))
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(Key{Kind: KindDebtAccounts})
	return decodeOne[models.DebtAccount](body, debtAccountSchema)
}

func (c *Client) UpdateDebtAccount(ctx context.Context, in DebtAccountPatch) (*models.DebtAccount, error) {
	body, err := c.call(ctx, "update_debt_account", input(in))
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(Key{Kind: KindDebtAccounts})
	return decodeOne[models.DebtAccount](body, debtAccountSchema)
}

func (c *Client) DeleteDebtAccount(ctx context.Context, id string) error {
	if _, err := c.call(ctx, "delete_debt_account", input(map[string]string{"id": id})); err != nil {
		return err
	}
	c.cache.Invalidate(Key{Kind: KindDebtAccounts}, Key{KindDebtSchedule, id})
	return nil
}

func (c *Client) GenerateSchedule(ctx context.Context, in GenerateScheduleRequest) ([]models.ScheduleEntry, error) {
	body, err := c.call(ctx, "generate_debt_schedule", input(in))
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(Key{KindDebtSchedule, in.DebtAccountID})
	entries, err := decodeList[models.ScheduleEntry](body, scheduleEntrySchema)
	if err != nil {
		return nil, err
	}
	c.cache.Put(Key{KindDebtSchedule, in.DebtAccountID}, body)
	return entries, nil
}

// ConfirmPayment confirms one scheduled payment. The confirmation changes the
// debt's balance and schedule, and with a category also the credited plan.
func (c *Client) ConfirmPayment(ctx context.Context, in ConfirmPaymentRequest) ([]models.ScheduleEntry, error) {
	body, err := c.call(ctx, "confirm_debt_payment", input(in))
	if err != nil {
		return nil, err
	}
	entries, err := decodeList[models.ScheduleEntry](body, scheduleEntrySchema)
	if err != nil {
		c.cache.InvalidateKind(KindDebtAccounts, KindDebtSchedule)
		return nil, err
	}
	c.cache.Invalidate(Key{Kind: KindDebtAccounts})
	if len(entries) > 0 {
		c.cache.Put(Key{KindDebtSchedule, entries[0].DebtAccountID}, body)
	}
	if in.CategoryID != "" {
		c.cache.InvalidateKind(KindPlannedExpenses, KindPlanActual, KindMonthlyPlans)
	}
	return entries, nil
}

// Monthly plans and their items.

func (c *Client) ListMonthlyPlans(ctx context.Context) ([]models.MonthlyPlan, error) {
	return query(ctx, c, Key{Kind: KindMonthlyPlans}, "list_monthly_plans", nil, listOf[models.MonthlyPlan](monthlyPlanSchema))
}

func (c *Client) PlanVsActual(ctx context.Context, planID string) (*models.PlanActual, error) {
	return query(ctx, c, Key{KindPlanActual, planID}, "plan_vs_actual",
		map[string]string{"planId": planID}, oneOf[models.PlanActual](planActualSchema))
}

func (c *Client) CreateMonthlyPlan(ctx context.Context, in NewMonthlyPlan) (*models.MonthlyPlan, error) {
	body, err := c.call(ctx, "create_monthly_plan", input(in))
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(Key{Kind: KindMonthlyPlans})
	return decodeOne[models.MonthlyPlan](body, monthlyPlanSchema)
}

func (c *Client) DeleteMonthlyPlan(ctx context.Context, id string) error {
	if _, err := c.call(ctx, "delete_monthly_plan", input(map[string]string{"id": id})); err != nil {
		return err
	}
	c.cache.Invalidate(
		Key{Kind: KindMonthlyPlans},
		Key{KindPlanActual, id},
		Key{KindPlannedIncomes, id},
		Key{KindPlannedExpenses, id},
		Key{KindPlannedSavings, id},
	)
	return nil
}

// invalidatePlan drops everything derived from the items of one plan. An
// empty planID drops every plan's item lists of kind.
func (c *Client) invalidatePlan(kind Kind, planID string) {
	c.cache.Invalidate(Key{Kind: KindMonthlyPlans})
	if planID == "" {
		c.cache.InvalidateKind(kind, KindPlanActual)
		return
	}
	c.cache.Invalidate(Key{kind, planID}, Key{KindPlanActual, planID})
}

func (c *Client) ListPlannedIncomes(ctx context.Context, planID string) ([]models.PlannedIncome, error) {
	return query(ctx, c, Key{KindPlannedIncomes, planID}, "list_planned_incomes",
		map[string]string{"planId": planID}, listOf[models.PlannedIncome](plannedIncomeSchema))
}

func (c *Client) AddPlannedIncome(ctx context.Context, in NewPlannedIncome) (*models.PlannedIncome, error) {
	body, err := c.call(ctx, "add_planned_income", input(in))
	if err != nil {
		return nil, err
	}
	c.invalidatePlan(KindPlannedIncomes, in.MonthlyPlanID)
	return decodeOne[models.PlannedIncome](body, plannedIncomeSchema)
}

func (c *Client) UpdatePlannedIncome(ctx context.Context, in PlannedIncomePatch) (*models.PlannedIncome, error) {
	body, err := c.call(ctx, "update_planned_income", input(in))
	if err != nil {
		return nil, err
	}
	income, err := decodeOne[models.PlannedIncome](body, plannedIncomeSchema)
	if err != nil {
		c.invalidatePlan(KindPlannedIncomes, "")
		return nil, err
	}
	c.invalidatePlan(KindPlannedIncomes, income.MonthlyPlanID)
	return income, nil
}

func (c *Client) DeletePlannedIncome(ctx context.Context, id string) error {
	if _, err := c.call(ctx, "delete_planned_income", input(map[string]string{"id": id})); err != nil {
		return err
	}
	c.invalidatePlan(KindPlannedIncomes, "")
	return nil
}

func (c *Client) ListPlannedExpenses(ctx context.Context, planID string) ([]models.PlannedExpense, error) {
	return query(ctx, c, Key{KindPlannedExpenses, planID}, "list_planned_expenses",
		map[string]string{"planId": planID}, listOf[models.PlannedExpense](plannedExpenseSchema))
}

func (c *Client) AddPlannedExpense(ctx context.Context, in NewPlannedExpense) (*models.PlannedExpense, error) {
	body, err := c.call(ctx, "add_planned_expense", input(in))
	if err != nil {
		return nil, err
	}
	c.invalidatePlan(KindPlannedExpenses, in.MonthlyPlanID)
	return decodeOne[models.PlannedExpense](body, plannedExpenseSchema)
}

func (c *Client) UpdatePlannedExpense(ctx context.Context, in PlannedExpensePatch) (*models.PlannedExpense, error) {
	body, err := c.call(ctx, "update_planned_expense", input(in))
	if err != nil {
		return nil, err
	}
	expense, err := decodeOne[models.PlannedExpense](body, plannedExpenseSchema)
	if err != nil {
		c.invalidatePlan(KindPlannedExpenses, "")
		return nil, err
	}
	c.invalidatePlan(KindPlannedExpenses, expense.MonthlyPlanID)
	return expense, nil
}

func (c *Client) DeletePlannedExpense(ctx context.Context, id string) error {
	if _, err := c.call(ctx, "delete_planned_expense", input(map[string]string{"id": id})); err != nil {
		return err
	}
	c.invalidatePlan(KindPlannedExpenses, "")
	return nil
}

func (c *Client) ListPlannedSavings(ctx context.Context, planID string) ([]models.PlannedSaving, error) {
	return query(ctx, c, Key{KindPlannedSavings, planID}, "list_planned_savings",
		map[string]string{"planId": planID}, listOf[models.PlannedSaving](plannedSavingSchema))
}

func (c *Client) AddPlannedSaving(ctx context.Context, in NewPlannedSaving) (*models.PlannedSaving, error) {
	body, err := c.call(ctx, "add_planned_saving", input(in))
	if err != nil {
		return nil, err
	}
	c.invalidatePlan(KindPlannedSavings, in.MonthlyPlanID)
	return decodeOne[models.PlannedSaving](body, plannedSavingSchema)
}

func (c *Client) UpdatePlannedSaving(ctx context.Context, in PlannedSavingPatch) (*models.PlannedSaving, error) {
	body, err := c.call(ctx, "update_planned_saving", input(in))
	if err != nil {
		return nil, err
	}
	saving, err := decodeOne[models.PlannedSaving](body, plannedSavingSchema)
	if err != nil {
		c.invalidatePlan(KindPlannedSavings, "")
		return nil, err
	}
	c.invalidatePlan(KindPlannedSavings, saving.MonthlyPlanID)
	return saving, nil
}

func (c *Client) DeletePlannedSaving(ctx context.Context, id string) error {
	if _, err := c.call(ctx, "delete_planned_saving", input(map[string]string{"id": id})); err != nil {
		return err
	}
	c.invalidatePlan(KindPlannedSavings, "")
	return nil
}
