package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcclellann/debtplan/pkg/models"
)

// ErrMalformedResponse is returned when a response does not match the shape
// expected for its command.
var ErrMalformedResponse = errors.New("malformed response")

// schema describes one response object: the fields it must carry and the
// values optional fields take when they are absent.
type schema struct {
	required []string
	defaults map[string]any
}

var (
	debtAccountSchema = schema{
		required: []string{"id", "name", "type", "principal", "interestRate", "minMonthlyPayment", "dueDay", "startDate", "currentBalance"},
	}
	scheduleEntrySchema = schema{
		required: []string{"id", "debtAccountId", "dueDate", "plannedPayment", "plannedInterest", "plannedPrincipal", "isPaid"},
		defaults: map[string]any{"transactionId": ""},
	}
	monthlyPlanSchema = schema{
		required: []string{"id", "month"},
		defaults: map[string]any{"note": "", "totalPlannedIncome": 0, "totalPlannedExpenses": 0, "totalPlannedSavings": 0},
	}
	plannedIncomeSchema = schema{
		required: []string{"id", "monthlyPlanId", "sourceName", "type", "expectedAmount"},
		defaults: map[string]any{"actualAmount": 0, "isFixed": true, "status": models.IncomeStatusPlanned},
	}
	plannedExpenseSchema = schema{
		required: []string{"id", "monthlyPlanId", "label", "expectedAmount"},
		defaults: map[string]any{"actualAmount": 0, "frequency": models.ExpenseFrequencyOnce},
	}
	plannedSavingSchema = schema{
		required: []string{"id", "monthlyPlanId", "expectedAmount"},
		defaults: map[string]any{"actualAmount": 0},
	}
	planActualSchema = schema{
		required: []string{"planId", "plannedIncome", "actualIncome", "plannedExpenses", "actualExpenses", "plannedSavings", "actualSavings"},
	}
)

// normalize checks the required fields of one object and fills in defaults.
func (s schema) normalize(raw json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: expected an object", ErrMalformedResponse)
	}
	for _, name := range s.required {
		if v, ok := fields[name]; !ok || string(v) == "null" {
			return nil, fmt.Errorf("%w: missing required field %q", ErrMalformedResponse, name)
		}
	}
	for name, def := range s.defaults {
		if v, ok := fields[name]; ok && string(v) != "null" {
			continue
		}
		b, err := json.Marshal(def)
		if err != nil {
			return nil, err
		}
		fields[name] = b
	}
	return json.Marshal(fields)
}

func decodeOne[T any](data []byte, s schema) (*T, error) {
	normalized, err := s.normalize(data)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(normalized, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}

func decodeList[T any](data []byte, s schema) ([]T, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: expected an array", ErrMalformedResponse)
	}
	out := make([]T, 0, len(items))
	for i, raw := range items {
		item, err := decodeOne[T](raw, s)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, *item)
	}
	return out, nil
}
