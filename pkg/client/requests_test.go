package client

import (
	"bytes"
	"encoding/json"
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mcclellann/debtplan/pkg/ledger"
	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/shopspring/decimal"
)

// Every request must decode into the server's input type with unknown
// fields rejected, so the two sets of field names cannot drift apart.
func TestRequests_MatchServerInputs(t *testing.T) {
	months := 12
	amount := money.Cents(2500)
	text := "x"
	yes := true
	day := 20
	date := models.NewDate(2025, time.March, 1)
	debtType := models.DebtTypeCreditCard
	rate := decimal.NewFromInt(18)

	tests := []struct {
		name string
		req  any
		into any
	}{
		{"generate", GenerateScheduleRequest{DebtAccountID: "d1", Months: &months}, &ledger.GenerateScheduleInput{}},
		{"confirm", ConfirmPaymentRequest{ScheduleID: "s1", AccountID: "a1", CategoryID: "c1"}, &ledger.ConfirmPaymentInput{}},
		{"new debt", NewDebtAccount{Name: "Card", Type: debtType, Principal: amount, InterestRate: rate, MinMonthlyPayment: amount, DueDay: day, StartDate: date, CurrentBalance: &amount}, &ledger.NewDebtAccount{}},
		{"debt patch", DebtAccountPatch{ID: "d1", Name: &text, Type: &debtType, Principal: &amount, InterestRate: &rate, MinMonthlyPayment: &amount, DueDay: &day, StartDate: &date, CurrentBalance: &amount}, &ledger.DebtAccountPatch{}},
		{"new plan", NewMonthlyPlan{Month: date, Note: text}, &ledger.NewMonthlyPlan{}},
		{"new income", NewPlannedIncome{MonthlyPlanID: "p1", SourceName: text, Type: text, ExpectedAmount: amount, ActualAmount: &amount, ExpectedDate: &date, IsFixed: &yes, AccountID: text, Status: text}, &ledger.NewPlannedIncome{}},
		{"income patch", PlannedIncomePatch{ID: "i1", SourceName: &text, Type: &text, ExpectedAmount: &amount, ActualAmount: &amount, ExpectedDate: &date, IsFixed: &yes, AccountID: &text, Status: &text}, &ledger.PlannedIncomePatch{}},
		{"new expense", NewPlannedExpense{MonthlyPlanID: "p1", Label: text, CategoryID: text, ExpectedAmount: amount, ActualAmount: &amount, Frequency: text}, &ledger.NewPlannedExpense{}},
		{"expense patch", PlannedExpensePatch{ID: "e1", Label: &text, CategoryID: &text, ExpectedAmount: &amount, ActualAmount: &amount, Frequency: &text}, &ledger.PlannedExpensePatch{}},
		{"new saving", NewPlannedSaving{MonthlyPlanID: "p1", GoalID: text, ExpectedAmount: amount, ActualAmount: &amount}, &ledger.NewPlannedSaving{}},
		{"saving patch", PlannedSavingPatch{ID: "v1", GoalID: &text, ExpectedAmount: &amount, ActualAmount: &amount}, &ledger.PlannedSavingPatch{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.req)
			if err != nil {
				t.Fatalf("Failed to encode request: %v", err)
			}
			dec := json.NewDecoder(bytes.NewReader(b))
			dec.DisallowUnknownFields()
			if err := dec.Decode(tt.into); err != nil {
				t.Fatalf("Server input rejected %s: %v", b, err)
			}
			back, _ := json.Marshal(tt.into)
			if !bytes.Equal(b, back) {
				t.Errorf("Expected %s, server input re-encodes as %s", b, back)
			}
		})
	}
}

// The client is linked into programs that have no database, so it must not
// pull in the server packages or the cgo SQLite driver.
func TestClient_ImportsStayLight(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("Failed to list sources: %v", err)
	}
	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("Failed to parse %s: %v", name, err)
		}
		for _, imp := range f.Imports {
			path, _ := strconv.Unquote(imp.Path.Value)
			for _, banned := range []string{"/pkg/ledger", "/pkg/store", "go-sqlite3"} {
				if strings.Contains(path, banned) {
					t.Errorf("%s imports %s", name, path)
				}
			}
		}
	}
}
