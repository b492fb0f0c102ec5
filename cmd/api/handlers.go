package main

import (
	"net/http"

	"github.com/mcclellann/debtplan/pkg/ledger"
	"github.com/mcclellann/debtplan/pkg/models"
)

// debtIDPayload and planIDPayload are the top-level payloads of the list
// commands.
type debtIDPayload struct {
	DebtID string `json:"debtId"`
}

type planIDPayload struct {
	PlanID string `json:"planId"`
}

func (s *Server) decodePlanID(r *http.Request) (string, error) {
	var p planIDPayload
	if err := decodeStrict(r, &p); err != nil {
		return "", err
	}
	if p.PlanID == "" {
		return "", models.Invalid("planId", "is required")
	}
	return p.PlanID, nil
}

func (s *Server) generateDebtScheduleHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.GenerateScheduleInput](r, "debtAccountId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.ledger.GenerateSchedule(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) listDebtScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var p debtIDPayload
	if err := decodeStrict(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.ledger.ListSchedule(r.Context(), p.DebtID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) confirmDebtPaymentHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.ConfirmPaymentInput](r, "scheduleId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.ledger.ConfirmPayment(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) addDebtAccountHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.NewDebtAccount](r,
		"name", "type", "principal", "interestRate", "minMonthlyPayment", "dueDay", "startDate")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	debt, err := s.ledger.AddDebtAccount(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (s *Server) updateDebtAccountHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.DebtAccountPatch](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	debt, err := s.ledger.UpdateDebtAccount(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (s *Server) deleteDebtAccountHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[idInput](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteDebtAccount(r.Context(), in.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) listDebtAccountsHandler(w http.ResponseWriter, r *http.Request) {
	if err := decodeStrict(r, &struct{}{}); err != nil {
		s.writeError(w, r, err)
		return
	}
	debts, err := s.ledger.ListDebtAccounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (s *Server) planVsActualHandler(w http.ResponseWriter, r *http.Request) {
	planID, err := s.decodePlanID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pa, err := s.ledger.ComputePlanActual(r.Context(), planID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pa)
}

func (s *Server) createMonthlyPlanHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.NewMonthlyPlan](r, "month")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	plan, err := s.ledger.CreateMonthlyPlan(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) listMonthlyPlansHandler(w http.ResponseWriter, r *http.Request) {
	if err := decodeStrict(r, &struct{}{}); err != nil {
		s.writeError(w, r, err)
		return
	}
	plans, err := s.ledger.ListMonthlyPlans(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) deleteMonthlyPlanHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[idInput](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteMonthlyPlan(r.Context(), in.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) addPlannedIncomeHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.NewPlannedIncome](r, "monthlyPlanId", "sourceName", "type", "expectedAmount")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	income, err := s.ledger.AddPlannedIncome(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) updatePlannedIncomeHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.PlannedIncomePatch](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	income, err := s.ledger.UpdatePlannedIncome(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) deletePlannedIncomeHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[idInput](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeletePlannedIncome(r.Context(), in.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) listPlannedIncomesHandler(w http.ResponseWriter, r *http.Request) {
	planID, err := s.decodePlanID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	incomes, err := s.ledger.ListPlannedIncomes(r.Context(), planID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incomes)
}

func (s *Server) addPlannedExpenseHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.NewPlannedExpense](r, "monthlyPlanId", "label", "expectedAmount")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	expense, err := s.ledger.AddPlannedExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) updatePlannedExpenseHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.PlannedExpensePatch](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	expense, err := s.ledger.UpdatePlannedExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) deletePlannedExpenseHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[idInput](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeletePlannedExpense(r.Context(), in.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) listPlannedExpensesHandler(w http.ResponseWriter, r *http.Request) {
	planID, err := s.decodePlanID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	expenses, err := s.ledger.ListPlannedExpenses(r.Context(), planID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) addPlannedSavingHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.NewPlannedSaving](r, "monthlyPlanId", "expectedAmount")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	saving, err := s.ledger.AddPlannedSaving(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saving)
}

func (s *Server) updatePlannedSavingHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[ledger.PlannedSavingPatch](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	saving, err := s.ledger.UpdatePlannedSaving(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saving)
}

func (s *Server) deletePlannedSavingHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput[idInput](r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeletePlannedSaving(r.Context(), in.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) listPlannedSavingsHandler(w http.ResponseWriter, r *http.Request) {
	planID, err := s.decodePlanID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	savings, err := s.ledger.ListPlannedSavings(r.Context(), planID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, savings)
}
