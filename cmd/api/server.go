package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcclellann/debtplan/pkg/ledger"
	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/store"
	"github.com/sirupsen/logrus"
)

// Requests larger than this are rejected before decoding.
const maxBodyBytes = 1 << 20

// Server holds the ledger instance behind the invoke boundary.
type Server struct {
	ledger         *ledger.Ledger
	storage        store.Storage // pinged by /healthz
	log            logrus.FieldLogger
	requestTimeout time.Duration
	commands       map[string]http.HandlerFunc
}

func NewServer(l *ledger.Ledger, s store.Storage, log logrus.FieldLogger, requestTimeout time.Duration) *Server {
	srv := &Server{
		ledger:         l,
		storage:        s,
		log:            log,
		requestTimeout: requestTimeout,
	}
	srv.commands = map[string]http.HandlerFunc{
		"generate_debt_schedule": srv.generateDebtScheduleHandler,
		"list_debt_schedule":     srv.listDebtScheduleHandler,
		"confirm_debt_payment":   srv.confirmDebtPaymentHandler,
		"add_debt_account":       srv.addDebtAccountHandler,
		"update_debt_account":    srv.updateDebtAccountHandler,
		"delete_debt_account":    srv.deleteDebtAccountHandler,
		"list_debt_accounts":     srv.listDebtAccountsHandler,
		"plan_vs_actual":         srv.planVsActualHandler,

		"create_monthly_plan": srv.createMonthlyPlanHandler,
		"list_monthly_plans":  srv.listMonthlyPlansHandler,
		"delete_monthly_plan": srv.deleteMonthlyPlanHandler,

		"add_planned_income":    srv.addPlannedIncomeHandler,
		"update_planned_income": srv.updatePlannedIncomeHandler,
		"delete_planned_income": srv.deletePlannedIncomeHandler,
		"list_planned_incomes":  srv.listPlannedIncomesHandler,

		"add_planned_expense":    srv.addPlannedExpenseHandler,
		"update_planned_expense": srv.updatePlannedExpenseHandler,
		"delete_planned_expense": srv.deletePlannedExpenseHandler,
		"list_planned_expenses":  srv.listPlannedExpensesHandler,

		"add_planned_saving":    srv.addPlannedSavingHandler,
		"update_planned_saving": srv.updatePlannedSavingHandler,
		"delete_planned_saving": srv.deletePlannedSavingHandler,
		"list_planned_savings":  srv.listPlannedSavingsHandler,
	}
	return srv
}

// Router wires every command under POST /invoke/{command}.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware, s.timeoutMiddleware)
	router.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	router.HandleFunc("/invoke/{command}", s.invokeHandler).Methods("POST")
	return router
}

func (s *Server) invokeHandler(w http.ResponseWriter, r *http.Request) {
	command := mux.Vars(r)["command"]
	handler, ok := s.commands[command]
	if !ok {
		s.writeError(w, r, &models.NotFoundError{Entity: "command", ID: command})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	handler(w, r)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		s.log.WithError(err).Error("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.requestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
		if command, ok := mux.Vars(r)["command"]; ok {
			entry = entry.WithField("command", command)
		}
		if rec.status >= http.StatusInternalServerError {
			entry.Error("Request failed")
		} else {
			entry.Info("Request handled")
		}
	})
}

// validator is implemented by every command input.
type validator interface {
	Validate() error
}

// decodeStrict decodes the request body into dst, rejecting unknown fields
// and trailing data. An empty body decodes as {}.
func decodeStrict(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return models.Invalid("", "unreadable request body: "+err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return models.Invalid("", "malformed payload: "+err.Error())
	}
	if dec.More() {
		return models.Invalid("", "unexpected data after payload")
	}
	return nil
}

// decodeInput decodes {"input": {...}}, checks that every required field is
// present and runs the input's own validation.
func decodeInput[T validator](r *http.Request, required ...string) (T, error) {
	var zero T
	var envelope struct {
		Input json.RawMessage `json:"input"`
	}
	if err := decodeStrict(r, &envelope); err != nil {
		return zero, err
	}
	if len(envelope.Input) == 0 || string(envelope.Input) == "null" {
		return zero, models.Invalid("input", "is required")
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Input, &present); err != nil {
		return zero, models.Invalid("input", "must be an object")
	}
	for _, field := range required {
		if v, ok := present[field]; !ok || string(v) == "null" {
			return zero, models.Invalid(field, "is required")
		}
	}

	var in T
	dec := json.NewDecoder(bytes.NewReader(envelope.Input))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return zero, models.Invalid("input", err.Error())
	}
	if err := in.Validate(); err != nil {
		return zero, err
	}
	return in, nil
}

// idInput is the payload of every delete command.
type idInput struct {
	ID string `json:"id"`
}

func (in idInput) Validate() error {
	if in.ID == "" {
		return models.Invalid("id", "is required")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    models.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// kinded is implemented by every error in the taxonomy.
type kinded interface {
	error
	Kind() models.ErrorKind
}

var statusByKind = map[models.ErrorKind]int{
	models.KindNotFound:     http.StatusNotFound,
	models.KindValidation:   http.StatusBadRequest,
	models.KindInvalidTerms: http.StatusUnprocessableEntity,
	models.KindConflict:     http.StatusConflict,
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var k kinded
	if errors.As(err, &k) {
		writeJSON(w, statusByKind[k.Kind()], errorBody{errorDetail{Kind: k.Kind(), Message: k.Error()}})
		return
	}

	status, message := http.StatusInternalServerError, "internal error"
	if errors.Is(err, context.DeadlineExceeded) {
		status, message = http.StatusServiceUnavailable, "request timed out"
	}
	s.log.WithError(err).WithField("path", r.URL.Path).Error("Command failed")
	writeJSON(w, status, errorBody{errorDetail{Kind: models.KindInternal, Message: fmt.Sprintf("%s: %v", message, err)}})
}
