package payrollhandler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/domain/payroll"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *payroll.Service
	Perms   middleware.PermissionChecker
	Log     *zap.Logger
}

func NewHandler(service *payroll.Service, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log.Named("payroll_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(access.PermPayrollRead, h.Perms)
	write := middleware.RequirePermission(access.PermPayrollWrite, h.Perms)
	r.Route("/payroll", func(r chi.Router) {
		r.With(read).Get("/grades", h.handleListGrades)
		r.With(write).Post("/grades", h.handleCreateGrade)
		r.With(read).Get("/grades/{gradeID}", h.handleGetGrade)
		r.With(write).Put("/grades/{gradeID}", h.handleUpdateGrade)
		r.With(write).Delete("/grades/{gradeID}", h.handleDeleteGrade)

		r.Route("/employees/{employeeID}", func(r chi.Router) {
			r.With(write).Post("/salary", h.handleChangeSalary)
			r.With(read).Get("/salary-history", h.handleSalaryHistory)
			r.With(write).Post("/bonuses", h.handleCreateBonus)
			r.With(write).Post("/deductions", h.handleCreateDeduction)
			r.With(read).Get("/payslips/{year}/{month}", h.handlePayslip)
		})

		r.With(read).Get("/bonuses", h.handleListBonuses)
		r.With(write).Post("/bonuses/{bonusID}/approve", h.handleApproveBonus)
		r.With(write).Post("/bonuses/{bonusID}/paid", h.handleMarkBonusPaid)
		r.With(write).Post("/bonuses/{bonusID}/cancel", h.handleCancelBonus)

		r.With(read).Get("/deductions", h.handleListDeductions)
		r.With(write).Delete("/deductions/{deductionID}", h.handleDeleteDeduction)

		r.With(write).Get("/totals", h.handleTotals)
	})
}

type gradeRequest struct {
	Code      string  `json:"code" validate:"required,max=32"`
	Name      string  `json:"name" validate:"required,max=100"`
	MinSalary float64 `json:"minSalary" validate:"gte=0"`
	MaxSalary float64 `json:"maxSalary" validate:"gte=0"`
	Currency  string  `json:"currency" validate:"omitempty,len=3"`
}

type salaryRequest struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	EffectiveDate string  `json:"effectiveDate"`
	Reason        string  `json:"reason" validate:"max=500"`
}

type bonusRequest struct {
	Amount    float64 `json:"amount" validate:"gt=0"`
	Type      string  `json:"type" validate:"required"`
	Reason    string  `json:"reason" validate:"max=500"`
	AwardDate string  `json:"awardDate"`
}

type deductionRequest struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Type        string  `json:"type" validate:"required"`
	Description string  `json:"description" validate:"max=500"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Recurring   bool    `json:"recurring"`
}

func (h *Handler) handleListGrades(w http.ResponseWriter, r *http.Request) {
	grades, err := h.Service.ListPayGrades(r.Context())
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, grades, shared.RequestID(r))
}

func (h *Handler) handleCreateGrade(w http.ResponseWriter, r *http.Request) {
	var payload gradeRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	grade, err := h.Service.CreatePayGrade(r.Context(), shared.Actor(r), payroll.PayGradeInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, grade, shared.RequestID(r))
}

func (h *Handler) handleGetGrade(w http.ResponseWriter, r *http.Request) {
	grade, err := h.Service.GetPayGrade(r.Context(), chi.URLParam(r, "gradeID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, grade, shared.RequestID(r))
}

func (h *Handler) handleUpdateGrade(w http.ResponseWriter, r *http.Request) {
	var payload gradeRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	grade, err := h.Service.UpdatePayGrade(r.Context(), shared.Actor(r), chi.URLParam(r, "gradeID"), payroll.PayGradeInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, grade, shared.RequestID(r))
}

func (h *Handler) handleDeleteGrade(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeletePayGrade(r.Context(), shared.Actor(r), chi.URLParam(r, "gradeID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

// dateOrZero parses an optional date, returning the zero time when absent
// so the service applies its own default.
func dateOrZero(v *shared.Validator, field, raw string) time.Time {
	if d := v.OptionalDate(field, raw); d != nil {
		return *d
	}
	return time.Time{}
}

func (h *Handler) handleChangeSalary(w http.ResponseWriter, r *http.Request) {
	var payload salaryRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	effective := dateOrZero(v, "effectiveDate", payload.EffectiveDate)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	record, err := h.Service.ChangeSalary(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), payroll.SalaryChange{
		Amount:        payload.Amount,
		Currency:      payload.Currency,
		EffectiveDate: effective,
		Reason:        payload.Reason,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, record, shared.RequestID(r))
}

func (h *Handler) handleSalaryHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Service.SalaryHistory(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, history, shared.RequestID(r))
}

func (h *Handler) handleCreateBonus(w http.ResponseWriter, r *http.Request) {
	var payload bonusRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	awarded := dateOrZero(v, "awardDate", payload.AwardDate)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	bonus, err := h.Service.CreateBonus(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), payroll.BonusInput{
		Amount:    payload.Amount,
		Type:      payload.Type,
		Reason:    payload.Reason,
		AwardDate: awarded,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, bonus, shared.RequestID(r))
}

func (h *Handler) handleListBonuses(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	q := r.URL.Query()
	bonuses, total, err := h.Service.ListBonuses(r.Context(), shared.Actor(r), q.Get("employeeId"), q.Get("status"), page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, bonuses, total)
}

func (h *Handler) bonusTransition(w http.ResponseWriter, r *http.Request, fn func(*http.Request, string) (*payroll.Bonus, error)) {
	bonus, err := fn(r, chi.URLParam(r, "bonusID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, bonus, shared.RequestID(r))
}

func (h *Handler) handleApproveBonus(w http.ResponseWriter, r *http.Request) {
	h.bonusTransition(w, r, func(r *http.Request, id string) (*payroll.Bonus, error) {
		return h.Service.ApproveBonus(r.Context(), shared.Actor(r), id)
	})
}

func (h *Handler) handleMarkBonusPaid(w http.ResponseWriter, r *http.Request) {
	h.bonusTransition(w, r, func(r *http.Request, id string) (*payroll.Bonus, error) {
		return h.Service.MarkBonusPaid(r.Context(), shared.Actor(r), id)
	})
}

func (h *Handler) handleCancelBonus(w http.ResponseWriter, r *http.Request) {
	h.bonusTransition(w, r, func(r *http.Request, id string) (*payroll.Bonus, error) {
		return h.Service.CancelBonus(r.Context(), shared.Actor(r), id)
	})
}

func (h *Handler) handleCreateDeduction(w http.ResponseWriter, r *http.Request) {
	var payload deductionRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	start := dateOrZero(v, "startDate", payload.StartDate)
	end := v.OptionalDate("endDate", payload.EndDate)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	deduction, err := h.Service.CreateDeduction(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), payroll.DeductionInput{
		Amount:      payload.Amount,
		Type:        payload.Type,
		Description: payload.Description,
		StartDate:   start,
		EndDate:     end,
		Recurring:   payload.Recurring,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, deduction, shared.RequestID(r))
}

func (h *Handler) handleListDeductions(w http.ResponseWriter, r *http.Request) {
	employeeID, err := shared.EmployeeID(r)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	deductions, err := h.Service.ListDeductions(r.Context(), shared.Actor(r), employeeID)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, deductions, shared.RequestID(r))
}

func (h *Handler) handleDeleteDeduction(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDeduction(r.Context(), shared.Actor(r), chi.URLParam(r, "deductionID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

// handlePayslip answers JSON, or a PDF when format=pdf or the client accepts it.
func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	year := shared.PathInt(v, r, "year")
	month := shared.PathInt(v, r, "month")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	slip, err := h.Service.Payslip(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), year, month)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	if r.URL.Query().Get("format") != "pdf" && r.Header.Get("Accept") != "application/pdf" {
		api.Success(w, slip, shared.RequestID(r))
		return
	}
	var buf bytes.Buffer
	if err := payroll.WritePayslipPDF(&buf, slip); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payslip-%s-%04d-%02d.pdf", slip.EmployeeCode, year, month))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Log.Warn("payslip write failed", zap.Error(err))
	}
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Service.PayrollTotals(r.Context())
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, totals, shared.RequestID(r))
}
