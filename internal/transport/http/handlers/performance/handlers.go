package performancehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/domain/performance"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *performance.Service
	Perms   middleware.PermissionChecker
	Log     *zap.Logger
}

func NewHandler(service *performance.Service, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log.Named("performance_handler")}
}

// RegisterRoutes mounts /performance. Acknowledging a review and reporting
// goal progress only need read access; the service limits them to the owner.
func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(access.PermPerformanceRead, h.Perms)
	write := middleware.RequirePermission(access.PermPerformanceWrite, h.Perms)
	review := middleware.RequirePermission(access.PermPerformanceReview, h.Perms)
	r.Route("/performance", func(r chi.Router) {
		r.With(read).Get("/reviews", h.handleListReviews)
		r.With(review).Post("/reviews", h.handleCreateReview)
		r.With(read).Get("/reviews/{reviewID}", h.handleGetReview)
		r.With(review).Put("/reviews/{reviewID}", h.handleUpdateReview)
		r.With(review).Post("/reviews/{reviewID}/submit", h.handleSubmitReview)
		r.With(review).Post("/reviews/{reviewID}/complete", h.handleCompleteReview)
		r.With(read).Post("/reviews/{reviewID}/acknowledge", h.handleAcknowledgeReview)

		r.With(read).Get("/goals", h.handleListGoals)
		r.With(write).Post("/goals", h.handleCreateGoal)
		r.With(read).Get("/goals/{goalID}", h.handleGetGoal)
		r.With(write).Put("/goals/{goalID}", h.handleUpdateGoal)
		r.With(read).Post("/goals/{goalID}/progress", h.handleUpdateProgress)
		r.With(write).Post("/goals/{goalID}/cancel", h.handleCancelGoal)

		r.With(read).Get("/summary", h.handleSummary)
	})
}

type reviewRequest struct {
	EmployeeID   string `json:"employeeId" validate:"required"`
	ReviewerID   string `json:"reviewerId"`
	PeriodStart  string `json:"periodStart" validate:"required"`
	PeriodEnd    string `json:"periodEnd" validate:"required"`
	Strengths    string `json:"strengths" validate:"max=4000"`
	Improvements string `json:"improvements" validate:"max=4000"`
	Comments     string `json:"comments" validate:"max=4000"`
	Rating       *int   `json:"overallRating" validate:"omitempty,gte=1,lte=5"`
}

type reviewUpdateRequest struct {
	PeriodStart  *string `json:"periodStart"`
	PeriodEnd    *string `json:"periodEnd"`
	Strengths    *string `json:"strengths" validate:"omitempty,max=4000"`
	Improvements *string `json:"improvements" validate:"omitempty,max=4000"`
	Comments     *string `json:"comments" validate:"omitempty,max=4000"`
	Rating       *int    `json:"overallRating" validate:"omitempty,gte=1,lte=5"`
}

type completeRequest struct {
	Rating *int `json:"overallRating" validate:"omitempty,gte=1,lte=5"`
}

type goalRequest struct {
	EmployeeID  string  `json:"employeeId"`
	ReviewID    *string `json:"reviewId"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=4000"`
	DueDate     string  `json:"dueDate"`
	Weight      float64 `json:"weight" validate:"gte=0,lte=100"`
}

type goalUpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	DueDate     *string  `json:"dueDate"`
	Weight      *float64 `json:"weight" validate:"omitempty,gte=0,lte=100"`
}

type progressRequest struct {
	Progress *int `json:"progress" validate:"required,gte=0,lte=100"`
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.Page(r)
	reviews, total, err := h.Service.ListReviews(r.Context(), shared.Actor(r), performance.ReviewCriteria{
		EmployeeID: q.Get("employeeId"),
		ReviewerID: q.Get("reviewerId"),
		Status:     q.Get("status"),
	}, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, reviews, total)
}

func (h *Handler) reviewInput(w http.ResponseWriter, r *http.Request) (performance.ReviewInput, bool) {
	var payload reviewRequest
	if !shared.Bind(w, r, &payload) {
		return performance.ReviewInput{}, false
	}
	v := shared.NewValidator()
	start, _ := v.Date("periodStart", payload.PeriodStart)
	end, _ := v.Date("periodEnd", payload.PeriodEnd)
	v.DateOrder("periodStart", start, "periodEnd", end)
	if v.Reject(w, shared.RequestID(r)) {
		return performance.ReviewInput{}, false
	}
	return performance.ReviewInput{
		EmployeeID:   payload.EmployeeID,
		ReviewerID:   payload.ReviewerID,
		PeriodStart:  start,
		PeriodEnd:    end,
		Strengths:    payload.Strengths,
		Improvements: payload.Improvements,
		Comments:     payload.Comments,
		Rating:       payload.Rating,
	}, true
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	in, ok := h.reviewInput(w, r)
	if !ok {
		return
	}
	review, err := h.Service.CreateReview(r.Context(), shared.Actor(r), in)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, review, shared.RequestID(r))
}

func (h *Handler) handleGetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.Service.GetReview(r.Context(), shared.Actor(r), chi.URLParam(r, "reviewID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, review, shared.RequestID(r))
}

func (h *Handler) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var payload reviewUpdateRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	update := performance.ReviewUpdate{
		Strengths:    payload.Strengths,
		Improvements: payload.Improvements,
		Comments:     payload.Comments,
		Rating:       payload.Rating,
	}
	if payload.PeriodStart != nil {
		update.PeriodStart = v.OptionalDate("periodStart", *payload.PeriodStart)
	}
	if payload.PeriodEnd != nil {
		update.PeriodEnd = v.OptionalDate("periodEnd", *payload.PeriodEnd)
	}
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	review, err := h.Service.UpdateReview(r.Context(), shared.Actor(r), chi.URLParam(r, "reviewID"), update)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, review, shared.RequestID(r))
}

func (h *Handler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.Service.SubmitReview(r.Context(), shared.Actor(r), chi.URLParam(r, "reviewID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, review, shared.RequestID(r))
}

func (h *Handler) handleCompleteReview(w http.ResponseWriter, r *http.Request) {
	var payload completeRequest
	if !shared.BindOptional(w, r, &payload) {
		return
	}
	review, err := h.Service.CompleteReview(r.Context(), shared.Actor(r), chi.URLParam(r, "reviewID"), payload.Rating)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, review, shared.RequestID(r))
}

func (h *Handler) handleAcknowledgeReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.Service.AcknowledgeReview(r.Context(), shared.Actor(r), chi.URLParam(r, "reviewID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, review, shared.RequestID(r))
}

func (h *Handler) handleListGoals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	goals, err := h.Service.ListGoals(r.Context(), shared.Actor(r), q.Get("employeeId"), q.Get("status"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, goals, shared.RequestID(r))
}

func (h *Handler) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var payload goalRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	due := v.OptionalDate("dueDate", payload.DueDate)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	actor := shared.Actor(r)
	employeeID := payload.EmployeeID
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	goal, err := h.Service.CreateGoal(r.Context(), actor, performance.GoalInput{
		EmployeeID:  employeeID,
		ReviewID:    payload.ReviewID,
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     due,
		Weight:      payload.Weight,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, goal, shared.RequestID(r))
}

func (h *Handler) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.Service.GetGoal(r.Context(), shared.Actor(r), chi.URLParam(r, "goalID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, goal, shared.RequestID(r))
}

func (h *Handler) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var payload goalUpdateRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	update := performance.GoalUpdate{
		Title:       payload.Title,
		Description: payload.Description,
		Weight:      payload.Weight,
	}
	if payload.DueDate != nil {
		update.DueDate = v.OptionalDate("dueDate", *payload.DueDate)
	}
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	goal, err := h.Service.UpdateGoal(r.Context(), shared.Actor(r), chi.URLParam(r, "goalID"), update)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, goal, shared.RequestID(r))
}

func (h *Handler) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var payload progressRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	goal, err := h.Service.UpdateProgress(r.Context(), shared.Actor(r), chi.URLParam(r, "goalID"), *payload.Progress)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, goal, shared.RequestID(r))
}

func (h *Handler) handleCancelGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.Service.CancelGoal(r.Context(), shared.Actor(r), chi.URLParam(r, "goalID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, goal, shared.RequestID(r))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	employeeID, err := shared.EmployeeID(r)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	summary, err := h.Service.Summary(r.Context(), shared.Actor(r), employeeID)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, summary, shared.RequestID(r))
}
