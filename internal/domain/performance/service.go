package performance

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/core"
)

// Directory resolves employees and reporting lines.
type Directory interface {
	Lookup(ctx context.Context, id string) (*core.Employee, error)
	IsInChain(ctx context.Context, managerID, employeeID string) (bool, error)
}

// Notifier delivers user-facing notifications about reviews.
type Notifier interface {
	NotifyEmployee(ctx context.Context, employeeID, notificationType string, data map[string]any)
}

type Service struct {
	store     *Store
	directory Directory
	audit     audit.Recorder
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store *Store, directory Directory, recorder audit.Recorder, notifier Notifier, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:     store,
		directory: directory,
		audit:     recorder,
		notifier:  notifier,
		log:       log.Named("performance"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) notify(ctx context.Context, employeeID, kind string, data map[string]any) {
	if s.notifier != nil && employeeID != "" {
		s.notifier.NotifyEmployee(ctx, employeeID, kind, data)
	}
}

// manages reports whether the actor is HR or above employeeID in the reporting line.
func (s *Service) manages(ctx context.Context, actor access.Actor, employeeID string) (bool, error) {
	if actor.IsHR() {
		return true, nil
	}
	if actor.EmployeeID == "" || actor.EmployeeID == employeeID {
		return false, nil
	}
	return s.directory.IsInChain(ctx, actor.EmployeeID, employeeID)
}

func validRating(r *int) bool {
	return r == nil || (*r >= MinRating && *r <= MaxRating)
}

func (s *Service) CreateReview(ctx context.Context, actor access.Actor, in ReviewInput) (*Review, error) {
	reviewerID := strings.TrimSpace(in.ReviewerID)
	if reviewerID == "" {
		reviewerID = actor.EmployeeID
	}
	var fields []apperr.FieldError
	if strings.TrimSpace(in.EmployeeID) == "" {
		fields = append(fields, apperr.FieldError{Field: "employeeId", Reason: "is required"})
	}
	if reviewerID == "" {
		fields = append(fields, apperr.FieldError{Field: "reviewerId", Reason: "is required"})
	}
	if in.PeriodStart.IsZero() || in.PeriodEnd.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "period", Reason: "start and end are required"})
	} else if in.PeriodEnd.Before(in.PeriodStart) {
		fields = append(fields, apperr.FieldError{Field: "periodEnd", Reason: "must not be before periodStart"})
	}
	if !validRating(in.Rating) {
		fields = append(fields, apperr.FieldError{Field: "overallRating", Reason: fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)})
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields(fields)
	}
	if reviewerID == in.EmployeeID {
		return nil, apperr.Validation("reviewerId", "employees cannot review themselves")
	}
	emp, err := s.directory.Lookup(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp.Status == core.StatusTerminated {
		return nil, apperr.InvalidState("employee_terminated", "employee is terminated")
	}
	if _, err := s.directory.Lookup(ctx, reviewerID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("reviewer")
		}
		return nil, err
	}
	ok, err := s.manages(ctx, actor, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("can only review your own reports")
	}
	r := &Review{
		EmployeeID:    in.EmployeeID,
		ReviewerID:    reviewerID,
		PeriodStart:   in.PeriodStart,
		PeriodEnd:     in.PeriodEnd,
		Status:        ReviewDraft,
		OverallRating: in.Rating,
		Strengths:     strings.TrimSpace(in.Strengths),
		Improvements:  strings.TrimSpace(in.Improvements),
		Comments:      strings.TrimSpace(in.Comments),
	}
	if err := s.store.CreateReview(ctx, r); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "performance.review.create", "review", r.ID, nil, r)
	return r, nil
}

// GetReview hides drafts from the reviewee.
func (s *Service) GetReview(ctx context.Context, actor access.Actor, id string) (*Review, error) {
	r, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsEmployee(r.ReviewerID) {
		return r, nil
	}
	if actor.IsEmployee(r.EmployeeID) {
		if r.Status == ReviewDraft {
			return nil, apperr.NotFound("review")
		}
		return r, nil
	}
	ok, err := s.manages(ctx, actor, r.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("not allowed to view this review")
	}
	return r, nil
}

func (s *Service) canEdit(actor access.Actor, r *Review) error {
	if actor.IsHR() || actor.IsEmployee(r.ReviewerID) {
		return nil
	}
	return apperr.Forbidden("only the reviewer or HR can change this review")
}

func (s *Service) UpdateReview(ctx context.Context, actor access.Actor, id string, in ReviewUpdate) (*Review, error) {
	r, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canEdit(actor, r); err != nil {
		return nil, err
	}
	if !validRating(in.Rating) {
		return nil, apperr.Validation("overallRating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	fields := map[string]any{}
	setText := func(column string, v *string) {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}
	setText("strengths", in.Strengths)
	setText("improvements", in.Improvements)
	setText("comments", in.Comments)
	if in.Rating != nil {
		fields["overall_rating"] = *in.Rating
	}
	start, end := r.PeriodStart, r.PeriodEnd
	if in.PeriodStart != nil {
		start = *in.PeriodStart
	}
	if in.PeriodEnd != nil {
		end = *in.PeriodEnd
	}
	if end.Before(start) {
		return nil, apperr.Validation("periodEnd", "must not be before periodStart")
	}
	if in.PeriodStart != nil || in.PeriodEnd != nil {
		fields["period_start"], fields["period_end"] = start, end
	}
	return s.transition(ctx, actor, r, ReviewDraft, fields, "update")
}

func (s *Service) SubmitReview(ctx context.Context, actor access.Actor, id string) (*Review, error) {
	r, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canEdit(actor, r); err != nil {
		return nil, err
	}
	out, err := s.transition(ctx, actor, r, ReviewDraft, map[string]any{"status": ReviewSubmitted, "submitted_at": s.now()}, "submit")
	if err != nil {
		return nil, err
	}
	s.notify(ctx, out.EmployeeID, NotificationReviewSubmitted, map[string]any{"reviewId": out.ID})
	return out, nil
}

// CompleteReview finalises a submitted review. A rating must be present,
// either already on the review or supplied here.
func (s *Service) CompleteReview(ctx context.Context, actor access.Actor, id string, rating *int) (*Review, error) {
	r, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canEdit(actor, r); err != nil {
		return nil, err
	}
	if rating == nil {
		rating = r.OverallRating
	}
	if rating == nil {
		return nil, apperr.Validation("overallRating", "is required to complete a review")
	}
	if !validRating(rating) {
		return nil, apperr.Validation("overallRating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	out, err := s.transition(ctx, actor, r, ReviewSubmitted, map[string]any{
		"status":         ReviewCompleted,
		"overall_rating": *rating,
		"completed_at":   s.now(),
	}, "complete")
	if err != nil {
		return nil, err
	}
	s.notify(ctx, out.EmployeeID, NotificationReviewCompleted, map[string]any{"reviewId": out.ID, "rating": *rating})
	return out, nil
}

func (s *Service) AcknowledgeReview(ctx context.Context, actor access.Actor, id string) (*Review, error) {
	r, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsEmployee(r.EmployeeID) {
		return nil, apperr.Forbidden("only the reviewed employee can acknowledge a review")
	}
	return s.transition(ctx, actor, r, ReviewCompleted, map[string]any{"status": ReviewAcknowledged, "acknowledged_at": s.now()}, "acknowledge")
}

func (s *Service) transition(ctx context.Context, actor access.Actor, r *Review, from string, fields map[string]any, verb string) (*Review, error) {
	if r.Status != from {
		return nil, apperr.InvalidState("invalid_review_state", fmt.Sprintf("cannot %s a review that is %s", verb, strings.ToLower(r.Status)))
	}
	ok, err := s.store.TransitionReview(ctx, r.ID, from, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState("invalid_review_state", "review changed concurrently")
	}
	after, err := s.store.GetReview(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "performance.review."+verb, "review", r.ID, r, after)
	return after, nil
}

// ListReviews returns everything to HR. Other callers see reviews they
// wrote, their own non-draft reviews, or those of their reports.
func (s *Service) ListReviews(ctx context.Context, actor access.Actor, c ReviewCriteria, limit, offset int) ([]Review, int64, error) {
	c.Status = strings.ToUpper(c.Status)
	if c.Status != "" && !slices.Contains(ReviewStatuses, c.Status) {
		return nil, 0, apperr.Validation("status", "must be one of "+strings.Join(ReviewStatuses, ", "))
	}
	participant := ""
	switch {
	case actor.IsHR():
	case c.EmployeeID != "" && !actor.IsEmployee(c.EmployeeID):
		ok, err := s.manages(ctx, actor, c.EmployeeID)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, apperr.Forbidden("not allowed to view reviews of this employee")
		}
	default:
		if actor.EmployeeID == "" {
			return []Review{}, 0, nil
		}
		participant = actor.EmployeeID
	}
	return s.store.SearchReviews(ctx, c, participant, limit, offset)
}

func validateWeight(w float64) error {
	if w < 0 || w > 100 {
		return apperr.Validation("weight", "must be between 0 and 100")
	}
	return nil
}

func (s *Service) CreateGoal(ctx context.Context, actor access.Actor, in GoalInput) (*Goal, error) {
	var fields []apperr.FieldError
	if strings.TrimSpace(in.EmployeeID) == "" {
		fields = append(fields, apperr.FieldError{Field: "employeeId", Reason: "is required"})
	}
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Reason: "is required"})
	}
	if in.Weight < 0 || in.Weight > 100 {
		fields = append(fields, apperr.FieldError{Field: "weight", Reason: "must be between 0 and 100"})
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields(fields)
	}
	if _, err := s.directory.Lookup(ctx, in.EmployeeID); err != nil {
		return nil, err
	}
	ok, err := s.manages(ctx, actor, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("can only set goals for your own reports")
	}
	if in.ReviewID != nil && *in.ReviewID != "" {
		r, err := s.store.GetReview(ctx, *in.ReviewID)
		if err != nil {
			return nil, err
		}
		if r.EmployeeID != in.EmployeeID {
			return nil, apperr.Validation("reviewId", "review belongs to another employee")
		}
	} else {
		in.ReviewID = nil
	}
	g := &Goal{
		EmployeeID:  in.EmployeeID,
		ReviewID:    in.ReviewID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
		Weight:      in.Weight,
		Status:      GoalNotStarted,
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "performance.goal.create", "goal", g.ID, nil, g)
	return g, nil
}

func (s *Service) GetGoal(ctx context.Context, actor access.Actor, id string) (*Goal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsEmployee(g.EmployeeID) {
		return g, nil
	}
	ok, err := s.manages(ctx, actor, g.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("not allowed to view this goal")
	}
	return g, nil
}

func (s *Service) openGoal(ctx context.Context, actor access.Actor, id string, ownerMayEdit bool) (*Goal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := ownerMayEdit && actor.IsEmployee(g.EmployeeID)
	if !allowed {
		ok, err := s.manages(ctx, actor, g.EmployeeID)
		if err != nil {
			return nil, err
		}
		allowed = ok
	}
	if !allowed {
		return nil, apperr.Forbidden("not allowed to change this goal")
	}
	if g.Status == GoalCompleted || g.Status == GoalCancelled {
		return nil, apperr.InvalidState("goal_closed", "goal is "+strings.ToLower(g.Status))
	}
	return g, nil
}

func (s *Service) UpdateGoal(ctx context.Context, actor access.Actor, id string, in GoalUpdate) (*Goal, error) {
	g, err := s.openGoal(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title", "is required")
		}
		fields["title"] = title
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.DueDate != nil {
		fields["due_date"] = *in.DueDate
	}
	if in.Weight != nil {
		if err := validateWeight(*in.Weight); err != nil {
			return nil, err
		}
		fields["weight"] = *in.Weight
	}
	if len(fields) == 0 {
		return g, nil
	}
	return s.applyGoal(ctx, actor, g, fields, "update")
}

// UpdateProgress records progress; the employee may report on their own
// goals. Reaching 100 completes the goal.
func (s *Service) UpdateProgress(ctx context.Context, actor access.Actor, id string, progress int) (*Goal, error) {
	if progress < 0 || progress > 100 {
		return nil, apperr.Validation("progress", "must be between 0 and 100")
	}
	g, err := s.openGoal(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	status := GoalInProgress
	switch {
	case progress == 100:
		status = GoalCompleted
	case progress == 0:
		status = GoalNotStarted
	}
	return s.applyGoal(ctx, actor, g, map[string]any{"progress": progress, "status": status}, "progress")
}

func (s *Service) CancelGoal(ctx context.Context, actor access.Actor, id string) (*Goal, error) {
	g, err := s.openGoal(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}
	return s.applyGoal(ctx, actor, g, map[string]any{"status": GoalCancelled}, "cancel")
}

func (s *Service) applyGoal(ctx context.Context, actor access.Actor, g *Goal, fields map[string]any, verb string) (*Goal, error) {
	if err := s.store.UpdateGoalFields(ctx, g.ID, fields); err != nil {
		return nil, err
	}
	after, err := s.store.GetGoal(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "performance.goal."+verb, "goal", g.ID, g, after)
	return after, nil
}

func (s *Service) ListGoals(ctx context.Context, actor access.Actor, employeeID, status string) ([]Goal, error) {
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	if employeeID == "" {
		return []Goal{}, nil
	}
	if !actor.IsEmployee(employeeID) {
		ok, err := s.manages(ctx, actor, employeeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("not allowed to view goals of this employee")
		}
	}
	return s.store.ListGoals(ctx, employeeID, strings.ToUpper(status))
}

func (s *Service) Summary(ctx context.Context, actor access.Actor, employeeID string) (*Summary, error) {
	goals, err := s.ListGoals(ctx, actor, employeeID, "")
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.EmployeeReviews(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if actor.IsEmployee(employeeID) {
		reviews = slices.DeleteFunc(reviews, func(r Review) bool { return r.Status == ReviewDraft })
	}
	summary := buildSummary(goals, reviews)
	summary.EmployeeID = employeeID
	return &summary, nil
}

func buildSummary(goals []Goal, reviews []Review) Summary {
	summary := Summary{RatingDistribution: map[string]int{}}
	progressSum, progressCount := 0, 0
	for _, g := range goals {
		summary.GoalsTotal++
		switch g.Status {
		case GoalCompleted:
			summary.GoalsCompleted++
		case GoalCancelled:
			summary.GoalsCancelled++
			continue
		}
		progressSum += g.Progress
		progressCount++
	}
	if progressCount > 0 {
		summary.AverageProgress = float64(progressSum) / float64(progressCount)
	}

	ratingSum, rated := 0, 0
	for _, r := range reviews {
		summary.ReviewsTotal++
		if r.Status != ReviewCompleted && r.Status != ReviewAcknowledged {
			continue
		}
		summary.ReviewsCompleted++
		if r.OverallRating == nil {
			continue
		}
		ratingSum += *r.OverallRating
		rated++
		summary.RatingDistribution[fmt.Sprintf("%d", *r.OverallRating)]++
		latest := *r.OverallRating
		summary.LatestRating = &latest
	}
	if summary.ReviewsTotal > 0 {
		summary.ReviewCompletionRate = float64(summary.ReviewsCompleted) / float64(summary.ReviewsTotal)
	}
	if rated > 0 {
		avg := float64(ratingSum) / float64(rated)
		summary.AverageRating = &avg
	}
	return summary
}
