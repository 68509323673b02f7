// Package notifications stores in-app notifications, renders templates and
// fans messages out to email and connected websocket clients.
package notifications

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/platform/email"
)

// UserDirectory resolves delivery addresses.
type UserDirectory interface {
	EmailForUser(ctx context.Context, userID string) (string, error)
}

// EmployeeUsers maps employee records to their login.
type EmployeeUsers interface {
	UserIDForEmployee(ctx context.Context, employeeID string) (string, error)
}

// Pusher delivers payloads to a user's live connections.
type Pusher interface {
	Push(userID string, payload any)
}

type Service struct {
	store     *Store
	users     UserDirectory
	employees EmployeeUsers
	mailer    email.Mailer
	pusher    Pusher
	audit     audit.Recorder
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store *Store, users UserDirectory, employees EmployeeUsers, mailer email.Mailer, pusher Pusher, recorder audit.Recorder, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:     store,
		users:     users,
		employees: employees,
		mailer:    mailer,
		pusher:    pusher,
		audit:     recorder,
		log:       log.Named("notifications"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func defaultPreferences(userID string) *Preferences {
	return &Preferences{UserID: userID, EmailEnabled: true, InAppEnabled: true, MutedTypes: []string{}}
}

func (s *Service) preferences(ctx context.Context, userID string) (*Preferences, error) {
	p, err := s.store.GetPreferences(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return defaultPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	if p.MutedTypes == nil {
		p.MutedTypes = []string{}
	}
	return p, nil
}

// Notify renders the template for kind and delivers it on the channels that
// both the template and the user's preferences allow. It returns the stored
// in-app notification, or nil when nothing was stored.
func (s *Service) Notify(ctx context.Context, userID, kind string, data map[string]any) (*Notification, error) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	if userID == "" || kind == "" {
		return nil, apperr.Validation("userId", "user and type are required")
	}
	prefs, err := s.preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(prefs.MutedTypes, kind) {
		return nil, nil
	}

	title, message, channel := fallbackTitle(kind), fallbackMessage(data), ChannelBoth
	tmpl, err := s.store.ActiveTemplate(ctx, kind)
	switch {
	case err == nil:
		channel = tmpl.Channel
		if title, err = render(kind+".subject", tmpl.Subject, data); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "template_failed", "could not render notification", err)
		}
		if message, err = render(kind+".body", tmpl.Body, data); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "template_failed", "could not render notification", err)
		}
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, err
	}
	link, _ := data["link"].(string)

	var stored *Notification
	if channel != ChannelEmail && prefs.InAppEnabled {
		stored = &Notification{UserID: userID, Type: kind, Title: title, Message: message, Link: link}
		if err := s.store.CreateNotification(ctx, stored); err != nil {
			return nil, err
		}
		if s.pusher != nil {
			s.pusher.Push(userID, map[string]any{"event": "notification", "notification": stored})
		}
	}
	if channel != ChannelInApp && prefs.EmailEnabled {
		s.sendEmail(ctx, userID, title, message)
	}
	return stored, nil
}

// sendEmail never fails the caller; delivery problems are logged.
func (s *Service) sendEmail(ctx context.Context, userID, subject, body string) {
	if s.mailer == nil || s.users == nil {
		return
	}
	to, err := s.users.EmailForUser(ctx, userID)
	if err != nil || to == "" {
		s.log.Debug("no email address for notification", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.mailer.Send(ctx, email.Message{To: to, Subject: subject, Body: body}); err != nil {
		s.log.Warn("notification email failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// NotifyEmployee notifies the login linked to employeeID, if any. Failures
// are logged so that the triggering operation still succeeds.
func (s *Service) NotifyEmployee(ctx context.Context, employeeID, kind string, data map[string]any) {
	if s.employees == nil {
		return
	}
	userID, err := s.employees.UserIDForEmployee(ctx, employeeID)
	if err != nil || userID == "" {
		s.log.Debug("employee has no linked user", zap.String("employee_id", employeeID), zap.Error(err))
		return
	}
	if _, err := s.Notify(ctx, userID, kind, data); err != nil {
		s.log.Warn("notify employee failed", zap.String("employee_id", employeeID), zap.String("type", kind), zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, actor access.Actor, unreadOnly bool, limit, offset int) ([]Notification, int64, error) {
	return s.store.ListNotifications(ctx, actor.UserID, unreadOnly, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, actor access.Actor) (int64, error) {
	return s.store.CountUnread(ctx, actor.UserID)
}

func (s *Service) MarkRead(ctx context.Context, actor access.Actor, id string) error {
	ok, err := s.store.MarkRead(ctx, actor.UserID, id, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("notification")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, actor access.Actor) (int64, error) {
	return s.store.MarkAllRead(ctx, actor.UserID, s.now())
}

func (s *Service) Delete(ctx context.Context, actor access.Actor, id string) error {
	ok, err := s.store.DeleteNotification(ctx, actor.UserID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("notification")
	}
	return nil
}

func (s *Service) Preferences(ctx context.Context, actor access.Actor) (*Preferences, error) {
	return s.preferences(ctx, actor.UserID)
}

func (s *Service) UpdatePreferences(ctx context.Context, actor access.Actor, in PreferencesInput) (*Preferences, error) {
	p, err := s.preferences(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if in.EmailEnabled != nil {
		p.EmailEnabled = *in.EmailEnabled
	}
	if in.InAppEnabled != nil {
		p.InAppEnabled = *in.InAppEnabled
	}
	if in.MutedTypes != nil {
		muted := make([]string, 0, len(in.MutedTypes))
		for _, t := range in.MutedTypes {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t != "" && !slices.Contains(muted, t) {
				muted = append(muted, t)
			}
		}
		slices.Sort(muted)
		p.MutedTypes = muted
	}
	p.UpdatedAt = s.now()
	if err := s.store.UpsertPreferences(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func validateTemplate(in TemplateInput) (TemplateInput, error) {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Channel = strings.ToUpper(strings.TrimSpace(in.Channel))
	if in.Channel == "" {
		in.Channel = ChannelBoth
	}
	var fields []apperr.FieldError
	if in.Code == "" {
		fields = append(fields, apperr.FieldError{Field: "code", Reason: "is required"})
	}
	if strings.TrimSpace(in.Subject) == "" {
		fields = append(fields, apperr.FieldError{Field: "subject", Reason: "is required"})
	} else if _, err := parse("subject", in.Subject); err != nil {
		fields = append(fields, apperr.FieldError{Field: "subject", Reason: "invalid template: " + err.Error()})
	}
	if strings.TrimSpace(in.Body) == "" {
		fields = append(fields, apperr.FieldError{Field: "body", Reason: "is required"})
	} else if _, err := parse("body", in.Body); err != nil {
		fields = append(fields, apperr.FieldError{Field: "body", Reason: "invalid template: " + err.Error()})
	}
	if !slices.Contains(Channels, in.Channel) {
		fields = append(fields, apperr.FieldError{Field: "channel", Reason: "must be one of " + strings.Join(Channels, ", ")})
	}
	if len(fields) > 0 {
		return in, apperr.ValidationFields(fields)
	}
	return in, nil
}

func (s *Service) CreateTemplate(ctx context.Context, actor access.Actor, in TemplateInput) (*Template, error) {
	in, err := validateTemplate(in)
	if err != nil {
		return nil, err
	}
	taken, err := s.store.TemplateCodeTaken(ctx, in.Code, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("template_code_taken", "a template with this code already exists")
	}
	t := &Template{Code: in.Code, Subject: in.Subject, Body: in.Body, Channel: in.Channel, Active: in.Active == nil || *in.Active}
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "notifications.template.create", "notification_template", t.ID, nil, t)
	return t, nil
}

func (s *Service) GetTemplate(ctx context.Context, id string) (*Template, error) {
	return s.store.GetTemplate(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context) ([]Template, error) {
	return s.store.ListTemplates(ctx)
}

func (s *Service) UpdateTemplate(ctx context.Context, actor access.Actor, id string, in TemplateInput) (*Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Code) == "" {
		in.Code = t.Code
	}
	in, err = validateTemplate(in)
	if err != nil {
		return nil, err
	}
	if in.Code != t.Code {
		taken, err := s.store.TemplateCodeTaken(ctx, in.Code, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("template_code_taken", "a template with this code already exists")
		}
	}
	before := *t
	t.Code, t.Subject, t.Body, t.Channel = in.Code, in.Subject, in.Body, in.Channel
	if in.Active != nil {
		t.Active = *in.Active
	}
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "notifications.template.update", "notification_template", id, before, t)
	return t, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, actor access.Actor, id string) error {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "notifications.template.delete", "notification_template", id, t, nil)
	return nil
}
