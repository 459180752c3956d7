// Package certificate holds the certificate activity: its configuration record, its form,
// the issue / revoke policy and the handlers driving it.
package certificate

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/trezcool/coursecertificate/core"
)

var (
	// errors
	ErrNotFound        = errors.New("certificate activity not found")
	ErrIssueNotFound   = errors.New("certificate issue not found")
	ErrDuplicateIssue  = errors.New("an active certificate issue already exists for this user")
	ErrTemplateLocked  = errors.New("the template cannot be changed once certificates have been issued")
	ErrIncompleteEvent = errors.New("event is missing its course or user")
)

type (
	Repository interface {
		CreateActivity(ctx context.Context, act Activity, exec ...core.DBExecutor) (Activity, error)
		GetActivity(ctx context.Context, id string, exec ...core.DBExecutor) (Activity, error)
		// QueryActivities applies AND operation on available QueryFilter fields; results are ordered by creation date.
		QueryActivities(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Activity, error)
		UpdateActivity(ctx context.Context, act Activity, exec ...core.DBExecutor) (Activity, error)
		DeleteActivity(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// CertificateService is the external service owning templates and issues.
	CertificateService interface {
		ListVisibleTemplates(ctx context.Context, tctx TemplateContext) ([]Template, error)
		CountIssues(ctx context.Context, templateID, courseID string) (int, error)
		QueryIssues(ctx context.Context, filter IssueFilter) ([]Issue, error)
		// Issue grants a certificate and returns the new issue ID.
		// It fails with ErrDuplicateIssue when an active issue already exists for the tuple.
		Issue(ctx context.Context, ni NewIssue) (string, error)
		RevokeIssue(ctx context.Context, issueID string) error
	}

	// CompletionTracker is the LMS completion tracking.
	CompletionTracker interface {
		// Completions lists the users who completed an activity.
		Completions(ctx context.Context, courseID, activityID string) ([]Completion, error)
		// MarkViewed records that userID viewed the activity.
		MarkViewed(ctx context.Context, courseID, activityID, userID string) error
	}
)

// Service manages Activity records.
type Service struct {
	repo    Repository
	certSvc CertificateService
	now     func() time.Time
}

func NewService(repo Repository, certSvc CertificateService) *Service {
	return &Service{
		repo:    repo,
		certSvc: certSvc,
		// stored timestamps have a one second resolution
		now: func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func (svc *Service) Create(ctx context.Context, na NewActivity) (Activity, error) {
	now := svc.now()
	act := Activity{
		CourseID:       na.CourseID,
		Name:           core.CleanString(na.Name),
		Intro:          na.Intro,
		TemplateID:     na.TemplateID,
		Expires:        na.Expires,
		AutoSend:       na.AutoSend,
		CompletionView: na.CompletionView,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if act.AutoSend {
		act.AutoSendSince = now
	}
	return svc.repo.CreateActivity(ctx, act)
}

func (svc *Service) Get(ctx context.Context, id string) (Activity, error) {
	return svc.repo.GetActivity(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Activity, error) {
	return svc.repo.QueryActivities(ctx, filter)
}

// IssuedCount counts the certificates issued by act.
func (svc *Service) IssuedCount(ctx context.Context, act Activity) (int, error) {
	if act.TemplateID == "" {
		return 0, nil
	}
	n, err := svc.certSvc.CountIssues(ctx, act.TemplateID, act.CourseID)
	if err != nil {
		return 0, core.NewExternalServiceError("counting issues", err)
	}
	return n, nil
}

// Issues lists the certificates issued by act, most recent last.
func (svc *Service) Issues(ctx context.Context, act Activity, includeRevoked bool) ([]Issue, error) {
	if act.TemplateID == "" {
		return []Issue{}, nil
	}
	issues, err := svc.certSvc.QueryIssues(ctx, IssueFilter{
		TemplateID:     act.TemplateID,
		CourseID:       act.CourseID,
		IncludeRevoked: includeRevoked,
	})
	if err != nil {
		return nil, core.NewExternalServiceError("querying issues", err)
	}
	if issues == nil {
		issues = []Issue{}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].IssuedOn.Before(issues[j].IssuedOn) })
	return issues, nil
}

// Update overwrites the mutable fields of an Activity.
// The template cannot change once the activity has issued certificates.
func (svc *Service) Update(ctx context.Context, id string, ua UpdateActivity) (Activity, error) {
	act, err := svc.repo.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, err
	}

	if ua.TemplateID != act.TemplateID {
		n, err := svc.IssuedCount(ctx, act)
		if err != nil {
			return Activity{}, err
		}
		if n > 0 {
			return Activity{}, core.NewValidationError(
				ErrTemplateLocked,
				core.FieldError{Field: "template", Error: ErrTemplateLocked.Error()},
			)
		}
	}

	now := svc.now()
	act.Name = core.CleanString(ua.Name)
	act.Intro = ua.Intro
	act.TemplateID = ua.TemplateID
	act.Expires = ua.Expires
	act.CompletionView = ua.CompletionView
	svc.setAutoSend(&act, ua.AutoSend, now)
	act.UpdatedAt = now
	return svc.repo.UpdateActivity(ctx, act)
}

func (svc *Service) setAutoSend(act *Activity, on bool, now time.Time) {
	switch {
	case on && !act.AutoSend:
		act.AutoSendSince = now
	case !on:
		act.AutoSendSince = time.Time{}
	}
	act.AutoSend = on
}

// SetAutoSend switches auto-send on or off.
func (svc *Service) SetAutoSend(ctx context.Context, id string, on bool) (Activity, error) {
	act, err := svc.repo.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if act.AutoSend == on {
		return act, nil
	}
	now := svc.now()
	svc.setAutoSend(&act, on, now)
	act.UpdatedAt = now
	return svc.repo.UpdateActivity(ctx, act)
}

// ToggleAutoSend flips auto-send.
func (svc *Service) ToggleAutoSend(ctx context.Context, id string) (Activity, error) {
	act, err := svc.repo.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	now := svc.now()
	svc.setAutoSend(&act, !act.AutoSend, now)
	act.UpdatedAt = now
	return svc.repo.UpdateActivity(ctx, act)
}

// Delete removes the Activity. Issued certificates are kept by the certificate service.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteActivity(ctx, id)
}
