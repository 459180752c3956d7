package certificate

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/coursecertificate/core"
)

// IssueOutcome is what Policy.Issue did.
type IssueOutcome int

const (
	// OutcomeSkipped: the completion does not make the user eligible.
	OutcomeSkipped IssueOutcome = iota
	OutcomeAlreadyIssued
	OutcomeIssued
)

func (o IssueOutcome) String() string {
	switch o {
	case OutcomeIssued:
		return "issued"
	case OutcomeAlreadyIssued:
		return "already_issued"
	default:
		return "skipped"
	}
}

// Policy decides when certificates are issued and revoked.
//
// Per (activity, user) pair: NotEligible -> Eligible -> Issued -> Revoked.
// A user becomes eligible with a completion of the activity; an eligible user is issued
// a certificate only while the activity auto-sends. A revoked certificate is never issued
// again until the user completes the activity again.
type Policy struct {
	certSvc     CertificateService
	retroactive bool
}

// NewPolicy creates a Policy. When retroactive is false, auto-send ignores the completions
// that happened before it was switched on.
func NewPolicy(certSvc CertificateService, retroactive bool) *Policy {
	return &Policy{certSvc: certSvc, retroactive: retroactive}
}

func (p *Policy) tupleIssues(ctx context.Context, act Activity, userID string) ([]Issue, error) {
	issues, err := p.certSvc.QueryIssues(ctx, IssueFilter{
		TemplateID:     act.TemplateID,
		CourseID:       act.CourseID,
		UserID:         userID,
		IncludeRevoked: true,
	})
	if err != nil {
		return nil, core.NewExternalServiceError("querying issues", err)
	}
	return issues, nil
}

// classify returns the active issue of the tuple, if any, and the latest revocation time.
func classify(issues []Issue) (active *Issue, lastRevoked time.Time) {
	for i := range issues {
		iss := issues[i]
		if iss.Active() {
			active = &iss
			continue
		}
		if iss.RevokedAt.After(lastRevoked) {
			lastRevoked = iss.RevokedAt
		}
	}
	return active, lastRevoked
}

// fresh reports whether c can make the user eligible for act.
func (p *Policy) fresh(act Activity, c Completion, lastRevoked time.Time) bool {
	if c.CompletedAt.IsZero() {
		return false
	}
	if !lastRevoked.IsZero() && !c.CompletedAt.After(lastRevoked) {
		return false
	}
	if !p.retroactive && !act.AutoSendSince.IsZero() && c.CompletedAt.Before(act.AutoSendSince) {
		return false
	}
	return true
}

// Issue runs the Eligible -> Issued transition for one completion of act.
// It checks for an active issue first and never issues twice; a duplicate reported
// by the certificate service is also an OutcomeAlreadyIssued.
// On failure nothing changes and the error is an *core.ExternalServiceError.
func (p *Policy) Issue(ctx context.Context, act Activity, c Completion) (string, IssueOutcome, error) {
	if !act.AutoSend || act.TemplateID == "" {
		return "", OutcomeSkipped, nil
	}

	issues, err := p.tupleIssues(ctx, act, c.UserID)
	if err != nil {
		return "", OutcomeSkipped, err
	}
	active, lastRevoked := classify(issues)
	if active != nil {
		return active.ID, OutcomeAlreadyIssued, nil
	}
	if !p.fresh(act, c, lastRevoked) {
		return "", OutcomeSkipped, nil
	}

	id, err := p.certSvc.Issue(ctx, NewIssue{
		TemplateID: act.TemplateID,
		CourseID:   act.CourseID,
		UserID:     c.UserID,
		ExpiresOn:  act.ExpiresOn(),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateIssue) {
			return "", OutcomeAlreadyIssued, nil
		}
		return "", OutcomeSkipped, core.NewExternalServiceError("issuing certificate", err)
	}
	return id, OutcomeIssued, nil
}

// ActiveIssues lists the active issues of a user in a course, whatever their template.
func (p *Policy) ActiveIssues(ctx context.Context, courseID, userID string) ([]Issue, error) {
	issues, err := p.certSvc.QueryIssues(ctx, IssueFilter{CourseID: courseID, UserID: userID})
	if err != nil {
		return nil, core.NewExternalServiceError("querying issues", err)
	}
	return issues, nil
}

// RevokeIssue runs the Issued -> Revoked transition for one issue.
func (p *Policy) RevokeIssue(ctx context.Context, issueID string) error {
	if err := p.certSvc.RevokeIssue(ctx, issueID); err != nil {
		if errors.Is(err, ErrIssueNotFound) {
			return err
		}
		return core.NewExternalServiceError("revoking issue", err)
	}
	return nil
}

// State reports where userID stands for act, given its completions.
func (p *Policy) State(ctx context.Context, act Activity, userID string, completions []Completion) (State, error) {
	var completion Completion
	for _, c := range completions {
		if c.UserID == userID && c.CompletedAt.After(completion.CompletedAt) {
			completion = c
		}
	}

	var issues []Issue
	if act.TemplateID != "" {
		var err error
		if issues, err = p.tupleIssues(ctx, act, userID); err != nil {
			return StateNotEligible, err
		}
	}
	active, lastRevoked := classify(issues)
	switch {
	case active != nil:
		return StateIssued, nil
	case completion.CompletedAt.IsZero():
		if !lastRevoked.IsZero() {
			return StateRevoked, nil
		}
		return StateNotEligible, nil
	case !lastRevoked.IsZero() && !completion.CompletedAt.After(lastRevoked):
		return StateRevoked, nil
	default:
		return StateEligible, nil
	}
}
