package certificate

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/event"
)

// Observer reacts to LMS completion events.
type Observer struct {
	svc    *Service
	policy *Policy
	logger core.Logger
}

func NewObserver(svc *Service, policy *Policy, logger core.Logger) *Observer {
	return &Observer{svc: svc, policy: policy, logger: logger}
}

// Register subscribes the observer handlers to bus.
func (o *Observer) Register(bus *event.Bus) {
	bus.Subscribe(EventCompletionReset, func(ctx context.Context, ev event.Event) error {
		e, ok := ev.(CompletionReset)
		if !ok {
			return fmt.Errorf("unexpected event %T", ev)
		}
		return o.OnCompletionReset(ctx, e)
	})
	bus.Subscribe(EventActivityCompleted, func(ctx context.Context, ev event.Event) error {
		e, ok := ev.(ActivityCompleted)
		if !ok {
			return fmt.Errorf("unexpected event %T", ev)
		}
		return o.OnActivityCompleted(ctx, e)
	})
}

// OnCompletionReset revokes every active certificate of the user in the course, whichever
// activity issued it. A failing revocation is logged and the others still run.
// Only a failure to list the issues is returned.
func (o *Observer) OnCompletionReset(ctx context.Context, ev CompletionReset) error {
	// an empty id would widen the filter to the whole course or to every course
	if ev.CourseID == "" || ev.UserID == "" {
		return ErrIncompleteEvent
	}
	issues, err := o.policy.ActiveIssues(ctx, ev.CourseID, ev.UserID)
	if err != nil {
		return errors.Wrapf(err, "completion reset of user %s in course %s", ev.UserID, ev.CourseID)
	}
	for _, iss := range issues {
		if err := o.policy.RevokeIssue(ctx, iss.ID); err != nil {
			o.logger.Error(
				fmt.Sprintf("certificate.OnCompletionReset: revoking issue %s: %v", iss.ID, err),
				err,
				map[string]interface{}{"course": ev.CourseID, "user": ev.UserID, "template": iss.TemplateID},
			)
			continue
		}
		o.logger.Info(fmt.Sprintf("certificate issue %s revoked on completion reset", iss.ID))
	}
	return nil
}

// OnActivityCompleted issues the certificate right away when the completed activity auto-sends.
// Completions of activities that are not certificate activities are ignored.
func (o *Observer) OnActivityCompleted(ctx context.Context, ev ActivityCompleted) error {
	act, err := o.svc.Get(ctx, ev.ActivityID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return err
	}
	if act.CourseID != ev.CourseID {
		return nil
	}

	id, outcome, err := o.policy.Issue(ctx, act, Completion{UserID: ev.UserID, CompletedAt: ev.CompletedAt})
	if err != nil {
		return errors.Wrapf(err, "issuing certificate of activity %s to user %s", act.ID, ev.UserID)
	}
	if outcome == OutcomeIssued {
		o.logger.Info(fmt.Sprintf("certificate issue %s granted to user %s", id, ev.UserID))
	}
	return nil
}
