package certificate

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coursecertificate/core"
)

// TaskReport sums up one IssueTask run.
type TaskReport struct {
	StartedAt     time.Time `json:"started_at"`
	Activities    int       `json:"activities"`
	Issued        int       `json:"issued"`
	AlreadyIssued int       `json:"already_issued"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
}

// IssueTask issues the certificates of auto-send activities to the users who completed them.
// Runs are stateless and safe to overlap.
type IssueTask struct {
	svc        *Service
	policy     *Policy
	tracker    CompletionTracker
	logger     core.Logger
	mailSvc    core.EmailService
	recipients []mail.Address
}

func NewIssueTask(svc *Service, policy *Policy, tracker CompletionTracker, logger core.Logger) *IssueTask {
	return &IssueTask{svc: svc, policy: policy, tracker: tracker, logger: logger}
}

// WithReport mails a report of every run that issued or failed something to recipients.
func (t *IssueTask) WithReport(mailSvc core.EmailService, recipients ...string) *IssueTask {
	t.mailSvc = mailSvc
	t.recipients = t.recipients[:0]
	for _, r := range recipients {
		addr, err := mail.ParseAddress(r)
		if err != nil {
			t.logger.Warn(fmt.Sprintf("certificate.IssueTask: invalid report recipient %q", r), err)
			continue
		}
		t.recipients = append(t.recipients, *addr)
	}
	return t
}

// Run scans every auto-send activity and issues certificates for the completions that
// happened up to now. Per-user failures are logged and counted; the run goes on.
// Only a failure to list the activities, or a cancelled ctx, stops it.
func (t *IssueTask) Run(ctx context.Context, now time.Time) (TaskReport, error) {
	report := TaskReport{StartedAt: now.UTC()}

	autoSend := true
	acts, err := t.svc.Query(ctx, QueryFilter{AutoSend: &autoSend})
	if err != nil {
		return report, errors.Wrap(err, "querying auto-send activities")
	}

	for _, act := range acts {
		report.Activities++

		completions, err := t.tracker.Completions(ctx, act.CourseID, act.ID)
		if err != nil {
			report.Failed++
			t.logger.Error(
				fmt.Sprintf("certificate.IssueTask: listing completions of activity %s: %v", act.ID, err),
				err,
			)
			continue
		}

		for _, c := range completions {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if c.CompletedAt.After(now) {
				report.Skipped++
				continue
			}

			id, outcome, err := t.policy.Issue(ctx, act, c)
			if err != nil {
				report.Failed++
				t.logger.Error(
					fmt.Sprintf("certificate.IssueTask: issuing activity %s to user %s: %v", act.ID, c.UserID, err),
					err,
					map[string]interface{}{"course": act.CourseID, "template": act.TemplateID},
				)
				continue
			}
			switch outcome {
			case OutcomeIssued:
				report.Issued++
				t.logger.Info(fmt.Sprintf("certificate issue %s granted to user %s", id, c.UserID))
			case OutcomeAlreadyIssued:
				report.AlreadyIssued++
			default:
				report.Skipped++
			}
		}
	}

	t.sendReport(report)
	return report, nil
}

func (t *IssueTask) sendReport(report TaskReport) {
	if t.mailSvc == nil || len(t.recipients) == 0 || (report.Issued == 0 && report.Failed == 0) {
		return
	}
	t.mailSvc.SendMessages(&core.EmailMessage{
		To:           t.recipients,
		Subject:      fmt.Sprintf("Certificates: %d issued, %d failed", report.Issued, report.Failed),
		TemplateName: "issue_report",
		TemplateData: report,
	})
}
