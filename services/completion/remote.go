package completionsvc

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
)

type apiError struct {
	Error string `json:"error"`
}

// RemoteTracker reads completions from the LMS completion API.
type RemoteTracker struct {
	client *resty.Client
}

var _ certificate.CompletionTracker = (*RemoteTracker)(nil) // interface compliance check

func NewRemoteTracker(conf *core.Config) *RemoteTracker {
	client := resty.New().
		SetBaseURL(conf.LMS.CompletionAPIURL).
		SetTimeout(conf.LMS.Timeout).
		SetHeader("Accept", "application/json")
	if conf.LMS.Token != "" {
		client.SetAuthToken(conf.LMS.Token)
	}
	return &RemoteTracker{client: client}
}

func (t *RemoteTracker) request(ctx context.Context, courseID, activityID string) *resty.Request {
	return t.client.R().
		SetContext(ctx).
		SetError(&apiError{}).
		SetPathParams(map[string]string{"course": courseID, "activity": activityID})
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return errors.Wrap(err, op)
	}
	if !resp.IsError() {
		return nil
	}
	msg := http.StatusText(resp.StatusCode())
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error != "" {
		msg = apiErr.Error
	}
	return errors.Errorf("%s: %d %s", op, resp.StatusCode(), msg)
}

func (t *RemoteTracker) Completions(ctx context.Context, courseID, activityID string) ([]certificate.Completion, error) {
	var completions []certificate.Completion
	resp, err := t.request(ctx, courseID, activityID).
		SetResult(&completions).
		Get("/courses/{course}/activities/{activity}/completions")
	if err := check(resp, err, "listing completions"); err != nil {
		return nil, err
	}
	return completions, nil
}

func (t *RemoteTracker) MarkViewed(ctx context.Context, courseID, activityID, userID string) error {
	resp, err := t.request(ctx, courseID, activityID).
		SetBody(map[string]string{"user_id": userID}).
		Post("/courses/{course}/activities/{activity}/views")
	return check(resp, err, "marking activity viewed")
}
