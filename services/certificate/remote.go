package certsvc

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
)

type (
	apiError struct {
		Error string `json:"error"`
	}

	countResponse struct {
		Count int `json:"count"`
	}

	issueRequest struct {
		TemplateID string     `json:"template_id"`
		CourseID   string     `json:"course_id"`
		UserID     string     `json:"user_id"`
		ExpiresOn  *time.Time `json:"expires_on,omitempty"`
	}

	issueResponse struct {
		ID string `json:"id"`
	}
)

// RemoteService calls the certificate service of the LMS over HTTP.
type RemoteService struct {
	client *resty.Client
}

var _ certificate.CertificateService = (*RemoteService)(nil) // interface compliance check

func NewRemoteService(conf *core.Config) *RemoteService {
	client := resty.New().
		SetBaseURL(conf.LMS.CertificateAPIURL).
		SetTimeout(conf.LMS.Timeout).
		SetHeader("Accept", "application/json")
	if conf.LMS.Token != "" {
		client.SetAuthToken(conf.LMS.Token)
	}
	return &RemoteService{client: client}
}

func (svc *RemoteService) request(ctx context.Context) *resty.Request {
	return svc.client.R().SetContext(ctx).SetError(&apiError{})
}

// check turns a failed call into an error. notFound, when set, is returned on 404.
func check(resp *resty.Response, err error, op string, notFound error) error {
	if err != nil {
		return errors.Wrap(err, op)
	}
	if !resp.IsError() {
		return nil
	}
	if resp.StatusCode() == http.StatusNotFound && notFound != nil {
		return notFound
	}
	msg := http.StatusText(resp.StatusCode())
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error != "" {
		msg = apiErr.Error
	}
	return errors.Errorf("%s: %d %s", op, resp.StatusCode(), msg)
}

func (svc *RemoteService) ListVisibleTemplates(ctx context.Context, tctx certificate.TemplateContext) ([]certificate.Template, error) {
	var templates []certificate.Template
	resp, err := svc.request(ctx).
		SetQueryParams(map[string]string{
			"course":    tctx.CourseID,
			"user":      tctx.UserID,
			"canmanage": strconv.FormatBool(tctx.CanManageTemplates),
		}).
		SetResult(&templates).
		Get("/templates")
	if err := check(resp, err, "listing templates", nil); err != nil {
		return nil, err
	}
	return templates, nil
}

func (svc *RemoteService) CountIssues(ctx context.Context, templateID, courseID string) (int, error) {
	var count countResponse
	resp, err := svc.request(ctx).
		SetQueryParams(map[string]string{"template": templateID, "course": courseID, "include_revoked": "false"}).
		SetResult(&count).
		Get("/issues/count")
	if err := check(resp, err, "counting issues", nil); err != nil {
		return 0, err
	}
	return count.Count, nil
}

func (svc *RemoteService) QueryIssues(ctx context.Context, filter certificate.IssueFilter) ([]certificate.Issue, error) {
	params := make(map[string]string)
	if filter.TemplateID != "" {
		params["template"] = filter.TemplateID
	}
	if filter.CourseID != "" {
		params["course"] = filter.CourseID
	}
	if filter.UserID != "" {
		params["user"] = filter.UserID
	}
	if filter.IncludeRevoked {
		params["include_revoked"] = "true"
	}

	var issues []certificate.Issue
	resp, err := svc.request(ctx).
		SetQueryParams(params).
		SetResult(&issues).
		Get("/issues")
	if err := check(resp, err, "querying issues", nil); err != nil {
		return nil, err
	}
	return issues, nil
}

func (svc *RemoteService) Issue(ctx context.Context, ni certificate.NewIssue) (string, error) {
	body := issueRequest{TemplateID: ni.TemplateID, CourseID: ni.CourseID, UserID: ni.UserID}
	if !ni.ExpiresOn.IsZero() {
		body.ExpiresOn = &ni.ExpiresOn
	}

	var issued issueResponse
	resp, err := svc.request(ctx).
		SetBody(body).
		SetResult(&issued).
		Post("/issues")
	if err == nil && resp.StatusCode() == http.StatusConflict {
		return "", certificate.ErrDuplicateIssue
	}
	if err := check(resp, err, "issuing certificate", nil); err != nil {
		return "", err
	}
	return issued.ID, nil
}

func (svc *RemoteService) RevokeIssue(ctx context.Context, issueID string) error {
	resp, err := svc.request(ctx).
		SetPathParam("id", issueID).
		Delete("/issues/{id}")
	return check(resp, err, "revoking issue", certificate.ErrIssueNotFound)
}
