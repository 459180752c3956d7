package certsvc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/coursecertificate/core/certificate"
)

// MemoryService is an in-process certificate service, for development and tests.
// It enforces one active issue per (template, course, user).
type MemoryService struct {
	mu        sync.RWMutex
	templates []certificate.Template
	issues    []certificate.Issue
}

var _ certificate.CertificateService = (*MemoryService)(nil) // interface compliance check

func NewMemoryService(templates ...certificate.Template) *MemoryService {
	return &MemoryService{templates: templates}
}

func (svc *MemoryService) AddTemplate(tmpl certificate.Template) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.templates = append(svc.templates, tmpl)
}

func (svc *MemoryService) ListVisibleTemplates(_ context.Context, _ certificate.TemplateContext) ([]certificate.Template, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return append([]certificate.Template(nil), svc.templates...), nil
}

func (svc *MemoryService) CountIssues(_ context.Context, templateID, courseID string) (int, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	var n int
	for _, iss := range svc.issues {
		if iss.Active() && iss.TemplateID == templateID && iss.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (svc *MemoryService) QueryIssues(_ context.Context, filter certificate.IssueFilter) ([]certificate.Issue, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	issues := make([]certificate.Issue, 0)
	for _, iss := range svc.issues {
		if filter.Match(iss) {
			issues = append(issues, iss)
		}
	}
	return issues, nil
}

func (svc *MemoryService) Issue(_ context.Context, ni certificate.NewIssue) (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for _, iss := range svc.issues {
		if iss.Active() && iss.TemplateID == ni.TemplateID && iss.CourseID == ni.CourseID && iss.UserID == ni.UserID {
			return "", certificate.ErrDuplicateIssue
		}
	}

	id := uuid.New()
	svc.issues = append(svc.issues, certificate.Issue{
		ID:         id.String(),
		TemplateID: ni.TemplateID,
		CourseID:   ni.CourseID,
		UserID:     ni.UserID,
		Code:       strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10]),
		IssuedOn:   time.Now().UTC(),
		ExpiresOn:  ni.ExpiresOn,
	})
	return id.String(), nil
}

func (svc *MemoryService) RevokeIssue(_ context.Context, issueID string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for i := range svc.issues {
		if svc.issues[i].ID == issueID && svc.issues[i].Active() {
			svc.issues[i].RevokedAt = time.Now().UTC()
			return nil
		}
	}
	return certificate.ErrIssueNotFound
}
