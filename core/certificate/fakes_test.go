package certificate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coursecertificate/core"
)

var base = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

// fakeRepo

type fakeRepo struct {
	mu    sync.Mutex
	seq   int
	table map[string]Activity
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{table: make(map[string]Activity)}
}

func (r *fakeRepo) CreateActivity(_ context.Context, act Activity, _ ...core.DBExecutor) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	act.ID = fmt.Sprintf("act-%d", r.seq)
	r.table[act.ID] = act
	return act, nil
}

func (r *fakeRepo) GetActivity(_ context.Context, id string, _ ...core.DBExecutor) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	act, ok := r.table[id]
	if !ok {
		return Activity{}, ErrNotFound
	}
	return act, nil
}

func (r *fakeRepo) QueryActivities(_ context.Context, filter QueryFilter, _ ...core.DBExecutor) ([]Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acts := make([]Activity, 0, len(r.table))
	for _, act := range r.table {
		if filter.CourseID != "" && act.CourseID != filter.CourseID {
			continue
		}
		if filter.AutoSend != nil && act.AutoSend != *filter.AutoSend {
			continue
		}
		acts = append(acts, act)
	}
	sort.Slice(acts, func(i, j int) bool { return acts[i].ID < acts[j].ID })
	return acts, nil
}

func (r *fakeRepo) UpdateActivity(_ context.Context, act Activity, _ ...core.DBExecutor) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.table[act.ID]; !ok {
		return Activity{}, ErrNotFound
	}
	r.table[act.ID] = act
	return act, nil
}

func (r *fakeRepo) DeleteActivity(_ context.Context, id string, _ ...core.DBExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.table[id]; !ok {
		return ErrNotFound
	}
	delete(r.table, id)
	return nil
}

// fakeCertService

type fakeCertService struct {
	mu         sync.Mutex
	seq        int
	templates  []Template
	issues     []Issue
	issueCalls int

	listErr    error
	queryErr   error
	issueErr   error
	hideIssues bool // QueryIssues answers nothing, as a stale read would
	revokeErrs map[string]error
}

var _ CertificateService = (*fakeCertService)(nil)

func newFakeCertService(templates ...Template) *fakeCertService {
	return &fakeCertService{templates: templates, revokeErrs: make(map[string]error)}
}

func (s *fakeCertService) ListVisibleTemplates(_ context.Context, _ TemplateContext) ([]Template, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.templates, nil
}

func (s *fakeCertService) CountIssues(_ context.Context, templateID, courseID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, iss := range s.issues {
		if iss.Active() && iss.TemplateID == templateID && iss.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (s *fakeCertService) QueryIssues(_ context.Context, filter IssueFilter) ([]Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.hideIssues {
		return nil, nil
	}
	var issues []Issue
	for _, iss := range s.issues {
		if filter.Match(iss) {
			issues = append(issues, iss)
		}
	}
	return issues, nil
}

func (s *fakeCertService) Issue(_ context.Context, ni NewIssue) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issueCalls++
	if s.issueErr != nil {
		return "", s.issueErr
	}
	for _, iss := range s.issues {
		if iss.Active() && iss.TemplateID == ni.TemplateID && iss.CourseID == ni.CourseID && iss.UserID == ni.UserID {
			return "", ErrDuplicateIssue
		}
	}
	s.seq++
	iss := Issue{
		ID:         fmt.Sprintf("iss-%d", s.seq),
		TemplateID: ni.TemplateID,
		CourseID:   ni.CourseID,
		UserID:     ni.UserID,
		Code:       fmt.Sprintf("CODE%04d", s.seq),
		IssuedOn:   time.Now().UTC(),
		ExpiresOn:  ni.ExpiresOn,
	}
	s.issues = append(s.issues, iss)
	return iss.ID, nil
}

func (s *fakeCertService) RevokeIssue(_ context.Context, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.revokeErrs[issueID]; err != nil {
		return err
	}
	for i := range s.issues {
		if s.issues[i].ID == issueID && s.issues[i].Active() {
			s.issues[i].RevokedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrIssueNotFound
}

func (s *fakeCertService) active(filter IssueFilter) []Issue {
	filter.IncludeRevoked = false
	issues, _ := s.QueryIssues(context.Background(), filter)
	return issues
}

// fakeTracker

type fakeTracker struct {
	mu          sync.Mutex
	completions map[string][]Completion // {activityID: completions}
	err         map[string]error
}

var _ CompletionTracker = (*fakeTracker)(nil)

func newFakeTracker() *fakeTracker {
	return &fakeTracker{completions: make(map[string][]Completion), err: make(map[string]error)}
}

func (t *fakeTracker) complete(activityID, userID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completions[activityID] = append(t.completions[activityID], Completion{UserID: userID, CompletedAt: at})
}

func (t *fakeTracker) Completions(_ context.Context, _, activityID string) ([]Completion, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.err[activityID]; err != nil {
		return nil, err
	}
	return append([]Completion(nil), t.completions[activityID]...), nil
}

func (t *fakeTracker) MarkViewed(_ context.Context, _, activityID, userID string) error {
	t.complete(activityID, userID, time.Now().UTC())
	return nil
}

// fakeLogger

type logEntry struct {
	level string
	msg   string
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

var _ core.Logger = (*fakeLogger)(nil)

func (l *fakeLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *fakeLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func (l *fakeLogger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *fakeLogger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *fakeLogger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *fakeLogger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *fakeLogger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

// fakeMailer

type fakeMailer struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

// fixture wires a Service, Policy, Observer and IssueTask on fakes.
type fixture struct {
	repo     *fakeRepo
	certSvc  *fakeCertService
	tracker  *fakeTracker
	logger   *fakeLogger
	svc      *Service
	policy   *Policy
	observer *Observer
	task     *IssueTask
}

func newFixture(retroactive bool, templates ...Template) *fixture {
	fx := &fixture{
		repo:    newFakeRepo(),
		certSvc: newFakeCertService(templates...),
		tracker: newFakeTracker(),
		logger:  &fakeLogger{},
	}
	fx.svc = NewService(fx.repo, fx.certSvc)
	fx.svc.now = func() time.Time { return base }
	fx.policy = NewPolicy(fx.certSvc, retroactive)
	fx.observer = NewObserver(fx.svc, fx.policy, fx.logger)
	fx.task = NewIssueTask(fx.svc, fx.policy, fx.tracker, fx.logger)
	return fx
}

func (fx *fixture) newForm() *Form {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return NewForm(fx.svc, fx.certSvc, validate, translator, "https://lms.test/admin/certificates")
}
