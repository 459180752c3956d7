package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/coursecertificate/apps/api/echo"
	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/core/event"
	"github.com/trezcool/coursecertificate/services/certificate"
	"github.com/trezcool/coursecertificate/services/completion"
	"github.com/trezcool/coursecertificate/storage/database/sqlx"
	"github.com/trezcool/coursecertificate/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}

	templates = []certificate.Template{{ID: "t1", Name: "Gold"}, {ID: "t2", Name: "Silver"}}
)

// unreachableRevoke is a certificate service that cannot be reached to revoke issues.
type unreachableRevoke struct {
	*certsvc.MemoryService
}

func (unreachableRevoke) RevokeIssue(context.Context, string) error {
	return errors.New("connection refused")
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

// env is a server wired to a migrated sqlite database and in-memory LMS services.
type env struct {
	app     *Server
	conf    *core.Config
	svc     *certificate.Service
	certSvc *certsvc.MemoryService
	tracker *completionsvc.MemoryTracker
	bus     *event.Bus
}

// setup wires the server. wrap, if given, decorates the certificate service seen by the server.
func setup(t *testing.T, wrap ...func(*certsvc.MemoryService) certificate.CertificateService) *env {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	db := testutil.PrepareDB(t)
	certSvc := certsvc.NewMemoryService(templates...)
	var served certificate.CertificateService = certSvc
	if len(wrap) > 0 {
		served = wrap[0](certSvc)
	}
	bus := event.NewBus(logger)
	tracker := completionsvc.NewMemoryTracker(bus)

	svc := certificate.NewService(sqlxrepos.NewActivityRepository(db), served)
	policy := certificate.NewPolicy(served, conf.Certificate.RetroactiveAutoSend)
	certificate.NewObserver(svc, policy, logger).Register(bus)

	app, err := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Translator:     translator,
		Service:        svc,
		Form:           certificate.NewForm(svc, served, validate, translator, conf.Certificate.ManageTemplatesURL),
		Policy:         policy,
		Tracker:        tracker,
		Bus:            bus,
	})
	if err != nil {
		t.Fatalf("NewServer(): %v", err)
	}
	return &env{app: app, conf: conf, svc: svc, certSvc: certSvc, tracker: tracker, bus: bus}
}

func (e *env) serve(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	e.app.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, userID string, roles ...string) string {
	claims := NewClaims(conf, core.Actor{ID: userID, Name: "User " + userID}, roles...)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
