package dig_container

import (
	"fmt"
	"log"
	"os"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/coursecertificate/apps/api/echo"
	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/core/event"
	certsvc "github.com/trezcool/coursecertificate/services/certificate"
	completionsvc "github.com/trezcool/coursecertificate/services/completion"
	emailsvc "github.com/trezcool/coursecertificate/services/email"
	logsvc "github.com/trezcool/coursecertificate/services/logger"
	"github.com/trezcool/coursecertificate/storage/database"
	sqlxrepos "github.com/trezcool/coursecertificate/storage/database/sqlx"
)

// devTemplate is served by the in-memory certificate service when no LMS is configured.
var devTemplate = certificate.Template{ID: "default", Name: "Default certificate"}

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	ServerParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Translator ut.Translator
		Service    *certificate.Service
		Form       *certificate.Form
		Policy     *certificate.Policy
		Tracker    certificate.CompletionTracker
		Bus        *event.Bus
	}
)

func loggerFactory(app string) func(conf *core.Config) core.Logger {
	return func(conf *core.Config) core.Logger {
		stdLogger := log.New(os.Stdout, strings.ToUpper(app)+" : ", log.LstdFlags)
		return logsvc.NewRollbarLogger(stdLogger, conf)
	}
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, conf.Database.Engine, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newCertificateService(conf *core.Config, logger core.Logger) certificate.CertificateService {
	if conf.LMS.CertificateAPIURL == "" {
		logger.Warn("lms.certificateApiUrl is not set: using the in-memory certificate service")
		return certsvc.NewMemoryService(devTemplate)
	}
	return certsvc.NewRemoteService(conf)
}

func newCompletionTracker(conf *core.Config, bus *event.Bus, logger core.Logger) certificate.CompletionTracker {
	if conf.LMS.CompletionAPIURL == "" {
		logger.Warn("lms.completionApiUrl is not set: using the in-memory completion tracker")
		return completionsvc.NewMemoryTracker(bus)
	}
	return completionsvc.NewRemoteTracker(conf)
}

func newPolicy(conf *core.Config, certSvc certificate.CertificateService) *certificate.Policy {
	return certificate.NewPolicy(certSvc, conf.Certificate.RetroactiveAutoSend)
}

func newForm(
	conf *core.Config,
	svc *certificate.Service,
	certSvc certificate.CertificateService,
	validate *validator.Validate,
	translator ut.Translator,
) *certificate.Form {
	return certificate.NewForm(svc, certSvc, validate, translator, conf.Certificate.ManageTemplatesURL)
}

func newIssueTask(
	conf *core.Config,
	svc *certificate.Service,
	policy *certificate.Policy,
	tracker certificate.CompletionTracker,
	mailSvc core.EmailService,
	logger core.Logger,
) *certificate.IssueTask {
	task := certificate.NewIssueTask(svc, policy, tracker, logger)
	if len(conf.Certificate.ReportRecipients) > 0 {
		task.WithReport(mailSvc, conf.Certificate.ReportRecipients...)
	}
	return task
}

func newServer(p ServerParams) (*echoapi.Server, error) {
	return echoapi.NewServer(&echoapi.Options{
		Address:    p.Conf.Server.Host + ":" + p.Conf.Server.Port,
		Conf:       p.Conf,
		Logger:     p.Logger,
		Translator: p.Translator,
		Service:    p.Service,
		Form:       p.Form,
		Policy:     p.Policy,
		Tracker:    p.Tracker,
		Bus:        p.Bus,
	})
}

// New returns a new dependency injection dig.Container. app prefixes the log lines.
func New(app string) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(loggerFactory(app)))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(sqlxrepos.NewActivityRepository, dig.As(new(certificate.Repository))))
	must(c.Provide(newCertificateService))
	must(c.Provide(event.NewBus))
	must(c.Provide(newCompletionTracker))
	must(c.Provide(certificate.NewService))
	must(c.Provide(newPolicy))
	must(c.Provide(newForm))
	must(c.Provide(certificate.NewObserver))
	must(c.Provide(newIssueTask))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
