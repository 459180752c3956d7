package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Port               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	CertificateConfig struct {
		// RetroactiveAutoSend makes auto-send issue to learners who completed before it was switched on.
		RetroactiveAutoSend bool
		IssueSchedule       string
		ReportRecipients    []string
		ManageTemplatesURL  string
	}

	LMSConfig struct {
		CertificateAPIURL string
		CompletionAPIURL  string
		Token             string
		Timeout           time.Duration
	}

	KafkaConfig struct {
		Brokers []string
		GroupID string
		Topic   string
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server      ServerConfig
		Database    DatabaseConfig
		Certificate CertificateConfig
		LMS         LMSConfig
		Kafka       KafkaConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// NewConfig loads the configuration from the environment.
// Every key can be overridden with an env var prefixed with the current ENV, eg: PROD_DATABASE_HOST.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Course Certificate")
	conf.SetDefault("secretKey", "k#9vz!2m0q$yd7e&u^b@1xw5r+t8-hc4n)jg3ls6(pf")
	conf.SetDefault("workDir", wd)
	conf.SetDefault("defaultFromEmail", "Course Certificate <noreply@localhost>")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.port", "8000")
	conf.SetDefault("server.debugHost", "localhost:4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "coursecertificate")
	conf.SetDefault("database.user", "coursecertificate")
	conf.SetDefault("database.password", "coursecertificate")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("certificate.retroactiveAutoSend", false)
	conf.SetDefault("certificate.issueSchedule", "@every 5m")
	conf.SetDefault("certificate.reportRecipients", []string{})
	conf.SetDefault("certificate.manageTemplatesURL", "")

	conf.SetDefault("lms.certificateApiUrl", "")
	conf.SetDefault("lms.completionApiUrl", "")
	conf.SetDefault("lms.token", "")
	conf.SetDefault("lms.timeout", 10*time.Second)

	conf.SetDefault("kafka.brokers", []string{})
	conf.SetDefault("kafka.groupId", "coursecertificate")
	conf.SetDefault("kafka.topic", "lms.completion")

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(conf.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		WorkDir:          conf.GetString("workDir"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:               conf.GetString("server.host"),
			Port:               conf.GetString("server.port"),
			DebugHost:          conf.GetString("server.debugHost"),
			ShutdownTimeout:    conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Certificate: CertificateConfig{
			RetroactiveAutoSend: conf.GetBool("certificate.retroactiveAutoSend"),
			IssueSchedule:       conf.GetString("certificate.issueSchedule"),
			ReportRecipients:    conf.GetStringSlice("certificate.reportRecipients"),
			ManageTemplatesURL:  conf.GetString("certificate.manageTemplatesURL"),
		},
		LMS: LMSConfig{
			CertificateAPIURL: conf.GetString("lms.certificateApiUrl"),
			CompletionAPIURL:  conf.GetString("lms.completionApiUrl"),
			Token:             conf.GetString("lms.token"),
			Timeout:           conf.GetDuration("lms.timeout"),
		},
		Kafka: KafkaConfig{
			Brokers: conf.GetStringSlice("kafka.brokers"),
			GroupID: conf.GetString("kafka.groupId"),
			Topic:   conf.GetString("kafka.topic"),
		},
	}
}
