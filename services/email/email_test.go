package emailsvc

import (
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/fs"
	"github.com/trezcool/coursecertificate/tests"
)

func TestConsoleServiceMock_issueReport(t *testing.T) {
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(appfs.FS, "templates/email", true, logger)
	svc := NewConsoleServiceMock(testutil.NewConfig(), logger)

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Admin", Address: "admin@lms.test"}},
			Subject:      "Certificates: 2 issued, 1 failed",
			TemplateName: "issue_report",
			TemplateData: certificate.TaskReport{
				StartedAt:  time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC),
				Activities: 3,
				Issued:     2,
				Failed:     1,
			},
		},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "dropped"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Certificate issue run of 2024-03-04 09:00 UTC")
	assert.Contains(t, sent[0].TextContent, "Issued: 2")
	assert.Contains(t, sent[0].TextContent, "Failures are retried on the next run.")
	assert.Contains(t, sent[0].TextContent, "Course Certificate")
	assert.Contains(t, sent[0].HTMLContent, "<td>Issued</td><td>2</td>")
}

func TestSendgridService_prepare(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewSendgridService(conf, testutil.NewLogger())

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Address: "admin@lms.test"}},
		Subject:     "Report",
		TextContent: "text",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Course Certificate] Report", m.Personalizations[0].Subject)
	assert.Equal(t, "admin@lms.test", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 1, "no html part without html content")
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
