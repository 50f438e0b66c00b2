package builtin

import (
	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Email providers
const (
	EmailSMTP     = "smtp"
	EmailSendGrid = "sendgrid"
	EmailSES      = "ses"
	EmailLog      = "log"
)

// Email adds transactional email. Switching provider removes what the
// previous provider installed.
type Email struct{}

func (Email) Name() string        { return "email" }
func (Email) Description() string { return "Transactional email via SMTP, SendGrid or SES" }
func (Email) DependsOn() []string { return []string{"core"} }

func (Email) Schema() *modules.Schema {
	return modules.NewSchema(
		&modules.Field{
			Name:        "provider",
			Description: "Delivery provider",
			Type:        modules.FieldTypeSelect,
			Options:     []string{EmailSMTP, EmailSendGrid, EmailSES, EmailLog},
			Default:     EmailLog,
			Prompt:      "Email provider",
		},
		&modules.Field{
			Name:        "from",
			Description: "Sender address",
			Type:        modules.FieldTypeString,
			Required:    true,
			Prompt:      "Sender address",
		},
		&modules.Field{Name: "smtpHost", Description: "SMTP host", Type: modules.FieldTypeString, Default: "localhost"},
		&modules.Field{Name: "smtpPort", Description: "SMTP port", Type: modules.FieldTypeInt, Default: 1025},
	)
}

func (Email) Init(ctx *modules.InitContext) error {
	cfg := ctx.Config()
	provider := cfg.String("provider")
	smtp := provider == EmailSMTP
	sendgrid := provider == EmailSendGrid
	ses := provider == EmailSES

	setting(ctx, "email.provider", provider)
	setting(ctx, "email.from", cfg.String("from"))
	settingIf(ctx, smtp, "email.smtp.host", cfg.String("smtpHost"))
	settingIf(ctx, smtp, "email.smtp.port", cfg.Int("smtpPort"))

	ctx.RequestIf(smtp, executors.Dependency{Name: "nodemailer", Version: "^6.9.8"})
	ctx.RequestIf(smtp, executors.Dependency{Name: "@types/nodemailer", Version: "^6.4.14", Dev: true})
	ctx.RequestIf(smtp, executors.ComposeService{
		Name: "mailpit",
		Service: map[string]interface{}{
			"image":   "axllent/mailpit:latest",
			"restart": "unless-stopped",
			"ports":   []string{"1025:1025", "8025:8025"},
		},
	})

	ctx.RequestIf(sendgrid, executors.Dependency{Name: "@sendgrid/mail", Version: "^8.1.0"})
	exampleEnv(ctx, sendgrid, "SENDGRID_API_KEY", "SendGrid")

	ctx.RequestIf(ses, executors.Dependency{Name: "@aws-sdk/client-ses", Version: "^3.490.0"})
	awsEnv(ctx, ses)

	source(ctx, "src/email/email.service.ts", "email/email.service.ts", nil)
	source(ctx, "src/email/email.module.ts", "email/email.module.ts", nil)
	wire(ctx, "EmailModule", "./email/email.module")
	return nil
}
