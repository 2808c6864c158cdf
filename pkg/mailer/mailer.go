// Package mailer delivers outbound e-mail with file attachments.
package mailer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/angelmondragon/recruitment-backend/pkg/config"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
)

// Attachment references a file on disk.
type Attachment struct {
	Path     string
	Filename string
}

// Message is one outbound e-mail.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Result carries the transport message id of an accepted message.
type Result struct {
	MessageID string
}

// Sender sends a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	cfg    config.MailConfig
	client *mail.Client
}

// NewSMTPSender builds a sender from the mail configuration.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, fmt.Errorf("from address is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLSPolicy)),
	}
	if cfg.SendTimeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.SendTimeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPSender{cfg: cfg, client: client}, nil
}

func tlsPolicy(value string) mail.TLSPolicy {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// Send delivers msg. The configured send timeout bounds the whole SMTP
// exchange; a timeout is returned as an ordinary error.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (Result, error) {
	m, id, err := buildMessage(s.cfg.FromName, s.cfg.FromAddress, msg)
	if err != nil {
		return Result{}, err
	}
	if s.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SendTimeout)
		defer cancel()
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return Result{}, fmt.Errorf("smtp send: %w", err)
	}
	return Result{MessageID: id}, nil
}

func buildMessage(fromName, fromAddress string, msg Message) (*mail.Msg, string, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, "", fmt.Errorf("recipient is required")
	}
	m := mail.NewMsg()
	if err := m.FromFormat(fromName, fromAddress); err != nil {
		return nil, "", fmt.Errorf("invalid from address: %w", err)
	}
	if msg.ToName != "" {
		if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
			return nil, "", fmt.Errorf("invalid recipient: %w", err)
		}
	} else if err := m.To(msg.To); err != nil {
		return nil, "", fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()

	id := fmt.Sprintf("%s@%s", uuid.NewString(), domainOf(fromAddress))
	m.SetMessageIDWithValue(id)

	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	if msg.TextBody != "" {
		m.AddAlternativeString(mail.TypeTextPlain, msg.TextBody)
	}
	for _, att := range msg.Attachments {
		info, err := os.Stat(att.Path)
		if err != nil {
			return nil, "", fmt.Errorf("attachment %s: %w", att.Filename, err)
		}
		if !info.Mode().IsRegular() {
			return nil, "", fmt.Errorf("attachment %s is not a file", att.Filename)
		}
		var fileOpts []mail.FileOption
		if att.Filename != "" {
			fileOpts = append(fileOpts, mail.WithFileName(att.Filename))
		}
		m.AttachFile(att.Path, fileOpts...)
	}
	return m, id, nil
}

func domainOf(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		return address[at+1:]
	}
	return "localhost"
}

// DryRunSender logs messages instead of sending them.
type DryRunSender struct {
	logg *logger.Logger
	now  func() time.Time
}

// NewDryRunSender returns a sender for development environments.
func NewDryRunSender(logg *logger.Logger) *DryRunSender {
	return &DryRunSender{logg: logg, now: time.Now}
}

func (d *DryRunSender) Send(ctx context.Context, msg Message) (Result, error) {
	if strings.TrimSpace(msg.To) == "" {
		return Result{}, fmt.Errorf("recipient is required")
	}
	for _, att := range msg.Attachments {
		if _, err := os.Stat(att.Path); err != nil {
			return Result{}, fmt.Errorf("attachment %s: %w", att.Filename, err)
		}
	}
	id := "dryrun-" + uuid.NewString()
	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"to":          msg.To,
			"subject":     msg.Subject,
			"attachments": len(msg.Attachments),
			"message_id":  id,
			"at":          d.now().UTC(),
		})
		d.logg.Info(logCtx, "mail dry-run: message not sent")
	}
	return Result{MessageID: id}, nil
}

// New picks the dry-run sender when requested, otherwise SMTP.
func New(cfg config.MailConfig, dryRun bool, logg *logger.Logger) (Sender, error) {
	if dryRun {
		return NewDryRunSender(logg), nil
	}
	return NewSMTPSender(cfg)
}
