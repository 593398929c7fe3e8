package notify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
	"github.com/yakoovad/scrapyard-registration/internal/config"
)

type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
	tpl      *templates
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
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
		return nil, errors.Wrap(err, "create smtp client")
	}

	tpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	return &SMTPMailer{
		client:   client,
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
		tpl:      tpl,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	r, err := m.tpl.render(msg.Kind, msg.Data)
	if err != nil {
		return err
	}

	out := mail.NewMsg()
	if err = out.FromFormat(m.fromName, m.from); err != nil {
		return errors.Wrap(err, "set sender")
	}
	if err = out.To(msg.To); err != nil {
		return errors.Wrap(err, "set recipient")
	}
	out.Subject(r.Subject)
	out.SetBodyString(mail.TypeTextPlain, r.Text)
	out.AddAlternativeString(mail.TypeTextHTML, r.HTML)

	if err = m.client.DialAndSendWithContext(ctx, out); err != nil {
		return errors.Wrapf(err, "send %s mail", msg.Kind)
	}
	return nil
}
