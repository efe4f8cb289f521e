// mail — почтовый коллаборатор сервиса.
//
// Сервисному слою нужен только интерфейс Mailer; SMTP-реализация живёт
// здесь же. Отправка считается fire-and-forget со стороны бизнес-логики:
// ошибки логируются вызывающим, но пользовательские операции не ломают.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/pribylovaa/accounts-service/internal/config"
)

// Mailer отправляет письмо с HTML-телом.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer — реализация Mailer поверх SMTP.
type SMTPMailer struct {
	client *gomail.Client
	sender string
}

// NewSMTPMailer создаёт SMTP-клиент из конфигурации.
// Пустые логин/пароль означают открытый релей (локальный mailcatcher).
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	const op = "mail.NewSMTPMailer"

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}

	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SMTPMailer{
		client: client,
		sender: cfg.SenderEmail,
	}, nil
}

// Send отправляет письмо получателю. Блокирует до доставки на релей
// или до отмены контекста.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	const op = "mail.SMTPMailer.Send"

	msg := gomail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
