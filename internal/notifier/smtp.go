package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"arcop/internal/domain"
	"arcop/pkg/platform/circuit"
)

// ErrRelayUnavailable is returned while the breaker is open and deliveries
// are being skipped instead of dialing a relay known to be failing.
var ErrRelayUnavailable = errors.New("smtp relay unavailable")

// SMTPConfig locates the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends rendered emails through a plain SMTP relay. A breaker guards
// the relay so a dead mail server fails fast instead of holding every
// request for the full dial timeout.
type SMTP struct {
	cfg      SMTPConfig
	renderer *Renderer
	breaker  *circuit.Breaker
	send     func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

	mu      sync.Mutex
	retryAt time.Time
}

// relayCooldown is how long an open breaker skips deliveries before the next
// probe attempt.
const relayCooldown = time.Minute

func NewSMTP(cfg SMTPConfig, settings Settings) *SMTP {
	return &SMTP{
		cfg:      cfg,
		renderer: NewRenderer(settings),
		breaker:  circuit.New("smtp", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1)),
		send:     smtp.SendMail,
	}
}

func (n *SMTP) SendConfirmation(ctx context.Context, req domain.Request) error {
	subject, body, err := n.renderer.Confirmation(req)
	if err != nil {
		return err
	}
	return n.deliver(ctx, req.Email, subject, body)
}

func (n *SMTP) SendIdentityConfirmed(ctx context.Context, req domain.Request) error {
	subject, body, err := n.renderer.IdentityConfirmed(req)
	if err != nil {
		return err
	}
	return n.deliver(ctx, req.Email, subject, body)
}

func (n *SMTP) SendDataReady(ctx context.Context, req domain.Request) error {
	subject, body, err := n.renderer.DataReady(req)
	if err != nil {
		return err
	}
	return n.deliver(ctx, req.Email, subject, body)
}

func (n *SMTP) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.skipDelivery() {
		return fmt.Errorf("send mail to %s: %w", to, ErrRelayUnavailable)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.send(addr, auth, n.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		n.breaker.RecordFailure()
		n.mu.Lock()
		n.retryAt = time.Now().Add(relayCooldown)
		n.mu.Unlock()
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	n.breaker.RecordSuccess()
	return nil
}

// skipDelivery reports whether the open breaker is still within its cooldown.
// Once the cooldown passes a single delivery is let through as a probe.
func (n *SMTP) skipDelivery() bool {
	if !n.breaker.IsOpen() {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if time.Now().Before(n.retryAt) {
		return true
	}
	n.retryAt = time.Now().Add(relayCooldown)
	return false
}
