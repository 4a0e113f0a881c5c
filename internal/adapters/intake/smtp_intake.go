// Package intake accepts mail over SMTP and scans it like a pasted email.
package intake

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/allowlist"
	"github.com/mikey/spam-dashboard/internal/core"
	"github.com/mikey/spam-dashboard/internal/utils"
)

// Defaults applied when the configuration leaves them unset
const (
	DefaultDomain          = "localhost"
	DefaultScanTimeout     = 10 * time.Second
	DefaultMaxMessageBytes = 1 << 20
	DefaultMaxRecipients   = 50
)

var (
	errSenderRejected = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 7, 1},
		Message:      "Sender domain not accepted for scanning",
	}
	errUnparsable = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Message could not be parsed",
	}
	errScanUnavailable = &smtp.SMTPError{
		Code:         451,
		EnhancedCode: smtp.EnhancedCode{4, 3, 0},
		Message:      "Classification service unavailable, try again later",
	}
)

// Scanner classifies submitted text
type Scanner interface {
	Scan(ctx context.Context, req core.ScanRequest, source string) (*core.LastScan, error)
}

// Config holds the SMTP listener settings
type Config struct {
	ListenAddr      string
	Domain          string
	ScanTimeout     time.Duration
	MaxMessageBytes int64
}

// SMTPIntake is an SMTP listener that scans every delivered message
type SMTPIntake struct {
	scanner       Scanner
	allowlist     *allowlist.Checker
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	cfg           Config

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
}

// NewSMTPIntake creates a new SMTP intake
func NewSMTPIntake(scanner Scanner, checker *allowlist.Checker, cfg Config, logger *zap.Logger) *SMTPIntake {
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if checker == nil {
		checker = allowlist.NewChecker(nil, logger)
	}

	return &SMTPIntake{
		scanner:       scanner,
		allowlist:     checker,
		textProcessor: utils.NewTextProcessor(logger),
		logger:        logger,
		cfg:           cfg,
	}
}

// Start binds the listen address and serves in the background
func (i *SMTPIntake) Start() error {
	ln, err := net.Listen("tcp", i.cfg.ListenAddr)
	if err != nil {
		return err
	}

	server := smtp.NewServer(&smtpBackend{intake: i})
	server.Addr = ln.Addr().String()
	server.Domain = i.cfg.Domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = i.cfg.MaxMessageBytes
	server.MaxRecipients = DefaultMaxRecipients

	i.mu.Lock()
	i.server = server
	i.listener = ln
	i.mu.Unlock()

	i.logger.Info("SMTP intake listening", zap.String("address", ln.Addr().String()))

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			i.logger.Error("SMTP intake error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (i *SMTPIntake) Addr() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.listener == nil {
		return i.cfg.ListenAddr
	}
	return i.listener.Addr().String()
}

// Stop closes the listener and every open session
func (i *SMTPIntake) Stop() error {
	i.mu.Lock()
	server := i.server
	i.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Close()
}

// ProcessMessage scans a raw RFC 5322 message submitted by sender
func (i *SMTPIntake) ProcessMessage(ctx context.Context, sender string, raw []byte) (*core.LastScan, error) {
	text, err := ScanText(raw, i.textProcessor)
	if err != nil {
		i.logger.Debug("Failed to extract message text", zap.String("sender", sender), zap.Error(err))
		return nil, errUnparsable
	}

	scanCtx, cancel := context.WithTimeout(ctx, i.cfg.ScanTimeout)
	defer cancel()

	return i.scanner.Scan(scanCtx, core.ScanRequest{Text: text}, core.SourceSMTP)
}

type smtpBackend struct {
	intake *SMTPIntake
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{intake: b.intake}, nil
}

type smtpSession struct {
	intake     *SMTPIntake
	sender     string
	recipients []string
}

// Reset clears the envelope
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}

// Mail checks the sender against the allow-list
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.intake.allowlist.Allowed(from) {
		s.intake.logger.Info("Rejected sender",
			zap.String("sender", from),
			zap.String("sender_domain", allowlist.Domain(from)))
		return errSenderRejected
	}
	s.sender = from
	return nil
}

// Rcpt records a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data scans the message. Validation failures are permanent rejections;
// classification service failures are temporary so the relay retries.
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.intake.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	scan, err := s.intake.ProcessMessage(context.Background(), s.sender, raw)
	if err != nil {
		var smtpErr *smtp.SMTPError
		var validationErr *core.ValidationError
		switch {
		case errors.As(err, &smtpErr):
			return smtpErr
		case errors.As(err, &validationErr):
			return &smtp.SMTPError{
				Code:         550,
				EnhancedCode: smtp.EnhancedCode{5, 6, 0},
				Message:      validationErr.Message,
			}
		}
		s.intake.logger.Warn("Failed to scan message",
			zap.String("sender", s.sender),
			zap.Error(err))
		return errScanUnavailable
	}

	primary, _ := scan.Result.Primary()
	s.intake.logger.Info("Scanned message",
		zap.String("sender", s.sender),
		zap.String("sender_domain", allowlist.Domain(s.sender)),
		zap.Int("recipients", len(s.recipients)),
		zap.String("prediction", string(primary.Prediction)),
		zap.Float64("confidence", primary.Confidence))

	return nil
}
