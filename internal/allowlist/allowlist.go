// Package allowlist restricts which sender domains may submit mail for scanning.
package allowlist

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker matches sender addresses against a set of domains
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new checker. An empty list allows every sender.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	normalized := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		domain = strings.TrimPrefix(domain, "@")
		if domain != "" {
			normalized[domain] = struct{}{}
		}
	}

	if len(normalized) > 0 {
		logger.Info("Initialized sender allow-list", zap.Int("domains", len(normalized)))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// Open reports whether every sender is allowed
func (c *Checker) Open() bool {
	return len(c.domains) == 0
}

// Allowed reports whether the sender's domain is on the list. The address
// may be bare or carry a display name.
func (c *Checker) Allowed(from string) bool {
	if c.Open() {
		return true
	}

	domain := Domain(from)
	if domain == "" {
		return false
	}

	if _, ok := c.domains[domain]; ok {
		return true
	}

	c.logger.Debug("Sender domain not allowed",
		zap.String("domain", domain),
		zap.String("sender", from))
	return false
}

// Domain returns the lower-cased domain of an address, or "" when it has none
func Domain(from string) string {
	addr := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}

	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
