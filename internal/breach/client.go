package breach

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"personahub/api/internal/config"
)

type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// CheckResult is the outcome of a single k-anonymity range lookup.
// It is computed per request and never persisted.
type CheckResult struct {
	Breached bool
	Count    int
	Severity Severity
	Err      string
}

// Client queries a haveibeenpwned-style range endpoint. Only the first
// five hex characters of the SHA-1 hash ever leave the process; the
// full hash and the password do not.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

func NewClient(cfg config.BreachConfig, log zerolog.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0). // single attempt, fail open
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Add-Padding", "true")

	return &Client{
		http: client,
		log:  log,
	}
}

// Check performs the range lookup. Any transport or service failure is
// fail-open: the result reports no breach with SeverityUnknown, so an
// outage never blocks registration or login.
func (c *Client) Check(ctx context.Context, password string) CheckResult {
	sum := sha1.Sum([]byte(password))
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix := hash[:5]
	suffix := hash[5:]

	resp, err := c.http.R().SetContext(ctx).Get("/range/" + prefix)
	if err != nil || !resp.IsSuccess() {
		if err != nil {
			c.log.Warn().Err(err).Msg("breach range lookup failed, failing open")
		} else {
			c.log.Warn().Int("status", resp.StatusCode()).Msg("breach range lookup failed, failing open")
		}
		return CheckResult{
			Breached: false,
			Count:    0,
			Severity: SeverityUnknown,
			Err:      "Service unavailable",
		}
	}

	count := scanRange(resp.String(), suffix)
	return CheckResult{
		Breached: count > 0,
		Count:    count,
		Severity: SeverityFor(count),
	}
}

// scanRange scans the newline-delimited SUFFIX:COUNT response body for
// the given 35-character suffix and returns its occurrence count.
func scanRange(body string, suffix string) int {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if !strings.EqualFold(parts[0], suffix) {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		return count
	}
	return 0
}

// SeverityFor maps an occurrence count onto the severity bands. Bounds
// are inclusive on the low end of each band.
func SeverityFor(count int) Severity {
	switch {
	case count <= 0:
		return SeveritySafe
	case count <= 10:
		return SeverityLow
	case count <= 1000:
		return SeverityMedium
	case count <= 10000:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}
