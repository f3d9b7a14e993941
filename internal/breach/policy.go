package breach

import (
	"context"
	"fmt"
	"unicode"
)

// PolicyResult is the combined breach-plus-complexity decision for a
// candidate password.
type PolicyResult struct {
	IsValid  bool
	Reason   string
	Severity Severity
	Count    int
	Warning  bool
}

const policySpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?~` + "`"

// ValidateWithPolicy vets a password against the breach corpus and the
// five-axis complexity check. A breached password that is strong on all
// five axes is accepted with a warning; a breached weak password is
// rejected; a clean password passes.
func (c *Client) ValidateWithPolicy(ctx context.Context, password string) PolicyResult {
	result := c.Check(ctx, password)

	if !result.Breached {
		return PolicyResult{
			IsValid:  true,
			Reason:   "Password is secure",
			Severity: result.Severity,
		}
	}

	if isStrongPassword(password) {
		return PolicyResult{
			IsValid:  true,
			Reason:   fmt.Sprintf("Password appears in %d known breaches but meets all complexity requirements", result.Count),
			Severity: result.Severity,
			Count:    result.Count,
			Warning:  true,
		}
	}

	return PolicyResult{
		IsValid:  false,
		Reason:   fmt.Sprintf("Password appears in %d known breaches; choose a different password", result.Count),
		Severity: result.Severity,
		Count:    result.Count,
	}
}

// isStrongPassword requires uppercase, lowercase, digit, a special
// character, and length of at least 8, all at once.
func isStrongPassword(password string) bool {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		for _, s := range policySpecialChars {
			if r == s {
				hasSpecial = true
				break
			}
		}
	}
	return hasUpper && hasLower && hasDigit && hasSpecial && len(password) >= 8
}
