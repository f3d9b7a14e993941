package security

import "unicode"

const specialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?~` + "`"

// ValidatePasswordComplexity applies the strict gate used on password
// change and reset. All unmet rules are collected so the caller can
// report every violation at once.
func ValidatePasswordComplexity(password string) []string {
	var issues []string

	if len(password) < 8 {
		issues = append(issues, "Password must be at least 8 characters long")
	}
	if len(password) > 128 {
		issues = append(issues, "Password must be at most 128 characters long")
	}

	var hasLetter, hasDigit, hasUpper, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
			if unicode.IsUpper(r) {
				hasUpper = true
			}
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if isSpecialChar(r) {
			hasSpecial = true
		}
	}

	if !hasLetter {
		issues = append(issues, "Password must contain at least one letter")
	}
	if !hasDigit {
		issues = append(issues, "Password must contain at least one number")
	}
	if !hasUpper {
		issues = append(issues, "Password must contain at least one uppercase letter")
	}
	if !hasSpecial {
		issues = append(issues, "Password must contain at least one special character")
	}

	return issues
}

func isSpecialChar(r rune) bool {
	for _, s := range specialChars {
		if r == s {
			return true
		}
	}
	return false
}
