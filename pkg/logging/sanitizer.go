package logging

import (
	"net/url"
	"regexp"
)

const (
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
	// MaxValueLogLength bounds source field values echoed into logs
	MaxValueLogLength = 80
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches the password half of user:pass@host credentials
	urlCredentialPattern = regexp.MustCompile(`://([^:/@\s]+):[^@\s]+@`)
)

// SanitizeConnectionString removes the password from a PostgreSQL connection
// string (URL or key=value form). User, host and database stay visible so the
// target warehouse can be identified in logs.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" && u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), RedactedText)
		}
		q := u.Query()
		if q.Has("password") {
			q.Set("password", RedactedText)
			u.RawQuery = q.Encode()
		}
		// url.URL escapes the brackets in the placeholder; undo that for readability.
		return unescapeRedacted(u.String())
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = urlCredentialPattern.ReplaceAllString(sanitized, "://${1}:"+RedactedText+"@")
	return sanitized
}

// SanitizeError sanitizes error messages that might contain credentials.
// Use this before logging any error from database operations.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = urlCredentialPattern.ReplaceAllString(sanitized, "://${1}:"+RedactedText+"@")
	return sanitized
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var escapedRedacted = regexp.MustCompile(`%5BREDACTED%5D`)

func unescapeRedacted(s string) string {
	return escapedRedacted.ReplaceAllString(s, RedactedText)
}
