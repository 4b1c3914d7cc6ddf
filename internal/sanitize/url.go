package sanitize

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern       = regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.-]*://[^\s"'<>]+`)
	embeddedEmail    = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	ipv4Pattern      = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d+)?\b`)
	ipv6Pattern      = regexp.MustCompile(`(?i)\b(?:[0-9a-f]{1,4}:){3,7}[0-9a-f]{1,4}\b`)
	unixPathPattern  = regexp.MustCompile(`(?:^|[\s(])(/[A-Za-z0-9._-]+){2,}/?`)
	winPathPattern   = regexp.MustCompile(`(?i)\b[a-z]:\\[^\s"']+`)
	secretKeyPattern = regexp.MustCompile(`(?i)\b(sk|pk|rk|key|api|bearer)[-_][A-Za-z0-9_-]{8,}`)
	longTokenPattern = regexp.MustCompile(`\b[A-Za-z0-9_-]{24,}\b`)
)

const maxErrorMessageLength = 200

// URL accepts only absolute http and https URLs and returns them in
// normalized form, with an empty path rendered as "/".
func URL(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if parsed.Host == "" {
		return "", false
	}
	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String(), true
}

// ErrorMessage removes URLs, emails, IPs, file paths and opaque tokens from a
// message before it is shown to a client.
func ErrorMessage(message string) string {
	out := urlPattern.ReplaceAllString(message, "[url]")
	out = embeddedEmail.ReplaceAllString(out, "[email]")
	out = ipv4Pattern.ReplaceAllString(out, "[ip]")
	out = ipv6Pattern.ReplaceAllString(out, "[ip]")
	out = winPathPattern.ReplaceAllString(out, "[path]")
	out = unixPathPattern.ReplaceAllStringFunc(out, func(match string) string {
		if match[0] != '/' {
			return match[:1] + "[path]"
		}
		return "[path]"
	})
	out = secretKeyPattern.ReplaceAllString(out, "[redacted]")
	out = longTokenPattern.ReplaceAllString(out, "[redacted]")
	out = collapseWhitespace(out)
	if len(out) > maxErrorMessageLength {
		out = strings.TrimSpace(truncate(out, maxErrorMessageLength)) + "..."
	}
	return out
}
