package config

import (
	"strings"
	"unicode/utf8"
)

// AuthorizationHeader is the header the self-test requires.
const AuthorizationHeader = "Authorization"

var requiredFields = []string{"url", "headers"}

// CheckReport is the outcome of the configuration self-test.
type CheckReport struct {
	Path                 string
	URL                  string
	Headers              map[string]string
	MissingFields        []string
	MissingAuthorization bool
}

// OK reports whether every check passed.
func (r CheckReport) OK() bool {
	return len(r.MissingFields) == 0 && !r.MissingAuthorization
}

// Check validates that the pdm section carries a url, headers and an
// Authorization header.
func Check(f *File) CheckReport {
	report := CheckReport{
		URL:     f.URL(),
		Headers: f.Headers(),
	}
	if f != nil {
		report.Path = f.Path()
	}

	for _, field := range requiredFields {
		if !f.HasField(field) {
			report.MissingFields = append(report.MissingFields, field)
		}
	}

	report.MissingAuthorization = true
	for k := range report.Headers {
		if strings.EqualFold(k, AuthorizationHeader) {
			report.MissingAuthorization = false
			break
		}
	}
	return report
}

// MaskToken shortens a credential for display: long tokens keep their first
// and last ten characters. Only the last space-separated word is kept.
func MaskToken(value string) string {
	token := value
	if fields := strings.Fields(value); len(fields) > 0 {
		token = fields[len(fields)-1]
	}
	if utf8.RuneCountInString(token) <= 20 {
		return token
	}
	runes := []rune(token)
	return string(runes[:10]) + "..." + string(runes[len(runes)-10:])
}

// MaskHeader returns a printable header value. Authorization values are
// masked; everything else is returned unchanged.
func MaskHeader(key, value string) string {
	if !strings.EqualFold(key, AuthorizationHeader) {
		return value
	}
	scheme := "Bearer"
	if fields := strings.Fields(value); len(fields) > 1 {
		scheme = fields[0]
	}
	return scheme + " " + MaskToken(value)
}

// MaskHeaders applies MaskHeader to every entry.
func MaskHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = MaskHeader(k, v)
	}
	return out
}
