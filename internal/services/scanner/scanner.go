package scanner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Severity levels for findings.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Finding types.
const (
	TypeAWSAccessKey  = "aws_access_key"
	TypeAWSSecretKey  = "aws_secret_key"
	TypeAPIToken      = "api_token"
	TypeGitHubToken   = "github_token"
	TypeSlackToken    = "slack_token"
	TypeBearerToken   = "bearer_token"
	TypeSSN           = "ssn"
	TypeCreditCard    = "credit_card"
	TypePrivateKey    = "private_key"
	TypeDatabaseCreds = "database_credentials"
	TypeConnString    = "connection_string"
	TypeBulkEmail     = "bulk_email"
	TypeInternalIP    = "internal_ip"
)

var typeLabels = map[string]string{
	TypeAWSAccessKey:  "AWS Access Key",
	TypeAWSSecretKey:  "AWS Secret Key",
	TypeAPIToken:      "API Token",
	TypeGitHubToken:   "GitHub Token",
	TypeSlackToken:    "Slack Token",
	TypeBearerToken:   "Bearer Token",
	TypeSSN:           "Social Security Number",
	TypeCreditCard:    "Credit Card Number",
	TypePrivateKey:    "Private Key",
	TypeDatabaseCreds: "Database Credentials",
	TypeConnString:    "Connection String",
	TypeBulkEmail:     "Bulk Email Addresses",
	TypeInternalIP:    "Internal IP Address",
}

// Finding is a single detection hit. RedactedValue never carries more than
// the first four characters of the original match.
type Finding struct {
	Type          string `json:"type"`
	Severity      string `json:"severity"`
	RedactedValue string `json:"redactedValue"`
	Index         int    `json:"index"`
}

// Result is the outcome of one scan over a text.
type Result struct {
	HasHighSeverity   bool      `json:"hasHighSeverity"`
	HasMediumSeverity bool      `json:"hasMediumSeverity"`
	Findings          []Finding `json:"findings"`
}

var (
	reAWSAccessKey = regexp.MustCompile(`AKIA[A-Z0-9]{16}`)
	reAWSSecretCandidate = regexp.MustCompile(`\b[A-Za-z0-9/+=]{40}\b`)
	reAPIToken     = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}`)
	reGitHubToken  = regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`)
	reSlackToken   = regexp.MustCompile(`\bxox[bp]-[A-Za-z0-9-]{10,}`)
	reBearerToken  = regexp.MustCompile(`Bearer\s+([A-Za-z0-9_.=-]{20,})`)
	reSSN          = regexp.MustCompile(`\b(\d{3})-(\d{2})-(\d{4})\b`)
	reCreditCard   = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	rePrivateKey   = regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`)
	reDatabaseCreds = regexp.MustCompile(`(?i)\b(?:postgresql|postgres|mongodb|mongo|mysql|redis|amqp)://[^\s:@/]+:[^\s@]+@\S+`)

	reConnString = regexp.MustCompile(`(?i)\b(?:postgresql|postgres|mongodb|mongo|mysql|redis|amqp)://\S+`)
	reEmail      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	reInternalIP = regexp.MustCompile(`\b(?:10\.\d{1,3}\.\d{1,3}\.\d{1,3}|172\.(?:1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3}|192\.168\.\d{1,3}\.\d{1,3})\b`)
)

type span struct{ start, end int }

// ScanText runs the high-severity pass, then the medium pass, discarding any
// medium finding whose range overlaps a high one.
func ScanText(text string) Result {
	var findings []Finding
	var highSpans []span

	addHigh := func(typ string, start, end int) {
		findings = append(findings, Finding{
			Type:          typ,
			Severity:      SeverityHigh,
			RedactedValue: Redact(text[start:end]),
			Index:         start,
		})
		highSpans = append(highSpans, span{start, end})
	}

	for _, m := range reAWSAccessKey.FindAllStringIndex(text, -1) {
		addHigh(TypeAWSAccessKey, m[0], m[1])
	}

	lower := strings.ToLower(text)
	for _, m := range reAWSSecretCandidate.FindAllStringIndex(text, -1) {
		if hasSecretContext(lower, m[0], m[1]) {
			addHigh(TypeAWSSecretKey, m[0], m[1])
		}
	}

	for _, m := range reAPIToken.FindAllStringIndex(text, -1) {
		addHigh(TypeAPIToken, m[0], m[1])
	}
	for _, m := range reGitHubToken.FindAllStringIndex(text, -1) {
		addHigh(TypeGitHubToken, m[0], m[1])
	}
	for _, m := range reSlackToken.FindAllStringIndex(text, -1) {
		addHigh(TypeSlackToken, m[0], m[1])
	}
	for _, m := range reBearerToken.FindAllStringSubmatchIndex(text, -1) {
		// Redact only the token, not the "Bearer " prefix.
		addHigh(TypeBearerToken, m[2], m[3])
	}
	for _, m := range reSSN.FindAllStringSubmatchIndex(text, -1) {
		area := text[m[2]:m[3]]
		group := text[m[4]:m[5]]
		serial := text[m[6]:m[7]]
		if validSSN(area, group, serial) {
			addHigh(TypeSSN, m[0], m[1])
		}
	}
	for _, m := range reCreditCard.FindAllStringIndex(text, -1) {
		if luhnValid(text[m[0]:m[1]]) {
			addHigh(TypeCreditCard, m[0], m[1])
		}
	}
	for _, m := range rePrivateKey.FindAllStringIndex(text, -1) {
		addHigh(TypePrivateKey, m[0], m[1])
	}
	for _, m := range reDatabaseCreds.FindAllStringIndex(text, -1) {
		addHigh(TypeDatabaseCreds, m[0], m[1])
	}

	addMedium := func(typ, redacted string, start, end int) {
		for _, h := range highSpans {
			if start < h.end && end > h.start {
				return
			}
		}
		findings = append(findings, Finding{
			Type:          typ,
			Severity:      SeverityMedium,
			RedactedValue: redacted,
			Index:         start,
		})
	}

	for _, m := range reConnString.FindAllStringIndex(text, -1) {
		addMedium(TypeConnString, Redact(text[m[0]:m[1]]), m[0], m[1])
	}

	emails := reEmail.FindAllStringIndex(text, -1)
	distinct := map[string]bool{}
	for _, m := range emails {
		distinct[strings.ToLower(text[m[0]:m[1]])] = true
	}
	if len(distinct) >= 11 {
		first := emails[0]
		addMedium(TypeBulkEmail, fmt.Sprintf("%d distinct addresses", len(distinct)), first[0], first[1])
	}

	for _, m := range reInternalIP.FindAllStringIndex(text, -1) {
		addMedium(TypeInternalIP, Redact(text[m[0]:m[1]]), m[0], m[1])
	}

	res := Result{Findings: findings}
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			res.HasHighSeverity = true
		case SeverityMedium:
			res.HasMediumSeverity = true
		}
	}
	return res
}

// hasSecretContext checks for an AWS context word within 40 characters of
// the candidate on either side.
func hasSecretContext(lower string, start, end int) bool {
	lo := start - 40
	if lo < 0 {
		lo = 0
	}
	hi := end + 40
	if hi > len(lower) {
		hi = len(lower)
	}
	window := lower[lo:start] + lower[end:hi]
	return strings.Contains(window, "aws") ||
		strings.Contains(window, "secret") ||
		strings.Contains(window, "credential")
}

func validSSN(area, group, serial string) bool {
	if area == "000" || area == "666" || area >= "900" {
		return false
	}
	if group == "00" {
		return false
	}
	if serial == "0000" {
		return false
	}
	return true
}

func luhnValid(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) != 16 {
		return false
	}
	sum := 0
	for i, d := range digits {
		if (len(digits)-i)%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

// Redact keeps the first four characters of a value, or a single character
// for values of four characters or fewer.
func Redact(value string) string {
	if value == "" {
		return "****"
	}
	if len(value) <= 4 {
		return value[:1] + "****"
	}
	return value[:4] + "****"
}

// BlockMessage builds the human-readable rejection text for a blocked
// request. Only high-severity findings are named; duplicate types coalesce.
func BlockMessage(findings []Finding) string {
	seen := map[string]bool{}
	var labels []string
	for _, f := range findings {
		if f.Severity != SeverityHigh || seen[f.Type] {
			continue
		}
		seen[f.Type] = true
		labels = append(labels, typeLabels[f.Type])
	}
	sort.Strings(labels)
	return fmt.Sprintf("Request blocked: sensitive data detected (%s). Remove the flagged content and retry.",
		strings.Join(labels, ", "))
}

// WarningMessage names medium-severity findings for the response header.
func WarningMessage(findings []Finding) string {
	seen := map[string]bool{}
	var labels []string
	for _, f := range findings {
		if f.Severity != SeverityMedium || seen[f.Type] {
			continue
		}
		seen[f.Type] = true
		labels = append(labels, typeLabels[f.Type])
	}
	sort.Strings(labels)
	return "Potentially sensitive data detected: " + strings.Join(labels, ", ")
}
