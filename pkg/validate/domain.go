// Package validate checks the syntax of domain names before they are stored.
package validate

import "regexp"

// MaxDomainLength is the longest domain name accepted, in characters.
const MaxDomainLength = 253

// one or more "label." followed by a final label. a label is 1-63 alphanumerics
// or hyphens that neither starts nor ends with a hyphen.
var domainPattern = regexp.MustCompile(
	`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+` +
		`[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// Domain reports whether candidate is a syntactically valid domain name.
// Trailing dots, underscores and single-label names are rejected.
func Domain(candidate string) bool {
	if candidate == "" || len(candidate) > MaxDomainLength {
		return false
	}
	return domainPattern.MatchString(candidate)
}
