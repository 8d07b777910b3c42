// Package validation checks a submitted intake form field by field. All rules
// run and all failures are collected, in form order, so the caller can render
// either the full list or just the first message.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"arcop/internal/domain"
	"arcop/internal/rut"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Chilean mobile: +56 9 XXXX XXXX with optional separators and optional
	// leading plus.
	phonePattern = regexp.MustCompile(`^\+?56\s?9\s?\d{4}\s?\d{4}$`)
)

const (
	minNameLength = 3
	maxNameLength = 100
)

// Candidate carries the raw submitted fields before any normalization.
type Candidate struct {
	FullName      string
	RUT           string
	Email         string
	Phone         string
	Scope         string
	Categories    []string
	Format        string
	TermsAccepted bool
}

// Failure names one invalid field with a human-readable message.
type Failure struct {
	Field   string
	Message string
}

// Result is the outcome of validating a candidate.
type Result struct {
	Failures []Failure
}

// Valid reports whether no rule failed.
func (r Result) Valid() bool { return len(r.Failures) == 0 }

// First returns the first failure message, for callers that only surface one.
func (r Result) First() (Failure, bool) {
	if len(r.Failures) == 0 {
		return Failure{}, false
	}
	return r.Failures[0], true
}

func (r *Result) add(field, message string) {
	r.Failures = append(r.Failures, Failure{Field: field, Message: message})
}

// Validate applies every rule to the candidate. Rules are short-circuit-free
// at the field level: a bad RUT does not hide a bad email.
func Validate(c Candidate) Result {
	var res Result

	name := strings.TrimSpace(c.FullName)
	switch {
	case name == "":
		res.add("full_name", "full name is required")
	case len([]rune(name)) < minNameLength:
		res.add("full_name", "full name must have at least 3 characters")
	case len([]rune(name)) > maxNameLength:
		res.add("full_name", "full name is too long")
	case !lettersAndSpacesOnly(name):
		res.add("full_name", "full name may only contain letters and spaces")
	}

	if strings.TrimSpace(c.RUT) == "" {
		res.add("rut", "RUT is required")
	} else if !rut.IsValid(c.RUT) {
		res.add("rut", "invalid RUT")
	}

	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		res.add("email", "email is required")
	} else if !emailPattern.MatchString(email) {
		res.add("email", "invalid email")
	}

	if phone := strings.TrimSpace(c.Phone); phone != "" && !phonePattern.MatchString(phone) {
		res.add("phone", "phone must match +56 9 XXXX XXXX")
	}

	scope := domain.Scope(c.Scope)
	if c.Scope == "" {
		res.add("scope", "scope is required")
	} else if !scope.Valid() {
		res.add("scope", "scope must be ALL or SPECIFIC")
	}

	if scope == domain.ScopeSpecific && len(nonEmpty(c.Categories)) == 0 {
		res.add("categories", "at least one category is required for a specific scope")
	}

	if c.Format == "" {
		res.add("preferred_format", "preferred format is required")
	} else if !domain.Format(c.Format).Valid() {
		res.add("preferred_format", "preferred format must be PDF, CSV or JSON")
	}

	if !c.TermsAccepted {
		res.add("terms_accepted", "terms and conditions must be accepted")
	}

	return res
}

// NormalizedEmail is the case-normalized form persisted and matched against.
func NormalizedEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func lettersAndSpacesOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func nonEmpty(categories []string) []string {
	out := categories[:0:0]
	for _, c := range categories {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}
