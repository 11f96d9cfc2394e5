package caserec

// validate.go holds the fixed row validation rules. Every rule is evaluated
// independently so a row can carry multiple simultaneous errors; the result
// maps field name to a user-facing message. Validation is pure: no state,
// no I/O, cheap enough to run on every cell edit.

import (
	"regexp"
	"strings"
	"time"
)

// User-facing validation messages.
const (
	MsgRequired        = "Required"
	MsgBadPriority     = "Must be LOW, MEDIUM, or HIGH"
	MsgBadCategory     = "Must be TAX, LICENSE, or PERMIT"
	MsgInvalidDate     = "Invalid Date"
	MsgDOBOutOfRange   = "Date must be between 1900 and today"
	MsgInvalidEmail    = "Invalid email format"
	MsgInvalidPhone    = "Invalid phone number"
	MsgDuplicateID     = "Duplicate ID in this file"
	MsgCaseIDExists    = "Case ID already exists"
)

// emailRegex matches a simple local@domain.tld shape. Deliberately loose;
// the address is optional contact data, not a delivery guarantee.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// dobLayouts are the date formats accepted for the date of birth column.
// Four-digit-year layouts only; two-digit years are too ambiguous for a
// field spanning 1900 to today.
var dobLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDOB parses a date of birth string against the accepted layouts.
func ParseDOB(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks one record against the fixed rule set and returns a
// field -> message map. An empty map means the row is valid.
func Validate(r CaseRecord) map[string]string {
	return validateAt(r, time.Now())
}

// validateAt is Validate with an injectable clock for the DOB upper bound.
func validateAt(r CaseRecord, now time.Time) map[string]string {
	errs := make(map[string]string)

	if r.CaseID == "" {
		errs[FieldCaseID] = MsgRequired
	}
	if r.ApplicantName == "" {
		errs[FieldApplicantName] = MsgRequired
	}

	switch {
	case r.Priority == "":
		errs[FieldPriority] = MsgRequired
	case !ValidPriority(r.Priority):
		errs[FieldPriority] = MsgBadPriority
	}

	// Category is optional at the grid layer; the reconciler enforces it.
	if r.Category != "" && !ValidCategory(r.Category) {
		errs[FieldCategory] = MsgBadCategory
	}

	if r.DOB == "" {
		errs[FieldDOB] = MsgRequired
	} else if d, ok := ParseDOB(r.DOB); !ok {
		errs[FieldDOB] = MsgInvalidDate
	} else if d.Year() < 1900 || d.After(now) {
		errs[FieldDOB] = MsgDOBOutOfRange
	}

	if r.Email != "" && !emailRegex.MatchString(r.Email) {
		errs[FieldEmail] = MsgInvalidEmail
	}

	if r.Phone != "" && !ValidPhone(r.Phone) {
		errs[FieldPhone] = MsgInvalidPhone
	}

	return errs
}

// CountIDs tallies non-empty external identifiers. Any identifier with a
// count above one is a duplicate, and every row carrying it gets the
// duplicate error, not just later occurrences.
func CountIDs(ids []string) map[string]int {
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		if id != "" {
			counts[id]++
		}
	}
	return counts
}
