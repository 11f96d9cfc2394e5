// Package caserec defines the case record shape shared by the intake grid
// and the batch reconciler, along with the fixed validation rules applied
// to every row.
//
// All fields are kept as raw strings until ingestion so the grid can hold
// (and let users fix) values that do not yet parse. Parsing and canonical
// formatting happen in Validate, NormalizePhone, and ParseDOB.
package caserec

import "strings"

// Field names, matching the spreadsheet column headers.
const (
	FieldCaseID        = "case_id"
	FieldApplicantName = "applicant_name"
	FieldDOB           = "dob"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldCategory      = "category"
	FieldPriority      = "priority"
)

// Category values accepted by the case schema.
const (
	CategoryTax     = "TAX"
	CategoryLicense = "LICENSE"
	CategoryPermit  = "PERMIT"
)

// Priority values accepted by the case schema.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// CaseRecord is one applicant row. CaseID is the user-supplied external
// identifier, unique within a file and within the persistent store.
type CaseRecord struct {
	CaseID        string `json:"case_id"`
	ApplicantName string `json:"applicant_name"`
	DOB           string `json:"dob"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Category      string `json:"category,omitempty"`
	Priority      string `json:"priority,omitempty"`
}

// CleanKey strips surrounding whitespace and a leading BOM or zero-width
// marker from a column header. Exported spreadsheets routinely carry both.
func CleanKey(k string) string {
	k = strings.TrimSpace(k)
	k = strings.TrimPrefix(k, "\ufeff")
	k = strings.TrimPrefix(k, "\u200b")
	return k
}

// FromMap builds a CaseRecord from a loosely-typed field map as produced by
// the file parsing layer. Keys are cleaned via CleanKey; unknown keys are
// ignored.
func FromMap(fields map[string]string) CaseRecord {
	var r CaseRecord
	for k, v := range fields {
		r.SetField(CleanKey(k), v)
	}
	return r
}

// Field returns the value of the named field, or "" for an unknown name.
func (r CaseRecord) Field(name string) string {
	switch name {
	case FieldCaseID:
		return r.CaseID
	case FieldApplicantName:
		return r.ApplicantName
	case FieldDOB:
		return r.DOB
	case FieldEmail:
		return r.Email
	case FieldPhone:
		return r.Phone
	case FieldCategory:
		return r.Category
	case FieldPriority:
		return r.Priority
	}
	return ""
}

// SetField assigns the named field. Unknown names are ignored.
func (r *CaseRecord) SetField(name, value string) {
	switch name {
	case FieldCaseID:
		r.CaseID = value
	case FieldApplicantName:
		r.ApplicantName = value
	case FieldDOB:
		r.DOB = value
	case FieldEmail:
		r.Email = value
	case FieldPhone:
		r.Phone = value
	case FieldCategory:
		r.Category = value
	case FieldPriority:
		r.Priority = value
	}
}

// ValidCategory reports whether v is one of the accepted category values.
func ValidCategory(v string) bool {
	switch v {
	case CategoryTax, CategoryLicense, CategoryPermit:
		return true
	}
	return false
}

// ValidPriority reports whether v is one of the accepted priority values.
func ValidPriority(v string) bool {
	switch v {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
