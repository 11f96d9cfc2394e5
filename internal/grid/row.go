// Package grid implements the editable intake grid: an in-memory table of
// case rows that is validated on load, revalidated incrementally on edit,
// and revalidated in full by a chunked background pass.
package grid

import "github.com/caseflow/caseflow/internal/caserec"

// Row wraps one case record with grid-local bookkeeping.
//
// ID is the client-local identity: assigned once at load or creation time,
// stable across edits, never renumbered. RowNumber is the 1-based display
// position and is recomputed after structural deletes. The two are
// deliberately independent.
type Row struct {
	ID        int64              `json:"id"`
	RowNumber int                `json:"rowNumber"`
	Data      caserec.CaseRecord `json:"data"`
	Errors    map[string]string  `json:"errors"`
	IsValid   bool               `json:"isValid"`
}

// revalidate reruns the row rules against the current data and refreshes the
// validity flag. It does not touch duplicate status; callers layer that on
// via applyDuplicate.
func (r *Row) revalidate() {
	r.Errors = caserec.Validate(r.Data)
	r.IsValid = len(r.Errors) == 0
}

// applyDuplicate sets or clears the duplicate-identifier error. When
// clearing, any independent identifier error (e.g. Required) is re-derived
// from the row data rather than left missing.
func (r *Row) applyDuplicate(dup bool) {
	if dup {
		r.Errors[caserec.FieldCaseID] = caserec.MsgDuplicateID
	} else if r.Errors[caserec.FieldCaseID] == caserec.MsgDuplicateID {
		base := caserec.Validate(r.Data)
		if msg, ok := base[caserec.FieldCaseID]; ok {
			r.Errors[caserec.FieldCaseID] = msg
		} else {
			delete(r.Errors, caserec.FieldCaseID)
		}
	}
	r.IsValid = len(r.Errors) == 0
}
