package models

import "fmt"

// WaiverFailure records one waiver that could not be written to the commerce
// platform. Sibling waivers in the same batch are unaffected.
type WaiverFailure struct {
	WaiverID string `json:"waiver_id"`
	Email    string `json:"email,omitempty"`
	Error    string `json:"error"`
}

// SyncReport aggregates the outcome of one invocation (one poll tick, one
// queue pull, or one push delivery).
type SyncReport struct {
	RunID     string          `json:"run_id"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Failures  []WaiverFailure `json:"failures,omitempty"`
}

// Summary returns the operator-facing one-liner for this run.
func (r *SyncReport) Summary() string {
	return fmt.Sprintf("Synced %d waivers.", r.Processed)
}
