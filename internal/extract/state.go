// Package extract runs raw items through the classify, link, extract,
// validate, sanitize, format stages and yields either a formatted notice,
// an offer, or a terminal rejection.
package extract

import "github.com/placementwire/ingest/internal/model"

// State names a stage of the extraction pipeline.
type State string

const (
	StateReceived   State = "received"
	StateClassified State = "classified"
	StateLinking    State = "linking"
	StateExtracting State = "extracting"
	StateValidating State = "validating"
	StateSanitizing State = "sanitizing"
	StateFormatted  State = "formatted"
	StateRejected   State = "rejected"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateFormatted || s == StateRejected || s == StateFailed
}

// Result is the outcome of running one notice through the machine.
type Result struct {
	State        State
	Notice       model.Notice
	Category     model.Category
	LinkedJob    *model.JobRecord
	Fields       model.Fields
	Formatted    *model.FormattedNotice
	RejectReason string
	Attempts     int
	Err          error
}

// MailResult is the outcome of running one inbox message through the machine.
type MailResult struct {
	State        State
	Message      model.MailMessage
	Offer        *model.Offer
	RejectReason string
	Attempts     int
	Err          error
}
