package model

// ChangeEventType tags the two kinds of merge outcomes worth notifying about.
type ChangeEventType string

const (
	EventNewOffer    ChangeEventType = "new_offer"
	EventUpdateOffer ChangeEventType = "update_offer"
)

// ChangeEvent signals that persisted aggregate state changed in a way the
// delivery layer should fan out. ID is stable for the underlying fact so the
// dispatcher can dedupe redeliveries.
type ChangeEvent struct {
	ID            string              `json:"id"`
	Type          ChangeEventType     `json:"type"`
	Company       string              `json:"company"`
	Record        *CompanyOfferRecord `json:"record"`
	NewStudents   []Student           `json:"newly_added_students,omitempty"`
	TotalStudents int                 `json:"total_students"`
}
