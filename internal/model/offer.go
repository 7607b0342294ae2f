package model

import "time"

// Student is one selected student inside a placement offer. Package is nil
// when the mail did not quantify a per-student figure.
type Student struct {
	Name       string   `json:"name"`
	Enrollment string   `json:"enrollment_number,omitempty"`
	Email      string   `json:"email,omitempty"`
	Role       string   `json:"role,omitempty"`
	Package    *float64 `json:"package,omitempty"` // LPA
}

// Key returns the identity key for dedup within a company record:
// enrollment number when known, else name.
func (s Student) Key() string {
	if s.Enrollment != "" {
		return s.Enrollment
	}
	return s.Name
}

// RolePackage is one role offered by a company with its compensation.
type RolePackage struct {
	Role           string   `json:"role"`
	Package        *float64 `json:"package,omitempty"` // LPA
	PackageDetails string   `json:"package_details,omitempty"`
}

// Offer is the structured result of extracting one placement mail. It is the
// unit handed to the merge engine.
type Offer struct {
	Company        string        `json:"company"`
	Roles          []RolePackage `json:"roles"`
	Students       []Student     `json:"students_selected"`
	TotalOffers    int           `json:"number_of_offers"`
	JobLocation    string        `json:"job_location,omitempty"`
	JoiningDate    string        `json:"joining_date,omitempty"`
	AdditionalInfo string        `json:"additional_info,omitempty"`

	// Provenance, kept for event metadata only. Never rendered into
	// user-facing text.
	MailSubject string     `json:"mail_subject,omitempty"`
	MailSender  string     `json:"mail_sender,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}

// CompanyOfferRecord is the long-lived aggregate for one company, mutated
// incrementally by successive merges. Company is the unique key and the unit
// of merge atomicity.
type CompanyOfferRecord struct {
	Company        string        `json:"company"`
	Roles          []RolePackage `json:"roles"`
	Students       []Student     `json:"students_selected"`
	TotalOffers    int           `json:"number_of_offers"`
	JobLocation    string        `json:"job_location,omitempty"`
	JoiningDate    string        `json:"joining_date,omitempty"`
	AdditionalInfo string        `json:"additional_info,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
