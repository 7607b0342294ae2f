package model

// Fields is the closed union of category-specific extraction payloads.
// Each variant decodes from the extractor's JSON against its own schema;
// GenericFields is the fallback for categories with no dedicated shape.
type Fields interface {
	isExtractionFields()
}

// ShortlistedStudent is one roster entry in a shortlisting notice.
type ShortlistedStudent struct {
	Name       string `json:"name"`
	Enrollment string `json:"enrollment"`
}

// ShortlistingFields carries the structured payload of a shortlisting notice.
type ShortlistingFields struct {
	Company          string               `json:"company_name"`
	Role             string               `json:"role"`
	Package          string               `json:"package"`
	Students         []ShortlistedStudent `json:"students"`
	TotalShortlisted int                  `json:"total_shortlisted"`
}

func (ShortlistingFields) isExtractionFields() {}

// JobPostingFields carries the structured payload of a job-posting notice.
type JobPostingFields struct {
	Company  string `json:"company_name"`
	Role     string `json:"role"`
	Package  string `json:"package"`
	Deadline string `json:"deadline"`
}

func (JobPostingFields) isExtractionFields() {}

// EventFields carries the payload of webinar and hackathon notices.
type EventFields struct {
	EventName string `json:"event_name"`
	Message   string `json:"message"`
	Deadline  string `json:"deadline"`
}

func (EventFields) isExtractionFields() {}

// GenericFields is the unstructured fallback for updates, announcements and
// anything the classifier could not pin down.
type GenericFields struct {
	Message  string `json:"message"`
	Deadline string `json:"deadline"`
}

func (GenericFields) isExtractionFields() {}
