package model

import "time"

// EnrichmentLevel tracks how much detail a job record carries. Records start
// at basic from the cheap listing fetch and are upgraded to enriched at most
// once per run by the enrichment cache.
type EnrichmentLevel string

const (
	EnrichmentBasic    EnrichmentLevel = "basic"
	EnrichmentEnriched EnrichmentLevel = "enriched"
)

// EligibilityMark is a minimum academic criterion for one level (UG, XII, X).
type EligibilityMark struct {
	Level    string  `json:"level"`
	Criteria float64 `json:"criteria"`
}

// JobRecord is a job listing from the portal. Cheap list fetches produce
// basic records; the detail endpoint fills in eligibility, package breakdown
// and hiring flow. Records are never deleted.
type JobRecord struct {
	ID                 string            `json:"id"`
	Company            string            `json:"company"`
	Role               string            `json:"role"`
	Category           string            `json:"category"`
	Package            float64           `json:"package"` // LPA
	PackageInfo        string            `json:"package_info,omitempty"`
	Location           string            `json:"location,omitempty"`
	JobDescription     string            `json:"job_description,omitempty"`
	EligibilityMarks   []EligibilityMark `json:"eligibility_marks,omitempty"`
	EligibilityCourses []string          `json:"eligibility_courses,omitempty"`
	AllowedGenders     []string          `json:"allowed_genders,omitempty"`
	RequiredSkills     []string          `json:"required_skills,omitempty"`
	HiringFlow         []string          `json:"hiring_flow,omitempty"`
	PlacementType      string            `json:"placement_type,omitempty"`
	Deadline           *time.Time        `json:"deadline,omitempty"`
	CreatedAt          *time.Time        `json:"created_at,omitempty"`
	Enrichment         EnrichmentLevel   `json:"enrichment"`
}

// Enriched reports whether the record already carries full detail.
func (j *JobRecord) Enriched() bool {
	return j.Enrichment == EnrichmentEnriched
}
