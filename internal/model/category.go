package model

import "strings"

// Category is the closed set of notice classifications.
type Category string

const (
	CategoryUpdate       Category = "update"
	CategoryShortlisting Category = "shortlisting"
	CategoryAnnouncement Category = "announcement"
	CategoryHackathon    Category = "hackathon"
	CategoryWebinar      Category = "webinar"
	CategoryJobPosting   Category = "job_posting"
)

// AllCategories returns every valid category.
func AllCategories() []Category {
	return []Category{
		CategoryUpdate,
		CategoryShortlisting,
		CategoryAnnouncement,
		CategoryHackathon,
		CategoryWebinar,
		CategoryJobPosting,
	}
}

// ParseCategory normalizes classifier output to a known category.
// Unknown or malformed labels fall back to announcement.
func ParseCategory(s string) Category {
	c := Category(strings.ReplaceAll(strings.TrimSpace(strings.ToLower(s)), " ", "_"))
	for _, known := range AllCategories() {
		if c == known {
			return c
		}
	}
	return CategoryAnnouncement
}
