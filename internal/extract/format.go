package extract

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/placementwire/ingest/internal/model"
)

var titleCaser = cases.Title(language.English)

// FormatLPA renders a package figure as lakhs per annum. Portal records
// store absolute rupees; anything that large is converted down.
func FormatLPA(v float64) string {
	if v <= 0 {
		return ""
	}
	if v >= 10000 {
		v /= 100000
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + " LPA"
}

// formatNotice renders the final human-readable message from the extracted
// fields plus any linked job record, using category templates. Linked job
// data wins over extracted text where both exist.
func formatNotice(n model.Notice, cat model.Category, f model.Fields, job *model.JobRecord) *model.FormattedNotice {
	out := &model.FormattedNotice{
		Notice:   n,
		Category: cat,
	}
	if job != nil {
		out.MatchedJobID = job.ID
		out.JobCompany = job.Company
		out.JobRole = job.Role
		out.JobLocation = job.Location
		out.Package = FormatLPA(job.Package)
	}

	var b strings.Builder
	switch v := f.(type) {
	case model.ShortlistingFields:
		company := firstNonEmpty(out.JobCompany, v.Company)
		fmt.Fprintf(&b, "Shortlisting: %s\n", company)
		if role := firstNonEmpty(out.JobRole, v.Role); role != "" {
			fmt.Fprintf(&b, "Role: %s\n", role)
		}
		if pkg := firstNonEmpty(out.Package, v.Package); pkg != "" {
			fmt.Fprintf(&b, "Package: %s\n", pkg)
		}
		if len(v.Students) > 0 {
			fmt.Fprintf(&b, "\nShortlisted students (%d):\n", v.TotalShortlisted)
			for i, s := range v.Students {
				if s.Enrollment != "" {
					fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, s.Name, s.Enrollment)
				} else {
					fmt.Fprintf(&b, "%d. %s\n", i+1, s.Name)
				}
			}
		}

	case model.JobPostingFields:
		company := firstNonEmpty(out.JobCompany, v.Company)
		fmt.Fprintf(&b, "New Job Posting: %s\n", company)
		if role := firstNonEmpty(out.JobRole, v.Role); role != "" {
			fmt.Fprintf(&b, "Role: %s\n", role)
		}
		if pkg := firstNonEmpty(out.Package, v.Package); pkg != "" {
			fmt.Fprintf(&b, "Package: %s\n", pkg)
		}
		if out.JobLocation != "" {
			fmt.Fprintf(&b, "Location: %s\n", out.JobLocation)
		}
		if job != nil && len(job.EligibilityCourses) > 0 {
			fmt.Fprintf(&b, "Eligible courses: %s\n", strings.Join(job.EligibilityCourses, ", "))
		}
		if job != nil && len(job.HiringFlow) > 0 {
			fmt.Fprintf(&b, "Hiring flow: %s\n", strings.Join(job.HiringFlow, " -> "))
		}
		if job != nil && job.Deadline != nil {
			fmt.Fprintf(&b, "Apply by: %s\n", job.Deadline.Format("02 Jan 2006 15:04"))
		} else if v.Deadline != "" {
			fmt.Fprintf(&b, "Apply by: %s\n", v.Deadline)
		}

	case model.EventFields:
		name := firstNonEmpty(v.EventName, n.Title)
		fmt.Fprintf(&b, "%s: %s\n", titleCaser.String(string(cat)), name)
		if v.Message != "" {
			fmt.Fprintf(&b, "\n%s\n", v.Message)
		}
		if v.Deadline != "" {
			fmt.Fprintf(&b, "Register by: %s\n", v.Deadline)
		}

	case model.GenericFields:
		fmt.Fprintf(&b, "%s\n", n.Title)
		if v.Message != "" {
			fmt.Fprintf(&b, "\n%s\n", v.Message)
		}
		if v.Deadline != "" {
			fmt.Fprintf(&b, "Deadline: %s\n", v.Deadline)
		}

	default:
		fmt.Fprintf(&b, "%s\n", n.Title)
	}

	if n.Author != "" {
		fmt.Fprintf(&b, "\nPosted by %s", n.Author)
		if !n.CreatedAt.IsZero() {
			fmt.Fprintf(&b, " on %s", n.CreatedAt.Format("02 Jan 2006"))
		}
		b.WriteString("\n")
	}

	out.Message = strings.TrimSpace(b.String())
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
