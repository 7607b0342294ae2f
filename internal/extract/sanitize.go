package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/placementwire/ingest/internal/model"
)

// Mail-transport fragments must never reach user-facing text. These patterns
// cover header lines, forwarding markers, and inline provenance phrases left
// behind by forwarded mail.
var (
	headerLineRe    = regexp.MustCompile(`(?im)^\s*(from|sender|sent|to|cc|subject|date|reply-to)\s*:.*$`)
	fwdSubjectRe    = regexp.MustCompile(`(?im)^\s*(fwd|fw|re)\s*:.*$`)
	fwdMarkerRe     = regexp.MustCompile(`(?im)^[ \t]*-*[ \t]*(begin forwarded message|forwarded message|original message)[ \t]*-*.*$`)
	onWroteRe       = regexp.MustCompile(`(?im)^\s*on .{0,120} wrote:\s*$`)
	viaRe           = regexp.MustCompile(`(?i)\bvia\s+[^\s\n]+`)
	forwardedWordRe = regexp.MustCompile(`(?i)\bforward(ed)?(\s+(message|email|mail))?\b`)
	mailtoRe        = regexp.MustCompile(`(?i)<?mailto:[^\s>]+>?`)
	blankRunsRe     = regexp.MustCompile(`\n{3,}`)
)

// spaceNormalizer maps every unicode space separator (including narrow
// no-break spaces that mail clients insert into dates) to a plain space.
var spaceNormalizer = runes.Map(func(r rune) rune {
	if unicode.Is(unicode.Zs, r) {
		return ' '
	}
	return r
})

// Sanitize strips mail-transport metadata from free text and normalizes
// unicode whitespace.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(spaceNormalizer, s)
	if err != nil {
		out = s
	}
	out = headerLineRe.ReplaceAllString(out, "")
	out = fwdMarkerRe.ReplaceAllString(out, "")
	out = fwdSubjectRe.ReplaceAllString(out, "")
	out = onWroteRe.ReplaceAllString(out, "")
	out = mailtoRe.ReplaceAllString(out, "")
	out = viaRe.ReplaceAllString(out, "")
	out = forwardedWordRe.ReplaceAllString(out, "")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out = strings.Join(lines, "\n")
	out = blankRunsRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// sanitizeFields applies Sanitize to every free-text field of an extraction
// payload.
func sanitizeFields(f model.Fields) model.Fields {
	switch v := f.(type) {
	case model.ShortlistingFields:
		v.Company = Sanitize(v.Company)
		v.Role = Sanitize(v.Role)
		v.Package = Sanitize(v.Package)
		for i := range v.Students {
			v.Students[i].Name = Sanitize(v.Students[i].Name)
			v.Students[i].Enrollment = Sanitize(v.Students[i].Enrollment)
		}
		return v
	case model.JobPostingFields:
		v.Company = Sanitize(v.Company)
		v.Role = Sanitize(v.Role)
		v.Package = Sanitize(v.Package)
		v.Deadline = Sanitize(v.Deadline)
		return v
	case model.EventFields:
		v.EventName = Sanitize(v.EventName)
		v.Message = Sanitize(v.Message)
		v.Deadline = Sanitize(v.Deadline)
		return v
	case model.GenericFields:
		v.Message = Sanitize(v.Message)
		v.Deadline = Sanitize(v.Deadline)
		return v
	default:
		return f
	}
}

// sanitizeOffer scrubs every free-text field of an offer. Provenance fields
// (subject, sender, sent time) are deliberately left alone: they stay
// internal and are never rendered into user-facing text.
func sanitizeOffer(o *model.Offer) {
	o.Company = Sanitize(o.Company)
	o.JobLocation = Sanitize(o.JobLocation)
	o.JoiningDate = Sanitize(o.JoiningDate)
	o.AdditionalInfo = Sanitize(o.AdditionalInfo)
	for i := range o.Roles {
		o.Roles[i].Role = Sanitize(o.Roles[i].Role)
		o.Roles[i].PackageDetails = Sanitize(o.Roles[i].PackageDetails)
	}
	for i := range o.Students {
		o.Students[i].Name = Sanitize(o.Students[i].Name)
		o.Students[i].Enrollment = Sanitize(o.Students[i].Enrollment)
		o.Students[i].Role = Sanitize(o.Students[i].Role)
	}
}
