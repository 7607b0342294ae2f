package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/placementwire/ingest/internal/model"
)

func TestSanitizeStripsHeaderLines(t *testing.T) {
	in := "From: tpo@college.edu\nTo: students@college.edu\nSubject: results\nCongratulations to the selected students."
	out := Sanitize(in)
	assert.NotContains(t, out, "tpo@college.edu")
	assert.NotContains(t, out, "Subject:")
	assert.Contains(t, out, "Congratulations to the selected students.")
}

func TestSanitizeStripsForwardingMarkers(t *testing.T) {
	in := "---------- Forwarded message ----------\nOn Mon, 18 Aug 2026, Placement Cell wrote:\nReport at 9am."
	out := Sanitize(in)
	assert.NotContains(t, out, "Forwarded")
	assert.NotContains(t, out, "wrote:")
	assert.Contains(t, out, "Report at 9am.")
}

func TestSanitizeMarkerLineKeepsFollowingContent(t *testing.T) {
	in := "Forwarded message\nFrom: tpo@college.edu\nReport to lab 3 via Outlook at 9am."
	out := Sanitize(in)
	assert.NotContains(t, out, "Forwarded")
	assert.NotContains(t, out, "tpo@college.edu")
	assert.Contains(t, out, "Report to lab 3")
	assert.Contains(t, out, "at 9am.")
}

func TestSanitizeStripsViaPhrases(t *testing.T) {
	out := Sanitize("Shared via Gmail by the coordinator.")
	assert.NotContains(t, out, "via Gmail")
	assert.Contains(t, out, "coordinator")
}

func TestSanitizeNormalizesUnicodeSpaces(t *testing.T) {
	// Narrow no-break space, as mail clients render in dates.
	out := Sanitize("Joining on 1 July 2027")
	assert.Equal(t, "Joining on 1 July 2027", out)
}

func TestSanitizeEmpty(t *testing.T) {
	assert.Equal(t, "", Sanitize(""))
	assert.Equal(t, "", Sanitize("From: a@b.c"))
}

func TestSanitizeOfferLeavesProvenanceAlone(t *testing.T) {
	o := &model.Offer{
		Company:        "Acme",
		AdditionalInfo: "Forwarded message From: hr@acme.com joining details below",
		MailSender:     "tpo@college.edu",
		MailSubject:    "Fwd: results",
	}
	sanitizeOffer(o)
	assert.NotContains(t, o.AdditionalInfo, "hr@acme.com")
	// Provenance stays intact for event metadata.
	assert.Equal(t, "tpo@college.edu", o.MailSender)
	assert.Equal(t, "Fwd: results", o.MailSubject)
}
