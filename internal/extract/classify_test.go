package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/placementwire/ingest/internal/model"
)

func TestParseClassification(t *testing.T) {
	cat, company := parseClassification(`{"category": "shortlisting", "company": "Acme Corp"}`)
	assert.Equal(t, model.CategoryShortlisting, cat)
	assert.Equal(t, "Acme Corp", company)
}

func TestParseClassificationFenced(t *testing.T) {
	cat, company := parseClassification("```json\n{\"category\": \"job_posting\", \"company\": \"Globex\"}\n```")
	assert.Equal(t, model.CategoryJobPosting, cat)
	assert.Equal(t, "Globex", company)
}

func TestParseClassificationMalformed(t *testing.T) {
	cat, company := parseClassification("this notice looks like an update")
	assert.Equal(t, model.CategoryAnnouncement, cat)
	assert.Empty(t, company)
}

func TestParseClassificationUnknownCategory(t *testing.T) {
	cat, _ := parseClassification(`{"category": "gossip", "company": ""}`)
	assert.Equal(t, model.CategoryAnnouncement, cat)
}

func TestScoreMailRelevancePlacementMail(t *testing.T) {
	score, reason := ScoreMailRelevance(
		"Congratulations! Placement results for Acme",
		"Students placed at Acme with a package of 12 LPA.")
	assert.GreaterOrEqual(t, score, DefaultMailThreshold)
	assert.Empty(t, reason)
}

func TestScoreMailRelevanceNewsletter(t *testing.T) {
	score, _ := ScoreMailRelevance(
		"Weekly newsletter",
		"Click unsubscribe to stop receiving this newsletter.")
	assert.Zero(t, score)
}

func TestScoreMailRelevanceSecurityIndicator(t *testing.T) {
	score, reason := ScoreMailRelevance(
		"Placement portal: verify your account",
		"Your OTP is 123456. Package update pending.")
	assert.Zero(t, score)
	assert.Contains(t, reason, "security indicator")
}
