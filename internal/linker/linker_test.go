package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetRatioIdentical(t *testing.T) {
	assert.Equal(t, 100, TokenSetRatio("Acme Corp", "Acme Corp"))
}

func TestTokenSetRatioWordOrderInsensitive(t *testing.T) {
	assert.Equal(t, 100, TokenSetRatio("Corp Acme", "Acme Corp"))
}

func TestTokenSetRatioCaseAndPunctuation(t *testing.T) {
	assert.Equal(t, 100, TokenSetRatio("ACME, Corp.", "acme corp"))
}

func TestTokenSetRatioSubsetScoresHigh(t *testing.T) {
	// The shared-token core matches one side completely.
	score := TokenSetRatio("Acme", "Acme Technologies Private Limited")
	assert.Greater(t, score, 80)
}

func TestTokenSetRatioDisjoint(t *testing.T) {
	score := TokenSetRatio("Acme Corp", "Globex Industries")
	assert.Less(t, score, 50)
}

func TestTokenSetRatioEmpty(t *testing.T) {
	assert.Equal(t, 0, TokenSetRatio("", "Acme"))
	assert.Equal(t, 0, TokenSetRatio("Acme", ""))
	assert.Equal(t, 0, TokenSetRatio("  ", "  "))
}

func TestBestPicksHighestScore(t *testing.T) {
	l := New([]Candidate{
		{Key: "job-1", DisplayName: "Globex Industries"},
		{Key: "job-2", DisplayName: "Acme Technologies"},
	}, DefaultThreshold)

	m, ok := l.Best([]string{"Acme Technologies"})
	assert.True(t, ok)
	assert.Equal(t, "job-2", m.Candidate.Key)
	assert.Equal(t, 100, m.Score)
}

func TestBestRejectsBelowThreshold(t *testing.T) {
	l := New([]Candidate{
		{Key: "job-1", DisplayName: "Globex Industries"},
	}, DefaultThreshold)

	_, ok := l.Best([]string{"Initech"})
	assert.False(t, ok)
}

func TestBestThresholdIsExclusive(t *testing.T) {
	l := New([]Candidate{
		{Key: "job-1", DisplayName: "Acme"},
	}, 99)

	m, ok := l.Best([]string{"Acme"})
	assert.True(t, ok)
	assert.Equal(t, 100, m.Score)

	strict := New([]Candidate{{Key: "job-1", DisplayName: "Acme"}}, 100)
	_, ok = strict.Best([]string{"Acme"})
	assert.False(t, ok)
}

func TestBestTieBreaksOnKey(t *testing.T) {
	l := New([]Candidate{
		{Key: "job-b", DisplayName: "Acme Corp"},
		{Key: "job-a", DisplayName: "Acme Corp"},
	}, DefaultThreshold)

	m, ok := l.Best([]string{"Acme Corp"})
	assert.True(t, ok)
	assert.Equal(t, "job-a", m.Candidate.Key)
}

func TestBestScansAllMentions(t *testing.T) {
	l := New([]Candidate{
		{Key: "job-1", DisplayName: "Globex Industries"},
	}, DefaultThreshold)

	m, ok := l.Best([]string{"Placement Update", "", "Globex Industries"})
	assert.True(t, ok)
	assert.Equal(t, "job-1", m.Candidate.Key)
	assert.Equal(t, "Globex Industries", m.Mention)
}
