package extract

import (
	"encoding/json"
	"strings"

	"github.com/placementwire/ingest/internal/model"
)

// DefaultMailThreshold is the minimum relevance confidence for a mail to
// proceed to extraction.
const DefaultMailThreshold = 0.6

// parseClassification decodes the classifier reply. Malformed output does
// not retry; the item proceeds with the default category and no company
// span.
func parseClassification(text string) (model.Category, string) {
	var result struct {
		Category string `json:"category"`
		Company  string `json:"company"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &result); err != nil {
		return model.CategoryAnnouncement, ""
	}
	return model.ParseCategory(result.Category), strings.TrimSpace(result.Company)
}

// Keyword lists for the cheap mail relevance gate. Scored before any LLM
// call so newsletters and phishing never cost a token.
var (
	placementKeywords = []string{
		"placement", "placed", "offer", "selected", "selection",
		"congratulations", "ppo", "joining", "ctc", "package", "lpa",
		"recruitment", "recruited", "hiring",
	}
	companyIndicators = []string{
		"pvt", "ltd", "limited", "technologies", "solutions", "systems",
		"labs", "software", "consulting", "infotech",
	}
	negativeKeywords = []string{
		"unsubscribe", "newsletter", "webinar", "workshop", "quiz",
		"assignment", "fee payment", "library", "timetable", "time table",
		"exam schedule",
	}
	securityIndicators = []string{
		"password", "otp", "one time password", "verification code",
		"verify your account", "account suspended", "click here to login",
	}
)

// ScoreMailRelevance returns a 0..1 confidence that the mail announces
// placement results, plus a short reason when it scores zero outright.
func ScoreMailRelevance(subject, body string) (float64, string) {
	sub := strings.ToLower(subject)
	bod := strings.ToLower(body)

	for _, kw := range securityIndicators {
		if strings.Contains(sub, kw) || strings.Contains(bod, kw) {
			return 0, "security indicator: " + kw
		}
	}

	score := 0.0
	for _, kw := range placementKeywords {
		if strings.Contains(sub, kw) {
			score += 0.3
		} else if strings.Contains(bod, kw) {
			score += 0.15
		}
	}
	for _, kw := range companyIndicators {
		if strings.Contains(sub, kw) || strings.Contains(bod, kw) {
			score += 0.1
			break
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(sub, kw) || strings.Contains(bod, kw) {
			score -= 0.25
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	if score == 0 {
		return 0, "no placement keywords matched"
	}
	return score, ""
}
