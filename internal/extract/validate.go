package extract

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/placementwire/ingest/internal/model"
	"github.com/placementwire/ingest/internal/resilience"
)

// parseFields decodes the extractor reply for the category into its typed
// payload. Decode failures and empty payloads surface as schema errors so
// the extraction step retries within its bound.
func parseFields(category model.Category, text string) (model.Fields, error) {
	raw := []byte(cleanJSON(text))

	switch category {
	case model.CategoryShortlisting:
		var f model.ShortlistingFields
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, resilience.NewSchemaError(err, "shortlisting payload did not decode")
		}
		if f.Company == "" && len(f.Students) == 0 {
			return nil, resilience.NewSchemaError(
				errEmptyPayload, "shortlisting payload has neither company nor students")
		}
		return f, nil
	case model.CategoryJobPosting:
		var f model.JobPostingFields
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, resilience.NewSchemaError(err, "job posting payload did not decode")
		}
		return f, nil
	case model.CategoryHackathon, model.CategoryWebinar:
		var f model.EventFields
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, resilience.NewSchemaError(err, "event payload did not decode")
		}
		return f, nil
	default:
		var f model.GenericFields
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, resilience.NewSchemaError(err, "generic payload did not decode")
		}
		if f.Message == "" {
			return nil, resilience.NewSchemaError(errEmptyPayload, "generic payload has no message")
		}
		return f, nil
	}
}

var errEmptyPayload = jsonError("payload missing required fields")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// validateFields cross-checks derived invariants and auto-corrects them
// with a log line rather than failing the item.
func validateFields(noticeID string, f model.Fields) model.Fields {
	sf, ok := f.(model.ShortlistingFields)
	if !ok {
		return f
	}
	if sf.TotalShortlisted != len(sf.Students) && len(sf.Students) > 0 {
		zap.L().Warn("shortlist count mismatch, using roster length",
			zap.String("notice_id", noticeID),
			zap.Int("declared", sf.TotalShortlisted),
			zap.Int("roster", len(sf.Students)))
		sf.TotalShortlisted = len(sf.Students)
	}
	return sf
}

// offerPayload mirrors the offer extraction prompt's JSON shape.
type offerPayload struct {
	IsFinal         bool                `json:"is_final_placement_offer"`
	RejectionReason string              `json:"rejection_reason"`
	Company         string              `json:"company_name"`
	Roles           []model.RolePackage `json:"roles"`
	Students        []payloadStudent    `json:"students"`
	TotalOffers     int                 `json:"total_offers"`
	JobLocation     string              `json:"job_location"`
	JoiningDate     string              `json:"joining_date"`
	AdditionalInfo  string              `json:"additional_info"`
}

type payloadStudent struct {
	Name       string   `json:"name"`
	Enrollment string   `json:"enrollment"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Package    *float64 `json:"package"`
}

// parseOffer decodes the offer extraction reply. A final offer with no
// company or no students is a schema error; a payload gated as not-final is
// valid and returned for the caller to reject the item.
func parseOffer(text string) (*offerPayload, error) {
	var p offerPayload
	if err := json.Unmarshal([]byte(cleanJSON(text)), &p); err != nil {
		return nil, resilience.NewSchemaError(err, "offer payload did not decode")
	}
	if p.IsFinal && (strings.TrimSpace(p.Company) == "" || len(p.Students) == 0) {
		return nil, resilience.NewSchemaError(
			errEmptyPayload, "final offer payload missing company or students")
	}
	return &p, nil
}

// toOffer converts the payload into the merge engine's offer shape.
func (p *offerPayload) toOffer(msg model.MailMessage) *model.Offer {
	offer := &model.Offer{
		Company:        strings.TrimSpace(p.Company),
		Roles:          p.Roles,
		TotalOffers:    p.TotalOffers,
		JobLocation:    p.JobLocation,
		JoiningDate:    p.JoiningDate,
		AdditionalInfo: p.AdditionalInfo,
		MailSubject:    msg.Subject,
		MailSender:     msg.Sender,
	}
	if !msg.SentAt.IsZero() {
		t := msg.SentAt
		offer.SentAt = &t
	}
	for _, s := range p.Students {
		offer.Students = append(offer.Students, model.Student{
			Name:       strings.TrimSpace(s.Name),
			Enrollment: strings.TrimSpace(s.Enrollment),
			Email:      strings.TrimSpace(s.Email),
			Role:       s.Role,
			Package:    s.Package,
		})
	}
	return offer
}

// validateOffer reconciles the declared total with the roster and backfills
// per-student role and package from the single role when only one exists.
func validateOffer(mailID string, o *model.Offer) {
	if o.TotalOffers != len(o.Students) {
		if o.TotalOffers != 0 {
			zap.L().Warn("offer count mismatch, using roster length",
				zap.String("mail_id", mailID),
				zap.Int("declared", o.TotalOffers),
				zap.Int("roster", len(o.Students)))
		}
		o.TotalOffers = len(o.Students)
	}

	if len(o.Roles) != 1 {
		return
	}
	only := o.Roles[0]
	for i := range o.Students {
		if o.Students[i].Role == "" {
			o.Students[i].Role = only.Role
		}
		if o.Students[i].Package == nil && only.Package != nil {
			pkg := *only.Package
			o.Students[i].Package = &pkg
		}
	}
}
