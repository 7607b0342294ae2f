package extract

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/placementwire/ingest/internal/enrich"
	"github.com/placementwire/ingest/internal/htmltext"
	"github.com/placementwire/ingest/internal/linker"
	"github.com/placementwire/ingest/internal/model"
	"github.com/placementwire/ingest/internal/resilience"
	"github.com/placementwire/ingest/pkg/anthropic"
)

// Config tunes the extraction machine.
type Config struct {
	Model         string
	MaxTokens     int64
	CallTimeout   time.Duration
	MailThreshold float64

	// Retry bounds extraction attempts. Defaults to resilience.ExtractionRetry.
	Retry *resilience.RetryConfig
}

func (c Config) withDefaults() Config {
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 60 * time.Second
	}
	if c.MailThreshold == 0 {
		c.MailThreshold = DefaultMailThreshold
	}
	if c.Retry == nil {
		r := resilience.ExtractionRetry
		c.Retry = &r
	}
	return c
}

// Machine runs one raw item at a time through the extraction stages. All
// per-item state lives in the Result; the machine itself is safe for
// concurrent use.
type Machine struct {
	pool     *CredentialPool
	linker   *linker.Linker
	enricher enrich.Enricher
	cfg      Config
}

// NewMachine wires the machine to its collaborators. The linker and
// enricher may be nil when no job records are known, in which case linking
// is skipped.
func NewMachine(pool *CredentialPool, lk *linker.Linker, enricher enrich.Enricher, cfg Config) *Machine {
	return &Machine{pool: pool, linker: lk, enricher: enricher, cfg: cfg.withDefaults()}
}

func (m *Machine) call(ctx context.Context, system, user string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()

	resp, err := m.pool.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     m.cfg.Model,
		MaxTokens: m.cfg.MaxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(m.cfg.Model, "extract")
	return resp.Text(), nil
}

// ProcessNotice runs a portal notice through classify, link, extract,
// validate, sanitize, and format. The returned Result is terminal.
func (m *Machine) ProcessNotice(ctx context.Context, n model.Notice) *Result {
	res := &Result{State: StateReceived, Notice: n}

	text, err := htmltext.Flatten(n.Content)
	if err != nil || text == "" {
		res.State = StateRejected
		res.RejectReason = "empty or unparseable content"
		if err != nil {
			res.RejectReason = "unparseable content: " + err.Error()
		}
		return res
	}

	// Classify. Malformed classifier output falls back to the default
	// category rather than retrying.
	reply, err := m.call(ctx, classifySystemPrompt, fmt.Sprintf(classifyUserPrompt, n.Title, clip(text, 4000)))
	var companySpan string
	if err != nil {
		if resilience.IsQuota(err) {
			res.State = StateFailed
			res.Err = err
			return res
		}
		zap.L().Warn("classification call failed, using default category",
			zap.String("notice_id", n.ID), zap.Error(err))
		res.Category = model.CategoryAnnouncement
	} else {
		res.Category, companySpan = parseClassification(reply)
	}
	res.State = StateClassified

	// Link against known job records.
	res.State = StateLinking
	var linkedID string
	if m.linker != nil {
		mentions := []string{companySpan, n.Title}
		if match, ok := m.linker.Best(mentions); ok {
			linkedID = match.Candidate.Key
			zap.L().Debug("notice linked to job",
				zap.String("notice_id", n.ID),
				zap.String("job_id", linkedID),
				zap.Int("score", match.Score))
		}
	}

	// Extract, enriching the linked job first so authoritative data is
	// available when formatting.
	res.State = StateExtracting
	if linkedID != "" && m.enricher != nil {
		job, err := m.enricher.Enrich(ctx, linkedID)
		if err != nil {
			zap.L().Warn("enrichment failed, formatting without job detail",
				zap.String("job_id", linkedID), zap.Error(err))
		} else {
			res.LinkedJob = job
		}
	}

	system := systemPromptFor(res.Category)
	fields, err := resilience.DoVal(ctx, *m.cfg.Retry,
		func(ctx context.Context) (model.Fields, error) {
			reply, err := m.call(ctx, system, fmt.Sprintf(extractUserPrompt, clip(text, 8000)))
			if err != nil {
				return nil, err
			}
			res.Attempts++
			return parseFields(res.Category, reply)
		})
	if err != nil {
		res.State = StateFailed
		res.Err = err
		return res
	}

	res.State = StateValidating
	fields = validateFields(n.ID, fields)

	res.State = StateSanitizing
	res.Fields = sanitizeFields(fields)

	res.Formatted = formatNotice(n, res.Category, res.Fields, res.LinkedJob)
	res.State = StateFormatted
	return res
}

// ProcessMail runs an inbox message through the relevance gate and offer
// extraction. Irrelevant mail is rejected before any LLM call.
func (m *Machine) ProcessMail(ctx context.Context, msg model.MailMessage) *MailResult {
	res := &MailResult{State: StateReceived, Message: msg}

	score, reason := ScoreMailRelevance(msg.Subject, msg.Body)
	if score < m.cfg.MailThreshold {
		res.State = StateRejected
		res.RejectReason = reason
		if res.RejectReason == "" {
			res.RejectReason = fmt.Sprintf("relevance %.2f below threshold", score)
		}
		return res
	}
	res.State = StateClassified

	res.State = StateExtracting
	payload, err := resilience.DoVal(ctx, *m.cfg.Retry,
		func(ctx context.Context) (*offerPayload, error) {
			reply, err := m.call(ctx, offerSystemPrompt,
				fmt.Sprintf(offerUserPrompt, msg.Subject, clip(msg.Body, 8000)))
			if err != nil {
				return nil, err
			}
			res.Attempts++
			return parseOffer(reply)
		})
	if err != nil {
		res.State = StateFailed
		res.Err = err
		return res
	}

	if !payload.IsFinal {
		res.State = StateRejected
		res.RejectReason = payload.RejectionReason
		if res.RejectReason == "" {
			res.RejectReason = "not a final placement offer"
		}
		return res
	}

	offer := payload.toOffer(msg)

	res.State = StateValidating
	validateOffer(msg.ID, offer)

	res.State = StateSanitizing
	sanitizeOffer(offer)

	res.Offer = offer
	res.State = StateFormatted
	return res
}

func systemPromptFor(cat model.Category) string {
	switch cat {
	case model.CategoryShortlisting:
		return shortlistingSystemPrompt
	case model.CategoryJobPosting:
		return jobPostingSystemPrompt
	case model.CategoryHackathon, model.CategoryWebinar:
		return eventSystemPrompt
	default:
		return genericSystemPrompt
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up so the cut never splits a multi-byte rune.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
