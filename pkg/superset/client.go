// Package superset is a client for the SuperSet campus placement portal:
// login per account, notice listing, and the cheap/detailed job profile
// endpoints.
package superset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/placementwire/ingest/internal/model"
	"github.com/placementwire/ingest/internal/resilience"
)

// Account is one portal login. Placement cells issue separate accounts per
// branch; notices differ between them.
type Account struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Config configures the portal client.
type Config struct {
	BaseURL           string    `yaml:"base_url" mapstructure:"base_url"`
	TenantID          string    `yaml:"tenant_id" mapstructure:"tenant_id"`
	Accounts          []Account `yaml:"accounts" mapstructure:"accounts"`
	RequestsPerSecond float64   `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Timeout           time.Duration
}

// Client talks to the portal for every configured account and merges the
// results. Safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *AdaptiveLimiter
	retry   resilience.RetryConfig

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	SessionKey string
	StudentID  string
}

// New builds a Client. At least one account is required to do anything
// useful; construction itself does not log in.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  NewAdaptiveLimiter(rate.Limit(rps), int(rps)+1),
		retry:    resilience.DefaultRetry,
		sessions: make(map[string]*session),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionKey string `json:"sessionKey"`
	StudentID  string `json:"studentId"`
}

func (c *Client) login(ctx context.Context, acct Account) (*session, error) {
	c.mu.Lock()
	if s, ok := c.sessions[acct.Username]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	body, err := json.Marshal(loginRequest{Username: acct.Username, Password: acct.Password})
	if err != nil {
		return nil, eris.Wrap(err, "superset: marshal login")
	}

	var resp loginResponse
	err = c.doJSON(ctx, http.MethodPost, "/api/auth/login", nil, bytes.NewReader(body), &resp)
	if err != nil {
		return nil, eris.Wrapf(err, "superset: login %s", acct.Username)
	}
	if resp.SessionKey == "" || resp.StudentID == "" {
		return nil, eris.Errorf("superset: login %s returned no session", acct.Username)
	}

	s := &session{SessionKey: resp.SessionKey, StudentID: resp.StudentID}
	c.mu.Lock()
	c.sessions[acct.Username] = s
	c.mu.Unlock()
	return s, nil
}

func (c *Client) dropSession(username string) {
	c.mu.Lock()
	delete(c.sessions, username)
	c.mu.Unlock()
}

// doJSON performs one rate-limited request and decodes the JSON response.
// 5xx and 429 surface as transient so the retry layer handles them.
func (c *Client) doJSON(ctx context.Context, method, path string, sess *session, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "superset: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "superset: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.TenantID != "" {
		req.Header.Set("x-superset-tenant-id", c.cfg.TenantID)
	}
	if sess != nil {
		req.Header.Set("Authorization", "Custom "+sess.SessionKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.OnRateLimit()
	} else if resp.StatusCode < 300 {
		c.limiter.OnSuccess()
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(
			eris.Errorf("superset: %s %s returned %d", method, path, resp.StatusCode),
			resp.StatusCode)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return errUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("superset: %s %s returned %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrapf(err, "superset: decode %s", path)
	}
	return nil
}

var errUnauthorized = eris.New("superset: session expired")

// getJSON runs an authenticated GET for one account with retry and one
// forced re-login when the session has expired.
func getJSON[T any](ctx context.Context, c *Client, acct Account, pathFmt string, args ...any) (T, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (T, error) {
		var zero T
		sess, err := c.login(ctx, acct)
		if err != nil {
			return zero, err
		}
		path := fmt.Sprintf(pathFmt, append([]any{sess.StudentID}, args...)...)

		var out T
		err = c.doJSON(ctx, http.MethodGet, path, sess, nil, &out)
		if eris.Is(err, errUnauthorized) {
			c.dropSession(acct.Username)
			return zero, resilience.NewTransientError(err, http.StatusUnauthorized)
		}
		if err != nil {
			return zero, err
		}
		return out, nil
	})
}

type noticeDTO struct {
	Identifier             string `json:"identifier"`
	Title                  string `json:"title"`
	Content                string `json:"content"`
	LastModifiedByUserName string `json:"lastModifiedByUserName"`
	PublishedAt            int64  `json:"publishedAt"`
	LastModifiedOn         int64  `json:"lastModifiedOn"`
}

type noticesResponse struct {
	Data []noticeDTO `json:"data"`
}

// Notices fetches notices for every account, deduplicates by identifier,
// and returns them newest first.
func (c *Client) Notices(ctx context.Context) ([]model.Notice, error) {
	if len(c.cfg.Accounts) == 0 {
		return nil, eris.New("superset: no accounts configured")
	}

	seen := make(map[string]struct{})
	var merged []model.Notice
	var lastErr error
	ok := false

	for _, acct := range c.cfg.Accounts {
		resp, err := getJSON[noticesResponse](ctx, c, acct, "/students/%s/notices")
		if err != nil {
			lastErr = err
			zap.L().Warn("notice fetch failed for account",
				zap.String("username", acct.Username), zap.Error(err))
			continue
		}
		ok = true
		for _, dto := range resp.Data {
			if _, dup := seen[dto.Identifier]; dup {
				continue
			}
			seen[dto.Identifier] = struct{}{}
			merged = append(merged, model.Notice{
				ID:        dto.Identifier,
				Title:     dto.Title,
				Content:   dto.Content,
				Author:    dto.LastModifiedByUserName,
				CreatedAt: msEpoch(dto.PublishedAt),
				UpdatedAt: msEpoch(dto.LastModifiedOn),
			})
		}
	}

	// Every account failing is systemic; partial failure is not.
	if !ok {
		return nil, eris.Wrap(lastErr, "superset: all accounts failed")
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

type jobDTO struct {
	ID              string  `json:"id"`
	CompanyName     string  `json:"companyName"`
	JobProfileTitle string  `json:"jobProfileTitle"`
	CTC             float64 `json:"ctc"`
	Location        string  `json:"location"`
	Category        string  `json:"category"`
	PlacementType   string  `json:"placementCategory"`
	Deadline        int64   `json:"applicationDeadline"`
}

type jobsResponse struct {
	Data []jobDTO `json:"data"`
}

// Jobs fetches the cheap job listing for every account, deduplicated by ID.
// Records come back at the basic enrichment level.
func (c *Client) Jobs(ctx context.Context) ([]*model.JobRecord, error) {
	if len(c.cfg.Accounts) == 0 {
		return nil, eris.New("superset: no accounts configured")
	}

	seen := make(map[string]struct{})
	var merged []*model.JobRecord
	var lastErr error
	ok := false

	for _, acct := range c.cfg.Accounts {
		resp, err := getJSON[jobsResponse](ctx, c, acct, "/students/%s/job_profiles")
		if err != nil {
			lastErr = err
			zap.L().Warn("job listing failed for account",
				zap.String("username", acct.Username), zap.Error(err))
			continue
		}
		ok = true
		for _, dto := range resp.Data {
			if _, dup := seen[dto.ID]; dup {
				continue
			}
			seen[dto.ID] = struct{}{}
			merged = append(merged, dto.toRecord(model.EnrichmentBasic))
		}
	}

	if !ok {
		return nil, eris.Wrap(lastErr, "superset: all accounts failed")
	}
	return merged, nil
}

type jobDetailDTO struct {
	jobDTO
	PackageInfo        string   `json:"packageInfo"`
	JobDescription     string   `json:"jobDescription"`
	EligibilityCourses []string `json:"eligibleCourses"`
	AllowedGenders     []string `json:"allowedGenders"`
	RequiredSkills     []string `json:"requiredSkills"`
	HiringFlow         []string `json:"hiringFlow"`
	EligibilityMarks   []struct {
		Level    string  `json:"level"`
		Criteria float64 `json:"criteria"`
	} `json:"eligibilityMarks"`
}

type jobDetailResponse struct {
	Data jobDetailDTO `json:"data"`
}

// JobDetail fetches the expensive detailed job profile. It satisfies the
// enrichment cache's fetcher contract.
func (c *Client) JobDetail(ctx context.Context, jobID string) (*model.JobRecord, error) {
	if len(c.cfg.Accounts) == 0 {
		return nil, eris.New("superset: no accounts configured")
	}
	acct := c.cfg.Accounts[0]

	resp, err := getJSON[jobDetailResponse](ctx, c, acct, "/students/%s/job_profiles/%s", jobID)
	if err != nil {
		return nil, eris.Wrapf(err, "superset: job detail %s", jobID)
	}

	rec := resp.Data.jobDTO.toRecord(model.EnrichmentEnriched)
	rec.PackageInfo = resp.Data.PackageInfo
	rec.JobDescription = resp.Data.JobDescription
	rec.EligibilityCourses = resp.Data.EligibilityCourses
	rec.AllowedGenders = resp.Data.AllowedGenders
	rec.RequiredSkills = resp.Data.RequiredSkills
	rec.HiringFlow = resp.Data.HiringFlow
	for _, m := range resp.Data.EligibilityMarks {
		rec.EligibilityMarks = append(rec.EligibilityMarks, model.EligibilityMark{
			Level: m.Level, Criteria: m.Criteria,
		})
	}
	return rec, nil
}

func (d jobDTO) toRecord(level model.EnrichmentLevel) *model.JobRecord {
	rec := &model.JobRecord{
		ID:            d.ID,
		Company:       d.CompanyName,
		Role:          d.JobProfileTitle,
		Category:      d.Category,
		Package:       d.CTC,
		Location:      d.Location,
		PlacementType: d.PlacementType,
		Enrichment:    level,
	}
	if d.Deadline > 0 {
		t := msEpoch(d.Deadline)
		rec.Deadline = &t
	}
	return rec
}

func msEpoch(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
