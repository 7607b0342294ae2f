package extract

import (
	"context"
	"sync"

	"github.com/placementwire/ingest/internal/model"
	"github.com/placementwire/ingest/pkg/anthropic"
)

// scriptedClient returns canned replies in order, recording every request.
type scriptedClient struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	reqs    []anthropic.MessageRequest
}

func (c *scriptedClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	i := len(c.reqs) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	reply := ""
	if i < len(c.replies) {
		reply = c.replies[i]
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: reply}},
	}, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

// stubEnricher records which job IDs were enriched.
type stubEnricher struct {
	mu    sync.Mutex
	jobs  map[string]*model.JobRecord
	calls []string
	err   error
}

func (e *stubEnricher) Enrich(_ context.Context, jobID string) (*model.JobRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, jobID)
	if e.err != nil {
		return nil, e.err
	}
	job, ok := e.jobs[jobID]
	if !ok {
		job = &model.JobRecord{ID: jobID, Enrichment: model.EnrichmentEnriched}
	}
	return job, nil
}
