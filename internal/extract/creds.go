package extract

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/placementwire/ingest/internal/resilience"
	"github.com/placementwire/ingest/pkg/anthropic"
)

// ErrPoolExhausted means every credential in the pool hit its quota. This is
// systemic: the orchestrator aborts the run instead of failing items one by
// one.
var ErrPoolExhausted = eris.New("all credentials exhausted")

// ClientFactory binds an API key to a client instance.
type ClientFactory func(apiKey string) anthropic.Client

// CredentialPool rotates through a bounded set of API credentials on quota
// errors. Rotation advances a cursor; nothing global is mutated and each key
// keeps its own bound client.
type CredentialPool struct {
	clients []anthropic.Client
	cursor  atomic.Int64
}

// NewCredentialPool builds a pool from API keys. At least one key is
// required.
func NewCredentialPool(keys []string, factory ClientFactory) (*CredentialPool, error) {
	if len(keys) == 0 {
		return nil, eris.New("credential pool needs at least one API key")
	}
	if factory == nil {
		factory = anthropic.NewClient
	}
	clients := make([]anthropic.Client, len(keys))
	for i, key := range keys {
		clients[i] = factory(key)
	}
	return &CredentialPool{clients: clients}, nil
}

// NewStaticPool wraps pre-built clients, mainly for tests.
func NewStaticPool(clients ...anthropic.Client) *CredentialPool {
	return &CredentialPool{clients: clients}
}

// Size returns the number of credentials in the pool.
func (p *CredentialPool) Size() int { return len(p.clients) }

// CreateMessage sends the request with the current credential, rotating to
// the next one on quota errors. Once every credential has been tried the
// call fails with ErrPoolExhausted. Non-quota errors return immediately.
func (p *CredentialPool) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if len(p.clients) == 0 {
		return nil, ErrPoolExhausted
	}

	start := p.cursor.Load()
	for i := 0; i < len(p.clients); i++ {
		idx := (start + int64(i)) % int64(len(p.clients))
		resp, err := p.clients[idx].CreateMessage(ctx, req)
		if err == nil {
			p.cursor.Store(idx)
			return resp, nil
		}
		if !anthropic.IsQuotaErr(err) {
			return nil, err
		}
		zap.L().Warn("credential hit quota, rotating",
			zap.Int64("credential_index", idx),
			zap.Error(err))
	}

	return nil, resilience.NewQuotaError(ErrPoolExhausted)
}
