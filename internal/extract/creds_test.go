package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementwire/ingest/internal/resilience"
	"github.com/placementwire/ingest/pkg/anthropic"
)

var quotaErr = errors.New("429 rate limit exceeded")

func TestNewCredentialPoolRequiresKeys(t *testing.T) {
	_, err := NewCredentialPool(nil, nil)
	require.Error(t, err)
}

func TestPoolRotatesOnQuota(t *testing.T) {
	exhausted := &scriptedClient{errs: []error{quotaErr, quotaErr, quotaErr}}
	healthy := &scriptedClient{replies: []string{"ok", "ok"}}
	pool := NewStaticPool(exhausted, healthy)

	resp, err := pool.CreateMessage(context.Background(), anthropic.MessageRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, 1, exhausted.calls())

	// The cursor stays on the credential that worked.
	_, err = pool.CreateMessage(context.Background(), anthropic.MessageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, exhausted.calls())
	assert.Equal(t, 2, healthy.calls())
}

func TestPoolExhaustion(t *testing.T) {
	a := &scriptedClient{errs: []error{quotaErr}}
	b := &scriptedClient{errs: []error{quotaErr}}
	pool := NewStaticPool(a, b)

	_, err := pool.CreateMessage(context.Background(), anthropic.MessageRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.True(t, resilience.IsQuota(err))
	assert.Equal(t, 1, a.calls())
	assert.Equal(t, 1, b.calls())
}

func TestPoolNonQuotaErrorReturnsImmediately(t *testing.T) {
	bad := errors.New("invalid request")
	a := &scriptedClient{errs: []error{bad}}
	b := &scriptedClient{}
	pool := NewStaticPool(a, b)

	_, err := pool.CreateMessage(context.Background(), anthropic.MessageRequest{})
	require.ErrorIs(t, err, bad)
	assert.Zero(t, b.calls())
}
