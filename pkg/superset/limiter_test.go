package superset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestAdaptiveLimiterRampsUpOnSuccess(t *testing.T) {
	l := NewAdaptiveLimiter(10, 10)

	for i := 0; i < 10; i++ {
		l.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), l.Limit())
}

func TestAdaptiveLimiterBacksOffOn429(t *testing.T) {
	l := NewAdaptiveLimiter(10, 10)

	l.OnRateLimit()
	assert.Equal(t, rate.Limit(5), l.Limit())

	for i := 0; i < 10; i++ {
		l.OnRateLimit()
	}
	assert.Equal(t, rate.Limit(2.5), l.Limit())
}

func TestAdaptiveLimiterRecovers(t *testing.T) {
	l := NewAdaptiveLimiter(10, 10)

	l.OnRateLimit()
	l.OnRateLimit()
	for i := 0; i < 20; i++ {
		l.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), l.Limit())
}
