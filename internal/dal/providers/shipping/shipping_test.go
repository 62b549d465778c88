package shipping

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTrackingNumber(t *testing.T) {
	p := NewMockProvider(WithSeed(1))
	re := regexp.MustCompile(`^[A-Z0-9]{12}$`)

	for range 20 {
		assert.Regexp(t, re, p.GenerateTrackingNumber())
	}
}

func TestGetTrackingInfo(t *testing.T) {
	p := NewMockProvider(WithSeed(1), WithLatency(0), WithFailureRate(0))

	info, err := p.GetTrackingInfo(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", info.TrackingNumber)
	assert.Equal(t, "MockEx", info.Carrier)
	assert.Contains(t, statuses, info.Status)
	assert.Len(t, info.History, 3)
	assert.True(t, info.EstimatedDelivery.After(time.Now()))
}

func TestGetTrackingInfoFailure(t *testing.T) {
	p := NewMockProvider(WithFailureRate(1))

	_, err := p.GetTrackingInfo(context.Background(), "ABC123")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGetTrackingInfoHonoursDeadline(t *testing.T) {
	p := NewMockProvider(WithLatency(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.GetTrackingInfo(ctx, "ABC123")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
