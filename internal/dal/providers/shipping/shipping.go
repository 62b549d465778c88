// Package shipping is a simulated shipping carrier API.
package shipping

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/tracking"
	"github.com/spf13/viper"
)

const (
	carrier              = "MockEx"
	trackingNumberLength = 12
	trackingAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var ErrUnavailable = errors.New("shipping carrier temporarily unavailable")

var statuses = []string{
	"SHIPPING_LABEL_CREATED",
	"PACKAGE_RECEIVED",
	"IN_TRANSIT",
	"OUT_FOR_DELIVERY",
	"DELIVERED",
	"DELAYED",
}

var route = []struct {
	location string
	age      time.Duration
}{
	{"New York, NY", 48 * time.Hour},
	{"Columbus, OH", 24 * time.Hour},
	{"Chicago, IL", 0},
}

// MockProvider answers tracking queries with randomized data.
type MockProvider struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	latency     time.Duration
	failureRate float64
}

type option func(*MockProvider)

// NewMockProvider creates a provider configured from providers.shipping.* unless overridden.
func NewMockProvider(opts ...option) *MockProvider {
	p := &MockProvider{
		rnd:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		latency:     viper.GetDuration("providers.shipping.latency"),
		failureRate: viper.GetFloat64("providers.shipping.failure_rate"),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithLatency sets the simulated response time.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLatency(d time.Duration) option {
	return func(p *MockProvider) {
		p.latency = d
	}
}

// WithFailureRate sets the probability in [0,1] that a call fails.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithFailureRate(rate float64) option {
	return func(p *MockProvider) {
		p.failureRate = rate
	}
}

// WithSeed makes the generated data reproducible.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSeed(seed uint64) option {
	return func(p *MockProvider) {
		p.rnd = rand.New(rand.NewPCG(seed, seed))
	}
}

func (p *MockProvider) intN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.rnd.IntN(n)
}

func (p *MockProvider) float() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.rnd.Float64()
}

// GenerateTrackingNumber returns a random 12-character alphanumeric tracking number.
func (p *MockProvider) GenerateTrackingNumber() string {
	var b strings.Builder
	b.Grow(trackingNumberLength)
	for range trackingNumberLength {
		b.WriteByte(trackingAlphabet[p.intN(len(trackingAlphabet))])
	}

	return b.String()
}

// GetTrackingInfo returns the current status of a shipment.
func (p *MockProvider) GetTrackingInfo(ctx context.Context, trackingNumber string) (tracking.Info, error) {
	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return tracking.Info{}, ctx.Err()
		case <-timer.C:
		}
	}

	if p.failureRate > 0 && p.float() < p.failureRate {
		return tracking.Info{}, ErrUnavailable
	}

	now := time.Now().UTC()
	history := make([]tracking.Event, 0, len(route))
	for i, stop := range route {
		history = append(history, tracking.Event{
			Date:        now.Add(-stop.age),
			Status:      statuses[min(i+1, len(statuses)-1)],
			Location:    stop.location,
			Description: "Package scanned at " + stop.location,
		})
	}

	return tracking.Info{
		TrackingNumber:    trackingNumber,
		Carrier:           carrier,
		Status:            statuses[p.intN(len(statuses))],
		EstimatedDelivery: now.AddDate(0, 0, p.intN(7)+1),
		History:           history,
		LastUpdated:       now,
	}, nil
}
