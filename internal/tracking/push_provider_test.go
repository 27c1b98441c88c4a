package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver.schoolfleet.org/internal/models"
)

func TestPushProviderFansOutToWatch(t *testing.T) {
	p := NewPushProvider()

	var got []models.LocationSample
	sub, err := p.WatchPosition(func(s models.LocationSample) { got = append(got, s) }, nil, WatchOptions{})
	require.NoError(t, err)

	require.NoError(t, p.Push(sampleAt(30.0444, 31.2357, time.Now())))
	assert.Len(t, got, 1)

	sub.Unsubscribe()
	require.NoError(t, p.Push(sampleAt(30.0454, 31.2357, time.Now())))
	assert.Len(t, got, 1, "unsubscribed watch must not receive samples")
}

func TestPushProviderRejectsMalformedSamples(t *testing.T) {
	p := NewPushProvider()
	bad := models.LocationSample{Coordinate: models.Coordinate{Latitude: 120}}
	assert.Error(t, p.Push(bad))
}

func TestPushProviderCurrentUsesFreshCache(t *testing.T) {
	p := NewPushProvider()
	s := sampleAt(30.0444, 31.2357, time.Now())
	require.NoError(t, p.Push(s))

	got, err := p.CurrentPosition(context.Background(), PositionOptions{Timeout: time.Second, MaxCacheAge: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, s.Coordinate, got.Coordinate)
}

func TestPushProviderCurrentTimesOut(t *testing.T) {
	p := NewPushProvider()

	_, err := p.CurrentPosition(context.Background(), PositionOptions{Timeout: 20 * time.Millisecond})
	require.ErrorIs(t, err, ErrLocationUnavailable)
}

func TestPushProviderCurrentWaitsForNextFix(t *testing.T) {
	p := NewPushProvider()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = p.Push(sampleAt(30.0444, 31.2357, time.Now()))
	}()

	got, err := p.CurrentPosition(context.Background(), PositionOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.InDelta(t, 30.0444, got.Coordinate.Latitude, 1e-9)
}

func TestPushProviderPermission(t *testing.T) {
	p := NewPushProvider()
	p.SetPermission(false)

	granted, err := p.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = p.WatchPosition(func(models.LocationSample) {}, nil, WatchOptions{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = p.CurrentPosition(context.Background(), PositionOptions{Timeout: time.Second})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
