package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"driver.schoolfleet.org/internal/models"
)

// PushProvider is a Provider fed over the wire: the driver device posts its
// GPS fixes to the positions ingest endpoint and they fan out to whatever
// watch is registered. Permission maps to the device-side grant, reported by
// the device when it first connects.
type PushProvider struct {
	mu       sync.Mutex
	granted  bool
	last     *models.LocationSample
	watchers map[int]*pushWatcher
	nextID   int
	waiters  []chan models.LocationSample
}

type pushWatcher struct {
	onUpdate func(models.LocationSample)
	onError  func(error)
}

func NewPushProvider() *PushProvider {
	return &PushProvider{
		granted:  true,
		watchers: make(map[int]*pushWatcher),
	}
}

// SetPermission records whether the device granted location access.
func (p *PushProvider) SetPermission(granted bool) {
	p.mu.Lock()
	p.granted = granted
	p.mu.Unlock()
}

func (p *PushProvider) RequestPermission(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted, nil
}

// Push ingests one device fix and delivers it to active watchers and any
// blocked one-shot fetches.
func (p *PushProvider) Push(sample models.LocationSample) error {
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("rejecting pushed sample: %w", err)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	p.mu.Lock()
	s := sample
	p.last = &s
	watchers := make([]*pushWatcher, 0, len(p.watchers))
	for _, w := range p.watchers {
		watchers = append(watchers, w)
	}
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, ch := range waiters {
		ch <- sample
	}
	for _, w := range watchers {
		w.onUpdate(sample)
	}
	return nil
}

// PushError forwards a device-reported GPS error to active watchers.
func (p *PushProvider) PushError(err error) {
	p.mu.Lock()
	watchers := make([]*pushWatcher, 0, len(p.watchers))
	for _, w := range p.watchers {
		watchers = append(watchers, w)
	}
	p.mu.Unlock()

	for _, w := range watchers {
		if w.onError != nil {
			w.onError(err)
		}
	}
}

func (p *PushProvider) CurrentPosition(ctx context.Context, opts PositionOptions) (models.LocationSample, error) {
	p.mu.Lock()
	if !p.granted {
		p.mu.Unlock()
		return models.LocationSample{}, ErrPermissionDenied
	}
	if p.last != nil && opts.MaxCacheAge > 0 && time.Since(p.last.Timestamp) <= opts.MaxCacheAge {
		sample := *p.last
		p.mu.Unlock()
		return sample, nil
	}
	ch := make(chan models.LocationSample, 1)
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sample := <-ch:
		return sample, nil
	case <-timer.C:
		p.dropWaiter(ch)
		return models.LocationSample{}, fmt.Errorf("%w: no fix within %s", ErrLocationUnavailable, timeout)
	case <-ctx.Done():
		p.dropWaiter(ch)
		return models.LocationSample{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, ctx.Err())
	}
}

func (p *PushProvider) dropWaiter(ch chan models.LocationSample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

func (p *PushProvider) WatchPosition(onUpdate func(models.LocationSample), onError func(error), opts WatchOptions) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.granted {
		return nil, ErrPermissionDenied
	}
	id := p.nextID
	p.nextID++
	p.watchers[id] = &pushWatcher{onUpdate: onUpdate, onError: onError}
	return &pushSubscription{provider: p, id: id}, nil
}

type pushSubscription struct {
	provider *PushProvider
	id       int
	once     sync.Once
}

func (s *pushSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.provider.mu.Lock()
		delete(s.provider.watchers, s.id)
		s.provider.mu.Unlock()
	})
}
