package tracking

import (
	"context"
	"sync"

	"driver.schoolfleet.org/internal/models"
)

// MockProvider is a scripted location provider for tests. It records how many
// subscriptions are live so tests can assert that starting a new session never
// leaks the previous watch.
type MockProvider struct {
	mu sync.Mutex

	Granted       bool
	PermissionErr error
	WatchErr      error
	Sample        models.LocationSample
	CurrentErr    error

	live     int
	maxLive  int
	onUpdate func(models.LocationSample)
	onError  func(error)
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Granted: true}
}

func (m *MockProvider) RequestPermission(ctx context.Context) (bool, error) {
	return m.Granted, m.PermissionErr
}

func (m *MockProvider) CurrentPosition(ctx context.Context, opts PositionOptions) (models.LocationSample, error) {
	if m.CurrentErr != nil {
		return models.LocationSample{}, m.CurrentErr
	}
	return m.Sample, nil
}

func (m *MockProvider) WatchPosition(onUpdate func(models.LocationSample), onError func(error), opts WatchOptions) (Subscription, error) {
	if m.WatchErr != nil {
		return nil, m.WatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live++
	if m.live > m.maxLive {
		m.maxLive = m.live
	}
	m.onUpdate = onUpdate
	m.onError = onError
	return &mockSubscription{provider: m}, nil
}

// Emit delivers a sample through the currently registered watch callback.
func (m *MockProvider) Emit(sample models.LocationSample) {
	m.mu.Lock()
	fn := m.onUpdate
	m.mu.Unlock()
	if fn != nil {
		fn(sample)
	}
}

// EmitError delivers a provider error through the watch error callback.
func (m *MockProvider) EmitError(err error) {
	m.mu.Lock()
	fn := m.onError
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Live returns the number of currently active subscriptions.
func (m *MockProvider) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// MaxLive returns the highest number of simultaneously active subscriptions
// ever observed.
func (m *MockProvider) MaxLive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxLive
}

type mockSubscription struct {
	provider *MockProvider
	once     sync.Once
}

func (s *mockSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.provider.mu.Lock()
		s.provider.live--
		s.provider.mu.Unlock()
	})
}
