package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"inventoryservice/internal/platform/kafka"
	"inventoryservice/internal/platform/observability"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 10
	DefaultRetryBase   = 2 * time.Second
)

// ErrBrokerUnavailable is returned once every connection attempt has failed.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Dialer performs one connection handshake: connect, ensure the topic exists and join the group.
type Dialer interface {
	Dial(ctx context.Context) (kafka.Subscription, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (kafka.Subscription, error)

func (f DialerFunc) Dial(ctx context.Context) (kafka.Subscription, error) { return f(ctx) }

type retryPolicy struct {
	maxAttempts int
	retryBase   time.Duration
	timer       backoff.Timer
}

// Option overrides the retry policy, either at construction or for a single Connect.
type Option func(*retryPolicy)

// WithMaxAttempts bounds the number of handshakes. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(p *retryPolicy) {
		if n >= 1 {
			p.maxAttempts = n
		}
	}
}

// WithRetryBase sets the linear backoff base: the wait after attempt n is n*base.
func WithRetryBase(d time.Duration) Option {
	return func(p *retryPolicy) {
		if d >= 0 {
			p.retryBase = d
		}
	}
}

// WithTimer replaces the timer used for backoff waits.
func WithTimer(t backoff.Timer) Option {
	return func(p *retryPolicy) { p.timer = t }
}

// Manager owns the single broker subscription of the process.
// Nothing touches the network until the first Connect.
type Manager struct {
	dialer Dialer
	logger observability.Logger
	policy retryPolicy

	mu      sync.Mutex
	state   atomic.Int32
	session kafka.Subscription
	err     error
}

// NewManager creates a Manager in the Disconnected state.
func NewManager(dialer Dialer, logger observability.Logger, opts ...Option) *Manager {
	m := &Manager{
		dialer: dialer,
		logger: logger,
		policy: retryPolicy{maxAttempts: DefaultMaxAttempts, retryBase: DefaultRetryBase},
	}
	for _, opt := range opts {
		opt(&m.policy)
	}
	return m
}

// State reports the current lifecycle state without blocking on an in-flight Connect.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// Connect returns the live subscription, establishing it on first use.
func (m *Manager) Connect(ctx context.Context) (kafka.Subscription, error) {
	return m.ConnectWith(ctx)
}

// ConnectWith is Connect with per-call overrides of the retry policy.
// Once Connected the cached subscription is returned and opts are ignored;
// once Failed the original error is returned without another attempt.
func (m *Manager) ConnectWith(ctx context.Context, opts ...Option) (kafka.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.State() {
	case Connected:
		return m.session, nil
	case Failed:
		return nil, m.err
	}

	policy := m.policy
	for _, opt := range opts {
		opt(&policy)
	}

	m.setState(Connecting)

	attempt := 0
	operation := func() error {
		attempt++
		session, err := m.dialer.Dial(ctx)
		if err != nil {
			return err
		}
		m.session = session
		return nil
	}
	notify := func(err error, wait time.Duration) {
		m.logger.Warn("Broker not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.maxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(NewLinearBackOff(policy.retryBase), uint64(policy.maxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotifyWithTimer(operation, b, notify, policy.timer); err != nil {
		if ctx.Err() != nil {
			m.setState(Disconnected)
			return nil, fmt.Errorf("connect to broker interrupted after %d attempts: %w", attempt, ctx.Err())
		}
		m.err = fmt.Errorf("%w: gave up after %d attempts: %w", ErrBrokerUnavailable, attempt, err)
		m.setState(Failed)
		m.logger.Error("Could not connect to broker", zap.Int("attempts", attempt), zap.Error(err))
		return nil, m.err
	}

	m.setState(Connected)
	m.logger.Info("Connected to broker", zap.Int("attempts", attempt))
	return m.session, nil
}

// Close releases the subscription. The manager can connect again afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	m.setState(Disconnected)
	return err
}

// NewLinearBackOff returns a backoff.BackOff that waits base, 2*base, 3*base, ...
// It never stops on its own; bound it with backoff.WithMaxRetries.
func NewLinearBackOff(base time.Duration) backoff.BackOff {
	return &linearBackOff{base: base}
}

type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }
