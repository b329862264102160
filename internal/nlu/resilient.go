package nlu

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrUnavailable is returned when a collaborator is down and no fallback is
// configured. Callers degrade the conversation rather than fail the turn.
var ErrUnavailable = errors.New("nlu: collaborator unavailable")

// ResilienceOptions bounds a wrapped collaborator call.
type ResilienceOptions struct {
	Timeout          time.Duration // per-attempt deadline
	MaxRetries       int           // additional attempts after the first
	BreakerThreshold int           // consecutive failures before short-circuit
	BreakerCooldown  time.Duration // open-state duration before a probe
	RetryInterval    time.Duration // initial retry backoff; defaults to 100ms
}

func (o *ResilienceOptions) normalize() {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BreakerThreshold < 1 {
		o.BreakerThreshold = 5
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 30 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 100 * time.Millisecond
	}
}

// breaker is a minimal consecutive-failure circuit breaker. After threshold
// failures in a row it rejects calls until the cooldown elapses; the next
// allowed call acts as the half-open probe.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	failures  int
	openUntil time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openUntil.IsZero() {
		return true
	}
	if b.now().Before(b.openUntil) {
		return false
	}
	// Cooldown elapsed: let one probe through without resetting the
	// failure count, so a failing probe reopens immediately.
	b.openUntil = time.Time{}
	b.failures = b.threshold - 1
	return true
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.openUntil = time.Time{}
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = b.now().Add(b.cooldown)
	}
}

// retryCall runs op with per-attempt timeout and bounded exponential backoff.
// Parent-context cancellation is terminal; attempt errors are retryable.
func retryCall[T any](ctx context.Context, opts ResilienceOptions, op func(context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		cctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		out, err := op(cctx)
		if err != nil && ctx.Err() != nil {
			return out, backoff.Permanent(ctx.Err())
		}
		return out, err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = opts.RetryInterval
	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(opts.MaxRetries)+1),
	)
}

// ResilientClassifier wraps an IntentClassifier with timeout, retry, and a
// circuit breaker. When the inner classifier is unavailable the optional
// Fallback answers instead, so the dialogue loop keeps moving in degraded
// mode.
type ResilientClassifier struct {
	inner    IntentClassifier
	fallback IntentClassifier
	opts     ResilienceOptions
	br       *breaker
}

// NewResilientClassifier wraps inner; fallback may be nil.
func NewResilientClassifier(inner, fallback IntentClassifier, opts ResilienceOptions) *ResilientClassifier {
	opts.normalize()
	return &ResilientClassifier{
		inner:    inner,
		fallback: fallback,
		opts:     opts,
		br:       newBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
	}
}

// Classify implements IntentClassifier. The result is always normalized.
func (c *ResilientClassifier) Classify(ctx context.Context, message string, sc SessionContext) (IntentResult, error) {
	if !c.br.allow() {
		return c.degrade(ctx, message, sc, ErrUnavailable)
	}
	res, err := retryCall(ctx, c.opts, func(cctx context.Context) (IntentResult, error) {
		return c.inner.Classify(cctx, message, sc)
	})
	if err != nil {
		c.br.failure()
		return c.degrade(ctx, message, sc, err)
	}
	c.br.success()
	res.Normalize()
	return res, nil
}

func (c *ResilientClassifier) degrade(ctx context.Context, message string, sc SessionContext, cause error) (IntentResult, error) {
	if c.fallback == nil {
		return IntentResult{}, errors.Join(ErrUnavailable, cause)
	}
	res, err := c.fallback.Classify(ctx, message, sc)
	if err != nil {
		return IntentResult{}, errors.Join(ErrUnavailable, err)
	}
	res.Normalize()
	return res, nil
}

// ResilientMatcher wraps an ItemMatcher the same way. There is no matcher
// fallback: an unavailable matcher simply skips the semantic tier and the
// resolver continues with its lexical tiers.
type ResilientMatcher struct {
	inner ItemMatcher
	opts  ResilienceOptions
	br    *breaker
}

// NewResilientMatcher wraps inner.
func NewResilientMatcher(inner ItemMatcher, opts ResilienceOptions) *ResilientMatcher {
	opts.normalize()
	return &ResilientMatcher{
		inner: inner,
		opts:  opts,
		br:    newBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
	}
}

// Match implements ItemMatcher, returning ErrUnavailable when the breaker is
// open or every attempt failed.
func (m *ResilientMatcher) Match(ctx context.Context, mention string, candidates []MenuCandidate) (MatchResult, error) {
	if !m.br.allow() {
		return MatchResult{}, ErrUnavailable
	}
	res, err := retryCall(ctx, m.opts, func(cctx context.Context) (MatchResult, error) {
		return m.inner.Match(cctx, mention, candidates)
	})
	if err != nil {
		m.br.failure()
		return MatchResult{}, errors.Join(ErrUnavailable, err)
	}
	m.br.success()
	return res, nil
}
