package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	streamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qna",
		Subsystem: "ai",
		Name:      "stream_duration_seconds",
		Help:      "Duration of AI completion streams from open to last chunk",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"provider"})

	streamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qna",
		Subsystem: "ai",
		Name:      "stream_failures_total",
		Help:      "Number of AI streams that failed to open or aborted mid-stream",
	}, []string{"provider", "stage"})
)

// Registry resolves provider discriminators and opens streams with bounded retry.
type Registry struct {
	providers   map[string]Provider
	defaultName string
	maxTries    uint
	logger      zerolog.Logger
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithOpenAttempts bounds how many times opening a stream is attempted.
func WithOpenAttempts(n uint) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxTries = n
		}
	}
}

// WithRegistryLogger attaches a logger.
func WithRegistryLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger.With().Str("component", "ai_registry").Logger()
	}
}

// NewRegistry builds a registry. Nil providers are skipped so callers can pass unconfigured ones.
func NewRegistry(defaultName string, providers []Provider, opts ...RegistryOption) *Registry {
	r := &Registry{
		providers:   make(map[string]Provider, len(providers)),
		defaultName: strings.ToLower(strings.TrimSpace(defaultName)),
		maxTries:    3,
		logger:      zerolog.Nop(),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.Name()] = p
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the provider for name, falling back to the default when name is empty.
func (r *Registry) Lookup(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.defaultName
	}

	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	for _, known := range KnownProviders {
		if known == name {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, name)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// Open resolves the provider and opens a stream. Only opening is retried; once chunks flow a
// failure is final.
func (r *Registry) Open(ctx context.Context, name string, req Request) (Stream, Provider, error) {
	provider, err := r.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = provider.DefaultModel()
	}

	start := time.Now()
	stream, err := backoff.Retry(ctx, func() (Stream, error) {
		s, err := provider.Stream(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			r.logger.Warn().Err(err).Str("provider", provider.Name()).Msg("ai stream open failed")
			return nil, err
		}
		return s, nil
	},
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     250 * time.Millisecond,
			RandomizationFactor: backoff.DefaultRandomizationFactor,
			Multiplier:          backoff.DefaultMultiplier,
			MaxInterval:         2 * time.Second,
		}),
		backoff.WithMaxTries(r.maxTries),
	)
	if err != nil {
		streamFailures.WithLabelValues(provider.Name(), "open").Inc()
		return nil, provider, fmt.Errorf("%s: %w", provider.Name(), err)
	}

	return &instrumentedStream{Stream: stream, provider: provider.Name(), start: start}, provider, nil
}

type instrumentedStream struct {
	Stream
	provider string
	start    time.Time
	done     bool
}

func (s *instrumentedStream) Recv() (Chunk, error) {
	chunk, err := s.Stream.Recv()
	if err != nil && !s.done {
		s.done = true
		if errors.Is(err, io.EOF) {
			streamDuration.WithLabelValues(s.provider).Observe(time.Since(s.start).Seconds())
		} else {
			streamFailures.WithLabelValues(s.provider, "recv").Inc()
		}
	}
	return chunk, err
}

// permanentStatus reports whether an HTTP status from a provider should not be retried.
func permanentStatus(status int) bool {
	return status >= 400 && status < 500 && status != 429 && status != 408
}
