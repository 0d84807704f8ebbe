// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package loop

import (
	"github.com/kestrelio/coro/corolog"
	"github.com/kestrelio/coro/poller"
)

// options holds configuration resolved at New, adapted from the
// teacher's options.go functional-options pattern.
type options struct {
	poller        poller.Poller
	logger        corolog.Logger
	metrics       bool
	maxEvents     int
	pollTimeoutMs int
}

// Option configures a Loop instance.
type Option interface {
	apply(*options) error
}

type optionFunc func(*options) error

func (f optionFunc) apply(o *options) error { return f(o) }

// WithPoller supplies a pre-constructed poller.Poller (e.g. a select
// fallback on non-Linux) instead of the platform default.
func WithPoller(p poller.Poller) Option {
	return optionFunc(func(o *options) error {
		o.poller = p
		return nil
	})
}

// WithLogger sets the corolog.Logger every component in the loop logs
// through. Defaults to corolog.NoOp{}.
func WithLogger(log corolog.Logger) Option {
	return optionFunc(func(o *options) error {
		o.logger = log
		return nil
	})
}

// WithMetrics enables the opt-in Metrics counters, avoiding the hot-path
// cost when disabled, grounded on the teacher's opt-in metrics design.
// Only tasks run and polls performed are counted (see Metrics).
func WithMetrics(enabled bool) Option {
	return optionFunc(func(o *options) error {
		o.metrics = enabled
		return nil
	})
}

// WithMaxEvents bounds the epoll event buffer size (Linux only; ignored
// by selectpoller). Default 256.
func WithMaxEvents(n int) Option {
	return optionFunc(func(o *options) error {
		o.maxEvents = n
		return nil
	})
}

// WithPollTimeout sets the millisecond timeout passed to Poll on every
// iteration. Timers do not shorten it; they wake Poll through their
// timer-fd. Default 1000ms.
func WithPollTimeout(ms int) Option {
	return optionFunc(func(o *options) error {
		o.pollTimeoutMs = ms
		return nil
	})
}

func resolveOptions(opts []Option) (*options, error) {
	cfg := &options{
		logger:        corolog.NoOp{},
		maxEvents:     256,
		pollTimeoutMs: 1000,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
