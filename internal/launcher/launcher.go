package launcher

import (
	"context"
	"fmt"
	"github.com/myrjola/blackwood/internal/errors"
	"log/slog"
	"time"
)

var (
	ErrNoStrategies        = errors.NewSentinel("no launch strategies configured")
	ErrAllStrategiesFailed = errors.NewSentinel("all launch strategies failed")
	ErrHeadless            = errors.NewSentinel("no display available")
	ErrUnavailable         = errors.NewSentinel("launch strategy unavailable")
)

// Strategy is one way of opening a URL, e.g. a platform command.
type Strategy interface {
	Name() string
	Open(url string) error
}

type strategyFunc struct {
	name string
	open func(url string) error
}

func (s strategyFunc) Name() string          { return s.name }
func (s strategyFunc) Open(url string) error { return s.open(url) }

// NewStrategy adapts a function to a Strategy.
func NewStrategy(name string, open func(url string) error) Strategy {
	return strategyFunc{name: name, open: open}
}

// Result describes a finished launch.
type Result struct {
	// Strategy is the name of the strategy that opened the URL. Empty on failure.
	Strategy string
	// Retries is the number of full passes over the strategies after the first one.
	Retries int
}

// Chain tries its strategies in order. When all of them fail, the whole pass is retried with a linearly growing
// delay: before retry n the chain sleeps n times the retry delay.
//
// Open blocks until a strategy succeeds or the retries are exhausted. It cannot be cancelled.
type Chain struct {
	strategies []Strategy
	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
	headless   func() bool
	logger     *slog.Logger
}

type Option func(*Chain)

// WithRetries sets how many times a failed pass is retried and the base delay between passes.
func WithRetries(maxRetries int, retryDelay time.Duration) Option {
	return func(c *Chain) {
		c.maxRetries = max(maxRetries, 0)
		c.retryDelay = max(retryDelay, 0)
	}
}

// WithSleep replaces time.Sleep, mainly for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Chain) {
		c.sleep = sleep
	}
}

// WithHeadlessCheck makes Open fail fast with ErrHeadless when isHeadless reports true.
func WithHeadlessCheck(isHeadless func() bool) Option {
	return func(c *Chain) {
		c.headless = isHeadless
	}
}

func NewChain(logger *slog.Logger, strategies []Strategy, opts ...Option) *Chain {
	c := &Chain{
		strategies: strategies,
		maxRetries: 0,
		retryDelay: 0,
		sleep:      time.Sleep,
		headless:   func() bool { return false },
		logger:     logger.With("source", "Launcher"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open opens url with the first strategy that succeeds.
func (c *Chain) Open(ctx context.Context, url string) (Result, error) {
	if len(c.strategies) == 0 {
		return Result{}, errors.Wrap(ErrNoStrategies, "open url")
	}
	if c.headless() {
		return Result{}, errors.Wrap(ErrHeadless, "open url")
	}

	c.logger.LogAttrs(ctx, slog.LevelInfo, "opening url", slog.String("url", url))
	for retry := 0; ; retry++ {
		if retry > 0 {
			delay := c.retryDelay * time.Duration(retry)
			c.logger.LogAttrs(ctx, slog.LevelInfo, "retrying",
				slog.Int("retry", retry), slog.Int("maxRetries", c.maxRetries), slog.Duration("delay", delay))
			c.sleep(delay)
		}

		name, err := c.pass(ctx, url)
		if err == nil {
			return Result{Strategy: name, Retries: retry}, nil
		}
		if retry >= c.maxRetries {
			return Result{Strategy: "", Retries: retry}, errors.Wrap(err, "max retries exceeded",
				slog.Int("maxRetries", c.maxRetries))
		}
	}
}

// pass tries every strategy once.
func (c *Chain) pass(ctx context.Context, url string) (string, error) {
	errorList := []error{ErrAllStrategiesFailed}
	for _, strategy := range c.strategies {
		err := safeOpen(strategy, url)
		if err == nil {
			return strategy.Name(), nil
		}
		err = errors.Wrap(err, "open with strategy", slog.String("strategy", strategy.Name()))
		c.logger.LogAttrs(ctx, slog.LevelWarn, "launch strategy failed", errors.SlogError(err))
		errorList = append(errorList, err)
	}
	return "", errors.Join(errorList...)
}

// safeOpen turns a panicking strategy into an error.
func safeOpen(strategy Strategy, url string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprintf("strategy panicked: %v", r))
		}
	}()
	return strategy.Open(url)
}
