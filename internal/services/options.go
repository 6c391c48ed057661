package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fluxo/internal/core"
	"fluxo/internal/log"
)

// EventPublisher announces ledger changes to downstream consumers.
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, transactionID string) error
	PublishBillSettled(ctx context.Context, billID, transactionID string) error
}

// Option customises a service.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
	loc   *time.Location
}

func defaultOptions() options {
	return options{now: time.Now, newID: uuid.NewString, loc: time.Local}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithLocation sets the time zone that decides which calendar day is today.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func (o options) today() core.Date {
	return core.DateOf(o.now().In(o.loc))
}

// Page is one load-more step of a listing.
type Page[T any] struct {
	Items   []T
	Limit   int
	HasMore bool
}

// pageOf trims a result fetched with limit+1 rows.
func pageOf[T any](items []T, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	if limit > 0 && len(items) > limit {
		return Page[T]{Items: items[:limit], Limit: limit, HasMore: true}
	}
	return Page[T]{Items: items, Limit: limit}
}

func componentLogger(component string) *log.StructuredLogger {
	return log.NewStructuredLogger(log.New(log.Config{Component: component, Handler: slog.Default().Handler()}))
}
