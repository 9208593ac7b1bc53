package services

import (
	"context"
	"time"

	"waiver-sync/pkg/clients/smartwaiver"
)

// FeedReader supplies the waiver identifiers to process for one invocation.
// The windowed poll, queue pull, and push implementations are interchangeable;
// each identifier is resolved to a full record downstream.
type FeedReader interface {
	NextBatch(ctx context.Context) ([]string, error)
}

// WindowFeed lists waivers created within a trailing time window. Overlapping
// windows across invocations deliver duplicates on purpose; the idempotent
// merge downstream absorbs them.
type WindowFeed struct {
	client smartwaiver.Client
	window time.Duration
	now    func() time.Time
}

// NewWindowFeed creates a windowed-poll feed over the given trailing window.
func NewWindowFeed(client smartwaiver.Client, window time.Duration) *WindowFeed {
	return &WindowFeed{client: client, window: window, now: time.Now}
}

func (f *WindowFeed) NextBatch(ctx context.Context) ([]string, error) {
	to := f.now()
	from := to.Add(-f.window)

	summaries, err := f.client.ListWaivers(ctx, from, to)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.WaiverID)
	}
	return ids, nil
}

// QueueFeed dequeues at most one pending notification per invocation.
// An empty queue yields an empty batch, not an error.
type QueueFeed struct {
	client smartwaiver.Client
}

// NewQueueFeed creates a queue-pull feed.
func NewQueueFeed(client smartwaiver.Client) *QueueFeed {
	return &QueueFeed{client: client}
}

func (f *QueueFeed) NextBatch(ctx context.Context) ([]string, error) {
	id, err := f.client.DequeueNotification(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return []string{id}, nil
}

// PushFeed wraps the single waiver identifier delivered by an inbound webhook.
// Validation of the payload happens at the HTTP boundary, before a PushFeed
// is ever constructed.
type PushFeed struct {
	waiverID string
}

// NewPushFeed creates a push feed for one delivered identifier.
func NewPushFeed(waiverID string) *PushFeed {
	return &PushFeed{waiverID: waiverID}
}

func (f *PushFeed) NextBatch(ctx context.Context) ([]string, error) {
	return []string{f.waiverID}, nil
}
