package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/pdfqa/pkg/eventstream"
)

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.DocumentIngestedEvent

	// Err is returned from PublishIngested when set.
	Err error
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) PublishIngested(_ context.Context, event *eventstream.DocumentIngestedEvent) error {
	if event == nil {
		return eventstream.ErrNilIngestedEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the published events.
func (p *RecordingPublisher) Events() []*eventstream.DocumentIngestedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.DocumentIngestedEvent(nil), p.events...)
}

func (p *RecordingPublisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*RecordingPublisher)(nil)
