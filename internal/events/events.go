// Package events publishes extraction lifecycle events. Delivery fan-out
// (webhooks, notifications) lives outside this module.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ExtractionCompleted is emitted exactly once per pipeline run.
type ExtractionCompleted struct {
	DocumentID uuid.UUID  `json:"document_id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	PolicyID   *uuid.UUID `json:"policy_id,omitempty"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev ExtractionCompleted) error
}

// LogPublisher writes each event as one structured log line.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{log: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev ExtractionCompleted) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if !ev.Success {
		level = slog.LevelWarn
	}
	p.log.Log(ctx, level, "event.extraction_completed",
		"document_id", ev.DocumentID, "success", ev.Success, "payload", string(payload))
	return nil
}

// MemoryPublisher keeps published events in order.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []ExtractionCompleted
}

func (p *MemoryPublisher) Publish(_ context.Context, ev ExtractionCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *MemoryPublisher) Events() []ExtractionCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ExtractionCompleted(nil), p.events...)
}

// Multi publishes to every publisher, returning the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev ExtractionCompleted) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
