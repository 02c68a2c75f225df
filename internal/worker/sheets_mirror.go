// Package worker mirrors dashboard summaries published on AMQP into a
// Google Sheets tab.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
)

// SummaryWriter replaces the mirrored sheet content with a summary.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, sum core.Summary) (string, error)
}

// Loader runs one dashboard load cycle.
type Loader func(ctx context.Context) (core.Summary, error)

// Stats counts what the mirror did since start.
type Stats struct {
	Written int64
	Stale   int64
	Failed  int64
}

// SheetsMirror writes every summary event newer than the last one written.
type SheetsMirror struct {
	sheets SummaryWriter
	logger *slog.Logger

	mu     sync.Mutex
	latest time.Time

	written atomic.Int64
	stale   atomic.Int64
	failed  atomic.Int64
}

func NewSheetsMirror(sheets SummaryWriter, logger *slog.Logger) *SheetsMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetsMirror{
		sheets: sheets,
		logger: logger.With("component", "sheets"),
	}
}

// HandleSummary writes the event's summary to the sheet. Events older than
// the last written summary are acknowledged without writing, so a
// redelivered event never overwrites fresher figures.
func (w *SheetsMirror) HandleSummary(ctx context.Context, msg *amqp.SummaryRefreshedMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !msg.Timestamp.IsZero() && msg.Timestamp.Before(w.latest) {
		w.stale.Add(1)
		w.logger.InfoContext(ctx, "Skipping stale summary event",
			"message_id", msg.ID,
			"event_time", msg.Timestamp.Format(time.RFC3339),
			"latest", w.latest.Format(time.RFC3339))
		return nil
	}

	if err := w.write(ctx, msg.Summary(), msg.ID); err != nil {
		return err
	}
	if msg.Timestamp.After(w.latest) {
		w.latest = msg.Timestamp
	}
	return nil
}

// StartupSync loads the current summary once and writes it, so the sheet is
// fresh even when events were missed while the worker was down.
func (w *SheetsMirror) StartupSync(ctx context.Context, load Loader) error {
	started := time.Now().UTC()
	sum, err := load(ctx)
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.write(ctx, sum, "startup"); err != nil {
		return err
	}
	if started.After(w.latest) {
		w.latest = started
	}
	return nil
}

func (w *SheetsMirror) write(ctx context.Context, sum core.Summary, source string) error {
	updated, err := w.sheets.WriteSummary(ctx, sum)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("write summary to sheets: %w", err)
	}
	w.written.Add(1)
	w.logger.InfoContext(ctx, "Mirrored summary to sheets",
		"source", source,
		"range", updated,
		"balance", sum.Balance.StringFixed(2),
		"categories", len(sum.Categories))
	return nil
}

func (w *SheetsMirror) Stats() Stats {
	return Stats{
		Written: w.written.Load(),
		Stale:   w.stale.Load(),
		Failed:  w.failed.Load(),
	}
}
