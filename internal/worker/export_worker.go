// Package worker drains the record-event queue into the export target.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"nomadfinance/internal/amqp"
	"nomadfinance/internal/log"
	"nomadfinance/internal/sheets"
)

// Consumer delivers record events to a handler until its context ends.
// *amqp.Client satisfies it.
type Consumer interface {
	ConsumeRecordEvents(ctx context.Context, handler func(context.Context, *amqp.RecordEvent) error) error
}

// Stats counts processed events since start.
type Stats struct {
	Exported int64
	Skipped  int64
	Failed   int64
}

// ExportWorker writes one sheet row per record event.
type ExportWorker struct {
	exporter sheets.Exporter
	logger   *log.Logger

	exported atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

func NewExportWorker(exporter sheets.Exporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Export worker started")
	err := consumer.ConsumeRecordEvents(ctx, w.HandleRecordEvent)
	stats := w.Stats()
	w.logger.InfoContext(ctx, "Export worker stopped",
		"exported", stats.Exported,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// HandleRecordEvent exports a single event. Events that cannot be turned into
// a row are skipped (nil error, so the message is acknowledged); export
// failures are returned so the message is requeued.
func (w *ExportWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	row, err := sheets.RowFromEvent(ev)
	if err != nil {
		w.skipped.Add(1)
		w.logger.WarnContext(ctx, "Skipping record event",
			log.FieldCollection, ev.Collection,
			log.FieldRecordID, ev.RecordID,
			log.FieldError, err)
		return nil
	}

	ref, err := w.exporter.AppendRows(ctx, []sheets.Row{row})
	if err != nil {
		w.failed.Add(1)
		log.LogError(ctx, w.logger, "Record export failed", err, log.ComponentWorker, log.OpExport,
			log.NewFields().WithRecord(ev.UserID, ev.Collection, ev.RecordID))
		return fmt.Errorf("export %s %s: %w", ev.Collection, ev.RecordID, err)
	}

	w.exported.Add(1)
	w.logger.InfoContext(ctx, "Exported record event",
		"action", ev.Action,
		log.FieldCollection, ev.Collection,
		log.FieldRecordID, ev.RecordID,
		log.FieldUserID, ev.UserID,
		"ref", ref)
	return nil
}

func (w *ExportWorker) Stats() Stats {
	return Stats{
		Exported: w.exported.Load(),
		Skipped:  w.skipped.Load(),
		Failed:   w.failed.Load(),
	}
}
