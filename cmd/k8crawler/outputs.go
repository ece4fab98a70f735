package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/k8crawler/internal/config"
	"github.com/nao1215/k8crawler/internal/database"
	"github.com/nao1215/k8crawler/internal/sink"
)

// outputs are the destinations of a run opened from configuration.
type outputs struct {
	db          *database.CrawlDB
	sink        sink.Sink
	deadLetters sink.DeadLetterQueue
	closers     []func() error
}

// openOutputs opens the database, the NDJSON sink and the dead-letter
// destination configured in cfg.Output. Records go to every configured
// sink. Dead letters go to the dead-letter file when set, otherwise to
// the database.
func openOutputs(cfg *config.Config, runID string, logger *slog.Logger) (_ *outputs, err error) {
	out := &outputs{}
	defer func() {
		if err != nil {
			_ = out.Close()
		}
	}()

	var sinks []sink.Sink
	if cfg.Output.DBDir != "" {
		db, err := database.Open(cfg.Output.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		out.db = db
		out.closers = append(out.closers, db.Close)
		dbSink := sink.NewDatabase(db, runID)
		sinks = append(sinks, dbSink)
		out.deadLetters = dbSink
		logger.Debug("database opened", "path", db.Path())
	}

	if cfg.Output.JSONL != "" {
		j, err := sink.OpenJSONL(cfg.Output.JSONL)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, j.Close)
		sinks = append(sinks, j)
	}

	if cfg.Output.DeadLetter != "" {
		dl, err := sink.OpenDeadLetterFile(cfg.Output.DeadLetter)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, dl.Close)
		out.deadLetters = dl
	}

	if len(sinks) == 1 {
		out.sink = sinks[0]
	} else {
		out.sink = sink.NewMulti(sinks...)
	}
	return out, nil
}

// Close closes everything in reverse opening order.
func (o *outputs) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		errs = append(errs, o.closers[i]())
	}
	o.closers = nil
	return errors.Join(errs...)
}
