package sink

import (
	"context"

	"github.com/nao1215/k8crawler/internal/database"
	"github.com/nao1215/k8crawler/internal/model"
)

// Database writes records and dead letters to a CrawlDB. It does not own
// the database; Close is a no-op.
type Database struct {
	db    *database.CrawlDB
	runID string
}

// NewDatabase creates a sink that upserts records into db, tagging them
// with runID.
func NewDatabase(db *database.CrawlDB, runID string) *Database {
	return &Database{db: db, runID: runID}
}

// Write upserts rec by fingerprint.
func (d *Database) Write(ctx context.Context, rec *model.CandidateRecord) error {
	return wrap("sqlite", rec, d.db.UpsertRecord(ctx, rec, d.runID))
}

// Ping checks the database connection.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

// DeadLetter stores dl in the dead_letters table.
func (d *Database) DeadLetter(ctx context.Context, dl *model.DeadLetter) error {
	if dl.RunID == "" {
		dl.RunID = d.runID
	}
	return d.db.InsertDeadLetter(ctx, dl)
}

// Close implements Sink.
func (d *Database) Close() error {
	return nil
}
