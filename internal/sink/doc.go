// Package sink writes accepted records to durable storage.
//
// Every Sink is idempotent per fingerprint: writing the same record twice
// leaves one copy. The orchestrator delivers at least once, so this is what
// keeps the output free of duplicates across retries and runs.
//
// Records that cannot be written after a retry go to a DeadLetterQueue
// instead of being dropped.
package sink
