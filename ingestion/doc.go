// Package ingestion drives the pipeline that turns the upstream catalog into
// a searchable index.
//
// The Pipeline runs three stages, each idempotent and safe to re-run:
//   - Extract lists candidate entities, fetches them in batches, stores the
//     raw entities and refreshes their date index rows.
//   - Transform walks the raw table in insertion order and turns every entity
//     not yet in the processed ledger into a retrieval document. An entity is
//     marked processed only after its document is saved or it is deliberately
//     skipped, so an interrupted run resumes where it stopped.
//   - Index embeds transformed documents in batches on a worker pool and
//     upserts them into the vector collection.
//
// Run executes all three in order. Every run is tagged with a run id in logs.
package ingestion
