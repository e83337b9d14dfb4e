package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrReaderRequired is returned when extraction runs without a source reader.
	ErrReaderRequired = errors.New("source reader required")

	// ErrIndexerRequired is returned when indexing runs without an indexer.
	ErrIndexerRequired = errors.New("indexer required")
)
