package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/storage"
)

// DateIndex implements storage.DateIndex for BadgerDB.
//
// Each row is stored once under its sequence id and referenced from two
// secondary indices: one per entity, used to replace an entity's rows, and one
// ordered by period key, used for range scans.
type DateIndex struct {
	backend *Backend
	rowSeq  *badger.Sequence
}

var _ storage.DateIndex = (*DateIndex)(nil)

// NewDateIndex creates a new DateIndex.
func NewDateIndex(backend *Backend) (*DateIndex, error) {
	rowSeq, err := backend.GetSequence(dateSeq)
	if err != nil {
		return nil, err
	}
	return &DateIndex{backend: backend, rowSeq: rowSeq}, nil
}

// Close releases the row id sequence.
func (d *DateIndex) Close() error {
	return d.rowSeq.Release()
}

// IndexDates replaces the rows of entityID with summary.Dates x summary.Ranges.
func (d *DateIndex) IndexDates(ctx context.Context, entityID, code string, summary core.Summary) error {
	if entityID == "" {
		return core.ErrEmptyID
	}
	return d.backend.WithTx(func(tx *badger.Txn) error {
		if err := d.deleteRows(tx, entityID); err != nil {
			return err
		}

		for _, period := range summary.Dates {
			for _, rangeID := range summary.Ranges {
				rowID, err := nextID(d.rowSeq)
				if err != nil {
					return err
				}
				value, err := storage.MarshalDateRow(&core.DateIndexRow{
					ID:          rowID,
					EntityID:    entityID,
					PeriodKey:   period,
					RangeID:     rangeID,
					DisplayCode: code,
				})
				if err != nil {
					return err
				}
				if err := tx.Set(makeDateRowKey(rowID), value); err != nil {
					return err
				}
				if err := tx.Set(makeDateEntityKey(entityID, rowID), nil); err != nil {
					return err
				}
				if err := tx.Set(makeDatePeriodKey(period, rowID), []byte(entityID)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
}

func (d *DateIndex) deleteRows(tx *badger.Txn, entityID string) error {
	for _, key := range keysWithPrefix(tx, makePartialDateEntityKey(entityID)) {
		rowID := rowIDFromKey(key)
		rowKey := makeDateRowKey(rowID)

		value, err := getValue(tx, rowKey)
		if err == nil {
			row, err := storage.UnmarshalDateRow(value)
			if err != nil {
				return err
			}
			if err := tx.Delete(makeDatePeriodKey(row.PeriodKey, rowID)); err != nil {
				return err
			}
		}
		if err := tx.Delete(rowKey); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// IDsInDateRange returns the distinct entity ids with a row whose period key
// lies in [start, end], in period order.
func (d *DateIndex) IDsInDateRange(ctx context.Context, start, end string) ([]string, error) {
	ids := []string{}
	if start > end {
		return ids, nil
	}
	err := d.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(datePeriodPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seen := make(map[string]struct{})
		for iter.Seek([]byte(datePeriodPrefix + start)); iter.Valid(); iter.Next() {
			item := iter.Item()
			if periodFromKey(item.Key()) > end {
				break
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id := string(value)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DateRowCount returns the number of rows held for entityID.
func (d *DateIndex) DateRowCount(ctx context.Context, entityID string) (int, error) {
	return d.backend.countPrefix(makePartialDateEntityKey(entityID))
}

// Rows returns the rows of entityID in insertion order.
func (d *DateIndex) Rows(ctx context.Context, entityID string) ([]*core.DateIndexRow, error) {
	var rows []*core.DateIndexRow
	err := d.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keysWithPrefix(tx, makePartialDateEntityKey(entityID)) {
			value, err := getValue(tx, makeDateRowKey(rowIDFromKey(key)))
			if err != nil {
				return err
			}
			row, err := storage.UnmarshalDateRow(value)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
