package badger

import (
	"encoding/binary"
)

// Key prefixes for the logical tables. Data prefixes end with ':' so that
// sequence keys are never matched by a prefix scan.
const (
	rawEntityPrefix   = "rawent:" // raw_entities by id
	rawPositionPrefix = "rawpos:" // raw_entities insertion order
	rawSeq            = "rawseq"
	docEntityPrefix   = "trfent:" // transformed_entities by id
	docPositionPrefix = "trfpos:" // transformed_entities insertion order
	docSeq            = "trfseq"
	processedPrefix   = "prcid:"  // processed_ids
	dateRowPrefix     = "datidx:" // date_index rows by sequence id
	dateEntityPrefix  = "datent:" // date_index rows by entity
	datePeriodPrefix  = "datper:" // date_index rows by period key
	dateSeq           = "datseq"
	vectorPrefix      = "vecrec:" // vector collections
)

// keySep separates variable-length key parts.
const keySep = 0x00

func makeKey(prefix, id string) []byte {
	return []byte(prefix + id)
}

// makePositionKey generates an insertion order key.
// Written in BigEndian order so lexicographic sort works correctly.
func makePositionKey(prefix string, pos uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], pos)
	return buf
}

func makeRawKey(id string) []byte { return makeKey(rawEntityPrefix, id) }

func makeDocKey(id string) []byte { return makeKey(docEntityPrefix, id) }

func makeProcessedKey(id string) []byte { return makeKey(processedPrefix, id) }

func makeDateRowKey(rowID uint64) []byte {
	return makePositionKey(dateRowPrefix, rowID)
}

// makeDateEntityKey generates a composite key for the per-entity row list.
// Format: prefix + entityID + 0x00 + rowID
func makeDateEntityKey(entityID string, rowID uint64) []byte {
	buf := makePartialDateEntityKey(entityID)
	return binary.BigEndian.AppendUint64(buf, rowID)
}

// makePartialDateEntityKey generates the scan prefix for one entity's rows.
func makePartialDateEntityKey(entityID string) []byte {
	buf := make([]byte, 0, len(dateEntityPrefix)+len(entityID)+9)
	buf = append(buf, dateEntityPrefix...)
	buf = append(buf, entityID...)
	return append(buf, keySep)
}

// makeDatePeriodKey generates a composite key ordered by period.
// Format: prefix + periodKey + 0x00 + rowID
func makeDatePeriodKey(periodKey string, rowID uint64) []byte {
	buf := make([]byte, 0, len(datePeriodPrefix)+len(periodKey)+9)
	buf = append(buf, datePeriodPrefix...)
	buf = append(buf, periodKey...)
	buf = append(buf, keySep)
	return binary.BigEndian.AppendUint64(buf, rowID)
}

// periodFromKey extracts the period key of a makeDatePeriodKey key.
func periodFromKey(key []byte) string {
	rest := key[len(datePeriodPrefix):]
	if len(rest) < 9 {
		return ""
	}
	return string(rest[:len(rest)-9])
}

// rowIDFromKey extracts the trailing BigEndian row id of a composite key.
func rowIDFromKey(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

func makeVectorPrefix(collection string) []byte {
	buf := make([]byte, 0, len(vectorPrefix)+len(collection)+1)
	buf = append(buf, vectorPrefix...)
	buf = append(buf, collection...)
	return append(buf, keySep)
}

func makeVectorKey(collection, id string) []byte {
	return append(makeVectorPrefix(collection), id...)
}
