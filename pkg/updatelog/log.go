package updatelog

import (
	"encoding/json"
	"hash/crc32"
	"sync"

	"github.com/korpling/graphannis-go/internal/keycodec"
	"github.com/korpling/graphannis-go/internal/kvstore"
	"github.com/korpling/graphannis-go/pkg/gerr"
)

// record is the on-disk envelope for one Event, directly modeled on the
// teacher's WALEntry{Sequence, Timestamp, Operation, Data, Checksum}:
// the event itself plays the role of Operation+Data, JSON-encoded, with
// a CRC32 checksum guarding against partial writes.
type record struct {
	Sequence uint64          `json:"seq"`
	Event    json.RawMessage `json:"event"`
	Checksum uint32          `json:"checksum"`
}

// Log is an append-only, sequence-ordered stream of update events,
// persisted through internal/kvstore so both an in-memory and a
// BadgerDB-backed instance share one implementation, per spec.md
// section 4.5.
type Log struct {
	mu   sync.Mutex
	kv   kvstore.Store
	next uint64
}

const prefixEvent byte = 'E'

// Memory creates a purely in-memory update log.
func Memory() *Log {
	return &Log{kv: kvstore.NewMemory(0)}
}

// Open creates a BadgerDB-backed update log rooted at dir, restoring its
// sequence counter from whatever was already persisted there.
func Open(dir string) (*Log, error) {
	kv, err := kvstore.OpenBadger(kvstore.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, err
	}
	l := &Log{kv: kv}
	if err := l.kv.Range([]byte{prefixEvent}, keycodec.PrefixUpperBound([]byte{prefixEvent}), func(k, _ []byte) (bool, error) {
		seq := keycodec.DecodeUint64(k[1:])
		if seq+1 > l.next {
			l.next = seq + 1
		}
		return true, nil
	}); err != nil {
		_ = kv.Close()
		return nil, err
	}
	return l, nil
}

// Append encodes event and appends it under the next sequence number,
// returning the id it was assigned.
func (l *Log) Append(event Event) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}
	seq := l.next
	rec := record{Sequence: seq, Event: payload, Checksum: crc32.ChecksumIEEE(payload)}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	if err := l.kv.Insert(eventKey(seq), encoded); err != nil {
		return 0, err
	}
	l.next++
	return seq, nil
}

func eventKey(seq uint64) []byte {
	return keycodec.Concat([]byte{prefixEvent}, keycodec.EncodeUint64(seq))
}

// Entry pairs a persisted event with the sequence id it was appended
// under.
type Entry struct {
	ID    uint64
	Event Event
}

// Iter returns every event in sequence order. An I/O error or a
// checksum mismatch aborts the scan and is returned directly; a
// corrupted entry is never silently skipped.
func (l *Log) Iter() ([]Entry, error) {
	var out []Entry
	err := l.kv.Range([]byte{prefixEvent}, keycodec.PrefixUpperBound([]byte{prefixEvent}), func(k, v []byte) (bool, error) {
		var rec record
		if err := json.Unmarshal(v, &rec); err != nil {
			return false, err
		}
		if crc32.ChecksumIEEE(rec.Event) != rec.Checksum {
			return false, gerr.ErrChecksumMismatch
		}
		var event Event
		if err := json.Unmarshal(rec.Event, &event); err != nil {
			return false, err
		}
		out = append(out, Entry{ID: rec.Sequence, Event: event})
		return true, nil
	})
	return out, err
}

// Close releases the underlying kvstore.
func (l *Log) Close() error {
	return l.kv.Close()
}
