package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// Entry records one executed action and its outcome. The journal is an
// operational audit trail, not engine state: the core never reads it back
// to make decisions.
type Entry struct {
	Time     time.Time
	Pipeline string
	Type     string // create | stop
	Market   string
	Side     string
	Price    string
	Amount   string
	OrderID  string
	Err      string // empty on success
}

// Journal is an append-only pebble-backed log of executed actions.
type Journal struct {
	db *pebble.DB

	mu  sync.Mutex
	seq uint64
}

// keys: a:<8-byte-seq>
func kEntry(seq uint64) []byte {
	k := make([]byte, 2+8)
	copy(k, "a:")
	binary.BigEndian.PutUint64(k[2:], seq)
	return k
}

func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db}

	// Resume the sequence from the last written entry.
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: kEntry(0),
		UpperBound: []byte("a;"), // ':' + 1, past every entry key
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	if iter.Last() {
		j.seq = binary.BigEndian.Uint64(iter.Key()[2:]) + 1
	}
	if err := iter.Close(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Append writes one entry synchronously.
func (j *Journal) Append(e Entry) error {
	val, err := encodeGob(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	j.mu.Lock()
	seq := j.seq
	j.seq++
	j.mu.Unlock()
	return j.db.Set(kEntry(seq), val, pebble.Sync)
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) ([]Entry, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: kEntry(0),
		UpperBound: []byte("a;"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	for ok := iter.Last(); ok && len(out) < n; ok = iter.Prev() {
		var e Entry
		if err := decodeGob(iter.Value(), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, iter.Error()
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
