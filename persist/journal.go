package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// headerSize is the width of a record's length prefix.
const headerSize = 8

// ErrMalformedJournal is returned when journal bytes do not parse as a
// sequence of complete length-prefixed records.
var ErrMalformedJournal = errors.New("malformed journal")

// Frame prefixes payload with its length as a native-endian uint64.
func Frame(payload []byte) []byte {
	rec := make([]byte, headerSize+len(payload))
	binary.NativeEndian.PutUint64(rec, uint64(len(payload)))
	copy(rec[headerSize:], payload)
	return rec
}

// Records splits a journal into its record payloads. Any truncated header
// or payload fails the whole journal.
func Records(journal []byte) ([][]byte, error) {
	var out [][]byte
	for off := 0; off < len(journal); {
		if len(journal)-off < headerSize {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrMalformedJournal, off)
		}
		n := binary.NativeEndian.Uint64(journal[off:])
		off += headerSize
		if n > uint64(len(journal)-off) {
			return nil, fmt.Errorf("%w: record at offset %d claims %d bytes, %d remain",
				ErrMalformedJournal, off-headerSize, n, len(journal)-off)
		}
		out = append(out, journal[off:off+int(n)])
		off += int(n)
	}
	return out, nil
}
