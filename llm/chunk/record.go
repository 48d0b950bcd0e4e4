package chunk

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Separator terminates every encoded record. JSON encoding escapes U+001E,
// so the separator never occurs inside an encoded record.
const Separator = "\x1e\n"

// Record is the normalized result of one transport chunk.
type Record struct {
	// Data is the token text decoded from the chunk. May be empty.
	Data string `json:"data"`
	// Finished is true when the upstream signaled completion in the chunk.
	Finished bool `json:"finished"`
}

// Encode returns the record's JSON encoding followed by Separator.
func (r Record) Encode() []byte {
	// Marshalling a struct of a string and a bool cannot fail.
	b, _ := json.Marshal(r)
	return append(b, Separator...)
}

// Decoder splits a stream of encoded records. Bytes after the last
// separator are kept until the next Feed.
type Decoder struct {
	buf []byte
}

// Feed appends p and returns every record completed by it, in order.
// A record that fails to decode is reported after the records before it;
// the decoder skips it and stays usable.
func (d *Decoder) Feed(p []byte) ([]Record, error) {
	d.buf = append(d.buf, p...)

	var records []Record
	sep := []byte(Separator)
	for {
		idx := bytes.Index(d.buf, sep)
		if idx < 0 {
			return records, nil
		}
		raw := d.buf[:idx]
		d.buf = d.buf[idx+len(sep):]

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return records, fmt.Errorf("chunk: decode record: %w", err)
		}
		records = append(records, rec)
	}
}

// Buffered reports how many bytes are waiting for a separator.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
