// Package transform sorts a set of change.Change edits and applies them
// to the original source in a single linear pass, producing the
// rewritten bytes and a compact binary sourcemap. Grounded on the
// original transform.rs single-pass algorithm and on core/atomicwriter.go's
// discipline of never mutating input bytes in place.
package transform

import (
	"encoding/binary"
	"sort"

	"github.com/oxhq/webrascal/internal/change"
)

// RecordType mirrors the wire tag used in the binary sourcemap.
type RecordType uint8

const (
	RecordInsert  RecordType = 0
	RecordReplace RecordType = 1
)

// Record describes one applied edit: where it landed in the output, how
// large the rendered text is, and (for replacements) the original bytes
// it displaced.
type Record struct {
	OutputPos uint32
	Size      uint32
	Type      RecordType
	Original  []byte
}

// Output is the result of a single Transformer.Apply call.
type Output struct {
	Bytes     []byte
	SourceMap []byte
	Records   []Record
}

// Transformer applies an unordered batch of Changes to source bytes.
type Transformer struct{}

// New returns a ready-to-use Transformer. It carries no state between
// calls; every Apply is independent.
func New() *Transformer {
	return &Transformer{}
}

// Apply sorts changes by the §3 total order and applies them to source
// in one linear pass. Changes that would cross the monotone cursor, or
// whose span is out of range, are silently dropped — the Visitor is
// expected to avoid such overlaps, but the Transformer must tolerate
// them rather than corrupt the output.
func (t *Transformer) Apply(source []byte, changes []change.Change) Output {
	sorted := make([]change.Change, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return change.Less(sorted[i], sorted[j])
	})

	out := make([]byte, 0, len(source)+128)
	records := make([]Record, 0, len(sorted))
	cursor := uint32(0)

	for _, c := range sorted {
		start, end := c.Span.Start, c.Span.End
		if start < cursor || end < start || int(end) > len(source) {
			continue
		}

		out = append(out, source[cursor:start]...)

		outputPos := uint32(len(out))
		rendered := []byte(c.Text)

		switch c.Kind {
		case change.KindReplace:
			original := append([]byte(nil), source[start:end]...)
			out = append(out, rendered...)
			records = append(records, Record{
				OutputPos: outputPos,
				Size:      uint32(len(rendered)),
				Type:      RecordReplace,
				Original:  original,
			})
		default:
			out = append(out, rendered...)
			out = append(out, source[start:end]...) // empty for zero-width inserts
			records = append(records, Record{
				OutputPos: outputPos,
				Size:      uint32(len(rendered)),
				Type:      RecordInsert,
			})
		}

		cursor = end
	}

	out = append(out, source[cursor:]...)

	return Output{
		Bytes:     out,
		SourceMap: encodeSourceMap(records),
		Records:   records,
	}
}

// encodeSourceMap renders records into the little-endian binary format
// documented in spec.md §6:
//
//	u32  record_count
//	record_count × { u32 output_pos, u32 size, u8 type_tag, [u32 original_len, bytes...] }
func encodeSourceMap(records []Record) []byte {
	buf := make([]byte, 0, 8+len(records)*16)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(records)))
	for _, r := range records {
		buf = binary.LittleEndian.AppendUint32(buf, r.OutputPos)
		buf = binary.LittleEndian.AppendUint32(buf, r.Size)
		buf = append(buf, byte(r.Type))
		if r.Type == RecordReplace {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(r.Original)))
			buf = append(buf, r.Original...)
		}
	}
	return buf
}
