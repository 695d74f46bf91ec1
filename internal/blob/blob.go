// Package blob decodes the tag/length/value blob columns of the newer contact
// store. The wire format is protobuf's, so decoding is done with protowire and
// no schema: every top-level field is kept as raw bytes keyed by its tag byte
// (field number << 3 | wire type), e.g. 0x0a, 0x12, 0x1a.
package blob

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Tag is an encoded field key: field number << 3 | wire type.
type Tag uint64

// Sections maps each tag present in a blob to its raw payload. For
// length-delimited fields the payload excludes the length prefix.
type Sections map[Tag][]byte

// Decode splits b into its top-level sections. A nil blob yields nil
// sections and no error. Repeated tags keep the last occurrence.
func Decode(b []byte) (Sections, error) {
	if b == nil {
		return nil, nil
	}
	sections := make(Sections)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		var payload []byte
		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(m))
			}
			payload, n = v, m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			payload = b[:n]
		}
		sections[Tag(protowire.EncodeTag(num, typ))] = payload
		b = b[n:]
	}
	return sections, nil
}

// String returns the payload at tag as text. The second result is false
// when the tag is absent.
func String(s Sections, tag Tag) (string, bool) {
	v, ok := s[tag]
	if !ok {
		return "", false
	}
	return string(v), true
}
