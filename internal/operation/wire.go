package operation

import (
	"encoding/json"
	"fmt"
)

// ErrUnknownTag is returned by Decode when a frame's tag matches none of
// the five registered operation variants (§4.5: "unknown tag ... log and
// drop the packet; never crash the dispatcher").
var ErrUnknownTag = fmt.Errorf("operation: unknown tag")

type decoderFunc func(payload []byte) (Operation, error)

var decoders = map[Tag]decoderFunc{
	TagHeartbeat:  decodeHeartbeat,
	TagJoin:       decodeJoin,
	TagLeave:      decodeLeave,
	TagNewMember:  decodeNewMember,
	TagMemberInit: decodeMemberInit,
}

// encode produces a framed buffer: the 4-byte tag, a reserved framing byte
// (always written as zero and skipped by Decode; it counts toward the
// 5-byte HeaderSize, and the transport layer does not read it), followed
// by the JSON-encoded payload (§6, §11.3).
func encode(tag Tag, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	buf := make([]byte, HeaderSize+len(payload))
	copy(buf[0:4], tag)
	buf[4] = 0
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// Decode parses a framed buffer produced by ToBytes/encode back into the
// matching Operation variant.
func Decode(frame []byte) (Operation, error) {
	if len(frame) < HeaderSize {
		return nil, fmt.Errorf("operation: frame shorter than header size %d", HeaderSize)
	}
	tag := Tag(frame[0:4])
	dec, ok := decoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return dec(frame[HeaderSize:])
}
