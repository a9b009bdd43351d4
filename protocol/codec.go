package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes and decodes wire messages, prefixing every encoded payload
// with its one-byte Kind discriminant.
type Codec interface {
	Encode(msg any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// ErrUnknownKind is returned when a frame's discriminant byte doesn't match
// any known message Kind.
type ErrUnknownKind struct {
	Kind Kind
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("protocol: unknown message kind %d", e.Kind)
}

func kindOf(msg any) (Kind, error) {
	switch msg.(type) {
	case ModifyCell, *ModifyCell:
		return KindModifyCell, nil
	case SetView, *SetView:
		return KindSetView, nil
	case StartStream, *StartStream:
		return KindStartStream, nil
	case FullRefresh, *FullRefresh:
		return KindFullRefresh, nil
	case PartialRefresh, *PartialRefresh:
		return KindPartialRefresh, nil
	default:
		return 0, fmt.Errorf("protocol: unencodable message type %T", msg)
	}
}

func newByKind(k Kind) (any, error) {
	switch k {
	case KindModifyCell:
		return &ModifyCell{}, nil
	case KindSetView:
		return &SetView{}, nil
	case KindStartStream:
		return &StartStream{}, nil
	case KindFullRefresh:
		return &FullRefresh{}, nil
	case KindPartialRefresh:
		return &PartialRefresh{}, nil
	default:
		return nil, &ErrUnknownKind{Kind: k}
	}
}

// msgpackCodec is the authoritative wire codec: a one-byte Kind discriminant
// followed by the msgpack encoding of the message body.
type msgpackCodec struct{}

// NewMsgpackCodec returns the authoritative binary codec.
func NewMsgpackCodec() Codec {
	return msgpackCodec{}
}

func (msgpackCodec) Encode(msg any) ([]byte, error) {
	k, err := kindOf(msg)
	if err != nil {
		return nil, err
	}
	body, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: msgpack encode: %w", err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(k))
	out = append(out, body...)
	return out, nil
}

func (msgpackCodec) Decode(data []byte) (any, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("protocol: empty frame")
	}
	k := Kind(data[0])
	msg, err := newByKind(k)
	if err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal(data[1:], msg); err != nil {
		return nil, fmt.Errorf("protocol: msgpack decode kind %d: %w", k, err)
	}
	return msg, nil
}

// jsonCodec is the debug fallback, selected per-connection via config or a
// ?codec=json query parameter on /ws. Frames use the same one-byte
// discriminant prefix, followed by a JSON object, so both codecs share a
// framing discipline and differ only in payload encoding.
type jsonCodec struct{}

// NewJSONCodec returns the human-readable debug codec.
func NewJSONCodec() Codec {
	return jsonCodec{}
}

func (jsonCodec) Encode(msg any) ([]byte, error) {
	k, err := kindOf(msg)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: json encode: %w", err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(k))
	out = append(out, body...)
	return out, nil
}

func (jsonCodec) Decode(data []byte) (any, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("protocol: empty frame")
	}
	k := Kind(data[0])
	msg, err := newByKind(k)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data[1:], msg); err != nil {
		return nil, fmt.Errorf("protocol: json decode kind %d: %w", k, err)
	}
	return msg, nil
}

// ForName resolves a codec by config name ("msgpack" or "json"), defaulting
// to the authoritative binary codec for anything else.
func ForName(name string) Codec {
	if name == "json" {
		return NewJSONCodec()
	}
	return NewMsgpackCodec()
}
