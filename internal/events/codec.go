package events

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers, as declared in pkg/proto/events.proto.
const (
	fieldType       protowire.Number = 1
	fieldUID        protowire.Number = 2
	fieldIP         protowire.Number = 3
	fieldOccurredAt protowire.Number = 4
)

// ErrMissingType is returned when an envelope carries no event type.
var ErrMissingType = errors.New("event envelope has no type")

// Encode serializes an event into its protobuf envelope.
func Encode(ev Event) ([]byte, error) {
	var b []byte
	switch e := ev.(type) {
	case SuspiciousLoginEvent:
		b = appendString(b, fieldType, NameSuspiciousLogin)
		b = appendString(b, fieldUID, e.UID)
		if e.IP != nil {
			b = appendString(b, fieldIP, *e.IP)
		}
	case *SuspiciousLoginEvent:
		if e == nil {
			return nil, fmt.Errorf("cannot encode nil event")
		}
		return Encode(*e)
	case LoginEvent:
		b = appendString(b, fieldType, NameLogin)
		b = appendString(b, fieldUID, e.UID)
		b = appendString(b, fieldIP, e.IP)
		if !e.At.IsZero() {
			b = protowire.AppendTag(b, fieldOccurredAt, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(e.At.Unix()))
		}
	case *LoginEvent:
		if e == nil {
			return nil, fmt.Errorf("cannot encode nil event")
		}
		return Encode(*e)
	default:
		return nil, fmt.Errorf("cannot encode event of type %T", ev)
	}
	return b, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// Decode parses a protobuf envelope. Unknown fields are skipped; unknown
// event types decode to UnknownEvent.
func Decode(b []byte) (Event, error) {
	var (
		typ        string
		uid        string
		ip         *string
		occurredAt int64
	)

	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("failed to read field tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldType && wtyp == protowire.BytesType:
			typ, n = protowire.ConsumeString(b)
		case num == fieldUID && wtyp == protowire.BytesType:
			uid, n = protowire.ConsumeString(b)
		case num == fieldIP && wtyp == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(b)
			ip = &s
		case num == fieldOccurredAt && wtyp == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			occurredAt = int64(v)
		default:
			n = protowire.ConsumeFieldValue(num, wtyp, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("failed to read field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}

	switch typ {
	case "":
		return nil, ErrMissingType
	case NameSuspiciousLogin:
		return SuspiciousLoginEvent{UID: uid, IP: ip}, nil
	case NameLogin:
		ev := LoginEvent{UID: uid}
		if ip != nil {
			ev.IP = *ip
		}
		if occurredAt > 0 {
			ev.At = time.Unix(occurredAt, 0).UTC()
		}
		return ev, nil
	default:
		return UnknownEvent{Name: typ}, nil
	}
}
