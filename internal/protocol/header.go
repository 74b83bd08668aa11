// Package protocol implements the on-wire framing used by the comms core:
// a fixed 14-byte packed header followed by payload_size bytes of payload.
// Both ends are assumed little-endian; this is a compatibility requirement
// with the host tool, not something negotiated on connect.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind tags the variant of a message carried in a Header.
type Kind uint8

const (
	// KindTXAsync is a fire-and-forget send; the caller never waits.
	KindTXAsync Kind = 0
	// KindTX is a send-and-wait; the caller wakes once bytes left the process.
	KindTX Kind = 1
	// KindTXRX is a request/response; the caller wakes on a matching reply.
	KindTXRX Kind = 2
	// KindStop is an internal sentinel used only to unblock the transmitter's
	// queue wait. It must never reach the wire.
	KindStop Kind = 255
)

func (k Kind) String() string {
	switch k {
	case KindTXAsync:
		return "TX_ASYNC"
	case KindTX:
		return "TX"
	case KindTXRX:
		return "TX_RX"
	case KindStop:
		return "STOP"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// RegistryEndpoint is the reserved endpoint address of the host's registry
// service, queried once to resolve service names to endpoint ids.
const RegistryEndpoint uint8 = 0

// NoEndpoint is returned to callers when a service name is not present in
// the registry. It collides on the wire with RegistryEndpoint, but the two
// uses never conflict because the registry never names itself.
const NoEndpoint uint8 = 0

// HeaderSize is the fixed packed size of a Header on the wire.
const HeaderSize = 14

// Header is the fixed 14-byte frame header: kind(1) + endpoint(1) + id(8) +
// payload_size(4), little-endian, no padding.
type Header struct {
	Kind        Kind
	Endpoint    uint8
	ID          uint64
	PayloadSize uint32
}

// ErrStopOnWire is returned by Encode if asked to serialise the internal
// STOP sentinel, which must never be written to the socket.
var ErrStopOnWire = errors.New("protocol: STOP sentinel must not be sent on the wire")

// Encode packs h into a HeaderSize-byte buffer.
func Encode(h Header) ([HeaderSize]byte, error) {
	var buf [HeaderSize]byte
	if h.Kind == KindStop {
		return buf, ErrStopOnWire
	}
	buf[0] = byte(h.Kind)
	buf[1] = h.Endpoint
	binary.LittleEndian.PutUint64(buf[2:10], h.ID)
	binary.LittleEndian.PutUint32(buf[10:14], h.PayloadSize)
	return buf, nil
}

// Decode unpacks a HeaderSize-byte buffer into a Header.
func Decode(buf [HeaderSize]byte) Header {
	return Header{
		Kind:        Kind(buf[0]),
		Endpoint:    buf[1],
		ID:          binary.LittleEndian.Uint64(buf[2:10]),
		PayloadSize: binary.LittleEndian.Uint32(buf[10:14]),
	}
}

// ReadRegistryRecords decodes a stream of {u8 id, u32 len_le, len bytes of
// name} records from buf, invoking onRecord for each complete record. If
// the buffer is truncated mid-record, parsing stops cleanly at the last
// complete record, leaving the registry partially populated.
func ReadRegistryRecords(buf []byte, onRecord func(name string, id uint8)) {
	for len(buf) > 0 {
		if len(buf) < 5 {
			return
		}
		id := buf[0]
		size := binary.LittleEndian.Uint32(buf[1:5])
		if uint32(len(buf)-5) < size {
			return
		}
		name := string(buf[5 : 5+size])
		onRecord(name, id)
		buf = buf[5+size:]
	}
}

// WriteRegistryRecord appends one {u8 id, u32 len_le, name} record to buf.
func WriteRegistryRecord(buf []byte, name string, id uint8) []byte {
	var szBuf [4]byte
	binary.LittleEndian.PutUint32(szBuf[:], uint32(len(name)))
	buf = append(buf, id)
	buf = append(buf, szBuf[:]...)
	buf = append(buf, name...)
	return buf
}
