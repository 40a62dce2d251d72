package olsr

import (
	"encoding/binary"
	"fmt"
)

// PacketHeader frames a run of messages. Length covers the whole packet,
// header included.
type PacketHeader struct {
	Length         uint16
	SequenceNumber uint16
}

const packetHeaderSize = 4

func (h *PacketHeader) SerializedSize() int {
	return packetHeaderSize
}

func (h *PacketHeader) encodeTo(data []byte) {
	binary.BigEndian.PutUint16(data[0:2], h.Length)
	binary.BigEndian.PutUint16(data[2:4], h.SequenceNumber)
}

func decodePacketHeader(data []byte) (*PacketHeader, error) {
	if len(data) < packetHeaderSize {
		return nil, fmt.Errorf("%w: packet header needs %d bytes, have %d", ErrBufferTooShort, packetHeaderSize, len(data))
	}

	return &PacketHeader{
		Length:         binary.BigEndian.Uint16(data[0:2]),
		SequenceNumber: binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

// Packet is an ordered run of messages behind one packet header. Decode
// order equals encode order.
type Packet struct {
	SequenceNumber uint16
	Messages       []*Message
}

func (p *Packet) SerializedSize() int {
	n := packetHeaderSize
	for _, m := range p.Messages {
		n += m.SerializedSize()
	}

	return n
}

// Encode serializes the packet header and every message, in order. The
// header's length field is computed from the messages, never supplied by
// the caller.
func (p *Packet) Encode() []byte {
	data := make([]byte, p.SerializedSize())

	h := PacketHeader{
		Length:         uint16(len(data)),
		SequenceNumber: p.SequenceNumber,
	}
	h.encodeTo(data)

	off := packetHeaderSize
	for _, m := range p.Messages {
		m.encodeTo(data[off:])
		off += m.SerializedSize()
	}

	return data
}

// DecodePacket decodes a whole packet. The declared packet length must
// account for every byte of data; messages are decoded in order until the
// length is consumed exactly. Messages with unrecognized type tags are
// kept, in order, with nil bodies.
func DecodePacket(data []byte) (*Packet, error) {
	h, err := decodePacketHeader(data)
	if err != nil {
		return nil, err
	}

	if int(h.Length) != len(data) {
		return nil, fmt.Errorf("%w: packet declares %d bytes, have %d", ErrSizeMismatch, h.Length, len(data))
	}

	p := &Packet{SequenceNumber: h.SequenceNumber}

	off := packetHeaderSize
	for off < len(data) {
		m, n, err := DecodeMessage(data[off:])
		if err != nil {
			return nil, err
		}

		p.Messages = append(p.Messages, m)
		off += n
	}

	return p, nil
}
