package olsr

import (
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"reflect"
	"testing"
	"time"
)

func TestPacketRoundTrip(t *testing.T) {
	msg1 := NewMIDMessage(
		&MID{Addresses: []netip.Addr{netip.MustParseAddr("1.2.3.4"), netip.MustParseAddr("1.2.3.5")}},
		netip.MustParseAddr("11.22.33.44"), 9*time.Second, 255, 7,
	)
	msg2 := NewMIDMessage(
		&MID{Addresses: []netip.Addr{netip.MustParseAddr("2.2.3.4"), netip.MustParseAddr("2.2.3.5")}},
		netip.MustParseAddr("12.22.33.44"), 10*time.Second, 254, 7,
	)

	in := &Packet{
		SequenceNumber: 123,
		Messages:       []*Message{msg1, msg2},
	}

	data := in.Encode()

	if len(data) != in.SerializedSize() {
		t.Fatalf("encoded %d bytes, SerializedSize says %d", len(data), in.SerializedSize())
	}

	wantLen := packetHeaderSize + msg1.SerializedSize() + msg2.SerializedSize()
	if got := int(binary.BigEndian.Uint16(data[0:2])); got != wantLen {
		t.Fatalf("packet declares %d bytes, want %d", got, wantLen)
	}

	out, err := DecodePacket(data)
	if err != nil {
		t.Fatal(err)
	}

	if out.SequenceNumber != 123 {
		t.Fatalf("expected packet sequence number 123, got %d", out.SequenceNumber)
	}

	if !reflect.DeepEqual(in, out) {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestPacketRoundTripAllTypes(t *testing.T) {
	origin := netip.MustParseAddr("10.0.0.1")

	in := &Packet{
		SequenceNumber: 42,
		Messages: []*Message{
			NewHelloMessage(&Hello{
				HelloInterval: 2 * time.Second,
				Willingness:   WillAlways,
				LinkMessages: []LinkMessage{
					{Code: NewLinkCode(LinkSymmetric, NeighborSymmetric), Neighbors: []netip.Addr{netip.MustParseAddr("10.0.0.2")}},
				},
			}, origin, 6*time.Second, 1, 1),
			NewTCMessage(&TC{
				ANSN:      7,
				Neighbors: []netip.Addr{netip.MustParseAddr("10.0.0.2"), netip.MustParseAddr("10.0.0.3")},
			}, origin, 15*time.Second, 255, 2),
			NewMIDMessage(&MID{
				Addresses: []netip.Addr{netip.MustParseAddr("172.16.0.1")},
			}, origin, 15*time.Second, 255, 3),
			NewHNAMessage(&HNA{
				Associations: []Association{
					{Address: netip.MustParseAddr("192.168.1.0"), Mask: net.CIDRMask(24, 32)},
				},
			}, origin, 15*time.Second, 255, 4),
		},
	}

	out, err := DecodePacket(in.Encode())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(in, out) {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestDecodePacketTruncatedHeader(t *testing.T) {
	_, err := DecodePacket([]byte{0, 12})
	if !errors.Is(err, ErrBufferTooShort) {
		t.Fatalf("expected ErrBufferTooShort, got %v", err)
	}
}

func TestDecodePacketLengthMismatch(t *testing.T) {
	p := &Packet{
		SequenceNumber: 1,
		Messages: []*Message{
			NewMIDMessage(&MID{Addresses: []netip.Addr{netip.MustParseAddr("1.2.3.4")}}, netip.MustParseAddr("10.0.0.1"), 6*time.Second, 255, 1),
		},
	}

	data := p.Encode()

	_, err := DecodePacket(data[:len(data)-1])
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}

	_, err = DecodePacket(append(data, 0))
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestDecodePacketMessageOverrun(t *testing.T) {
	p := &Packet{
		SequenceNumber: 1,
		Messages: []*Message{
			NewMIDMessage(&MID{Addresses: []netip.Addr{netip.MustParseAddr("1.2.3.4")}}, netip.MustParseAddr("10.0.0.1"), 6*time.Second, 255, 1),
		},
	}

	data := p.Encode()

	// message size field is at packet header(4) + 2; declare more bytes
	// than the packet has left
	binary.BigEndian.PutUint16(data[6:8], uint16(len(data)))

	_, err := DecodePacket(data)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestDecodePacketKeepsUnknownMessages(t *testing.T) {
	known := NewTCMessage(
		&TC{ANSN: 1, Neighbors: []netip.Addr{netip.MustParseAddr("10.0.0.2")}},
		netip.MustParseAddr("10.0.0.1"), 15*time.Second, 255, 2,
	)
	kb := known.Encode()

	unknown := []byte{
		42, 0x27, 0, 16,
		10, 0, 0, 1,
		3, 0, 0, 5,
		0xde, 0xad, 0xbe, 0xef,
	}

	var data []byte
	data = binary.BigEndian.AppendUint16(data, uint16(packetHeaderSize+len(unknown)+len(kb)))
	data = binary.BigEndian.AppendUint16(data, 99)
	data = append(data, unknown...)
	data = append(data, kb...)

	p, err := DecodePacket(data)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(p.Messages))
	}
	if p.Messages[0].Type != 42 || p.Messages[0].Body != nil {
		t.Fatalf("expected unknown message with nil body, got %+v", p.Messages[0])
	}
	if !reflect.DeepEqual(known, p.Messages[1]) {
		t.Fatalf("expected %+v, got %+v", known, p.Messages[1])
	}
}
