package olsr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"
)

var (
	// ErrBufferTooShort is returned when a decode needs more bytes than the
	// buffer has left.
	ErrBufferTooShort = errors.New("buffer too short")

	// ErrSizeMismatch is returned when a declared size field doesn't
	// reconcile with the bytes actually available.
	ErrSizeMismatch = errors.New("size mismatch")
)

type MessageType uint8

const (
	TypeHello MessageType = iota + 1
	TypeTC
	TypeMID
	TypeHNA
)

func (t MessageType) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeTC:
		return "TC"
	case TypeMID:
		return "MID"
	case TypeHNA:
		return "HNA"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Willingness is a node's willingness to carry traffic for other nodes.
// It's carried through the codec unvalidated; values outside the named
// constants are preserved as-is.
type Willingness uint8

const (
	WillNever   Willingness = 0
	WillLow     Willingness = 1
	WillDefault Willingness = 3
	WillHigh    Willingness = 6
	WillAlways  Willingness = 7
)

func (w Willingness) String() string {
	switch w {
	case WillNever:
		return "never"
	case WillLow:
		return "low"
	case WillDefault:
		return "default"
	case WillHigh:
		return "high"
	case WillAlways:
		return "always"
	default:
		return fmt.Sprintf("willingness(%d)", uint8(w))
	}
}

type LinkType uint8

const (
	LinkUnspecified LinkType = iota
	LinkAsymmetric
	LinkSymmetric
	LinkLost
)

type NeighborType uint8

const (
	NeighborNot NeighborType = iota
	NeighborSymmetric
	NeighborMPR
)

// LinkCode packs a link type and a neighbor type into one byte. Like
// Willingness, it's carried through the codec unvalidated.
type LinkCode uint8

func NewLinkCode(lt LinkType, nt NeighborType) LinkCode {
	return LinkCode(uint8(nt)<<2 | uint8(lt)&0x03)
}

func (c LinkCode) LinkType() LinkType {
	return LinkType(c & 0x03)
}

func (c LinkCode) NeighborType() NeighborType {
	return NeighborType(c >> 2)
}

// Body is one of the four message payload variants. A message's body is
// fixed when the message is constructed; messages decoded with an
// unrecognized type tag have a nil Body.
type Body interface {
	messageType() MessageType
	serializedSize() int
	encodeTo(data []byte)
}

const messageHeaderSize = 12

// Message is the envelope shared by all message types. VTime is how long
// receivers should consider the message's information valid; it crosses the
// wire in mantissa/exponent form, so it can come back from a round trip up
// to one quantization step larger. Every other field round-trips exactly.
type Message struct {
	Type           MessageType
	VTime          time.Duration
	Originator     netip.Addr
	TimeToLive     uint8
	HopCount       uint8
	SequenceNumber uint16
	Body           Body
}

func newMessage(body Body, originator netip.Addr, vtime time.Duration, ttl uint8, seq uint16) *Message {
	return &Message{
		Type:           body.messageType(),
		VTime:          vtime,
		Originator:     originator,
		TimeToLive:     ttl,
		HopCount:       0,
		SequenceNumber: seq,
		Body:           body,
	}
}

func NewHelloMessage(hello *Hello, originator netip.Addr, vtime time.Duration, ttl uint8, seq uint16) *Message {
	return newMessage(hello, originator, vtime, ttl, seq)
}

func NewTCMessage(tc *TC, originator netip.Addr, vtime time.Duration, ttl uint8, seq uint16) *Message {
	return newMessage(tc, originator, vtime, ttl, seq)
}

func NewMIDMessage(mid *MID, originator netip.Addr, vtime time.Duration, ttl uint8, seq uint16) *Message {
	return newMessage(mid, originator, vtime, ttl, seq)
}

func NewHNAMessage(hna *HNA, originator netip.Addr, vtime time.Duration, ttl uint8, seq uint16) *Message {
	return newMessage(hna, originator, vtime, ttl, seq)
}

func (m *Message) SerializedSize() int {
	if m.Body == nil {
		return messageHeaderSize
	}

	return messageHeaderSize + m.Body.serializedSize()
}

func (m *Message) encodeTo(data []byte) {
	data[0] = uint8(m.Type)
	data[1] = DurationToEmf(m.VTime)
	binary.BigEndian.PutUint16(data[2:4], uint16(m.SerializedSize()))
	copy(data[4:8], to4(m.Originator))
	data[8] = m.TimeToLive
	data[9] = m.HopCount
	binary.BigEndian.PutUint16(data[10:12], m.SequenceNumber)

	if m.Body != nil {
		m.Body.encodeTo(data[messageHeaderSize:])
	}
}

// Encode serializes the message into a freshly allocated buffer. The size
// field is computed from the body, never supplied by the caller.
func (m *Message) Encode() []byte {
	data := make([]byte, m.SerializedSize())
	m.encodeTo(data)

	return data
}

func (m *Message) String() string {
	return fmt.Sprintf("%s originator=%s ttl=%d hops=%d seq=%d vtime=%s", m.Type, m.Originator, m.TimeToLive, m.HopCount, m.SequenceNumber, m.VTime)
}

// DecodeMessage decodes one message from the front of data and returns it
// along with the number of bytes consumed. A message with an unrecognized
// type tag isn't an error: its body is skipped using the declared size, the
// returned message has a nil Body, and the consumed count still covers the
// whole message, so the caller stays aligned on the next one. A body that
// can't be decoded also consumes the whole declared size, letting callers
// resynchronize past it if they want to.
func DecodeMessage(data []byte) (*Message, int, error) {
	if len(data) < messageHeaderSize {
		return nil, 0, fmt.Errorf("%w: message header needs %d bytes, have %d", ErrBufferTooShort, messageHeaderSize, len(data))
	}

	size := int(binary.BigEndian.Uint16(data[2:4]))
	if size < messageHeaderSize {
		return nil, 0, fmt.Errorf("%w: message declares %d bytes, the header alone is %d", ErrSizeMismatch, size, messageHeaderSize)
	}
	if size > len(data) {
		return nil, 0, fmt.Errorf("%w: message declares %d bytes, have %d", ErrSizeMismatch, size, len(data))
	}

	m := &Message{
		Type:           MessageType(data[0]),
		VTime:          EmfToDuration(data[1]),
		Originator:     mustAddrFromSlice(data[4:8]),
		TimeToLive:     data[8],
		HopCount:       data[9],
		SequenceNumber: binary.BigEndian.Uint16(data[10:12]),
	}

	body := data[messageHeaderSize:size]

	var err error
	switch m.Type {
	case TypeHello:
		m.Body, err = decodeHello(body)
	case TypeTC:
		m.Body, err = decodeTC(body)
	case TypeMID:
		m.Body, err = decodeMID(body)
	case TypeHNA:
		m.Body, err = decodeHNA(body)
	default:
		// skip unknown message types; the declared size keeps the
		// stream aligned
	}
	if err != nil {
		return nil, size, err
	}

	return m, size, nil
}

// Hello announces a node's local link state and willingness to its one-hop
// neighborhood.
type Hello struct {
	HelloInterval time.Duration
	Willingness   Willingness
	LinkMessages  []LinkMessage
}

// LinkMessage groups neighbor interface addresses under one link code.
type LinkMessage struct {
	Code      LinkCode
	Neighbors []netip.Addr
}

const linkMessageHeaderSize = 4

func (lm *LinkMessage) serializedSize() int {
	return linkMessageHeaderSize + 4*len(lm.Neighbors)
}

func (h *Hello) messageType() MessageType {
	return TypeHello
}

func (h *Hello) serializedSize() int {
	n := 4
	for i := range h.LinkMessages {
		n += h.LinkMessages[i].serializedSize()
	}

	return n
}

func (h *Hello) encodeTo(data []byte) {
	binary.BigEndian.PutUint16(data[0:2], 0) // reserved
	data[2] = DurationToEmf(h.HelloInterval)
	data[3] = uint8(h.Willingness)

	off := 4
	for i := range h.LinkMessages {
		lm := &h.LinkMessages[i]

		data[off] = uint8(lm.Code)
		data[off+1] = 0 // reserved
		binary.BigEndian.PutUint16(data[off+2:off+4], uint16(lm.serializedSize()))
		off += linkMessageHeaderSize

		for _, addr := range lm.Neighbors {
			copy(data[off:off+4], to4(addr))
			off += 4
		}
	}
}

func decodeHello(data []byte) (*Hello, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: hello body needs at least 4 bytes, have %d", ErrSizeMismatch, len(data))
	}

	h := &Hello{
		HelloInterval: EmfToDuration(data[2]),
		Willingness:   Willingness(data[3]),
	}

	off := 4
	for off < len(data) {
		if len(data)-off < linkMessageHeaderSize {
			return nil, fmt.Errorf("%w: link message header needs %d bytes, have %d", ErrSizeMismatch, linkMessageHeaderSize, len(data)-off)
		}

		size := int(binary.BigEndian.Uint16(data[off+2 : off+4]))
		if size < linkMessageHeaderSize || size > len(data)-off {
			return nil, fmt.Errorf("%w: link message declares %d bytes, have %d", ErrSizeMismatch, size, len(data)-off)
		}
		if (size-linkMessageHeaderSize)%4 != 0 {
			return nil, fmt.Errorf("%w: link message declares %d bytes, not a whole number of addresses", ErrSizeMismatch, size)
		}

		lm := LinkMessage{Code: LinkCode(data[off])}

		for i := off + linkMessageHeaderSize; i < off+size; i += 4 {
			lm.Neighbors = append(lm.Neighbors, mustAddrFromSlice(data[i:i+4]))
		}

		h.LinkMessages = append(h.LinkMessages, lm)
		off += size
	}

	return h, nil
}

// TC advertises a node's selected neighbors to the whole network. ANSN
// increments whenever the advertised set changes, so receivers can discard
// stale advertisements.
type TC struct {
	ANSN      uint16
	Neighbors []netip.Addr
}

func (tc *TC) messageType() MessageType {
	return TypeTC
}

func (tc *TC) serializedSize() int {
	return 4 + 4*len(tc.Neighbors)
}

func (tc *TC) encodeTo(data []byte) {
	binary.BigEndian.PutUint16(data[0:2], tc.ANSN)
	binary.BigEndian.PutUint16(data[2:4], 0) // reserved

	for i, addr := range tc.Neighbors {
		copy(data[4+i*4:8+i*4], to4(addr))
	}
}

func decodeTC(data []byte) (*TC, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: tc body needs at least 4 bytes, have %d", ErrSizeMismatch, len(data))
	}
	if (len(data)-4)%4 != 0 {
		return nil, fmt.Errorf("%w: tc body has %d trailing bytes, not a whole number of addresses", ErrSizeMismatch, len(data)-4)
	}

	tc := &TC{ANSN: binary.BigEndian.Uint16(data[0:2])}

	for i := 4; i < len(data); i += 4 {
		tc.Neighbors = append(tc.Neighbors, mustAddrFromSlice(data[i:i+4]))
	}

	return tc, nil
}

// MID declares a node's additional interface addresses so receivers can map
// them back to its main address.
type MID struct {
	Addresses []netip.Addr
}

func (mid *MID) messageType() MessageType {
	return TypeMID
}

func (mid *MID) serializedSize() int {
	return 4 * len(mid.Addresses)
}

func (mid *MID) encodeTo(data []byte) {
	for i, addr := range mid.Addresses {
		copy(data[i*4:i*4+4], to4(addr))
	}
}

func decodeMID(data []byte) (*MID, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: mid body has %d bytes, not a whole number of addresses", ErrSizeMismatch, len(data))
	}

	mid := &MID{}

	for i := 0; i < len(data); i += 4 {
		mid.Addresses = append(mid.Addresses, mustAddrFromSlice(data[i:i+4]))
	}

	return mid, nil
}

// Association is an external network reachable through the announcing node.
type Association struct {
	Address netip.Addr
	Mask    net.IPMask
}

func AssociationFromPrefix(p netip.Prefix) Association {
	return Association{
		Address: p.Masked().Addr(),
		Mask:    net.CIDRMask(p.Bits(), 32),
	}
}

// Prefix converts the association back to a netip.Prefix. It reports false
// for non-contiguous masks and non-IPv4 addresses, which the wire format
// permits but netip can't represent.
func (a Association) Prefix() (netip.Prefix, bool) {
	if !a.Address.Is4() {
		return netip.Prefix{}, false
	}

	ones, bits := a.Mask.Size()
	if bits != 32 {
		return netip.Prefix{}, false
	}

	return netip.PrefixFrom(a.Address, ones), true
}

// HNA announces external networks reachable through the originator.
type HNA struct {
	Associations []Association
}

func (hna *HNA) messageType() MessageType {
	return TypeHNA
}

func (hna *HNA) serializedSize() int {
	return 8 * len(hna.Associations)
}

func (hna *HNA) encodeTo(data []byte) {
	for i := range hna.Associations {
		a := &hna.Associations[i]
		copy(data[i*8:i*8+4], to4(a.Address))
		copy(data[i*8+4:i*8+8], a.Mask)
	}
}

func decodeHNA(data []byte) (*HNA, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: hna body has %d bytes, not a whole number of associations", ErrSizeMismatch, len(data))
	}

	hna := &HNA{}

	for i := 0; i < len(data); i += 8 {
		hna.Associations = append(hna.Associations, Association{
			Address: mustAddrFromSlice(data[i : i+4]),
			Mask:    net.IPMask(data[i+4 : i+8]),
		})
	}

	return hna, nil
}
