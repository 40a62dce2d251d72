package main

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/davidbalbert/olsrd/config"
	"github.com/davidbalbert/olsrd/olsr"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"
)

const olsrPort = 698

// node periodically emits control messages for a single interface and
// prints whatever it hears back. It tracks no neighbor or topology state;
// that lives above the codec.
type node struct {
	conf  *config.OLSRConfig
	main  netip.Addr
	addrs []netip.Addr
	conn  *ipv4.PacketConn
	dst   *net.UDPAddr

	packetSeq  uint16
	messageSeq uint16
	ansn       uint16
}

func newNode(conf *config.OLSRConfig, addrs []netip.Addr) (*node, error) {
	lc, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", olsrPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", olsrPort, err)
	}

	return &node{
		conf:  conf,
		main:  addrs[0],
		addrs: addrs,
		conn:  ipv4.NewPacketConn(lc),
		dst:   &net.UDPAddr{IP: net.IPv4bcast, Port: olsrPort},
	}, nil
}

func (n *node) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return n.conn.Close()
	})

	g.Go(func() error {
		return n.receive(ctx)
	})

	g.Go(func() error {
		hello := time.NewTicker(n.conf.HelloInterval)
		tc := time.NewTicker(n.conf.TCInterval)
		mid := time.NewTicker(n.conf.MIDInterval)
		hna := time.NewTicker(n.conf.HNAInterval)
		defer hello.Stop()
		defer tc.Stop()
		defer mid.Stop()
		defer hna.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hello.C:
				n.send(n.buildHello())
			case <-tc.C:
				n.send(n.buildTC())
			case <-mid.C:
				if len(n.addrs) > 1 {
					n.send(n.buildMID())
				}
			case <-hna.C:
				if len(n.conf.Associations) > 0 {
					n.send(n.buildHNA())
				}
			}
		}
	})

	return g.Wait()
}

func (n *node) nextMessageSeq() uint16 {
	n.messageSeq++
	return n.messageSeq
}

func (n *node) buildHello() *olsr.Message {
	// No neighbor state is tracked yet, so the hello carries no link
	// messages; neighbors still learn our existence and willingness.
	hello := &olsr.Hello{
		HelloInterval: n.conf.HelloInterval,
		Willingness:   n.conf.Willingness,
	}

	return olsr.NewHelloMessage(hello, n.main, n.conf.NeighborHoldTime(), 1, n.nextMessageSeq())
}

func (n *node) buildTC() *olsr.Message {
	tc := &olsr.TC{ANSN: n.ansn}

	return olsr.NewTCMessage(tc, n.main, n.conf.TopologyHoldTime(), 255, n.nextMessageSeq())
}

func (n *node) buildMID() *olsr.Message {
	mid := &olsr.MID{Addresses: n.addrs[1:]}

	return olsr.NewMIDMessage(mid, n.main, n.conf.MIDHoldTime(), 255, n.nextMessageSeq())
}

func (n *node) buildHNA() *olsr.Message {
	hna := &olsr.HNA{Associations: n.conf.Associations}

	return olsr.NewHNAMessage(hna, n.main, n.conf.HNAHoldTime(), 255, n.nextMessageSeq())
}

func (n *node) send(m *olsr.Message) {
	n.packetSeq++

	p := &olsr.Packet{
		SequenceNumber: n.packetSeq,
		Messages:       []*olsr.Message{m},
	}

	if _, err := n.conn.WriteTo(p.Encode(), nil, n.dst); err != nil {
		fmt.Printf("error sending %s: %v\n", m.Type, err)
	}
}

func (n *node) receive(ctx context.Context) error {
	buf := make([]byte, 1500)

	for {
		nr, _, src, err := n.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("error reading: %w", err)
		}

		p, err := olsr.DecodePacket(buf[:nr])
		if err != nil {
			fmt.Printf("error decoding packet from %s: %v\n", src, err)
			continue
		}

		for _, m := range p.Messages {
			if m.Body == nil {
				// unknown message type, skipped by the codec
				continue
			}

			if m.Originator == n.main {
				continue
			}

			fmt.Printf("%s from %s\n", m, src)
		}
	}
}
