package config

import (
	"net"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/davidbalbert/olsrd/olsr"
)

func TestParseConfig(t *testing.T) {
	s := `
olsr:
  hello-interval: 1
  refresh-interval: 2
  tc-interval: 4
  mid-interval: 5
  hna-interval: 6
  willingness: high
  associations:
    - 192.168.1.0/24
    - 10.0.0.0/8
`

	c, err := ParseConfig(s)
	if err != nil {
		t.Fatal(err)
	}

	expected := &OLSRConfig{
		HelloInterval:   1 * time.Second,
		RefreshInterval: 2 * time.Second,
		TCInterval:      4 * time.Second,
		MIDInterval:     5 * time.Second,
		HNAInterval:     6 * time.Second,
		Willingness:     olsr.WillHigh,
		Associations: []olsr.Association{
			{Address: netip.MustParseAddr("192.168.1.0"), Mask: net.CIDRMask(24, 32)},
			{Address: netip.MustParseAddr("10.0.0.0"), Mask: net.CIDRMask(8, 32)},
		},
	}

	if !reflect.DeepEqual(expected, c.OLSR) {
		t.Fatalf("expected %+v, got %+v", expected, c.OLSR)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	c, err := ParseConfig("olsr: {}\n")
	if err != nil {
		t.Fatal(err)
	}

	expected := &OLSRConfig{
		HelloInterval:   2 * time.Second,
		RefreshInterval: 2 * time.Second,
		TCInterval:      5 * time.Second,
		MIDInterval:     5 * time.Second,
		HNAInterval:     5 * time.Second,
		Willingness:     olsr.WillDefault,
	}

	if !reflect.DeepEqual(expected, c.OLSR) {
		t.Fatalf("expected %+v, got %+v", expected, c.OLSR)
	}
}

func TestHoldTimes(t *testing.T) {
	c, err := ParseConfig("olsr: {}\n")
	if err != nil {
		t.Fatal(err)
	}

	if got := c.OLSR.NeighborHoldTime(); got != 6*time.Second {
		t.Fatalf("expected neighbor hold time 6s, got %s", got)
	}
	if got := c.OLSR.TopologyHoldTime(); got != 15*time.Second {
		t.Fatalf("expected topology hold time 15s, got %s", got)
	}
}

func TestParseConfigErrors(t *testing.T) {
	cases := []string{
		"bogus: {}\n",
		"olsr:\n  bogus: 1\n",
		"olsr:\n  hello-interval: 0\n",
		"olsr:\n  hello-interval: fast\n",
		"olsr:\n  willingness: 9\n",
		"olsr:\n  willingness: sometimes\n",
		"olsr:\n  associations: [not-a-prefix]\n",
		"olsr:\n  associations: [2001:db8::/32]\n",
	}

	for _, s := range cases {
		if _, err := ParseConfig(s); err == nil {
			t.Fatalf("expected error parsing %q", s)
		}
	}
}

func TestValidate(t *testing.T) {
	c, err := ParseConfig("olsr:\n  hello-interval: 5\n  refresh-interval: 2\n")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.validate(); err == nil {
		t.Fatal("expected error when hello-interval exceeds refresh-interval")
	}
}
