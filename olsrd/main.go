package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/signal"

	"github.com/davidbalbert/olsrd/config"
	"go4.org/netipx"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

var (
	version    string
	configPath string
	ifaceName  string
)

func main() {
	fmt.Printf("Starting olsrd %s with uid %d\n", version, os.Getuid())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	flag.StringVar(&configPath, "config", "/etc/olsrd/olsrd.yaml", "path to olsrd.yaml")
	flag.StringVar(&ifaceName, "interface", "", "interface to run on")

	flag.Parse()

	if ifaceName == "" {
		fmt.Println("error: -interface is required")
		os.Exit(1)
	}

	conf, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	if conf.OLSR == nil {
		fmt.Println("error: no olsr section in config")
		os.Exit(1)
	}

	netif, err := net.InterfaceByName(ifaceName)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	addrs, err := netifAddrsV4(netif)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	if len(addrs) == 0 {
		fmt.Printf("error: interface %s has no IPv4 addresses\n", ifaceName)
		os.Exit(1)
	}

	node, err := newNode(conf.OLSR, addrs)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return node.run(ctx)
	})

	err = g.Wait()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

// netifAddrsV4 returns the interface's IPv4 addresses, lowest first. The
// lowest address becomes the node's main address, the rest go out in MID
// messages.
func netifAddrsV4(netif *net.Interface) ([]netip.Addr, error) {
	addrs, err := netif.Addrs()
	if err != nil {
		return nil, fmt.Errorf("failed to get addresses for interface %s: %w", netif.Name, err)
	}

	var out []netip.Addr
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		prefix, ok := netipx.FromStdIPNet(ipnet)
		if !ok || !prefix.Addr().Is4() {
			continue
		}

		out = append(out, prefix.Addr())
	}

	slices.SortFunc(out, func(a, b netip.Addr) bool {
		return a.Less(b)
	})

	return out, nil
}
