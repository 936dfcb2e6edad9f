package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/attrhub/attrhub-go/pkg/discovery"
)

// BrowseCmd lists nodes advertised with mDNS.
type BrowseCmd struct {
	Timeout   time.Duration `help:"How long to listen." default:"3s"`
	Interface string        `help:"Network interface to browse on."`
}

func (b *BrowseCmd) Run(*CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	found, err := discovery.NewBrowser(discovery.BrowserConfig{Interface: b.Interface}).Browse(ctx)
	if err != nil {
		return err
	}
	var nodes []*discovery.NodeService
	for svc := range found {
		nodes = append(nodes, svc)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tADDRESS\tCLUSTER\tVERSION\tRESOURCES")
	for _, n := range nodes {
		addr := n.Host
		if len(n.Addresses) > 0 {
			addr = n.Addresses[0]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			n.NodeID, net.JoinHostPort(addr, strconv.Itoa(n.Port)), n.ClusterMode, n.Version, strings.Join(n.Resources, ","))
	}
	return tw.Flush()
}
