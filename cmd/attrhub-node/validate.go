package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/attrhub/attrhub-go/pkg/config"
)

// ValidateCmd checks the configuration file.
type ValidateCmd struct{}

func (v *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	return printSummary(os.Stdout, cfg)
}

func printSummary(w io.Writer, cfg *config.Config) error {
	id := cfg.Node.ID
	if id == "" {
		id = "(random)"
	}
	fmt.Fprintf(w, "node:    %s\n", id)
	fmt.Fprintf(w, "cluster: %s", cfg.Cluster.Mode)
	if cfg.Cluster.Mode == config.ClusterNATS {
		fmt.Fprintf(w, " %s interval=%s lease_ttl=%s", cfg.Cluster.NATSURL, cfg.Cluster.Interval, cfg.Cluster.LeaseTTL)
	}
	fmt.Fprintln(w)

	for _, r := range cfg.Resources {
		visible, hidden, err := r.Descriptors()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nresource %s (%s, lock timeout %s)\n", r.Name, r.Connector, r.LockTimeout)
		ids := make([]string, 0, len(visible)+len(hidden))
		for id := range r.Attributes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			d, ok := visible[id]
			flags := ""
			if !ok {
				d = hidden[id]
				flags += " hidden"
			}
			if d.Distributed() {
				flags += " distributed"
			}
			fmt.Fprintf(w, "  %-20s %-3s %s%s\n", id, d.Access(), d.Type(), flags)
		}
	}
	return nil
}
