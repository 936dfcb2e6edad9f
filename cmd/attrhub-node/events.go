package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/attrhub/attrhub-go/pkg/log"
)

// EventsCmd prints an activity trace file written by the node.
type EventsCmd struct {
	File      string        `arg:"" help:"Trace file." type:"existingfile"`
	Resource  string        `help:"Only events of this resource."`
	Attribute string        `help:"Only events of this attribute."`
	Category  string        `help:"Only events of this category (lifecycle, access, sync, error)."`
	Since     time.Duration `help:"Only events newer than this."`
}

func (e *EventsCmd) Run(*CLI) error {
	filter := log.Filter{Resource: e.Resource, Attribute: e.Attribute}
	if e.Category != "" {
		c, err := parseCategory(e.Category)
		if err != nil {
			return err
		}
		filter.Category = &c
	}
	if e.Since > 0 {
		start := time.Now().Add(-e.Since)
		filter.TimeStart = &start
	}

	r, err := log.NewFilteredReader(e.File, filter)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer r.Close()

	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading trace: %w", err)
		}
		formatEvent(os.Stdout, ev)
	}
}

func parseCategory(s string) (log.Category, error) {
	for _, c := range []log.Category{log.CategoryLifecycle, log.CategoryAccess, log.CategorySync, log.CategoryError} {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// formatEvent writes one line per event.
func formatEvent(w io.Writer, ev log.Event) {
	ts := ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	target := ev.Resource
	if ev.Attribute != "" {
		target += "/" + ev.Attribute
	}
	fmt.Fprintf(w, "%s %-9s %s", ts, ev.Category, target)

	switch {
	case ev.Lifecycle != nil:
		fmt.Fprintf(w, " %s", ev.Lifecycle.Stage)
		if ev.Lifecycle.Type != "" {
			fmt.Fprintf(w, " type=%s", ev.Lifecycle.Type)
		}
		if ev.Lifecycle.Reason != "" {
			fmt.Fprintf(w, " reason=%q", ev.Lifecycle.Reason)
		}
	case ev.Access != nil:
		fmt.Fprintf(w, " %s %s", ev.Access.Op, ev.Access.Duration)
		if ev.Access.Failed {
			fmt.Fprint(w, " FAILED")
		}
	case ev.Sync != nil:
		fmt.Fprintf(w, " %s %dB", ev.Sync.Direction, ev.Sync.Size)
	case ev.Error != nil:
		fmt.Fprintf(w, " %s: %s", ev.Error.Op, ev.Error.Message)
	}
	if ev.Node != "" {
		fmt.Fprintf(w, " node=%s", ev.Node)
	}
	fmt.Fprintln(w)
}
