// Package commands implements the blemux-trace CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blemux/blemux-go/pkg/tracelog"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Category *tracelog.Category
	Device   string
	Observer string
}

func (f *ViewFilter) matches(event tracelog.Event) bool {
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Device != "" && event.Device != f.Device {
		return false
	}
	if f.Observer != "" && event.Observer != f.Observer {
		return false
	}
	return true
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event tracelog.Event) {
	// Header line: timestamp CATEGORY [device] [observer]
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s %-12s", ts, event.Category.String())
	if event.Device != "" {
		fmt.Fprintf(w, " device=%s", event.Device)
	}
	if event.Observer != "" {
		fmt.Fprintf(w, " observer=%s", event.Observer)
	}
	fmt.Fprintln(w)

	// Type-specific details
	switch {
	case event.Sighting != nil:
		formatSightingDetails(w, event.Sighting)
	case event.Switch != nil:
		formatSwitchDetails(w, event.Switch)
	case event.Notify != nil:
		formatNotifyDetails(w, event.Notify)
	case event.Availability != nil:
		formatAvailabilityDetails(w, event.Availability)
	case event.Slot != nil:
		formatSlotDetails(w, event.Slot)
	case event.Registry != nil:
		formatRegistryDetails(w, event.Registry)
	}

	fmt.Fprintln(w) // Blank line between events
}

func formatSightingDetails(w io.Writer, s *tracelog.SightingEvent) {
	status := "accepted"
	if !s.Accepted {
		status = "dropped"
	}
	fmt.Fprintf(w, "  RSSI: %d dBm (%s)\n", s.RSSI, status)
	if s.Connectable {
		fmt.Fprintln(w, "  Connectable: yes")
	}
	if s.Fingerprint != "" {
		fmt.Fprintf(w, "  Fingerprint: %s\n", s.Fingerprint)
	}
}

func formatSwitchDetails(w io.Writer, s *tracelog.SwitchEvent) {
	from := s.From
	if from == "" {
		from = "(none)"
	}
	to := s.To
	if to == "" {
		to = "(none)"
	}
	fmt.Fprintf(w, "  %s -> %s\n", from, to)
	if s.From != "" && s.To != "" {
		fmt.Fprintf(w, "  RSSI: %d -> %d dBm\n", s.FromRSSI, s.ToRSSI)
	}
	if s.Mode != "" {
		fmt.Fprintf(w, "  Mode: %s\n", s.Mode)
	}
}

func formatNotifyDetails(w io.Writer, n *tracelog.NotifyEvent) {
	fmt.Fprintf(w, "  RSSI: %d dBm\n", n.RSSI)
	if n.Connectable {
		fmt.Fprintln(w, "  Connectable: yes")
	}
}

func formatAvailabilityDetails(w io.Writer, a *tracelog.AvailabilityEvent) {
	if a.Fired {
		fmt.Fprintln(w, "  Unavailable")
		return
	}
	if a.Timeout > 0 {
		fmt.Fprintf(w, "  Timeout: %s\n", formatDuration(a.Timeout))
	}
}

func formatSlotDetails(w io.Writer, s *tracelog.SlotEvent) {
	fmt.Fprintf(w, "  Op: %s\n", s.Op.String())
	if s.Token != "" {
		fmt.Fprintf(w, "  Token: %s\n", s.Token)
	}
	if s.Op == tracelog.SlotGranted || s.Op == tracelog.SlotReleased {
		fmt.Fprintf(w, "  Free: %d\n", s.Free)
	}
	if s.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", s.Reason)
	}
}

func formatRegistryDetails(w io.Writer, r *tracelog.RegistryEvent) {
	fmt.Fprintf(w, "  Op: %s\n", r.Op)
	if r.Kind != "" {
		fmt.Fprintf(w, "  Kind: %s\n", r.Kind)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (tracelog.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (tracelog.Category, error) {
	switch strings.ToLower(s) {
	case "sighting":
		return tracelog.CategorySighting, nil
	case "arbitration":
		return tracelog.CategoryArbitration, nil
	case "notify":
		return tracelog.CategoryNotify, nil
	case "availability":
		return tracelog.CategoryAvailability, nil
	case "slots":
		return tracelog.CategorySlots, nil
	case "registry":
		return tracelog.CategoryRegistry, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be sighting, arbitration, notify, availability, slots, or registry)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := tracelog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if !filter.matches(event) {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
