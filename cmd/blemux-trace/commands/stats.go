package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/blemux/blemux-go/pkg/tracelog"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[tracelog.Category]int
	Devices          map[string]*DeviceStats
	DroppedSightings int
	SlotDenials      int
	Unavailable      int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// DeviceStats holds statistics for a single device.
type DeviceStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Switches  int
	Notifies  int
	Observers map[string]bool
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := tracelog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[tracelog.Category]int),
		Devices:          make(map[string]*DeviceStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track device stats
		if event.Device != "" {
			dev, ok := stats.Devices[event.Device]
			if !ok {
				dev = &DeviceStats{
					FirstSeen: event.Timestamp,
					LastSeen:  event.Timestamp,
					Observers: make(map[string]bool),
				}
				stats.Devices[event.Device] = dev
			}
			dev.Events++
			if event.Timestamp.After(dev.LastSeen) {
				dev.LastSeen = event.Timestamp
			}
			if event.Observer != "" {
				dev.Observers[event.Observer] = true
			}
			if event.Switch != nil {
				dev.Switches++
			}
			if event.Notify != nil {
				dev.Notifies++
			}
		}

		if event.Sighting != nil && !event.Sighting.Accepted {
			stats.DroppedSightings++
		}
		if event.Slot != nil && event.Slot.Op == tracelog.SlotDenied {
			stats.SlotDenials++
		}
		if event.Availability != nil && event.Availability.Fired {
			stats.Unavailable++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== blemux Trace Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []tracelog.Category{
		tracelog.CategorySighting,
		tracelog.CategoryArbitration,
		tracelog.CategoryNotify,
		tracelog.CategoryAvailability,
		tracelog.CategorySlots,
		tracelog.CategoryRegistry,
	} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Devices
	fmt.Fprintf(w, "Devices: %d\n", len(stats.Devices))
	if len(stats.Devices) > 0 {
		// Sort by first seen time
		type devInfo struct {
			id    string
			stats *DeviceStats
		}
		devs := make([]devInfo, 0, len(stats.Devices))
		for id, ds := range stats.Devices {
			devs = append(devs, devInfo{id, ds})
		}
		sort.Slice(devs, func(i, j int) bool {
			return devs[i].stats.FirstSeen.Before(devs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, d := range devs {
			duration := d.stats.LastSeen.Sub(d.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", d.id, d.stats.Events, duration)
			fmt.Fprintf(w, "           Observers: %d, switches: %d, notifies: %d\n",
				len(d.stats.Observers), d.stats.Switches, d.stats.Notifies)
		}
	}

	// Anomalies
	if stats.DroppedSightings > 0 || stats.SlotDenials > 0 || stats.Unavailable > 0 {
		fmt.Fprintln(w)
		if stats.DroppedSightings > 0 {
			fmt.Fprintf(w, "Dropped Sightings: %d\n", stats.DroppedSightings)
		}
		if stats.SlotDenials > 0 {
			fmt.Fprintf(w, "Slot Denials: %d\n", stats.SlotDenials)
		}
		if stats.Unavailable > 0 {
			fmt.Fprintf(w, "Unavailability Events: %d\n", stats.Unavailable)
		}
	}
}
