package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/blemux/blemux-go/pkg/tracelog"
)

// RunExport exports the trace file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := tracelog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *tracelog.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *tracelog.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	// Write header
	header := []string{"timestamp", "category", "device", "observer", "detail", "rssi"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		// Determine detail and RSSI columns
		detail := ""
		rssi := ""
		switch {
		case event.Sighting != nil:
			if event.Sighting.Accepted {
				detail = "accepted"
			} else {
				detail = "dropped"
			}
			rssi = strconv.Itoa(event.Sighting.RSSI)
		case event.Switch != nil:
			detail = fmt.Sprintf("%s->%s", event.Switch.From, event.Switch.To)
			rssi = strconv.Itoa(event.Switch.ToRSSI)
		case event.Notify != nil:
			detail = "notify"
			rssi = strconv.Itoa(event.Notify.RSSI)
		case event.Availability != nil:
			if event.Availability.Fired {
				detail = "unavailable"
			} else {
				detail = "armed"
			}
		case event.Slot != nil:
			detail = event.Slot.Op.String()
		case event.Registry != nil:
			detail = event.Registry.Op
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.Category.String(),
			event.Device,
			event.Observer,
			detail,
			rssi,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
