package hostio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Marker is one review comment positioned on the host timeline.
type Marker struct {
	Frame     int64
	Rate      float64
	Comment   string
	Duration  int64 // frames; 0 for a point marker
	Commenter string
}

// markerHeader matches the column layout the host's marker importer
// expects. Order matters.
var markerHeader = []string{"Timecode Source In", "Comment", "Duration", "Commenter"}

// WriteMarkers renders markers as CSV onto w.
func WriteMarkers(w io.Writer, markers []Marker) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(markerHeader); err != nil {
		return fmt.Errorf("hostio: write marker header: %w", err)
	}
	for _, m := range markers {
		row := []string{
			FrameToTimecode(m.Frame, m.Rate),
			m.Comment,
			fmt.Sprintf("%d", m.Duration),
			m.Commenter,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("hostio: write marker row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("hostio: flush markers: %w", err)
	}
	return nil
}

// WriteMarkersFile writes the marker CSV to path, creating parent
// directories as needed.
func WriteMarkersFile(path string, markers []Marker) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("hostio: mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("hostio: create %s: %w", path, err)
	}
	if err := WriteMarkers(f, markers); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
