// Package hostio is the boundary with the Autodesk Flame host. Flame hands
// work to the bridge through a JSON selection manifest and takes review
// comments back as a marker CSV it can import onto a sequence.
package hostio

import (
	"encoding/json"
	"fmt"
	"os"
)

// Clip is one selected item in the host.
type Clip struct {
	// Name is the clip name as shown in the host, used as the remote
	// asset name (before any version suffix handling).
	Name string `json:"name"`

	// Path points at the exported media file when the host already
	// exported it, or at the source the exporter should render from.
	Path string `json:"path"`

	FrameRate     string `json:"frame_rate"`     // e.g. "23.976 fps"
	StartTimecode string `json:"start_timecode"` // e.g. "01:00:00:00"
	InMark        int64  `json:"in_mark"`        // frames from sequence start
	ColourLabel   string `json:"colour_label"`
}

// Selection is the manifest the host writes when the user triggers the
// bridge on a set of clips.
type Selection struct {
	Project  string `json:"project"`
	Nickname string `json:"nickname"`
	Kind     string `json:"kind"` // "shot" or "conform"
	Clips    []Clip `json:"clips"`
}

// Selection kinds.
const (
	KindShot    = "shot"
	KindConform = "conform"
)

// ReadSelection parses a selection manifest from path.
func ReadSelection(path string) (Selection, error) {
	var sel Selection
	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("hostio: read selection %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("hostio: parse selection %s: %w", path, err)
	}
	if sel.Project == "" {
		return sel, fmt.Errorf("hostio: selection %s names no project", path)
	}
	if len(sel.Clips) == 0 {
		return sel, fmt.Errorf("hostio: selection %s contains no clips", path)
	}
	if sel.Kind != KindConform {
		sel.Kind = KindShot
	}
	return sel, nil
}
