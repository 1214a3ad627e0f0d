package hostio

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"project": "JOB_0042",
		"nickname": "job42",
		"kind": "conform",
		"clips": [
			{"name": "sh010_comp_v03", "path": "/exports/sh010_comp_v03.mov",
			 "frame_rate": "23.976 fps", "start_timecode": "01:00:00:00",
			 "in_mark": 86400, "colour_label": "Needs Review"}
		]
	}`), 0o600))

	sel, err := ReadSelection(path)
	require.NoError(t, err)
	assert.Equal(t, "JOB_0042", sel.Project)
	assert.Equal(t, KindConform, sel.Kind)
	require.Len(t, sel.Clips, 1)
	assert.Equal(t, "sh010_comp_v03", sel.Clips[0].Name)
	assert.EqualValues(t, 86400, sel.Clips[0].InMark)
}

func TestReadSelection_Validation(t *testing.T) {
	dir := t.TempDir()

	noProject := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(noProject, []byte(`{"clips":[{"name":"x"}]}`), 0o600))
	_, err := ReadSelection(noProject)
	assert.ErrorContains(t, err, "names no project")

	noClips := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(noClips, []byte(`{"project":"p","clips":[]}`), 0o600))
	_, err = ReadSelection(noClips)
	assert.ErrorContains(t, err, "no clips")

	_, err = ReadSelection(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestReadSelection_UnknownKindDefaultsToShot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sel.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"project":"p","kind":"weird","clips":[{"name":"c","path":"/x"}]}`), 0o600))
	sel, err := ReadSelection(path)
	require.NoError(t, err)
	assert.Equal(t, KindShot, sel.Kind)
}

func TestParseRate(t *testing.T) {
	for in, want := range map[string]float64{
		"23.976 fps": 23.976,
		"25":         25,
		"29.97 DF":   29.97,
		" 24 fps ":   24,
	} {
		got, err := ParseRate(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	for _, in := range []string{"", "fps", "-24", "fast"} {
		_, err := ParseRate(in)
		assert.Error(t, err, in)
	}
}

func TestFrameToTimecode(t *testing.T) {
	assert.Equal(t, "00:00:00:00", FrameToTimecode(0, 24))
	assert.Equal(t, "00:00:01:00", FrameToTimecode(24, 24))
	assert.Equal(t, "00:00:00:23", FrameToTimecode(23, 24))
	assert.Equal(t, "01:00:00:00", FrameToTimecode(86400, 24))
	assert.Equal(t, "00:01:00:05", FrameToTimecode(25*60+5, 25))
	// fractional rates count to the nominal integer rate
	assert.Equal(t, "00:00:01:00", FrameToTimecode(24, 23.976))
	assert.Equal(t, "00:00:00:00", FrameToTimecode(-5, 24))
}

func TestParseTimecode(t *testing.T) {
	got, err := ParseTimecode("01:00:00:00", 24)
	require.NoError(t, err)
	assert.EqualValues(t, 86400, got)

	got, err = ParseTimecode("00:00:01:12", 24)
	require.NoError(t, err)
	assert.EqualValues(t, 36, got)

	for _, in := range []string{"", "1:2:3", "aa:bb:cc:dd", "00:00:00:-1"} {
		_, err := ParseTimecode(in, 24)
		assert.Error(t, err, in)
	}
}

func TestTimecodeRoundTrip(t *testing.T) {
	for _, frame := range []int64{0, 1, 23, 24, 1000, 86400, 123456} {
		tc := FrameToTimecode(frame, 24)
		back, err := ParseTimecode(tc, 24)
		require.NoError(t, err)
		assert.Equal(t, frame, back, tc)
	}
}

func TestSecondsToFrame(t *testing.T) {
	assert.EqualValues(t, 24, SecondsToFrame(1, 24))
	assert.EqualValues(t, 36, SecondsToFrame(1.5, 24))
	assert.EqualValues(t, 48, SecondsToFrame(2.001, 23.976))
}

func TestWriteMarkers(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMarkers(&buf, []Marker{
		{Frame: 86400, Rate: 24, Comment: "fix the, comma", Duration: 0, Commenter: "Ada"},
		{Frame: 86448, Rate: 24, Comment: "hold 2s", Duration: 48, Commenter: "Grace"},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Timecode Source In", "Comment", "Duration", "Commenter"}, rows[0])
	assert.Equal(t, []string{"01:00:00:00", "fix the, comma", "0", "Ada"}, rows[1])
	assert.Equal(t, []string{"01:00:02:00", "hold 2s", "48", "Grace"}, rows[2])
}

func TestWriteMarkersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "markers.csv")
	require.NoError(t, WriteMarkersFile(path, []Marker{
		{Frame: 0, Rate: 25, Comment: "top", Commenter: "Ada"},
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Timecode Source In")
	assert.Contains(t, string(data), "00:00:00:00,top,0,Ada")
}

func TestFileExporter(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "clip.mov")
	require.NoError(t, os.WriteFile(media, []byte("data"), 0o600))

	got, err := FileExporter{}.Export(context.Background(), Clip{Name: "clip", Path: media}, dir)
	require.NoError(t, err)
	assert.Equal(t, media, got)

	_, err = FileExporter{}.Export(context.Background(), Clip{Name: "clip", Path: dir}, dir)
	var exErr *ExportError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "clip", exErr.Clip)

	_, err = FileExporter{}.Export(context.Background(), Clip{Name: "gone", Path: filepath.Join(dir, "nope")}, dir)
	assert.Error(t, err)
}

func TestBatchDir(t *testing.T) {
	jobs := t.TempDir()
	now := time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)
	dir, err := BatchDir(jobs, "JOB_0042", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(jobs, "JOB_0042", "FROM_FLAME", "2026-03-14", "1509"), dir)
	assert.DirExists(t, dir)
}
