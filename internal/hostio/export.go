package hostio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ExportError reports a failed media export for one clip.
type ExportError struct {
	Clip string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Clip, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Exporter produces an encoded media file for a clip inside destDir and
// returns its path.
type Exporter interface {
	Export(ctx context.Context, clip Clip, destDir string) (string, error)
}

// FileExporter handles selections the host already exported: the clip path
// must point at an existing media file, which is used as-is.
type FileExporter struct{}

func (FileExporter) Export(_ context.Context, clip Clip, _ string) (string, error) {
	info, err := os.Stat(clip.Path)
	if err != nil {
		return "", &ExportError{Clip: clip.Name, Err: err}
	}
	if info.IsDir() {
		return "", &ExportError{Clip: clip.Name, Err: fmt.Errorf("%s is a directory", clip.Path)}
	}
	return clip.Path, nil
}

// CommandExporter shells out to an external encoder. The command receives
// the source path, preset path and output path as arguments and must write
// the encoded file to the output path.
type CommandExporter struct {
	Command string
	Preset  string
	Log     zerolog.Logger
}

func (e CommandExporter) Export(ctx context.Context, clip Clip, destDir string) (string, error) {
	if e.Command == "" {
		return "", &ExportError{Clip: clip.Name, Err: fmt.Errorf("no export command configured")}
	}
	out := filepath.Join(destDir, safeName(clip.Name)+".mov")

	cmd := exec.CommandContext(ctx, e.Command, clip.Path, e.Preset, out)
	e.Log.Debug().Str("clip", clip.Name).Str("cmd", e.Command).Str("out", out).Msg("exporting")
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", &ExportError{
			Clip: clip.Name,
			Err:  fmt.Errorf("%s: %w: %s", e.Command, err, strings.TrimSpace(string(output))),
		}
	}
	if _, err := os.Stat(out); err != nil {
		return "", &ExportError{Clip: clip.Name, Err: fmt.Errorf("encoder produced no output: %w", err)}
	}
	return out, nil
}

// safeName strips path separators from a clip name before it becomes a
// file name.
func safeName(name string) string {
	r := strings.NewReplacer("/", "_", string(filepath.Separator), "_")
	return r.Replace(name)
}

// BatchDir builds the dated export directory for one run:
//
//	<jobsFolder>/<project>/FROM_FLAME/<YYYY-MM-DD>/<HHMM>
//
// and creates it on disk.
func BatchDir(jobsFolder, project string, now time.Time) (string, error) {
	dir := filepath.Join(jobsFolder, project, "FROM_FLAME",
		now.Format("2006-01-02"), now.Format("1504"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("hostio: create batch dir: %w", err)
	}
	return dir, nil
}
