package sync

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/flamepipe/frameio-bridge/internal/frameio"
	"github.com/flamepipe/frameio-bridge/internal/hostio"
)

// Result records the outcome for one selected clip. Skipped marks the
// informational no-ops: a clip with no remote match or a label outside the
// mapping table. Err is set only for real failures.
type Result struct {
	Clip    string
	Markers int    // markers written, comment pulls only
	Status  string // resolved host status, status pulls only
	CSVPath string // marker CSV location, comment pulls only
	Skipped bool
	Err     error
}

// Summary is the outcome of one batch over a selection.
type Summary struct {
	Results []Result
	Done    int
	Skipped int
	Failed  int
}

func (s *Summary) add(r Result) {
	switch {
	case r.Err != nil:
		s.Failed++
	case r.Skipped:
		s.Skipped++
	default:
		s.Done++
	}
	s.Results = append(s.Results, r)
}

// clipRate parses the clip's frame rate string. Clips exported without a
// rate fall back to 24, the host's default project rate.
func clipRate(clip hostio.Clip) (float64, error) {
	if strings.TrimSpace(clip.FrameRate) == "" {
		return 24, nil
	}
	return hostio.ParseRate(clip.FrameRate)
}

// clipOffset returns the frame offset comments are shifted by: the in mark
// when the host recorded one, otherwise the clip's start timecode.
func clipOffset(clip hostio.Clip, rate float64) (int64, error) {
	if clip.InMark != 0 {
		return clip.InMark, nil
	}
	if clip.StartTimecode != "" {
		return hostio.ParseTimecode(clip.StartTimecode, rate)
	}
	return 0, nil
}

func markerFileName(clipName string) string {
	return strings.ReplaceAll(clipName, string(filepath.Separator), "_") + "_markers.csv"
}

// skippable classifies the informational outcomes: the clip has no remote
// counterpart, or its label falls outside the mapping table.
func skippable(err error) bool {
	return errors.Is(err, frameio.ErrNotFound) || errors.Is(err, ErrUnmappedStatus)
}

// PullCommentsBatch pulls comments for every clip in the selection and
// writes one marker CSV per clip into outDir. Clips keep their own frame
// rate and in-mark. A failed clip is recorded and the batch continues.
func (s *Syncer) PullCommentsBatch(ctx context.Context, project string, clips []hostio.Clip, outDir string) Summary {
	var sum Summary
	for _, clip := range clips {
		res := Result{Clip: clip.Name}

		rate, err := clipRate(clip)
		if err != nil {
			res.Err = err
			sum.add(res)
			continue
		}
		offset, err := clipOffset(clip, rate)
		if err != nil {
			res.Err = err
			sum.add(res)
			continue
		}

		path := filepath.Join(outDir, markerFileName(clip.Name))
		n, err := s.PullCommentsToFile(ctx, project, clip.Name, rate, offset, path)
		switch {
		case skippable(err):
			s.log.Info().Str("clip", clip.Name).Msg("no remote match, skipping")
			res.Skipped = true
		case err != nil:
			res.Err = err
		default:
			res.Markers = n
			res.CSVPath = path
		}
		sum.add(res)
		if ctx.Err() != nil {
			return sum
		}
	}
	return sum
}

// PushStatusBatch pushes each clip's colour label to its remote asset.
// Clips without a label, without a remote match, or with a label outside
// the table are skipped with a notice.
func (s *Syncer) PushStatusBatch(ctx context.Context, project string, clips []hostio.Clip) Summary {
	var sum Summary
	for _, clip := range clips {
		res := Result{Clip: clip.Name}

		if clip.ColourLabel == "" {
			s.log.Info().Str("clip", clip.Name).Msg("no colour label, skipping")
			res.Skipped = true
			sum.add(res)
			continue
		}

		err := s.PushStatus(ctx, project, clip.Name, clip.ColourLabel)
		switch {
		case skippable(err):
			s.log.Info().Err(err).Str("clip", clip.Name).Msg("skipping")
			res.Skipped = true
		case err != nil:
			res.Err = err
		default:
			res.Status = clip.ColourLabel
		}
		sum.add(res)
		if ctx.Err() != nil {
			return sum
		}
	}
	return sum
}

// PullStatusBatch reads each clip's remote label and resolves it to a host
// status. Unset and unmapped labels are skipped.
func (s *Syncer) PullStatusBatch(ctx context.Context, project string, clips []hostio.Clip) Summary {
	var sum Summary
	for _, clip := range clips {
		res := Result{Clip: clip.Name}

		entry, err := s.PullStatus(ctx, project, clip.Name)
		switch {
		case skippable(err):
			s.log.Info().Err(err).Str("clip", clip.Name).Msg("skipping")
			res.Skipped = true
		case err != nil:
			res.Err = err
		default:
			res.Status = entry.Status
		}
		sum.add(res)
		if ctx.Err() != nil {
			return sum
		}
	}
	return sum
}
