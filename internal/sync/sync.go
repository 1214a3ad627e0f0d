// Package sync moves review state between Frame.io and the host: comments
// come back as timeline markers, status travels both ways through the
// label/colour table.
package sync

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/flamepipe/frameio-bridge/internal/frameio"
	"github.com/flamepipe/frameio-bridge/internal/hostio"
	"github.com/flamepipe/frameio-bridge/internal/statusmap"
)

// ErrUnmappedStatus marks a status or label outside the mapping table. The
// sync skips the item rather than writing a wrong value.
var ErrUnmappedStatus = errors.New("status not in mapping table")

// Gateway is the slice of the Frame.io client the syncer needs.
type Gateway interface {
	FindProject(ctx context.Context, name string) (frameio.Project, error)
	FindAssetByName(ctx context.Context, projectID, name, assetType string) (frameio.AssetRef, error)
	ListComments(ctx context.Context, assetID string) ([]frameio.Comment, error)
	GetLabel(ctx context.Context, assetID string) (string, error)
	SetLabel(ctx context.Context, assetID, label string) error
}

// Syncer runs comment and status synchronisation for one project.
type Syncer struct {
	gw     Gateway
	status *statusmap.Map
	log    zerolog.Logger
}

func New(gw Gateway, status *statusmap.Map, log zerolog.Logger) *Syncer {
	return &Syncer{gw: gw, status: status, log: log}
}

// findClipAsset resolves the clip's remote asset by exact name within the
// project.
func (s *Syncer) findClipAsset(ctx context.Context, project, clipName string) (frameio.AssetRef, error) {
	proj, err := s.gw.FindProject(ctx, project)
	if err != nil {
		return frameio.AssetRef{}, fmt.Errorf("find project %s: %w", project, err)
	}
	asset, err := s.gw.FindAssetByName(ctx, proj.ID, clipName, frameio.TypeFile)
	if err != nil {
		return frameio.AssetRef{}, err
	}
	return asset, nil
}

// PullComments fetches the review comments on a clip's remote asset and
// converts them to host timeline markers. Comment frames are relative to
// the asset; inMark shifts them onto the sequence. Replies become their own
// markers on the parent's frame.
func (s *Syncer) PullComments(ctx context.Context, project, clipName string, rate float64, inMark int64) ([]hostio.Marker, error) {
	asset, err := s.findClipAsset(ctx, project, clipName)
	if err != nil {
		return nil, err
	}

	comments, err := s.gw.ListComments(ctx, asset.ID)
	if err != nil {
		return nil, err
	}

	var markers []hostio.Marker
	for _, c := range comments {
		markers = append(markers, toMarker(c, rate, inMark))
		for _, reply := range c.Replies {
			m := toMarker(reply, rate, inMark)
			m.Frame = inMark + int64(math.Round(c.Frame))
			m.Comment = "re: " + m.Comment
			markers = append(markers, m)
		}
	}
	s.log.Info().Str("clip", clipName).Int("markers", len(markers)).Msg("pulled comments")
	return markers, nil
}

func toMarker(c frameio.Comment, rate float64, inMark int64) hostio.Marker {
	return hostio.Marker{
		Frame:     inMark + int64(math.Round(c.Frame)),
		Rate:      rate,
		Comment:   c.Text,
		Duration:  hostio.SecondsToFrame(c.Duration, rate),
		Commenter: c.Owner.Name,
	}
}

// PullCommentsToFile writes the clip's comments as a marker CSV at path.
func (s *Syncer) PullCommentsToFile(ctx context.Context, project, clipName string, rate float64, inMark int64, path string) (int, error) {
	markers, err := s.PullComments(ctx, project, clipName, rate, inMark)
	if err != nil {
		return 0, err
	}
	if err := hostio.WriteMarkersFile(path, markers); err != nil {
		return 0, err
	}
	return len(markers), nil
}

// PushStatus writes a host colour status onto the clip's remote asset as a
// label. Statuses outside the table return ErrUnmappedStatus untouched.
func (s *Syncer) PushStatus(ctx context.Context, project, clipName, status string) error {
	entry, ok := s.status.LabelFor(status)
	if !ok {
		return fmt.Errorf("status %q: %w", status, ErrUnmappedStatus)
	}
	asset, err := s.findClipAsset(ctx, project, clipName)
	if err != nil {
		return err
	}
	if err := s.gw.SetLabel(ctx, asset.ID, entry.Label); err != nil {
		return err
	}
	s.log.Info().Str("clip", clipName).Str("label", entry.Label).Msg("pushed status")
	return nil
}

// PullStatus reads the clip's remote label and returns the matching host
// status entry. A label outside the table returns ErrUnmappedStatus; an
// unset label returns it too, wrapped with a distinct message.
func (s *Syncer) PullStatus(ctx context.Context, project, clipName string) (statusmap.Entry, error) {
	asset, err := s.findClipAsset(ctx, project, clipName)
	if err != nil {
		return statusmap.Entry{}, err
	}
	label, err := s.gw.GetLabel(ctx, asset.ID)
	if err != nil {
		return statusmap.Entry{}, err
	}
	if label == "" || label == "none" {
		return statusmap.Entry{}, fmt.Errorf("clip %s has no status label: %w", clipName, ErrUnmappedStatus)
	}
	entry, ok := s.status.StatusFor(label)
	if !ok {
		return statusmap.Entry{}, fmt.Errorf("label %q: %w", label, ErrUnmappedStatus)
	}
	return entry, nil
}
