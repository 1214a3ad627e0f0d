package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flamepipe/frameio-bridge/internal/frameio"
	"github.com/flamepipe/frameio-bridge/internal/statusmap"
)

type fakeGateway struct {
	project  frameio.Project
	assets   map[string]frameio.AssetRef // by name
	comments map[string][]frameio.Comment
	labels   map[string]string

	setLabels map[string]string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		project:   frameio.Project{ID: "proj-1", Name: "job42", RootAssetID: "root-1"},
		assets:    map[string]frameio.AssetRef{},
		comments:  map[string][]frameio.Comment{},
		labels:    map[string]string{},
		setLabels: map[string]string{},
	}
}

func (g *fakeGateway) addAsset(name string) frameio.AssetRef {
	ref := frameio.AssetRef{ID: "asset-" + name, Name: name, Type: frameio.TypeFile}
	g.assets[name] = ref
	return ref
}

func (g *fakeGateway) FindProject(_ context.Context, name string) (frameio.Project, error) {
	if name != g.project.Name {
		return frameio.Project{}, frameio.ErrNotFound
	}
	return g.project, nil
}

func (g *fakeGateway) FindAssetByName(_ context.Context, _, name, _ string) (frameio.AssetRef, error) {
	if ref, ok := g.assets[name]; ok {
		return ref, nil
	}
	return frameio.AssetRef{}, frameio.ErrNotFound
}

func (g *fakeGateway) ListComments(_ context.Context, assetID string) ([]frameio.Comment, error) {
	return g.comments[assetID], nil
}

func (g *fakeGateway) GetLabel(_ context.Context, assetID string) (string, error) {
	return g.labels[assetID], nil
}

func (g *fakeGateway) SetLabel(_ context.Context, assetID, label string) error {
	g.setLabels[assetID] = label
	return nil
}

func newTestSyncer(gw *fakeGateway) *Syncer {
	return New(gw, statusmap.Default(), zerolog.Nop())
}

func TestPullComments(t *testing.T) {
	gw := newFakeGateway()
	asset := gw.addAsset("sh010_comp_v02.mov")
	gw.comments[asset.ID] = []frameio.Comment{
		{Text: "trim the head", Frame: 12, Duration: 0, Owner: frameio.Commenter{Name: "Ada"}},
		{
			Text: "grade feels hot", Frame: 48, Duration: 2,
			Owner: frameio.Commenter{Name: "Grace"},
			Replies: []frameio.Comment{
				{Text: "agreed", Frame: 0, Owner: frameio.Commenter{Name: "Ada"}},
			},
		},
	}

	markers, err := newTestSyncer(gw).PullComments(context.Background(), "job42", "sh010_comp_v02.mov", 24, 86400)
	require.NoError(t, err)
	require.Len(t, markers, 3)

	assert.EqualValues(t, 86412, markers[0].Frame, "comment frame shifted by in mark")
	assert.Equal(t, "trim the head", markers[0].Comment)
	assert.EqualValues(t, 0, markers[0].Duration)
	assert.Equal(t, "Ada", markers[0].Commenter)

	assert.EqualValues(t, 86448, markers[1].Frame)
	assert.EqualValues(t, 48, markers[1].Duration, "2s at 24fps")

	assert.EqualValues(t, 86448, markers[2].Frame, "reply sits on its parent's frame")
	assert.Equal(t, "re: agreed", markers[2].Comment)
}

func TestPullComments_UnknownClip(t *testing.T) {
	gw := newFakeGateway()
	_, err := newTestSyncer(gw).PullComments(context.Background(), "job42", "ghost.mov", 24, 0)
	assert.ErrorIs(t, err, frameio.ErrNotFound)
}

func TestPullComments_UnknownProject(t *testing.T) {
	gw := newFakeGateway()
	gw.addAsset("clip.mov")
	_, err := newTestSyncer(gw).PullComments(context.Background(), "nope", "clip.mov", 24, 0)
	assert.ErrorIs(t, err, frameio.ErrNotFound)
}

func TestPullCommentsToFile(t *testing.T) {
	gw := newFakeGateway()
	asset := gw.addAsset("clip.mov")
	gw.comments[asset.ID] = []frameio.Comment{
		{Text: "note", Frame: 0, Owner: frameio.Commenter{Name: "Ada"}},
	}

	path := filepath.Join(t.TempDir(), "markers.csv")
	n, err := newTestSyncer(gw).PullCommentsToFile(context.Background(), "job42", "clip.mov", 25, 0, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "00:00:00:00,note,0,Ada")
}

func TestPushStatus(t *testing.T) {
	gw := newFakeGateway()
	asset := gw.addAsset("clip.mov")

	err := newTestSyncer(gw).PushStatus(context.Background(), "job42", "clip.mov", "Needs Review")
	require.NoError(t, err)
	assert.Equal(t, "needs_review", gw.setLabels[asset.ID])
}

func TestPushStatus_Unmapped(t *testing.T) {
	gw := newFakeGateway()
	gw.addAsset("clip.mov")

	err := newTestSyncer(gw).PushStatus(context.Background(), "job42", "clip.mov", "Purple Haze")
	assert.ErrorIs(t, err, ErrUnmappedStatus)
	assert.Empty(t, gw.setLabels, "unmapped status must not write")
}

func TestPullStatus(t *testing.T) {
	gw := newFakeGateway()
	asset := gw.addAsset("clip.mov")
	gw.labels[asset.ID] = "approved"

	entry, err := newTestSyncer(gw).PullStatus(context.Background(), "job42", "clip.mov")
	require.NoError(t, err)
	assert.Equal(t, "Approved", entry.Status)
	assert.InDelta(t, 0.1137, entry.Colour.R, 1e-9)
}

func TestPullStatus_UnsetAndUnmapped(t *testing.T) {
	gw := newFakeGateway()
	asset := gw.addAsset("clip.mov")

	_, err := newTestSyncer(gw).PullStatus(context.Background(), "job42", "clip.mov")
	assert.ErrorIs(t, err, ErrUnmappedStatus)

	gw.labels[asset.ID] = "recolored"
	_, err = newTestSyncer(gw).PullStatus(context.Background(), "job42", "clip.mov")
	assert.ErrorIs(t, err, ErrUnmappedStatus)
}
