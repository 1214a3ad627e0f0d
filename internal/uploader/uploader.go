// Package uploader coordinates one review batch: export each selected clip,
// resolve its remote asset (creating projects, folders and version stacks
// as needed) and upload the media.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flamepipe/frameio-bridge/internal/archive"
	"github.com/flamepipe/frameio-bridge/internal/config"
	"github.com/flamepipe/frameio-bridge/internal/frameio"
	"github.com/flamepipe/frameio-bridge/internal/hostio"
	"github.com/flamepipe/frameio-bridge/internal/version"
)

// Folder names created under a project root.
const (
	folderShots    = "SHOTS"
	folderConforms = "CONFORMS"
)

// Gateway is the slice of the Frame.io client the coordinator needs.
type Gateway interface {
	FindProject(ctx context.Context, name string) (frameio.Project, error)
	CreateProject(ctx context.Context, name string) (frameio.Project, error)
	CreateFolder(ctx context.Context, parentID, name string) (frameio.AssetRef, error)
	SearchAssets(ctx context.Context, q frameio.SearchQuery) ([]frameio.AssetRef, error)
	UploadFile(ctx context.Context, parentID, path string) (frameio.AssetRef, error)
	ResolveStackRoot(ctx context.Context, assetID string) string
	AddVersion(ctx context.Context, stackID, assetID string) error
}

// Archiver mirrors uploaded files into long-term storage.
type Archiver interface {
	Put(ctx context.Context, ref archive.BatchRef, localPath string) error
	WriteManifest(ctx context.Context, ref archive.BatchRef, m *archive.Manifest) error
}

// Result records the outcome for one clip. Err is nil on success.
type Result struct {
	Clip      string
	LocalPath string
	AssetID   string
	Versioned bool // true when the upload was stacked onto an existing asset
	Err       error
}

// Summary is the outcome of a whole batch.
type Summary struct {
	BatchID  string
	Project  string
	Results  []Result
	Uploaded int
	Failed   int
}

// Coordinator runs upload batches.
type Coordinator struct {
	gw       Gateway
	exporter hostio.Exporter
	arch     Archiver // nil disables mirroring
	cfg      config.Config
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New builds a Coordinator. arch may be nil.
func New(gw Gateway, exporter hostio.Exporter, arch Archiver, cfg config.Config, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		gw:       gw,
		exporter: exporter,
		arch:     arch,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Run processes a selection. Per-clip failures are recorded in the summary
// and do not stop the batch; Run returns an error only when the batch
// cannot start at all (project resolution, export directory).
func (c *Coordinator) Run(ctx context.Context, sel hostio.Selection) (Summary, error) {
	batchID := c.newID()
	started := c.now()
	log := c.log.With().Str("batch", batchID).Str("project", sel.Project).Logger()

	proj, err := c.resolveProject(ctx, sel)
	if err != nil {
		return Summary{}, err
	}

	destName := folderShots
	if sel.Kind == hostio.KindConform {
		destName = folderConforms
	}
	dest, err := c.findOrCreateFolder(ctx, proj, destName)
	if err != nil {
		return Summary{}, err
	}

	batchDir, err := hostio.BatchDir(c.cfg.JobsFolder, sel.Project, started)
	if err != nil {
		return Summary{}, err
	}
	log.Info().Str("dir", batchDir).Int("clips", len(sel.Clips)).Msg("starting batch")

	summary := Summary{BatchID: batchID, Project: proj.Name}
	for _, clip := range sel.Clips {
		res := c.processClip(ctx, proj, dest, clip, batchDir)
		if res.Err != nil {
			summary.Failed++
			log.Error().Err(res.Err).Str("clip", clip.Name).Msg("clip failed")
		} else {
			summary.Uploaded++
			log.Info().Str("clip", clip.Name).Str("asset", res.AssetID).
				Bool("versioned", res.Versioned).Msg("uploaded")
		}
		summary.Results = append(summary.Results, res)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}

	if c.arch != nil {
		c.mirror(ctx, sel, summary, started, log)
	}
	return summary, nil
}

// resolveProject finds the remote project for a selection, creating it with
// the standard folder pair when absent. Which host field names the project
// follows the project_token setting.
func (c *Coordinator) resolveProject(ctx context.Context, sel hostio.Selection) (frameio.Project, error) {
	name := sel.Project
	if c.cfg.ProjectToken == config.ProjectTokenNickname && sel.Nickname != "" {
		name = sel.Nickname
	}

	proj, err := c.gw.FindProject(ctx, name)
	if errors.Is(err, frameio.ErrNotFound) {
		c.log.Info().Str("project", name).Msg("project not found, creating")
		proj, err = c.gw.CreateProject(ctx, name)
		if err != nil {
			return frameio.Project{}, fmt.Errorf("create project %s: %w", name, err)
		}
		for _, folder := range []string{folderShots, folderConforms} {
			if _, err := c.gw.CreateFolder(ctx, proj.RootAssetID, folder); err != nil {
				return frameio.Project{}, fmt.Errorf("create folder %s: %w", folder, err)
			}
		}
		return proj, nil
	}
	if err != nil {
		return frameio.Project{}, fmt.Errorf("find project %s: %w", name, err)
	}
	return proj, nil
}

func (c *Coordinator) findOrCreateFolder(ctx context.Context, proj frameio.Project, name string) (frameio.AssetRef, error) {
	found, err := c.gw.SearchAssets(ctx, frameio.SearchQuery{
		ProjectID: proj.ID,
		Text:      name,
		Type:      frameio.TypeFolder,
	})
	if err != nil {
		return frameio.AssetRef{}, fmt.Errorf("search folder %s: %w", name, err)
	}
	for _, ref := range found {
		if ref.Name == name {
			return ref, nil
		}
	}
	ref, err := c.gw.CreateFolder(ctx, proj.RootAssetID, name)
	if err != nil {
		return frameio.AssetRef{}, fmt.Errorf("create folder %s: %w", name, err)
	}
	return ref, nil
}

// processClip exports one clip and uploads it, stacking it as a new version
// when an asset with the same base name already exists remotely.
func (c *Coordinator) processClip(ctx context.Context, proj frameio.Project, dest frameio.AssetRef, clip hostio.Clip, batchDir string) Result {
	res := Result{Clip: clip.Name}

	localPath, err := c.exporter.Export(ctx, clip, batchDir)
	if err != nil {
		res.Err = err
		return res
	}
	res.LocalPath = localPath

	fileName := filepath.Base(localPath)
	base := version.Base(fileName)

	matches, err := c.remoteMatches(ctx, proj.ID, base)
	if err != nil {
		res.Err = err
		return res
	}

	if collidesWith(fileName, matches) {
		// The exact version already exists remotely: bump the local name
		// past the highest remote version before uploading.
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		if next := version.NextName(fileName, names); next != fileName {
			renamed := filepath.Join(filepath.Dir(localPath), next)
			if err := os.Rename(localPath, renamed); err != nil {
				res.Err = fmt.Errorf("rename %s: %w", localPath, err)
				return res
			}
			c.log.Debug().Str("from", fileName).Str("to", next).Msg("versioned up local file")
			localPath, fileName = renamed, next
			res.LocalPath = localPath
		}
	}

	asset, err := c.gw.UploadFile(ctx, dest.ID, localPath)
	if err != nil {
		res.Err = fmt.Errorf("upload %s: %w", fileName, err)
		return res
	}
	res.AssetID = asset.ID

	if len(matches) > 0 {
		stackRoot := c.gw.ResolveStackRoot(ctx, matches[0].ID)
		if err := c.gw.AddVersion(ctx, stackRoot, asset.ID); err != nil {
			// The media is uploaded; losing the stack link is worth a
			// warning but not a failed clip.
			c.log.Warn().Err(err).Str("clip", clip.Name).Msg("could not stack version")
		} else {
			res.Versioned = true
		}
	}
	return res
}

// collidesWith reports whether any remote match carries the same version
// value as name. Only a same-version collision forces a rename; a local
// version that differs from everything remote uploads under its own name.
func collidesWith(name string, matches []frameio.AssetRef) bool {
	_, tok, ok := version.Split(name)
	if !ok {
		return false
	}
	for _, m := range matches {
		if _, remote, rok := version.Split(m.Name); rok && remote.Value == tok.Value {
			return true
		}
	}
	return false
}

// remoteMatches returns existing file assets whose base name equals base.
// Matching is case-sensitive: sh010_COMP and sh010_comp are different shots.
func (c *Coordinator) remoteMatches(ctx context.Context, projectID, base string) ([]frameio.AssetRef, error) {
	found, err := c.gw.SearchAssets(ctx, frameio.SearchQuery{
		ProjectID: projectID,
		Text:      base,
		Type:      frameio.TypeFile,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", base, err)
	}
	var matches []frameio.AssetRef
	for _, ref := range found {
		if version.Base(ref.Name) == base {
			matches = append(matches, ref)
		}
	}
	return matches, nil
}

// mirror copies the batch's uploaded files into the archive bucket. Archive
// problems are logged, never fatal: the review upload already succeeded.
func (c *Coordinator) mirror(ctx context.Context, sel hostio.Selection, summary Summary, started time.Time, log zerolog.Logger) {
	ref := archive.BatchRef{
		Project: sel.Project,
		Date:    started.Format("2006-01-02"),
		BatchID: summary.BatchID,
	}
	manifest := &archive.Manifest{
		Project:   sel.Project,
		BatchID:   summary.BatchID,
		CreatedAt: started.UTC(),
	}
	for _, res := range summary.Results {
		if res.Err != nil || res.LocalPath == "" {
			continue
		}
		if err := c.arch.Put(ctx, ref, res.LocalPath); err != nil {
			log.Warn().Err(err).Str("file", res.LocalPath).Msg("archive copy failed")
			continue
		}
		size := int64(0)
		if info, err := os.Stat(res.LocalPath); err == nil {
			size = info.Size()
		}
		manifest.Files = append(manifest.Files, archive.FileEntry{
			Name:    filepath.Base(res.LocalPath),
			Size:    size,
			AssetID: res.AssetID,
		})
	}
	if len(manifest.Files) == 0 {
		return
	}
	if err := c.arch.WriteManifest(ctx, ref, manifest); err != nil {
		log.Warn().Err(err).Msg("archive manifest failed")
	}
}
