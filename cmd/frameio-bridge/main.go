// frameio-bridge connects an Autodesk Flame workstation to Frame.io review
// projects: it uploads exported selections, pulls review comments back as
// timeline markers and keeps status labels in sync.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/flamepipe/frameio-bridge/internal/archive"
	"github.com/flamepipe/frameio-bridge/internal/config"
	"github.com/flamepipe/frameio-bridge/internal/frameio"
	"github.com/flamepipe/frameio-bridge/internal/hostio"
	"github.com/flamepipe/frameio-bridge/internal/logging"
	"github.com/flamepipe/frameio-bridge/internal/statusmap"
	csync "github.com/flamepipe/frameio-bridge/internal/sync"
	"github.com/flamepipe/frameio-bridge/internal/uploader"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	gitSHA  = "unknown"
)

const usage = `frameio-bridge <command> [flags]

Commands:
  upload      upload a selection manifest to review
  comments    pull review comments as a marker CSV
  status      get or set a clip's review status
  config      show or migrate the configuration
  version     print the build version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.DefaultPaths())
	if err != nil {
		fmt.Fprintf(os.Stderr, "frameio-bridge: %v\n", err)
		os.Exit(1)
	}
	log := logging.Setup(logging.Config{
		Debug:       cfg.Debug,
		FileLogging: cfg.EnableFileLogging,
		Dir:         cfg.LogDir,
	})

	var cmdErr error
	switch os.Args[1] {
	case "upload":
		cmdErr = runUpload(ctx, cfg, log, os.Args[2:])
	case "comments":
		cmdErr = runComments(ctx, cfg, log, os.Args[2:])
	case "status":
		cmdErr = runStatus(ctx, cfg, log, os.Args[2:])
	case "config":
		cmdErr = runConfig(cfg, os.Args[2:])
	case "version":
		fmt.Printf("frameio-bridge %s (%s)\n", version, gitSHA)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "frameio-bridge: unknown command %q\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if cmdErr != nil {
		os.Exit(report(log, cmdErr))
	}
}

// report translates an error into a user message and exit code. A missing
// remote match is informational, not a failure.
func report(log zerolog.Logger, err error) int {
	var cfgErr *config.ConfigError
	switch {
	case errors.Is(err, frameio.ErrNotFound):
		log.Info().Msg("no match found on Frame.io")
		return 0
	case errors.Is(err, csync.ErrUnmappedStatus):
		log.Info().Err(err).Msg("status outside the mapping table, nothing written")
		return 0
	case errors.As(err, &cfgErr):
		log.Error().Msg(cfgErr.Error())
		log.Error().Msg("set the missing values in the config file or FRAMEIO_* environment")
		return 1
	default:
		log.Error().Err(err).Msg("command failed")
		return 1
	}
}

func newGateway(cfg config.Config, log zerolog.Logger) (*frameio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return frameio.New(frameio.Options{
		Token:     cfg.Token,
		AccountID: cfg.AccountID,
		TeamID:    cfg.TeamID,
		Logger:    logging.Component(log, "frameio"),
	})
}

func runUpload(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	manifest := fs.String("selection", "", "path to the selection manifest JSON (required)")
	fs.Parse(args)
	if *manifest == "" {
		return fmt.Errorf("upload: --selection is required")
	}

	sel, err := hostio.ReadSelection(*manifest)
	if err != nil {
		return err
	}

	gw, err := newGateway(cfg, log)
	if err != nil {
		return err
	}

	var exporter hostio.Exporter = hostio.FileExporter{}
	if cfg.ExportCommand != "" {
		exporter = hostio.CommandExporter{
			Command: cfg.ExportCommand,
			Preset:  cfg.PresetPathH264,
			Log:     logging.Component(log, "export"),
		}
	}

	var arch uploader.Archiver
	if cfg.ArchiveURL != "" {
		store, err := archive.Open(ctx, cfg.ArchiveURL)
		if err != nil {
			return err
		}
		defer store.Close()
		arch = store
	}

	coord := uploader.New(gw, exporter, arch, cfg, logging.Component(log, "uploader"))
	summary, err := coord.Run(ctx, sel)
	if err != nil {
		return err
	}

	log.Info().Str("batch", summary.BatchID).
		Int("uploaded", summary.Uploaded).Int("failed", summary.Failed).
		Msg("batch finished")
	if summary.Failed > 0 {
		return fmt.Errorf("upload: %d of %d clips failed", summary.Failed, len(summary.Results))
	}
	return nil
}

// projectFor returns the selection field naming the remote project, per the
// project_token setting.
func projectFor(cfg config.Config, sel hostio.Selection) string {
	if cfg.ProjectToken == config.ProjectTokenNickname && sel.Nickname != "" {
		return sel.Nickname
	}
	return sel.Project
}

func newSyncer(cfg config.Config, log zerolog.Logger) (*csync.Syncer, error) {
	gw, err := newGateway(cfg, log)
	if err != nil {
		return nil, err
	}
	statuses, err := statusmap.Load(cfg.StatusMapPath)
	if err != nil {
		return nil, err
	}
	return csync.New(gw, statuses, logging.Component(log, "sync")), nil
}

func runComments(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string) error {
	if len(args) > 0 && args[0] == "pull" {
		args = args[1:]
	}
	fs := flag.NewFlagSet("comments", flag.ExitOnError)
	manifest := fs.String("selection", "", "path to the selection manifest JSON (required)")
	outDir := fs.String("out-dir", "", "marker CSV output directory (default: next to the manifest)")
	fs.Parse(args)
	if *manifest == "" {
		return fmt.Errorf("comments: --selection is required")
	}

	sel, err := hostio.ReadSelection(*manifest)
	if err != nil {
		return err
	}
	if *outDir == "" {
		*outDir = filepath.Dir(*manifest)
	}

	syncer, err := newSyncer(cfg, log)
	if err != nil {
		return err
	}

	sum := syncer.PullCommentsBatch(ctx, projectFor(cfg, sel), sel.Clips, *outDir)
	log.Info().Int("pulled", sum.Done).Int("skipped", sum.Skipped).Int("failed", sum.Failed).
		Str("dir", *outDir).Msg("comments finished")
	if sum.Failed > 0 {
		return fmt.Errorf("comments: %d of %d clips failed", sum.Failed, len(sum.Results))
	}
	return nil
}

func runStatus(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string) error {
	if len(args) < 1 || (args[0] != "get" && args[0] != "set") {
		return fmt.Errorf("status: expected 'get' or 'set'")
	}
	verb := args[0]

	fs := flag.NewFlagSet("status "+verb, flag.ExitOnError)
	manifest := fs.String("selection", "", "path to the selection manifest JSON (required)")
	fs.Parse(args[1:])
	if *manifest == "" {
		return fmt.Errorf("status %s: --selection is required", verb)
	}

	sel, err := hostio.ReadSelection(*manifest)
	if err != nil {
		return err
	}
	syncer, err := newSyncer(cfg, log)
	if err != nil {
		return err
	}
	project := projectFor(cfg, sel)

	var sum csync.Summary
	if verb == "set" {
		sum = syncer.PushStatusBatch(ctx, project, sel.Clips)
	} else {
		sum = syncer.PullStatusBatch(ctx, project, sel.Clips)
		for _, res := range sum.Results {
			if res.Err == nil && !res.Skipped {
				fmt.Printf("%s\t%s\n", res.Clip, res.Status)
			}
		}
	}

	log.Info().Int("done", sum.Done).Int("skipped", sum.Skipped).Int("failed", sum.Failed).
		Msg("status " + verb + " finished")
	if sum.Failed > 0 {
		return fmt.Errorf("status %s: %d of %d clips failed", verb, sum.Failed, len(sum.Results))
	}
	return nil
}

func runConfig(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Parse(args)
	verb := "show"
	if fs.NArg() > 0 {
		verb = fs.Arg(0)
	}

	paths := config.DefaultPaths()
	switch verb {
	case "show":
		fmt.Printf("token set:          %v\n", cfg.Token != "")
		fmt.Printf("account id:         %s\n", cfg.AccountID)
		fmt.Printf("team id:            %s\n", cfg.TeamID)
		fmt.Printf("jobs folder:        %s\n", cfg.JobsFolder)
		fmt.Printf("project token:      %s\n", cfg.ProjectToken)
		fmt.Printf("archive url:        %s\n", cfg.ArchiveURL)
		fmt.Printf("debug:              %v\n", cfg.Debug)
		fmt.Printf("file logging:       %v\n", cfg.EnableFileLogging)

		statuses, err := statusmap.Load(cfg.StatusMapPath)
		if err != nil {
			return err
		}
		fmt.Println("status table:")
		for _, e := range statuses.Entries() {
			fmt.Printf("  %-14s <-> %s\n", e.Label, e.Status)
		}
		return nil
	case "migrate":
		migrated := 0
		for _, pair := range [][2]string{
			{paths.GlobalXML, paths.GlobalJSON},
			{paths.UserXML, paths.UserJSON},
		} {
			if _, err := os.Stat(pair[0]); err != nil {
				continue
			}
			if err := config.MigrateXML(pair[0], pair[1]); err != nil {
				return err
			}
			fmt.Printf("migrated %s -> %s\n", pair[0], pair[1])
			migrated++
		}
		if migrated == 0 {
			fmt.Println("no legacy XML configs found")
		}
		return nil
	default:
		return fmt.Errorf("config: unknown subcommand %q (want show or migrate)", verb)
	}
}
