// Package config resolves the bridge configuration: defaults, the global
// (shared) JSON file, the per-user JSON file and environment variables, in
// that precedence order. Legacy XML configs are migrated to JSON on first
// sight.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Recognized configuration keys.
const (
	KeyToken         = "frame_io_token"
	KeyAccountID     = "frame_io_account_id"
	KeyTeamID        = "frame_io_team_id"
	KeyJobsFolder    = "jobs_folder"
	KeyPresetH264    = "preset_path_h264"
	KeyProjectToken  = "project_token"
	KeyDebug         = "debug"
	KeyFileLogging   = "enable_file_logging"
	KeyArchiveURL    = "archive_url"
	KeyStatusMapPath = "status_map_path"
	KeyExportCommand = "export_command"
)

// ProjectToken values: which Flame project field names the remote project.
const (
	ProjectTokenNickname = "nickname"
	ProjectTokenName     = "name"
)

// Config is the resolved configuration, passed explicitly into every
// component at construction.
type Config struct {
	Token     string
	AccountID string
	TeamID    string

	JobsFolder     string
	PresetPathH264 string
	ProjectToken   string

	Debug             bool
	EnableFileLogging bool

	// ArchiveURL is an optional bucket URL (file://, s3://, gs://) exports
	// are mirrored into after upload. Empty disables mirroring.
	ArchiveURL string

	// StatusMapPath optionally points at a YAML file overriding the
	// status/label table.
	StatusMapPath string

	// ExportCommand optionally names an executable the uploader invokes to
	// export a selection when the host has not already done so.
	ExportCommand string

	LogDir string
}

// Paths locates the configuration files.
type Paths struct {
	GlobalJSON string
	UserJSON   string
	GlobalXML  string
	UserXML    string
	LogDir     string
}

// DefaultPaths returns the conventional config file locations: the shared
// install dir for site-wide settings, the user's home for overrides.
func DefaultPaths() Paths {
	home, _ := os.UserHomeDir()
	shared := "/opt/Autodesk/shared/frameio-bridge"
	userDir := filepath.Join(home, "flame", "frameio-bridge")
	return Paths{
		GlobalJSON: filepath.Join(shared, "config", "shared_config.json"),
		UserJSON:   filepath.Join(userDir, "user_config.json"),
		GlobalXML:  filepath.Join(shared, "config", "config.xml"),
		UserXML:    filepath.Join(userDir, "config.xml"),
		LogDir:     filepath.Join(userDir, "logs"),
	}
}

// ConfigError reports missing required settings. It names every missing
// field so the user can fix them in one pass.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: missing %s", strings.Join(e.Missing, ", "))
}

func defaults() map[string]any {
	return map[string]any{
		KeyToken:         "",
		KeyAccountID:     "",
		KeyTeamID:        "",
		KeyJobsFolder:    "/Volumes/vfx/Jobs",
		KeyPresetH264:    "/opt/Autodesk/shared/frameio-bridge/presets/H264 10Mbits.xml",
		KeyProjectToken:  ProjectTokenNickname,
		KeyDebug:         false,
		KeyFileLogging:   false,
		KeyArchiveURL:    "",
		KeyStatusMapPath: "",
		KeyExportCommand: "",
	}
}

// Load resolves the configuration from paths. A missing file is not an
// error; invalid JSON in an existing file is. Credentials are validated
// separately via Validate so read-only commands (config show, config
// migrate) can run without them.
func Load(paths Paths) (Config, error) {
	// A .env in the working dir can supply FRAMEIO_* variables on
	// workstations where shell profiles are not sourced by the host.
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigType("json")
	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	// Migrate legacy XML files to JSON before reading. The XML stays on
	// disk untouched; a failed write must never block startup, the
	// in-memory fallback below covers that case.
	if !exists(paths.GlobalJSON) && exists(paths.GlobalXML) {
		_ = MigrateXML(paths.GlobalXML, paths.GlobalJSON)
	}
	if !exists(paths.UserJSON) && exists(paths.UserXML) {
		_ = MigrateXML(paths.UserXML, paths.UserJSON)
	}

	if err := v.ReadConfig(bytes.NewReader([]byte("{}"))); err != nil {
		return Config{}, fmt.Errorf("config: init: %w", err)
	}

	for _, path := range []string{paths.GlobalJSON, paths.UserJSON} {
		if !exists(path) {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: open %s: %w", path, err)
		}
		err = v.MergeConfig(f)
		f.Close()
		if err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// JSON still absent (migration could not write) but legacy XML
	// readable: use its values in-memory for this invocation.
	for _, pair := range [][2]string{
		{paths.GlobalJSON, paths.GlobalXML},
		{paths.UserJSON, paths.UserXML},
	} {
		jsonPath, xmlPath := pair[0], pair[1]
		if exists(jsonPath) || !exists(xmlPath) {
			continue
		}
		legacy, err := readLegacyXML(xmlPath)
		if err != nil {
			continue
		}
		// Merged as a config layer, not Set: the environment must still
		// outrank legacy values.
		layer := make(map[string]any)
		for key, val := range legacy.values() {
			if val != "" {
				layer[key] = val
			}
		}
		if len(layer) > 0 {
			if err := v.MergeConfigMap(layer); err != nil {
				return Config{}, fmt.Errorf("config: merge %s: %w", xmlPath, err)
			}
		}
	}

	bindEnv(v)
	normalizeAliases(v)

	cfg := Config{
		Token:             strings.TrimSpace(v.GetString(KeyToken)),
		AccountID:         strings.TrimSpace(v.GetString(KeyAccountID)),
		TeamID:            strings.TrimSpace(v.GetString(KeyTeamID)),
		JobsFolder:        v.GetString(KeyJobsFolder),
		PresetPathH264:    v.GetString(KeyPresetH264),
		ProjectToken:      v.GetString(KeyProjectToken),
		Debug:             v.GetBool(KeyDebug),
		EnableFileLogging: v.GetBool(KeyFileLogging),
		ArchiveURL:        v.GetString(KeyArchiveURL),
		StatusMapPath:     v.GetString(KeyStatusMapPath),
		ExportCommand:     v.GetString(KeyExportCommand),
		LogDir:            paths.LogDir,
	}
	if cfg.ProjectToken != ProjectTokenName {
		cfg.ProjectToken = ProjectTokenNickname
	}
	return cfg, nil
}

// Validate checks the credentials every remote operation needs. The returned
// *ConfigError lists each missing field.
func (c Config) Validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, KeyToken)
	}
	if c.AccountID == "" {
		missing = append(missing, KeyAccountID)
	}
	if c.TeamID == "" {
		missing = append(missing, KeyTeamID)
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// bindEnv maps the short environment names onto config keys. Environment
// always wins over file values.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv(KeyToken, "FRAMEIO_TOKEN")
	_ = v.BindEnv(KeyAccountID, "FRAMEIO_ACCOUNT_ID")
	_ = v.BindEnv(KeyTeamID, "FRAMEIO_TEAM_ID")
	_ = v.BindEnv(KeyJobsFolder, "FRAMEIO_JOBS_FOLDER")
	_ = v.BindEnv(KeyArchiveURL, "FRAMEIO_ARCHIVE_URL")
	_ = v.BindEnv(KeyDebug, "FRAMEIO_DEBUG")
}

// normalizeAliases folds the legacy short key names into the frame_io_*
// names when the new name is unset.
func normalizeAliases(v *viper.Viper) {
	aliases := map[string]string{
		"token":      KeyToken,
		"account_id": KeyAccountID,
		"team_id":    KeyTeamID,
	}
	for legacy, key := range aliases {
		if v.GetString(key) == "" && v.GetString(legacy) != "" {
			v.Set(key, v.GetString(legacy))
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
