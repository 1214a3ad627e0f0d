package config

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// legacyXML matches the XML layout of the original Python-era config:
//
//	<settings>
//	  <frame_io_settings>
//	    <token>...</token>
//	    ...
//	  </frame_io_settings>
//	</settings>
type legacyXML struct {
	XMLName xml.Name `xml:"settings"`
	FrameIO struct {
		Token          string `xml:"token"`
		AccountID      string `xml:"account_id"`
		TeamID         string `xml:"team_id"`
		JobsFolder     string `xml:"jobs_folder"`
		PresetPathH264 string `xml:"preset_path_h264"`
	} `xml:"frame_io_settings"`
}

// values returns the legacy settings keyed by their modern config names.
func (l legacyXML) values() map[string]string {
	return map[string]string{
		KeyToken:      l.FrameIO.Token,
		KeyAccountID:  l.FrameIO.AccountID,
		KeyTeamID:     l.FrameIO.TeamID,
		KeyJobsFolder: l.FrameIO.JobsFolder,
		KeyPresetH264: l.FrameIO.PresetPathH264,
	}
}

func readLegacyXML(path string) (legacyXML, error) {
	var legacy legacyXML
	data, err := os.ReadFile(path)
	if err != nil {
		return legacy, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := xml.Unmarshal(data, &legacy); err != nil {
		return legacy, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return legacy, nil
}

// MigrateXML converts a legacy XML config into a JSON config at jsonPath.
// The XML file is left untouched so older installs sharing the same config
// directory keep working. The JSON is written via a temp file and rename.
func MigrateXML(xmlPath, jsonPath string) error {
	legacy, err := readLegacyXML(xmlPath)
	if err != nil {
		return err
	}

	out := make(map[string]string, 5)
	for key, val := range legacy.values() {
		if val != "" {
			out[key] = val
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode %s: %w", jsonPath, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(jsonPath), 0o755); err != nil {
		return fmt.Errorf("config: mkdir for %s: %w", jsonPath, err)
	}
	tmp := jsonPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, jsonPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: rename %s: %w", jsonPath, err)
	}
	return nil
}
