// Package history persists a record of past customization runs.
package history

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var currentVersion = 1

// keepRecords caps how many runs the file retains.
var keepRecords = 50

// Build represents one finished customization run.
type Build struct {
	ID         string    `yaml:"id"`
	Image      string    `yaml:"image"`
	Family     string    `yaml:"family"`
	Release    string    `yaml:"release"`
	State      string    `yaml:"state"`
	ExportPath string    `yaml:"export_path,omitempty"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
}

// History represents the on-disk run record.
type History struct {
	path string

	Version int     `yaml:"version"`
	Builds  []Build `yaml:"builds"`
}

// LoadOrCreate parses the on-disk history file and returns a History struct.
// If no file exists, a new empty one is created.
func LoadOrCreate(path string) (*History, error) {
	h := History{
		path:    path,
		Version: currentVersion,
	}

	body, err := os.ReadFile(path)
	if err == nil {
		err = yaml.Unmarshal(body, &h)
		if err != nil {
			return nil, err
		}

		h.path = path
		h.upgrade()

		return &h, nil
	}

	if os.IsNotExist(err) {
		err = h.Save()
		if err != nil {
			return nil, err
		}

		return &h, nil
	}

	return nil, err
}

// Save writes out the current history into its on-disk storage.
func (h *History) Save() error {
	body, err := yaml.Marshal(h)
	if err != nil {
		return err
	}

	return os.WriteFile(h.path, body, 0o600)
}

// Add records a finished run, dropping the oldest entries past the cap.
func (h *History) Add(build Build) error {
	h.Builds = append(h.Builds, build)

	if len(h.Builds) > keepRecords {
		h.Builds = h.Builds[len(h.Builds)-keepRecords:]
	}

	return h.Save()
}

// upgrade brings older history files up to the current version.
func (h *History) upgrade() {
	if h.Version == 0 {
		h.Version = 1
	}

	h.Version = currentVersion
}
