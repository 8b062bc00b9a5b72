package catalog

import (
	"time"
)

// Artifact represents a single catalog entry for one update.
// Each artifact carries exactly one class and one OS/version/architecture tuple.
type Artifact struct {
	Title        string        `json:"title"        yaml:"title"`
	Article      string        `json:"article"      yaml:"article"`
	Class        Class         `json:"class"        yaml:"class"`
	OSFamily     OSFamily      `json:"os_family"    yaml:"os_family"`
	Version      string        `json:"version"      yaml:"version"`
	Architecture string        `json:"architecture" yaml:"architecture"`
	Superseded   bool          `json:"superseded"   yaml:"superseded"`
	ReleasedAt   time.Time     `json:"released_at"  yaml:"released_at"`
	Files        []ContentFile `json:"files"        yaml:"files"`
}

// ContentFile represents a downloadable content file attached to an artifact.
type ContentFile struct {
	Filename string `json:"filename" yaml:"filename"`
	URL      string `json:"url"      yaml:"url"`
	Sha256   string `json:"sha256"   yaml:"sha256"`
	Size     int64  `json:"size"     yaml:"size"`
}

// Index represents the content of a community catalog index file.
type Index struct {
	Format string `json:"format"`

	Artifacts []Artifact `json:"artifacts"`
}
