package selections

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Load parses an on-disk selections snapshot.
func Load(path string) (*Selections, error) {
	body, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	s := &Selections{}

	err = yaml.Unmarshal(body, s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes the snapshot out as a human-editable document. Saving and
// loading a snapshot reproduces an equivalent value.
func (s *Selections) Save(path string) error {
	body, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, body, 0o600)
}
