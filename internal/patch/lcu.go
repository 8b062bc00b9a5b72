package patch

import (
	"context"
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/repository"
)

type lcuMode string

const (
	lcuModeDirect  lcuMode = "direct"
	lcuModeSplit   lcuMode = "split"
	lcuModeConvert lcuMode = "convert"
)

// The set of versions requiring split or converted handling isn't derivable
// from the build number, so it lives in an external table rather than code.
//
//go:embed families.yaml
var modeTableData []byte

type lcuModeEntry struct {
	OSFamily api.OSFamily `yaml:"os_family"`
	Versions []string     `yaml:"versions"`
	Mode     lcuMode      `yaml:"mode"`
}

type lcuModeTable struct {
	Modes []lcuModeEntry `yaml:"modes"`
}

func loadModeTable() (lcuModeTable, error) {
	table := lcuModeTable{}

	err := yaml.Unmarshal(modeTableData, &table)
	if err != nil {
		return table, err
	}

	return table, nil
}

// lookup returns the cumulative update handling mode for a family and version.
// Unlisted combinations apply their packages as-is.
func (t lcuModeTable) lookup(family api.OSFamily, version string) lcuMode {
	for _, entry := range t.Modes {
		if entry.OSFamily != family {
			continue
		}

		if slices.Contains(entry.Versions, version) {
			return entry.Mode
		}
	}

	return lcuModeDirect
}

// applySplit unpacks a combined cumulative package and applies its servicing
// stack component strictly before its cumulative component. Violating that
// ordering can corrupt the image.
func (e *Engine) applySplit(ctx context.Context, mountDir string, artifact repository.StoredArtifact, files []string) error {
	for _, file := range files {
		extractDir := filepath.Join(e.workDir, "extract", artifact.Name, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))

		err := os.RemoveAll(extractDir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}

		err = os.MkdirAll(extractDir, 0o755)
		if err != nil {
			return err
		}

		err = e.extract(ctx, file, extractDir)
		if err != nil {
			return errors.New("unable to unpack combined package: " + err.Error())
		}

		ssu, lcu, err := splitComponents(extractDir)
		if err != nil {
			return err
		}

		// Servicing stack first, always.
		for _, component := range append(append([]string{}, ssu...), lcu...) {
			err = e.client.ApplyPackage(ctx, mountDir, component)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// applyConverted converts a package to cabinet form and applies the result directly.
func (e *Engine) applyConverted(ctx context.Context, mountDir string, artifact repository.StoredArtifact, files []string) error {
	for _, file := range files {
		// Cabinet files need no conversion.
		if strings.EqualFold(filepath.Ext(file), ".cab") {
			err := e.client.ApplyPackage(ctx, mountDir, file)
			if err != nil {
				return err
			}

			continue
		}

		extractDir := filepath.Join(e.workDir, "convert", artifact.Name)

		err := os.RemoveAll(extractDir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}

		err = os.MkdirAll(extractDir, 0o755)
		if err != nil {
			return err
		}

		err = e.extract(ctx, file, extractDir)
		if err != nil {
			return errors.New("unable to convert package: " + err.Error())
		}

		_, cabs, err := splitComponents(extractDir)
		if err != nil {
			return err
		}

		for _, cab := range cabs {
			err = e.client.ApplyPackage(ctx, mountDir, cab)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// splitComponents sorts the cabinets extracted from a combined package into
// servicing stack and cumulative components, dropping scan metadata.
func splitComponents(dir string) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	ssu := []string{}
	lcu := []string{}

	for _, entry := range entries {
		name := strings.ToLower(entry.Name())

		if !strings.HasSuffix(name, ".cab") {
			continue
		}

		// Scan and property metadata never gets applied.
		if strings.Contains(name, "wsusscan") || strings.Contains(name, "pkgproperties") {
			continue
		}

		if strings.Contains(name, "ssu") {
			ssu = append(ssu, filepath.Join(dir, entry.Name()))
		} else {
			lcu = append(lcu, filepath.Join(dir, entry.Name()))
		}
	}

	if len(ssu) == 0 && len(lcu) == 0 {
		return nil, nil, errors.New("no serviceable components found in " + dir)
	}

	slices.Sort(ssu)
	slices.Sort(lcu)

	return ssu, lcu, nil
}
