// Package output writes rendered manifests to a directory as YAML, together
// with a kustomization that ties them together.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	goyaml "github.com/goccy/go-yaml"
	"sigs.k8s.io/yaml"

	"github.com/NickMagic25/kubeegg/internal/render"
)

const kustomizationFile = "kustomization.yaml"

// Write serializes every manifest into dir. Unless force is set, the whole
// write is refused when any target file already exists, so a directory is
// never left half old and half new.
func Write(dir string, appName string, files []render.File, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if !force {
		if err := checkClean(dir, files); err != nil {
			return err
		}
	}

	resources := make([]string, 0, len(files))
	for _, file := range files {
		data, err := yaml.Marshal(file.Object)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", file.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, file.Name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", file.Name, err)
		}
		resources = append(resources, file.Name)
	}

	kustomization, err := goyaml.Marshal(render.NewKustomization(appName, resources))
	if err != nil {
		return fmt.Errorf("marshaling kustomization: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, kustomizationFile), kustomization, 0o644); err != nil {
		return fmt.Errorf("writing kustomization: %w", err)
	}
	return nil
}

func checkClean(dir string, files []render.File) error {
	names := make([]string, 0, len(files)+1)
	for _, file := range files {
		names = append(names, file.Name)
	}
	names = append(names, kustomizationFile)

	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return fmt.Errorf("%s already exists in %s, pass --force to overwrite", name, dir)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking %s: %w", name, err)
		}
	}
	return nil
}
