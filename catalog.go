package uacscope

import (
	"path/filepath"

	"github.com/uacscope/uacscope/internal/pefile"
)

// GetManifests returns one record per manifest resource embedded in the
// executable or DLL at path, in resource enumeration order.
//
// Resources whose directory entries cannot be resolved are skipped
// silently and enumeration continues. Only a file that cannot be opened
// as a PE image at all fails the call, with a *LoadError.
func GetManifests(path string) ([]Manifest, error) {
	fullPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	img, err := pefile.Open(fullPath)
	if err != nil {
		return nil, &LoadError{Path: fullPath, Err: err}
	}
	defer func() {
		_ = img.Close()
	}()

	name := filepath.Base(fullPath)

	var manifests []Manifest
	resources := img.Resources(pefile.RTManifest)
	for {
		id, ok := resources.Next()
		if !ok {
			break
		}
		data, err := img.ResourceData(id)
		if err != nil {
			continue // unresolvable entry, keep enumerating
		}
		m := ParseManifest(data)
		m.FullPath = fullPath
		m.Name = name
		manifests = append(manifests, m)
	}
	return manifests, nil
}
