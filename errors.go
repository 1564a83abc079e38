package uacscope

import "fmt"

// LoadError reports that a file could not be opened as a PE image.
// It is the only error GetManifests returns; problems with individual
// resources never surface past the catalog.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load image %q: %s", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
