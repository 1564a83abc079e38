// Package pefile reads Windows PE images strictly as data containers.
// Files are parsed with a pure binary parser, never mapped by the OS
// loader: no entry point runs and no imports are resolved, which keeps
// potentially hostile inputs inert.
package pefile

import (
	"fmt"

	"github.com/Binject/debug/pe"
)

// Image is a PE file opened for resource inspection only.
// It holds an open file handle and must be closed by the caller.
type Image struct {
	file *pe.File

	// lazily resolved resource table, see resourceTable()
	rsrc       []byte
	rsrcErr    error
	rsrcLoaded bool
}

// Open parses the file at path as a PE image.
// It fails if the file does not exist, is not readable, or is not a
// valid PE executable or DLL.
func Open(path string) (*Image, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %q: %w", path, err)
	}
	return &Image{file: f}, nil
}

// Close releases the underlying file handle.
// Close will return an error if it has already been called.
func (img *Image) Close() error {
	return img.file.Close()
}

// sectionFor returns the section whose virtual address range contains rva.
func (img *Image) sectionFor(rva uint32) *pe.Section {
	for _, s := range img.file.Sections {
		size := s.VirtualSize
		if s.Size > size {
			size = s.Size
		}
		if rva >= s.VirtualAddress && rva-s.VirtualAddress < size {
			return s
		}
	}
	return nil
}

// readAt copies exactly size bytes starting at the given RVA into a
// newly allocated buffer. The read must fall entirely inside the raw
// data of a single section.
func (img *Image) readAt(rva, size uint32) ([]byte, error) {
	s := img.sectionFor(rva)
	if s == nil {
		return nil, fmt.Errorf("rva 0x%x outside all sections: %w", rva, ErrResourceNotFound)
	}
	data, err := s.Data()
	if err != nil {
		return nil, fmt.Errorf("read section %s: %w", s.Name, err)
	}
	off := rva - s.VirtualAddress
	if uint64(off)+uint64(size) > uint64(len(data)) {
		return nil, fmt.Errorf("resource data exceeds section %s: %w", s.Name, ErrResourceNotFound)
	}
	buf := make([]byte, size)
	copy(buf, data[off:off+size])
	return buf, nil
}
