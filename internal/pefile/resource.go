package pefile

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/Binject/debug/pe"
)

// RTManifest is the resource type code under which application manifests
// are stored (RT_MANIFEST).
const RTManifest uint32 = 24

const (
	imageDirectoryEntryResource = 2

	resourceDirHeaderSize = 16
	resourceDirEntrySize  = 8
	resourceDataEntrySize = 16

	// The high bit of a directory entry field marks its offset as
	// pointing to a subdirectory or a name string rather than data.
	subdirectoryFlag = 0x80000000
)

// ResourceID identifies one resource within its type directory.
// Resources are either named or numbered; Name is empty for numbered ones.
type ResourceID struct {
	Name string
	ID   uint32

	// raw second field of the directory entry, resolved by ResourceData
	offset uint32
}

func (id ResourceID) String() string {
	if id.Name != "" {
		return id.Name
	}
	return fmt.Sprintf("#%d", id.ID)
}

// ResourceIterator yields the resources of a single type, in directory
// order. It is finite and cannot be restarted; obtain a fresh one from
// Image.Resources.
type ResourceIterator struct {
	ids []ResourceID
	pos int
}

// Next returns the next resource identifier, or ok=false once the
// iterator is exhausted.
func (it *ResourceIterator) Next() (ResourceID, bool) {
	if it.pos >= len(it.ids) {
		return ResourceID{}, false
	}
	id := it.ids[it.pos]
	it.pos++
	return id, true
}

// Resources returns an iterator over all resources of the given type.
// An image without a resource table, or with one whose root directory
// cannot be parsed, yields an empty iterator: absence and unresolvable
// tables are indistinguishable at this layer.
func (img *Image) Resources(typeID uint32) *ResourceIterator {
	table, err := img.resourceTable()
	if err != nil {
		return &ResourceIterator{}
	}
	typeDir, ok := findTypeDir(table, typeID)
	if !ok {
		return &ResourceIterator{}
	}
	return &ResourceIterator{ids: listResources(table, typeDir)}
}

// ResourceData copies the raw bytes of one resource into a new buffer.
// It resolves the resource's language directory and data entry, checks
// the reported virtual address and size against the mapped sections, and
// never modifies the source image.
func (img *Image) ResourceData(id ResourceID) ([]byte, error) {
	table, err := img.resourceTable()
	if err != nil {
		return nil, err
	}

	off := id.offset
	if off&subdirectoryFlag != 0 {
		// Language directory below the name level; resources are stored
		// once per language and the first entry is taken.
		entries, ok := dirEntries(table, off&^subdirectoryFlag)
		if !ok || len(entries) == 0 {
			return nil, fmt.Errorf("resource %s: %w", id, ErrBadDirectory)
		}
		off = entries[0][1]
		if off&subdirectoryFlag != 0 {
			// deeper nesting than type/name/language
			return nil, fmt.Errorf("resource %s: %w", id, ErrBadDirectory)
		}
	}

	if int64(off)+resourceDataEntrySize > int64(len(table)) {
		return nil, fmt.Errorf("resource %s: %w", id, ErrResourceNotFound)
	}
	rva := binary.LittleEndian.Uint32(table[off:])
	size := binary.LittleEndian.Uint32(table[off+4:])
	if size == 0 {
		return nil, fmt.Errorf("resource %s: %w", id, ErrEmptyResource)
	}

	data, err := img.readAt(rva, size)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", id, err)
	}
	return data, nil
}

// resourceTable returns the raw bytes of the resource section, starting
// at the resource directory root. All offsets inside the directory tree
// are relative to this base. The result is memoized per image.
func (img *Image) resourceTable() ([]byte, error) {
	if img.rsrcLoaded {
		return img.rsrc, img.rsrcErr
	}
	img.rsrcLoaded = true
	img.rsrc, img.rsrcErr = img.loadResourceTable()
	return img.rsrc, img.rsrcErr
}

func (img *Image) loadResourceTable() ([]byte, error) {
	var dir pe.DataDirectory
	switch oh := img.file.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes <= imageDirectoryEntryResource {
			return nil, ErrNoResourceTable
		}
		dir = oh.DataDirectory[imageDirectoryEntryResource]
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes <= imageDirectoryEntryResource {
			return nil, ErrNoResourceTable
		}
		dir = oh.DataDirectory[imageDirectoryEntryResource]
	default:
		return nil, ErrNoResourceTable
	}
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, ErrNoResourceTable
	}

	s := img.sectionFor(dir.VirtualAddress)
	if s == nil {
		return nil, ErrNoResourceTable
	}
	data, err := s.Data()
	if err != nil {
		return nil, fmt.Errorf("read section %s: %w", s.Name, err)
	}
	off := dir.VirtualAddress - s.VirtualAddress
	if int64(off) >= int64(len(data)) {
		return nil, ErrNoResourceTable
	}
	return data[off:], nil
}

// findTypeDir locates the subdirectory for the given numeric resource
// type in the root directory. Named types never match.
func findTypeDir(table []byte, typeID uint32) (uint32, bool) {
	entries, ok := dirEntries(table, 0)
	if !ok {
		return 0, false
	}
	for _, e := range entries {
		if e[0]&subdirectoryFlag != 0 { // named type
			continue
		}
		if e[0] == typeID && e[1]&subdirectoryFlag != 0 {
			return e[1] &^ subdirectoryFlag, true
		}
	}
	return 0, false
}

// listResources reads the name-level directory of one type.
// Entries that cannot be decoded are dropped here; entries that decode
// but later fail to resolve are reported by ResourceData instead.
func listResources(table []byte, dirOff uint32) []ResourceID {
	entries, ok := dirEntries(table, dirOff)
	if !ok {
		return nil
	}
	ids := make([]ResourceID, 0, len(entries))
	for _, e := range entries {
		id := ResourceID{offset: e[1]}
		if e[0]&subdirectoryFlag != 0 {
			name, ok := resourceName(table, e[0]&^subdirectoryFlag)
			if !ok {
				continue
			}
			id.Name = name
		} else {
			id.ID = e[0]
		}
		ids = append(ids, id)
	}
	return ids
}

// dirEntries decodes the entry fields of the directory at off.
// Each entry is a (name-or-id, offset) pair of little-endian uint32s.
func dirEntries(table []byte, off uint32) ([][2]uint32, bool) {
	if int64(off)+resourceDirHeaderSize > int64(len(table)) {
		return nil, false
	}
	named := int(binary.LittleEndian.Uint16(table[off+12:]))
	numbered := int(binary.LittleEndian.Uint16(table[off+14:]))
	count := named + numbered

	base := int64(off) + resourceDirHeaderSize
	if base+int64(count)*resourceDirEntrySize > int64(len(table)) {
		return nil, false
	}
	entries := make([][2]uint32, count)
	for i := range entries {
		e := table[base+int64(i)*resourceDirEntrySize:]
		entries[i][0] = binary.LittleEndian.Uint32(e)
		entries[i][1] = binary.LittleEndian.Uint32(e[4:])
	}
	return entries, true
}

// resourceName decodes a counted UTF-16 directory string.
func resourceName(table []byte, off uint32) (string, bool) {
	if int64(off)+2 > int64(len(table)) {
		return "", false
	}
	n := int(binary.LittleEndian.Uint16(table[off:]))
	if int64(off)+2+int64(n)*2 > int64(len(table)) {
		return "", false
	}
	u := make([]uint16, n)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(table[int64(off)+2+int64(i)*2:])
	}
	return string(utf16.Decode(u)), true
}
