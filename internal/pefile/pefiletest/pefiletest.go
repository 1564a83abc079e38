// Package pefiletest assembles minimal PE32 images in memory so tests
// can exercise resource extraction without shipping binary fixtures.
package pefiletest

import (
	"bytes"
	"encoding/binary"
)

// Resource describes one entry placed in the image's resource section.
type Resource struct {
	Type uint32
	ID   uint32
	Data []byte

	// OverrideSize replaces the size recorded in the data entry with
	// Size, to fabricate unresolvable resources.
	OverrideSize bool
	Size         uint32
}

const (
	rsrcVirtualAddress = 0x1000
	rsrcFileOffset     = 0x200
	imageBase          = 0x400000

	dirHeaderSize  = 16
	dirEntrySize   = 8
	dataEntrySize  = 16
	defaultLangID  = 1033
	subdirFlag     = 0x80000000
	optHeader32Len = 224
)

// Image assembles a complete PE32 file with a single .rsrc section
// holding the given resources. Resources are grouped by type; each gets
// one language entry (en-US). The slice order within a type determines
// the directory order.
func Image(resources []Resource) []byte {
	if len(resources) == 0 {
		// a valid image with no resource table at all
		return wrapImage(nil)
	}
	return wrapImage(buildResourceSection(resources))
}

// buildResourceSection lays out the three-level directory tree
// (type/name/language) followed by the data entries and the blobs.
func buildResourceSection(resources []Resource) []byte {
	// group resource indices by type, preserving first-seen type order
	var types []uint32
	byType := map[uint32][]int{}
	for i, r := range resources {
		if _, ok := byType[r.Type]; !ok {
			types = append(types, r.Type)
		}
		byType[r.Type] = append(byType[r.Type], i)
	}

	// offset bookkeeping, all relative to the section start
	off := uint32(dirHeaderSize + dirEntrySize*len(types)) // past root dir

	typeDirOff := map[uint32]uint32{}
	for _, t := range types {
		typeDirOff[t] = off
		off += uint32(dirHeaderSize + dirEntrySize*len(byType[t]))
	}

	langDirOffs := make([]uint32, len(resources))
	for i := range resources {
		langDirOffs[i] = off
		off += dirHeaderSize + dirEntrySize
	}

	dataEntryOffs := make([]uint32, len(resources))
	for i := range resources {
		dataEntryOffs[i] = off
		off += dataEntrySize
	}

	dataOffs := make([]uint32, len(resources))
	for i, r := range resources {
		dataOffs[i] = off
		off += uint32(len(r.Data))
	}

	buf := &bytes.Buffer{}
	le := binary.LittleEndian

	writeDirHeader := func(named, numbered int) {
		var hdr [dirHeaderSize]byte
		le.PutUint16(hdr[12:], uint16(named))
		le.PutUint16(hdr[14:], uint16(numbered))
		buf.Write(hdr[:])
	}
	writeEntry := func(id, target uint32) {
		var e [dirEntrySize]byte
		le.PutUint32(e[:], id)
		le.PutUint32(e[4:], target)
		buf.Write(e[:])
	}

	// root directory: one numbered entry per type
	writeDirHeader(0, len(types))
	for _, t := range types {
		writeEntry(t, typeDirOff[t]|subdirFlag)
	}

	// name-level directories
	for _, t := range types {
		group := byType[t]
		writeDirHeader(0, len(group))
		for _, i := range group {
			writeEntry(resources[i].ID, langDirOffs[i]|subdirFlag)
		}
	}

	// language directories, one entry each
	for i := range resources {
		writeDirHeader(0, 1)
		writeEntry(defaultLangID, dataEntryOffs[i])
	}

	// data entries
	for i, r := range resources {
		size := uint32(len(r.Data))
		if r.OverrideSize {
			size = r.Size
		}
		var e [dataEntrySize]byte
		le.PutUint32(e[:], rsrcVirtualAddress+dataOffs[i])
		le.PutUint32(e[4:], size)
		buf.Write(e[:])
	}

	// blobs
	for _, r := range resources {
		buf.Write(r.Data)
	}
	return buf.Bytes()
}

// wrapImage wraps the resource section bytes into a valid PE32 file:
// DOS header, PE signature, COFF header, optional header with the
// resource data directory, and a single .rsrc section.
func wrapImage(rsrc []byte) []byte {
	buf := &bytes.Buffer{}
	le := binary.LittleEndian

	// DOS header: "MZ" and e_lfanew pointing right after it
	dos := make([]byte, 64)
	dos[0], dos[1] = 'M', 'Z'
	le.PutUint32(dos[0x3C:], 64)
	buf.Write(dos)

	buf.WriteString("PE\x00\x00")

	// COFF file header
	var coff [20]byte
	le.PutUint16(coff[0:], 0x14c) // IMAGE_FILE_MACHINE_I386
	le.PutUint16(coff[2:], 1)    // one section
	le.PutUint16(coff[16:], optHeader32Len)
	le.PutUint16(coff[18:], 0x0102) // EXECUTABLE_IMAGE | 32BIT_MACHINE
	buf.Write(coff[:])

	opt := make([]byte, optHeader32Len)
	le.PutUint16(opt[0:], 0x10b) // PE32 magic
	le.PutUint32(opt[28:], imageBase)
	le.PutUint32(opt[32:], 0x1000) // section alignment
	le.PutUint32(opt[36:], 0x200)  // file alignment
	le.PutUint32(opt[56:], 0x2000) // size of image
	le.PutUint32(opt[60:], 0x200)  // size of headers
	le.PutUint16(opt[68:], 3)      // subsystem: console
	le.PutUint32(opt[92:], 16)     // number of rva and sizes
	if len(rsrc) > 0 {
		// data directory slot 2: resource table
		le.PutUint32(opt[96+2*8:], rsrcVirtualAddress)
		le.PutUint32(opt[96+2*8+4:], uint32(len(rsrc)))
	}
	buf.Write(opt)

	// .rsrc section header
	var sec [40]byte
	copy(sec[:], ".rsrc")
	le.PutUint32(sec[8:], uint32(len(rsrc)))  // virtual size
	le.PutUint32(sec[12:], rsrcVirtualAddress)
	le.PutUint32(sec[16:], uint32(len(rsrc))) // size of raw data
	le.PutUint32(sec[20:], rsrcFileOffset)
	le.PutUint32(sec[36:], 0x40000040) // INITIALIZED_DATA | READ
	buf.Write(sec[:])

	// pad headers up to the section's file offset
	buf.Write(make([]byte, rsrcFileOffset-buf.Len()))
	buf.Write(rsrc)
	return buf.Bytes()
}
