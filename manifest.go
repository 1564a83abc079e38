// Package uacscope extracts embedded application manifests from Windows
// PE executables and DLLs and surfaces the UAC-relevant attributes they
// declare. Target files are parsed purely as data; none of their code
// ever runs, so the package is safe to point at untrusted binaries.
package uacscope

// DefaultExecutionLevel is reported when a manifest does not request an
// execution level.
const DefaultExecutionLevel = "asInvoker"

// Manifest describes one manifest resource discovered in an executable.
// Records are fully populated on construction and never mutated.
type Manifest struct {
	// FullPath is the absolute path of the file the manifest came from.
	FullPath string `json:"fullPath"`

	// Name is the filename component of FullPath. Records extracted
	// from the same file share it; the resource's own identifier is not
	// surfaced.
	Name string `json:"name"`

	// ParseError reports that the resource was not well-formed XML.
	ParseError bool `json:"parseError"`

	// ExecutionLevel is the requested UAC execution level, passed
	// through verbatim without validation.
	ExecutionLevel string `json:"executionLevel"`

	// UIAccess reports whether the manifest requests access to
	// higher-integrity UI elements.
	UIAccess bool `json:"uiAccess"`

	// AutoElevate reports whether the manifest opts into prompt-free
	// elevation for signed binaries.
	AutoElevate bool `json:"autoElevate"`

	// XML is the canonical pretty-printed manifest document, or the raw
	// resource text when ParseError is set.
	XML string `json:"manifestXml"`
}
