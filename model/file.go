// Package model holds the output schema shared by every component of the
// scan pipeline: the parser registry, the copyright detector, and the
// assembler all read and write these types.
package model

// FileType distinguishes a regular file from a directory entry.
type FileType string

const (
	File      FileType = "file"
	Directory FileType = "directory"
)

// FileInfo is the per-scanned-entry record created once by the tree walker
// and mutated only additively afterward: parsers append to PackageData,
// the copyright engine appends to Copyrights/Holders/Authors, and the
// assembler appends to ForPackages.
type FileInfo struct {
	// Index is the stable, 0-based position of this file within the scan's
	// file slice. Assigned once by the walker and never reused.
	Index int `json:"-"`

	Path     string   `json:"path"`
	Name     string   `json:"name"`
	BaseName string   `json:"base_name"`
	Extension string  `json:"extension,omitempty"`
	FileType FileType `json:"type"`

	MimeType        string `json:"mime_type,omitempty"`
	SHA1            string `json:"sha1,omitempty"`
	MD5             string `json:"md5,omitempty"`
	SHA256          string `json:"sha256,omitempty"`
	Size            int64  `json:"size"`
	ProgrammingLang string `json:"programming_language,omitempty"`

	// PackageData holds every fragment any parser emitted for this file, in
	// parser-registration order (spec §5 "Ordering guarantees").
	PackageData []*PackageData `json:"package_data,omitempty"`

	// ForPackages lists the uids of assembled Packages that claim this file.
	// Invariant: no duplicates.
	ForPackages []string `json:"for_packages"`

	Copyrights []CopyrightDetection `json:"copyrights,omitempty"`
	Holders    []HolderDetection    `json:"holders,omitempty"`
	Authors    []AuthorDetection    `json:"authors,omitempty"`

	Licenses []string `json:"licenses,omitempty"`
	URLs     []string `json:"urls,omitempty"`

	// ScanErrors accumulates human-readable failure descriptions for this
	// file. A non-empty slice never aborts the overall scan (spec §7).
	ScanErrors []string `json:"scan_errors,omitempty"`
}

// AddForPackage appends uid to ForPackages if it is not already present.
func (f *FileInfo) AddForPackage(uid string) {
	for _, existing := range f.ForPackages {
		if existing == uid {
			return
		}
	}
	f.ForPackages = append(f.ForPackages, uid)
}

// AddScanError records a non-fatal error encountered while processing this
// file. Parsers and the copyright detector never receive the FileInfo, so
// they do not call it.
func (f *FileInfo) AddScanError(msg string) {
	f.ScanErrors = append(f.ScanErrors, msg)
}
