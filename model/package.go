package model

// URLs groups the various URL kinds a package manifest may declare. Mirrors
// the URL fan-out in spec §3 PackageData.
type URLs struct {
	Homepage string `json:"homepage_url,omitempty"`
	Download string `json:"download_url,omitempty"`
	VCS      string `json:"vcs_url,omitempty"`
	Repository string `json:"repository_homepage_url,omitempty"`
	Bug      string `json:"bug_tracking_url,omitempty"`
	CodeView string `json:"code_view_url,omitempty"`
	APIData  string `json:"api_data_url,omitempty"`
}

// Checksum is a single named digest (e.g. sha1, sha256, integrity).
type Checksum struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// LicenseDetection is a coarse license match produced by an upstream,
// out-of-core license-detection engine (spec §1 Non-goals: license
// detection itself is not implemented here, but the field it would
// populate is part of the stable schema).
type LicenseDetection struct {
	// Expression is serialized under its legacy name, preserved for
	// downstream compatibility (spec §6 "several fields carry legacy
	// renames").
	Expression  string  `json:"detected_license_expression_spdx"`
	Score       float64 `json:"score,omitempty"`
	MatchedText string  `json:"matched_text,omitempty"`
}

// Party is a person or organization associated with a package, tagged with
// the role it plays (author, maintainer, owner, ...).
type Party struct {
	Type  string `json:"type,omitempty"` // "person" | "organization"
	Role  string `json:"role,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// FileReference is a path declared inside a package's manifest or database
// entry. The assembler resolves these against the scan's actual files
// (spec §4.4 step 3).
type FileReference struct {
	Path     string `json:"path"`
	SHA1     string `json:"sha1,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	MD5      string `json:"md5,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// PackageData is the output of a single parser invocation on a single file.
// It is a fragment: it carries no uid of its own and is consumed by the
// assembler, which combines one or more fragments into a Package.
type PackageData struct {
	PackageType string `json:"type,omitempty"`
	Namespace   string `json:"namespace,omitempty"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Qualifiers  map[string]string `json:"qualifiers,omitempty"`
	Subpath     string `json:"subpath,omitempty"`
	Purl        string `json:"purl,omitempty"`

	DatasourceID string `json:"datasource_id,omitempty"`
	PrimaryLanguage string `json:"primary_language,omitempty"`

	Description string `json:"description,omitempty"`
	URLs        URLs   `json:"urls,omitempty"`

	LicenseStatement  string             `json:"extracted_license_statement,omitempty"`
	LicenseDetections []LicenseDetection `json:"license_detections,omitempty"`

	Parties  []Party  `json:"parties,omitempty"`
	Keywords []string `json:"keywords,omitempty"`

	Checksums []Checksum `json:"checksums,omitempty"`

	Dependencies   []*Dependency    `json:"dependencies,omitempty"`
	FileReferences []FileReference  `json:"file_references,omitempty"`

	IsPrivate bool `json:"is_private,omitempty"`
	IsVirtual bool `json:"is_virtual,omitempty"`

	// ExtraData is an opaque, parser-specific bag. Go.mod replace directives,
	// RPM missing-file-reference lists, and pnpm workspace patterns all live
	// here rather than as named fields on the common schema.
	ExtraData map[string]any `json:"extra_data,omitempty"`

	// sourceFileIndex is the FileInfo.Index this fragment was produced from.
	// Not part of the wire schema; used internally by the assembler.
	sourceFileIndex int
}

// SourceFileIndex returns the file index this fragment originated from.
func (p *PackageData) SourceFileIndex() int { return p.sourceFileIndex }

// SetSourceFileIndex is called by internal/walk's scanOneFile immediately
// after a parser returns a fragment, before the assembler ever sees it.
func (p *PackageData) SetSourceFileIndex(i int) { p.sourceFileIndex = i }

// HasPurl reports whether this fragment carries enough information to seed
// a Package (spec §4.4 step 1: "the first file whose PackageData.purl is
// set seeds the Package").
func (p *PackageData) HasPurl() bool { return p.Purl != "" }

// Package is a top-level, user-facing record assembled from one or more
// PackageData fragments.
type Package struct {
	PackageData

	PackageUID string `json:"package_uid"`

	DatafilePaths []string `json:"datafile_paths"`
	DatasourceIDs []string `json:"datasource_ids"`
}

// AddDatafilePath records a contributing file path, deduping as it goes.
func (p *Package) AddDatafilePath(path string) {
	for _, existing := range p.DatafilePaths {
		if existing == path {
			return
		}
	}
	p.DatafilePaths = append(p.DatafilePaths, path)
}

// AddDatasourceID records a contributing datasource id, deduping as it goes.
func (p *Package) AddDatasourceID(id string) {
	if id == "" {
		return
	}
	for _, existing := range p.DatasourceIDs {
		if existing == id {
			return
		}
	}
	p.DatasourceIDs = append(p.DatasourceIDs, id)
}

// Update merges a later-discovered fragment into an already-seeded Package,
// following the sibling-merge contract in spec §4.4: later patterns update
// the Package the first pattern created without overwriting fields the
// fragment leaves empty.
func (p *Package) Update(frag *PackageData) {
	if p.Name == "" {
		p.Name = frag.Name
	}
	if p.Version == "" {
		p.Version = frag.Version
	}
	if p.Namespace == "" {
		p.Namespace = frag.Namespace
	}
	if p.Purl == "" && frag.Purl != "" {
		p.Purl = frag.Purl
	}
	if p.Description == "" {
		p.Description = frag.Description
	}
	if p.LicenseStatement == "" {
		p.LicenseStatement = frag.LicenseStatement
	}
	p.LicenseDetections = append(p.LicenseDetections, frag.LicenseDetections...)
	p.Parties = append(p.Parties, frag.Parties...)
	p.Keywords = dedupeStrings(append(p.Keywords, frag.Keywords...))
	p.Checksums = append(p.Checksums, frag.Checksums...)
	p.Dependencies = append(p.Dependencies, frag.Dependencies...)
	p.FileReferences = append(p.FileReferences, frag.FileReferences...)
	if frag.IsPrivate {
		p.IsPrivate = true
	}
	if frag.IsVirtual {
		p.IsVirtual = true
	}
	for k, v := range frag.ExtraData {
		if p.ExtraData == nil {
			p.ExtraData = map[string]any{}
		}
		p.ExtraData[k] = v
	}
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NewPackageFromFragment seeds a new Package from the first purl-bearing
// fragment in a sibling group (spec §4.4 step 1).
func NewPackageFromFragment(frag *PackageData, uid string) *Package {
	p := &Package{PackageData: *frag, PackageUID: uid}
	p.Dependencies = append([]*Dependency(nil), frag.Dependencies...)
	p.FileReferences = append([]FileReference(nil), frag.FileReferences...)
	return p
}
