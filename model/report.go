package model

// Header carries the scan's own metadata: what produced the output and
// with what configuration, so downstream consumers can tell one scan run
// apart from another. Not grounded on a specific corpus file (no example
// repo's scanner emits a top-level report envelope); shaped directly from
// spec §6's "top-level object has headers, files, packages, and
// dependencies arrays".
type Header struct {
	ToolName     string         `json:"tool_name"`
	ToolVersion  string         `json:"tool_version"`
	Root         string         `json:"root"`
	StartedAt    string         `json:"start_timestamp"`
	FinishedAt   string         `json:"end_timestamp"`
	FileCount    int            `json:"file_count"`
	PackageCount int            `json:"package_count"`
	ExtraData    map[string]any `json:"extra_data,omitempty"`
}

// Report is the full wire schema a scan produces, consumed by an external
// serializer (spec §4.5 "Output model", spec §6 "Output schema").
type Report struct {
	Headers      []Header              `json:"headers"`
	Files        []*FileInfo           `json:"files"`
	Packages     []*Package            `json:"packages"`
	Dependencies []*TopLevelDependency `json:"dependencies"`
}
