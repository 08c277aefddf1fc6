package serialize

import (
	"bytes"
	"testing"

	"github.com/quay/pkgscan/model"
)

// TestWriteReadRoundTrip exercises spec §8's "Serializing and
// re-deserializing the output schema is identity on the in-memory model."
func TestWriteReadRoundTrip(t *testing.T) {
	report := &model.Report{
		Headers: []model.Header{{
			ToolName:     "pkgscan",
			ToolVersion:  "test",
			Root:         "/rootfs",
			FileCount:    2,
			PackageCount: 1,
		}},
		Files: []*model.FileInfo{
			{Index: 0, Path: "package.json", FileType: model.File},
			{Index: 1, Path: "node_modules", FileType: model.Directory},
		},
		Packages: []*model.Package{
			{
				PackageData:   model.PackageData{PackageType: "npm", Name: "fixture", Version: "1.0.0", Purl: "pkg:npm/fixture@1.0.0"},
				PackageUID:    "uid-1",
				DatafilePaths: []string{"package.json"},
				DatasourceIDs: []string{"npm_package_json"},
			},
		},
		Dependencies: []*model.TopLevelDependency{
			{
				Dependency:    model.Dependency{Purl: "pkg:npm/left-pad@1.0.0", ExtractedRequirement: "1.0.0", IsDirect: true},
				ForPackageUID: "uid-1",
				DatafilePath:  "package.json",
				DatasourceID:  "npm_package_json",
			},
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, report); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(got.Headers) != 1 || got.Headers[0].ToolName != "pkgscan" {
		t.Fatalf("headers mismatch: %+v", got.Headers)
	}
	if len(got.Files) != 2 || got.Files[1].FileType != model.Directory {
		t.Fatalf("files mismatch: %+v", got.Files)
	}
	if len(got.Packages) != 1 || got.Packages[0].Purl != "pkg:npm/fixture@1.0.0" {
		t.Fatalf("packages mismatch: %+v", got.Packages)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].ForPackageUID != "uid-1" {
		t.Fatalf("dependencies mismatch: %+v", got.Dependencies)
	}
}
