package rpm

import (
	"context"

	"github.com/quay/pkgscan/model"
)

// rpmInfo is the package information extracted from a decoded RPM header,
// following quay-claircore/rpm/info.go's tag-to-field mapping, reduced to
// the tags this parser needs.
type rpmInfo struct {
	Name       string
	Version    string
	Release    string
	Arch       string
	License    string
	Summary    string
	URL        string
	SourceNEVR string
	Epoch      int

	// BaseNames/DirIndexes/DirNames are rpm's parallel-array file list
	// encoding: BaseNames[i] lives in DirNames[DirIndexes[i]].
	BaseNames  []string
	DirIndexes []int32
	DirNames   []string
}

func (i *rpmInfo) load(ctx context.Context, h *header) error {
	for idx := range h.infos {
		e := h.loadTag(idx)
		switch e.Tag {
		case tagName, tagVersion, tagRelease, tagArch, tagLicense, tagSummary, tagURL, tagSourceRPM, tagEpoch,
			tagBaseNames, tagDirIndexes, tagDirNames:
		default:
			continue
		}
		v, err := h.readData(e)
		if err != nil {
			return err
		}
		switch e.Tag {
		case tagName:
			i.Name, _ = v.(string)
		case tagVersion:
			i.Version, _ = v.(string)
		case tagRelease:
			i.Release, _ = v.(string)
		case tagArch:
			i.Arch, _ = v.(string)
		case tagSourceRPM:
			i.SourceNEVR, _ = v.(string)
		case tagLicense:
			i.License, _ = v.(string)
		case tagSummary:
			if ss, ok := v.([]string); ok && len(ss) > 0 {
				i.Summary = ss[0]
			}
		case tagURL:
			i.URL, _ = v.(string)
		case tagEpoch:
			if is, ok := v.([]int32); ok && len(is) > 0 {
				i.Epoch = int(is[0])
			}
		case tagBaseNames:
			i.BaseNames, _ = v.([]string)
		case tagDirNames:
			i.DirNames, _ = v.([]string)
		case tagDirIndexes:
			i.DirIndexes, _ = v.([]int32)
		}
	}
	return nil
}

// buildFileReferences zips BaseNames/DirIndexes/DirNames into the
// package's file list, following original_source's
// src/parsers/rpm_db.rs build_file_references: each installed file's path
// is DirNames[DirIndexes[i]] + BaseNames[i], with the leading "/" kept; the
// assembler strips it before matching the path against walked file paths.
func (i *rpmInfo) buildFileReferences() []model.FileReference {
	if len(i.BaseNames) == 0 || len(i.DirNames) == 0 {
		return nil
	}
	var out []model.FileReference
	for idx, base := range i.BaseNames {
		if idx >= len(i.DirIndexes) {
			break
		}
		dirIdx := int(i.DirIndexes[idx])
		if dirIdx < 0 || dirIdx >= len(i.DirNames) {
			continue
		}
		path := i.DirNames[dirIdx] + base
		if path == "" || path == "/" {
			continue
		}
		out = append(out, model.FileReference{Path: path})
	}
	return out
}
