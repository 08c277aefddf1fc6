// Package rpm reads RPM package databases (the SQLite-backed rpmdb used by
// modern distributions) and extracts package records from the binary RPM
// header blob stored in each row.
//
// Grounded on quay-claircore/rpm/sqlite/header.go for the header blob
// decode, quay-claircore/rpm/sqlite/sqlite.go for opening the database, and
// quay-claircore/rpm/info.go and quay-claircore/rpm/sqlite.go for turning
// decoded headers into package records.
//
// The tag table here is a curated subset of the ~500 tags librpm defines
// (see quay-claircore/rpm/sqlite/rpm_tag.go), limited to the tags this
// package actually reads. verifyInfo's per-tag type check against that
// fuller table is therefore skipped here: unknown tags pass unchecked in the
// original too, so the only loss is declining to flag a header that claims a
// type for an rpm tag we don't otherwise look at.
package rpm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type tag int32

const (
	tagHeaderImage      tag = 61
	tagHeaderSignatures tag = 62
	tagHeaderImmutable  tag = 63
	tagHeaderI18nTable  tag = 100

	tagName      tag = 1000
	tagVersion   tag = 1001
	tagRelease   tag = 1002
	tagEpoch     tag = 1003
	tagSummary   tag = 1004
	tagLicense   tag = 1014
	tagURL       tag = 1020
	tagArch      tag = 1022
	tagSourceRPM tag = 1044

	tagDirIndexes tag = 1116
	tagBaseNames  tag = 1117
	tagDirNames   tag = 1118
)

type kind uint32

const (
	typeNull kind = iota
	typeChar
	typeInt8
	typeInt16
	typeInt32
	typeInt64
	typeString
	typeBin
	typeStringArray
	typeI18nString

	typeRegionTag = typeBin
	typeMin       = typeChar
	typeMax       = typeI18nString
)

func (k kind) alignment() int32 {
	switch k {
	case typeNull, typeChar, typeInt8, typeString, typeBin, typeStringArray, typeI18nString:
		return 1
	case typeInt16:
		return 2
	case typeInt32:
		return 4
	case typeInt64:
		return 8
	default:
		return 1
	}
}

const (
	entryInfoSize  = 16
	preambleSize   = 8
	regionTagCount = 16
)

type entryInfo struct {
	Tag    tag
	Type   kind
	Offset int32
	Count  uint32
}

func (e *entryInfo) load(b []byte) {
	e.Tag = tag(int32(binary.BigEndian.Uint32(b[0:4])))
	e.Type = kind(binary.BigEndian.Uint32(b[4:8]))
	e.Offset = int32(binary.BigEndian.Uint32(b[8:12]))
	e.Count = binary.BigEndian.Uint32(b[12:16])
}

// header is a decoded RPM header blob: a tags arena of entryInfo records
// indexing into a data arena.
type header struct {
	tags   []byte
	data   []byte
	infos  []entryInfo
	region tag
}

func (h *header) parse(b []byte) error {
	if err := h.loadArenas(b); err != nil {
		return err
	}
	if err := h.verifyRegion(); err != nil {
		return err
	}
	return h.verifyInfo()
}

func (h *header) loadArenas(b []byte) error {
	const (
		tagsMax = 0x0000ffff
		dataMax = 0x0fffffff
		sizeMax = 256 * 1024 * 1024
	)
	if len(b) < preambleSize {
		return fmt.Errorf("rpm: header too short")
	}
	tagsCt := binary.BigEndian.Uint32(b[0:])
	dataSz := binary.BigEndian.Uint32(b[4:])
	if tagsCt > tagsMax {
		return fmt.Errorf("rpm: header botch: number of tags (%d) out of range", tagsCt)
	}
	if dataSz > dataMax {
		return fmt.Errorf("rpm: header botch: data length (%d) out of range", dataSz)
	}
	tagsSz := int64(tagsCt) * entryInfoSize
	if sz := preambleSize + tagsSz + int64(dataSz); sz >= sizeMax || sz != int64(len(b)) {
		return fmt.Errorf("rpm: header botch: not enough data")
	}
	if tagsCt == 0 {
		return fmt.Errorf("rpm: header botch: no tags")
	}

	s := b[preambleSize:]
	h.tags = s[:tagsSz]
	h.data = s[tagsSz : tagsSz+int64(dataSz)]
	h.infos = make([]entryInfo, tagsCt)
	return nil
}

func (h *header) loadTag(i int) *entryInfo {
	e := &h.infos[i]
	if e.Tag == tag(0) {
		e.load(h.tags[i*entryInfoSize:])
	}
	return e
}

func (h *header) verifyRegion() error {
	region := h.loadTag(0)
	switch region.Tag {
	case tagHeaderSignatures, tagHeaderImmutable, tagHeaderImage:
	default:
		return fmt.Errorf("rpm: region tag not found")
	}
	if region.Type != typeBin || region.Count != regionTagCount {
		return fmt.Errorf("rpm: nonsense region tag: %v count %d", region.Type, region.Count)
	}
	if off := region.Offset + regionTagCount; off < 0 || off > int32(len(h.data)) {
		return fmt.Errorf("rpm: nonsense region offset")
	}

	var trailer entryInfo
	trailer.load(h.data[region.Offset:])
	rDataLen := region.Offset + regionTagCount
	trailer.Offset = -trailer.Offset
	rIdxLen := trailer.Offset / entryInfoSize
	if region.Tag == tagHeaderSignatures && trailer.Tag == tagHeaderImage {
		trailer.Tag = tagHeaderSignatures
	}
	if trailer.Tag != region.Tag || trailer.Type != typeRegionTag || trailer.Count != regionTagCount {
		return fmt.Errorf("rpm: bad region trailer: %+v", trailer)
	}
	if (trailer.Offset%entryInfoSize != 0) ||
		rIdxLen > int32(len(h.tags)) ||
		rDataLen > int32(len(h.data)) {
		return fmt.Errorf("rpm: region size incorrect")
	}
	h.region = region.Tag
	return nil
}

func (h *header) verifyInfo() error {
	var prev int32
	for i := 1; i < len(h.infos); i++ {
		e := h.loadTag(i)
		switch {
		case prev > e.Offset:
			return fmt.Errorf("rpm: botched entry: prev > offset (%d > %d)", prev, e.Offset)
		case e.Tag < tagHeaderI18nTable:
			return fmt.Errorf("rpm: botched entry: bad tag %v", e.Tag)
		case e.Type < typeMin || e.Type > typeMax:
			return fmt.Errorf("rpm: botched entry: bad type %v", e.Type)
		case e.Count == 0 || e.Count > uint32(len(h.data)):
			return fmt.Errorf("rpm: botched entry: bad count %d", e.Count)
		case (e.Type.alignment()-1)&e.Offset != 0:
			return fmt.Errorf("rpm: botched entry: bad alignment")
		case e.Offset < 0 || e.Offset > int32(len(h.data)):
			return fmt.Errorf("rpm: botched entry: bad offset %d", e.Offset)
		}
		prev = e.Offset
	}
	return nil
}

// readData decodes the value referenced by e. Only the variants this
// package reads (string, string array, and 32-bit integer) are implemented;
// anything else is read as raw bytes.
func (h *header) readData(e *entryInfo) (any, error) {
	switch e.Type {
	case typeString:
		b := h.data[e.Offset:]
		if idx := bytes.IndexByte(b, 0); idx >= 0 {
			b = b[:idx]
		}
		return string(b), nil
	case typeI18nString, typeStringArray:
		bs := bytes.SplitN(h.data[e.Offset:], []byte{0}, int(e.Count+1))
		if len(bs) > int(e.Count) {
			bs = bs[:e.Count]
		}
		s := make([]string, len(bs))
		for i := range bs {
			s[i] = string(bs[i])
		}
		return s, nil
	case typeInt32:
		b := h.data[e.Offset:]
		r := make([]int32, int(e.Count))
		for i := range r {
			r[i] = int32(binary.BigEndian.Uint32(b[i*4:]))
		}
		return r, nil
	case typeInt8, typeChar:
		b := h.data[e.Offset:]
		r := make([]byte, int(e.Count))
		copy(r, b)
		return r, nil
	default:
		return h.data[e.Offset:][:e.Count], nil
	}
}
