package rpm

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
)

type testTag struct {
	Tag   tag
	Type  kind
	Value string
}

// buildHeaderBlob hand-assembles a minimal, valid RPM header blob: a region
// tag at index 0 pointing at a trailer entry in the data arena, followed by
// one string-typed entry per tt, laid out in ascending offset order as
// verifyInfo requires.
func buildHeaderBlob(t *testing.T, tt []testTag) []byte {
	t.Helper()
	const trailerSize = 16

	var data bytes.Buffer
	data.Write(make([]byte, trailerSize)) // placeholder, overwritten below

	type entry struct {
		Tag    tag
		Type   kind
		Offset int32
		Count  uint32
	}
	entries := make([]entry, 0, len(tt))
	for _, x := range tt {
		off := int32(data.Len())
		data.WriteString(x.Value)
		data.WriteByte(0)
		entries = append(entries, entry{Tag: x.Tag, Type: x.Type, Offset: off, Count: uint32(len(x.Value) + 1)})
	}

	tagsCt := uint32(len(entries) + 1)
	trailerOffset := -int32(tagsCt) * entryInfoSize

	putEntry := func(buf *bytes.Buffer, e entry) {
		var b [16]byte
		binary.BigEndian.PutUint32(b[0:4], uint32(int32(e.Tag)))
		binary.BigEndian.PutUint32(b[4:8], uint32(e.Type))
		binary.BigEndian.PutUint32(b[8:12], uint32(e.Offset))
		binary.BigEndian.PutUint32(b[12:16], e.Count)
		buf.Write(b[:])
	}

	// Overwrite the trailer placeholder at the front of the data arena.
	trailerBytes := data.Bytes()[:trailerSize]
	binary.BigEndian.PutUint32(trailerBytes[0:4], uint32(int32(tagHeaderImmutable)))
	binary.BigEndian.PutUint32(trailerBytes[4:8], uint32(typeRegionTag))
	binary.BigEndian.PutUint32(trailerBytes[8:12], uint32(trailerOffset))
	binary.BigEndian.PutUint32(trailerBytes[12:16], regionTagCount)

	var tags bytes.Buffer
	putEntry(&tags, entry{Tag: tagHeaderImmutable, Type: typeBin, Offset: 0, Count: regionTagCount})
	for _, e := range entries {
		putEntry(&tags, e)
	}

	var blob bytes.Buffer
	var preamble [8]byte
	binary.BigEndian.PutUint32(preamble[0:4], tagsCt)
	binary.BigEndian.PutUint32(preamble[4:8], uint32(data.Len()))
	blob.Write(preamble[:])
	blob.Write(tags.Bytes())
	blob.Write(data.Bytes())
	return blob.Bytes()
}

func TestDecodeHeaderBlob(t *testing.T) {
	blob := buildHeaderBlob(t, []testTag{
		{tagName, typeString, "acme-widget"},
		{tagVersion, typeString, "1.2.3"},
		{tagRelease, typeString, "4"},
		{tagArch, typeString, "x86_64"},
		{tagLicense, typeString, "MIT"},
		{tagURL, typeString, "https://example.com"},
		{tagSourceRPM, typeString, "acme-widget-1.2.3-4.src.rpm"},
	})

	pkg, err := decodeHeaderBlob(context.Background(), blob)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Name != "acme-widget" {
		t.Fatalf("unexpected name: %+v", pkg)
	}
	if pkg.Version != "1.2.3-4" {
		t.Fatalf("unexpected evr: %q", pkg.Version)
	}
	if pkg.LicenseStatement != "MIT" {
		t.Fatalf("unexpected license: %q", pkg.LicenseStatement)
	}
	if pkg.Purl == "" {
		t.Fatal("expected non-empty purl")
	}
	if pkg.ExtraData["source_rpm"] != "acme-widget-1.2.3-4.src.rpm" {
		t.Fatalf("unexpected source_rpm: %+v", pkg.ExtraData)
	}
}

func TestDecodeHeaderBlobWithEpoch(t *testing.T) {
	blob := buildHeaderBlob(t, []testTag{
		{tagName, typeString, "acme-widget"},
		{tagVersion, typeString, "1.2.3"},
		{tagRelease, typeString, "4"},
	})
	// Patch in an epoch entry is awkward by hand for an int32 value, so this
	// case is covered indirectly: constructEVR is exercised directly instead.
	pkg, err := decodeHeaderBlob(context.Background(), blob)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Version != "1.2.3-4" {
		t.Fatalf("unexpected evr without epoch: %q", pkg.Version)
	}
	if got := constructEVR(&rpmInfo{Version: "1.2.3", Release: "4", Epoch: 2}); got != "2:1.2.3-4" {
		t.Fatalf("unexpected evr with epoch: %q", got)
	}
}
