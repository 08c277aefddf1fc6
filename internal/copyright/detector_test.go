package copyright

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/quay/pkgscan/model"
)

func TestDetectEmpty(t *testing.T) {
	c, h, a := Detect("")
	if len(c) != 0 || len(h) != 0 || len(a) != 0 {
		t.Fatalf("expected empty triples, got %v %v %v", c, h, a)
	}
}

func TestDetectCopyrightWithYearRange(t *testing.T) {
	c, h, a := Detect("Copyright (c) 2020-2024 Foo Corp.")
	wantC := []model.CopyrightDetection{{Text: "Copyright (c) 2020-2024 Foo Corp.", StartLine: 1, EndLine: 1}}
	wantH := []model.HolderDetection{{Text: "Foo Corp.", StartLine: 1, EndLine: 1}}
	if diff := cmp.Diff(wantC, c); diff != "" {
		t.Errorf("copyrights mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantH, h); diff != "" {
		t.Errorf("holders mismatch (-want +got):\n%s", diff)
	}
	if len(a) != 0 {
		t.Errorf("expected no authors, got %v", a)
	}
}

func TestDetectStripsAllRightsReserved(t *testing.T) {
	c, h, _ := Detect("Copyright 2024 Apple Inc. All rights reserved.")
	if len(c) != 1 || c[0].Text != "Copyright 2024 Apple Inc." {
		t.Fatalf("unexpected copyrights: %+v", c)
	}
	if len(h) != 1 || h[0].Text != "Apple Inc." {
		t.Fatalf("unexpected holders: %+v", h)
	}
}

func TestDetectAuthor(t *testing.T) {
	_, _, a := Detect("Written by Jane Example.")
	if len(a) != 1 {
		t.Fatalf("expected one author, got %+v", a)
	}
	if a[0].Text == "" {
		t.Fatalf("expected non-empty author text")
	}
}

func TestDetectInvariantStartBeforeEnd(t *testing.T) {
	c, h, a := Detect("Copyright (c) 2020-2024 Foo Corp.\nWritten by Jane Example.\n")
	for _, d := range c {
		if d.StartLine > d.EndLine {
			t.Errorf("copyright start>end: %+v", d)
		}
	}
	for _, d := range h {
		if d.StartLine > d.EndLine {
			t.Errorf("holder start>end: %+v", d)
		}
	}
	for _, d := range a {
		if d.StartLine > d.EndLine {
			t.Errorf("author start>end: %+v", d)
		}
	}
}
