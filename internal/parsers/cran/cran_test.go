package cran

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDescriptionBasics(t *testing.T) {
	content := "Package: dplyr\n" +
		"Version: 1.1.4\n" +
		"Title: A Grammar of\n" +
		" Data Manipulation\n" +
		"Description: A fast, consistent tool for\n" +
		" working with data frame like objects.\n" +
		"License: MIT\n" +
		"URL: https://dplyr.tidyverse.org, https://github.com/tidyverse/dplyr\n" +
		"Maintainer: Hadley Wickham <hadley@posit.co>\n" +
		"Imports: cli (>= 3.6.2), generics\n" +
		"Suggests: covr\n" +
		"Depends: R (>= 3.5.0)\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "DESCRIPTION")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseDescription(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "dplyr" || p.Version != "1.1.4" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.Description != "A Grammar of Data Manipulation\nA fast, consistent tool for working with data frame like objects." {
		t.Fatalf("unexpected description: %q", p.Description)
	}
	if len(p.Parties) != 1 || p.Parties[0].Email != "hadley@posit.co" {
		t.Fatalf("unexpected parties: %+v", p.Parties)
	}
	// Depends only contains the filtered "R" requirement, Imports has 2.
	var sawCli, sawGenerics bool
	for _, d := range p.Dependencies {
		if d.Purl == "" {
			continue
		}
		if d.Scope == "imports" {
			if !d.IsRuntime {
				t.Fatalf("imports scope should be runtime: %+v", d)
			}
		}
		if d.ExtractedRequirement == ">= 3.6.2" {
			sawCli = true
		}
		if d.ExtractedRequirement == "" {
			sawGenerics = true
		}
	}
	if !sawCli || !sawGenerics {
		t.Fatalf("expected cli and generics dependencies: %+v", p.Dependencies)
	}
	for _, d := range p.Dependencies {
		if d.Scope == "" && d.ExtractedRequirement != "" {
			t.Fatalf("R dependency should have been filtered out: %+v", d)
		}
	}
}
