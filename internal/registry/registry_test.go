package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/quay/pkgscan/model"
)

func resetForTest() {
	order = nil
	byID = map[string]Descriptor{}
}

func TestFindParsersOrderAndMultiMatch(t *testing.T) {
	resetForTest()
	Register(Descriptor{
		ID: "a", Patterns: []string{"*.json"}, DatasourceID: "a",
		Parse: func(context.Context, string) ([]*model.PackageData, error) { return nil, nil },
	})
	Register(Descriptor{
		ID: "b", Patterns: []string{"package.json"}, DatasourceID: "b",
		Parse: func(context.Context, string) ([]*model.PackageData, error) { return nil, nil },
	})

	got := FindParsers("package.json")
	want := []string{"a", "b"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseGracefulDegradationOnError(t *testing.T) {
	resetForTest()
	Register(Descriptor{
		ID: "failing", DefaultEcosystem: "npm", DatasourceID: "npm_package_json",
		Parse: func(context.Context, string) ([]*model.PackageData, error) {
			return nil, errors.New("boom")
		},
	})
	got := Parse(context.Background(), "failing", "/nonexistent")
	if len(got) != 1 {
		t.Fatalf("expected exactly one default fragment, got %d", len(got))
	}
	if got[0].PackageType != "npm" || got[0].DatasourceID != "npm_package_json" {
		t.Fatalf("unexpected default fragment: %+v", got[0])
	}
	if got[0].Name != "" || got[0].Version != "" {
		t.Fatalf("default fragment must carry only type and datasource: %+v", got[0])
	}
}

func TestParseGracefulDegradationOnPanic(t *testing.T) {
	resetForTest()
	Register(Descriptor{
		ID: "panicking", DefaultEcosystem: "maven", DatasourceID: "maven_pom",
		Parse: func(context.Context, string) ([]*model.PackageData, error) {
			panic("nope")
		},
	})
	got := Parse(context.Background(), "panicking", "/whatever")
	if len(got) != 1 || got[0].PackageType != "maven" {
		t.Fatalf("expected fallback fragment, got %+v", got)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	resetForTest()
	Register(Descriptor{ID: "dup", Parse: func(context.Context, string) ([]*model.PackageData, error) { return nil, nil }})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register(Descriptor{ID: "dup", Parse: func(context.Context, string) ([]*model.PackageData, error) { return nil, nil }})
}
