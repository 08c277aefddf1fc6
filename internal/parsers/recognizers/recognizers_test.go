package recognizers

import (
	"context"
	"testing"

	"github.com/quay/pkgscan/internal/registry"
)

func TestRecognizersRegisteredAndMinimal(t *testing.T) {
	ids := registry.FindParsers("app.apk")
	found := false
	for _, id := range ids {
		if id == "android_apk" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected android_apk recognizer to match app.apk, got %v", ids)
	}
	frags := registry.Parse(context.Background(), "android_apk", "app.apk")
	if frags == nil {
		t.Fatal("registry.Parse returned no fragments")
	}
	if len(frags) != 1 || frags[0].PackageType != "android" || frags[0].Name != "" {
		t.Fatalf("expected minimal fragment, got %+v", frags)
	}
}
