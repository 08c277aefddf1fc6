package maven

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParsePomBasics(t *testing.T) {
	path := writeTemp(t, "pom.xml", `<?xml version="1.0"?>
<project>
  <groupId>com.example</groupId>
  <artifactId>widget</artifactId>
  <version>1.0.0</version>
  <url>https://example.com</url>
  <licenses>
    <license><name>MIT License</name></license>
  </licenses>
  <dependencies>
    <dependency>
      <groupId>com.google.guava</groupId>
      <artifactId>guava</artifactId>
      <version>30.1-jre</version>
    </dependency>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>4.13</version>
      <scope>test</scope>
    </dependency>
  </dependencies>
</project>`)
	frags, err := parsePom(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Namespace != "com.example" || p.Name != "widget" || p.Version != "1.0.0" {
		t.Fatalf("unexpected identity: %+v", p)
	}
	if p.Purl != "pkg:maven/com.example/widget@1.0.0" {
		t.Fatalf("unexpected purl: %q", p.Purl)
	}
	if p.LicenseStatement != "MIT" {
		t.Fatalf("expected mapped MIT license, got %q", p.LicenseStatement)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
	for _, d := range p.Dependencies {
		if d.ResolvedPackage.Name == "junit" && d.IsRuntime {
			t.Error("junit test-scope dependency should not be runtime")
		}
	}
}

func TestParsePomInheritsParentCoordinates(t *testing.T) {
	path := writeTemp(t, "pom.xml", `<project>
  <parent>
    <groupId>com.example</groupId>
    <artifactId>parent</artifactId>
    <version>2.0.0</version>
  </parent>
  <artifactId>child</artifactId>
</project>`)
	frags, err := parsePom(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Namespace != "com.example" || p.Version != "2.0.0" {
		t.Fatalf("expected inherited parent coordinates, got %+v", p)
	}
}

func TestParseGradleLockfile(t *testing.T) {
	content := "# comment\ncom.example:lib1:1.0.0=hash1\n\norg.springframework.boot:spring-boot-starter-web:2.7.0=hash2\nmalformed-line\n"
	path := writeTemp(t, "gradle.lockfile", content)
	frags, err := parseGradleLockfile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d: %+v", len(p.Dependencies), p.Dependencies)
	}
	if !p.Dependencies[0].IsPinned {
		t.Error("gradle.lockfile dependencies must be pinned")
	}
}

func TestParseIvyXML(t *testing.T) {
	path := writeTemp(t, "ivy.xml", `<ivy-module>
  <info organisation="com.example" module="widget" revision="1.0"/>
  <dependencies>
    <dependency org="com.example" name="core" rev="1.0" conf="default"/>
  </dependencies>
</ivy-module>`)
	frags, err := parseIvy(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "widget" || p.Namespace != "com.example" {
		t.Fatalf("unexpected identity: %+v", p)
	}
	if len(p.Dependencies) != 1 || p.Dependencies[0].ResolvedPackage.Name != "core" {
		t.Fatalf("unexpected dependencies: %+v", p.Dependencies)
	}
}
