package envbuild

import (
	"strings"
	"testing"
)

func TestRenderGo(t *testing.T) {
	spec := specFor(t, "go")
	out, err := Render(spec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"FROM ubuntu:24.04",
		"COPY . /app/repo",
		"ln -sfn /app/repo /repo",
		"mkdir -p /saved/ENV /workspace",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered dockerfile missing %q", want)
		}
	}
	if strings.Contains(out, "GOPROXY=") {
		t.Error("GOPROXY fallback rendered without being healed in")
	}
}

func TestRenderGoProxyFallback(t *testing.T) {
	spec := specFor(t, "go")
	spec.GoProxyFallback = true
	out, err := Render(spec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "GOPROXY=https://proxy.golang.org") {
		t.Error("GOPROXY fallback not rendered")
	}
}

func TestRenderRustToolchainAndPackages(t *testing.T) {
	spec := specFor(t, "rust")
	spec.Toolchain = "nightly"
	spec.SystemPackages = []string{"libssl-dev", "pkg-config"}
	out, err := Render(spec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "--default-toolchain nightly") {
		t.Error("toolchain channel not rendered")
	}
	if !strings.Contains(out, "libssl-dev") {
		t.Error("healed packages not rendered")
	}
}

func TestRenderEveryLanguage(t *testing.T) {
	for _, name := range []string{"go", "rust", "python", "typescript", "javascript"} {
		spec := specFor(t, name)
		out, err := Render(spec)
		if err != nil {
			t.Errorf("Render(%s): %v", name, err)
			continue
		}
		if !strings.Contains(out, "/app/repo") || !strings.Contains(out, "/workspace") {
			t.Errorf("%s dockerfile missing shared layout", name)
		}
	}
}
