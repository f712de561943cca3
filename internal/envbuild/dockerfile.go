package envbuild

import (
	"fmt"
	"strings"
	"text/template"
)

// dockerfileData is the template input for a language's DockerfileBody.
type dockerfileData struct {
	BaseImage       string
	Toolchain       string
	Packages        []string
	GoProxyFallback bool
}

// Render produces the Dockerfile text for a spec.
func Render(spec EnvSpec) (string, error) {
	tmpl, err := template.New(spec.Language.Name).Parse(spec.Language.DockerfileBody)
	if err != nil {
		return "", fmt.Errorf("parse dockerfile template for %s: %w", spec.Language.Name, err)
	}
	data := dockerfileData{
		BaseImage:       spec.BaseImage,
		Toolchain:       spec.Toolchain,
		Packages:        spec.SystemPackages,
		GoProxyFallback: spec.GoProxyFallback,
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render dockerfile for %s: %w", spec.Language.Name, err)
	}
	return buf.String(), nil
}
