// Package templates renders the canonical content of tracked files.
//
// Templates are embedded in the binary so a given build always renders the
// same output for the same variables — the scanner's "expected content" and
// a fresh generation flow share one renderer, which is what makes repeated
// reconciliation runs converge.
package templates

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates
var templateFS embed.FS

// SetVersion identifies the canonical template set compiled into this
// binary. It is recorded into a project's metadata after a successful apply
// and reported in diff output; it never gates which files are compared.
const SetVersion = "1.4.0"

// Template IDs for every tracked generated file, grouped by flavor.
// These are the TemplateID values the registry declares.
const (
	MetadataJSON     = "common/aida.json.tmpl"
	EditorConfig     = "common/editorconfig.tmpl"
	PyGitignore      = "python/gitignore.tmpl"
	PyMakefile       = "python/Makefile.tmpl"
	PyRuffConfig     = "python/ruff.toml.tmpl"
	PyProjectToml    = "python/pyproject.toml.tmpl"
	PyPreCommit      = "python/pre-commit-config.yaml.tmpl"
	PyCIWorkflow     = "python/ci.yml.tmpl"
	PySmokeTest      = "python/test_smoke.py.tmpl"
	JSGitignore      = "javascript/gitignore.tmpl"
	JSMakefile       = "javascript/Makefile.tmpl"
	JSESLintConfig   = "javascript/eslint.config.js.tmpl"
	JSPackageJSON    = "javascript/package.json.tmpl"
	JSCIWorkflow     = "javascript/ci.yml.tmpl"
	JSSmokeTest      = "javascript/smoke.test.js.tmpl"
)

// Variables is the variable map a template renders with. It is built from
// the project manifest, so rendered output embeds the project's own values —
// identical to what a fresh generation of the same project would produce.
type Variables struct {
	Name             string
	Description      string
	Author           string
	Version          string
	Language         string
	GeneratorVersion string
}

// Renderer produces canonical file content from a template ID and variables.
// Implementations must be pure: identical inputs always render identical
// output.
type Renderer interface {
	Render(templateID string, vars Variables) (string, error)
}

// EmbedRenderer renders from the embedded template set.
type EmbedRenderer struct {
	templates *template.Template
}

// funcMap holds the helper functions available inside templates. "json"
// emits a value as a quoted, escaped JSON string so templated JSON files
// stay valid whatever the manifest contains.
var funcMap = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
	"lower": strings.ToLower,
}

// NewRenderer parses all embedded templates. Each template is registered
// under its flavor-qualified ID (e.g. "python/gitignore.tmpl") — both
// flavors ship files with the same base name, so base names would collide.
func NewRenderer() (*EmbedRenderer, error) {
	root := template.New("aida").Funcs(funcMap)

	ids := []string{
		MetadataJSON, EditorConfig,
		PyGitignore, PyMakefile, PyRuffConfig, PyProjectToml, PyPreCommit, PyCIWorkflow, PySmokeTest,
		JSGitignore, JSMakefile, JSESLintConfig, JSPackageJSON, JSCIWorkflow, JSSmokeTest,
	}
	for _, id := range ids {
		data, err := templateFS.ReadFile("templates/" + id)
		if err != nil {
			return nil, fmt.Errorf("reading embedded template %q: %w", id, err)
		}
		if _, err := root.New(id).Parse(string(data)); err != nil {
			return nil, fmt.Errorf("parsing template %q: %w", id, err)
		}
	}

	return &EmbedRenderer{templates: root}, nil
}

// Render executes the template identified by templateID with the given
// variables. Unknown IDs are an error.
func (r *EmbedRenderer) Render(templateID string, vars Variables) (string, error) {
	tmpl := r.templates.Lookup(templateID)
	if tmpl == nil {
		return "", fmt.Errorf("unknown template %q", templateID)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", templateID, err)
	}
	return sb.String(), nil
}
