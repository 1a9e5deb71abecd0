// Package registry is the single source of truth for tracked-file
// classification. Every file the reconciliation engine knows about is
// declared here as a FileSpec: its logical path, the template that renders
// its canonical content, its category, and its default merge strategy.
//
// The registry is pure data — no I/O, no state. Both the scanner and the
// patcher consume the same table, so adding a new tracked file means adding
// exactly one FileSpec to the language's list.
package registry

import "fmt"

// --- Language enum ---

// Language identifies a supported target-project flavor.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
)

// validLanguages is the set of flavors the registry carries specs for.
var validLanguages = map[Language]bool{
	LangPython:     true,
	LangJavaScript: true,
}

// ValidateLanguage returns an error if the language has no registry entries.
func ValidateLanguage(l Language) error {
	if !validLanguages[l] {
		return fmt.Errorf("unsupported language %q: must be one of: python, javascript", l)
	}
	return nil
}

// Languages returns all supported languages in declaration order.
func Languages() []Language {
	return []Language{LangPython, LangJavaScript}
}

// --- FileCategory enum ---

// FileCategory classifies how a tracked file is compared and merged.
type FileCategory string

const (
	// CategoryCustom marks user-authored files. Never touched, never diffed
	// beyond existence.
	CategoryCustom FileCategory = "custom"
	// CategoryMetadata marks schema-driven files that are regenerated while
	// preserving user-owned values.
	CategoryMetadata FileCategory = "metadata"
	// CategoryBoilerplate marks fully template-generated files.
	CategoryBoilerplate FileCategory = "boilerplate"
	// CategoryComposite marks files with append/extend semantics, merged at
	// a structural sub-unit level (lines or named blocks) — see CompositeKind.
	CategoryComposite FileCategory = "composite"
	// CategoryCIWorkflow marks CI definitions: created if missing, never
	// regenerated over an existing file.
	CategoryCIWorkflow FileCategory = "ci_workflow"
	// CategoryDependencyManifest marks dependency manifests: never
	// auto-mutated, flagged for human review instead.
	CategoryDependencyManifest FileCategory = "dependency_manifest"
	// CategoryTestScaffold marks starter test files: created if missing.
	CategoryTestScaffold FileCategory = "test_scaffold"
	// CategoryNewAddition is the derived classification for a registry file
	// that is absent from the project. It never appears on a FileSpec — the
	// scanner reports such files under their declared category with
	// status "missing" and names them new additions in the diff summary.
	CategoryNewAddition FileCategory = "new_addition"
)

// validCategories is the closed set of categories.
var validCategories = map[FileCategory]bool{
	CategoryCustom:             true,
	CategoryMetadata:           true,
	CategoryBoilerplate:        true,
	CategoryComposite:          true,
	CategoryCIWorkflow:         true,
	CategoryDependencyManifest: true,
	CategoryTestScaffold:       true,
	CategoryNewAddition:        true,
}

// ValidateCategory returns an error if the category is not recognized.
func ValidateCategory(c FileCategory) error {
	if !validCategories[c] {
		return fmt.Errorf("invalid file category %q", c)
	}
	return nil
}

// IsProtected reports whether the category must never carry an unconditional
// overwrite default. User content and dependency manifests are protected.
func (c FileCategory) IsProtected() bool {
	switch c {
	case CategoryCustom, CategoryMetadata, CategoryDependencyManifest:
		return true
	}
	return false
}

// --- CompositeKind enum ---

// CompositeKind selects the sub-unit algorithm for composite files.
type CompositeKind string

const (
	// CompositeNone applies to non-composite categories.
	CompositeNone CompositeKind = ""
	// CompositeIgnore compares and merges sets of non-blank, non-comment lines.
	CompositeIgnore CompositeKind = "ignore"
	// CompositeBuild compares and merges top-level build targets (a name
	// followed by a colon at line start) as whole declaration blocks.
	CompositeBuild CompositeKind = "build"
)

// --- MergeStrategy enum ---

// MergeStrategy is the action the patcher takes for a tracked file.
type MergeStrategy string

const (
	StrategySkip         MergeStrategy = "skip"
	StrategyOverwrite    MergeStrategy = "overwrite"
	StrategyAdd          MergeStrategy = "add"
	StrategyMerge        MergeStrategy = "merge"
	StrategyManualReview MergeStrategy = "manual_review"
)

// validStrategies is the closed set of strategies.
var validStrategies = map[MergeStrategy]bool{
	StrategySkip:         true,
	StrategyOverwrite:    true,
	StrategyAdd:          true,
	StrategyMerge:        true,
	StrategyManualReview: true,
}

// ValidateStrategy returns an error if the strategy is not recognized.
func ValidateStrategy(s MergeStrategy) error {
	if !validStrategies[s] {
		return fmt.Errorf("invalid merge strategy %q: must be one of: skip, overwrite, add, merge, manual_review", s)
	}
	return nil
}

// --- FileSpec ---

// FileSpec is one registry entry: a tracked file's logical path (relative to
// the project root, forward slashes), the template that renders its canonical
// content, its category, its default strategy, and whether the caller may
// override that strategy at apply time.
//
// Custom files carry no template — their content is never rendered.
type FileSpec struct {
	Path            string
	TemplateID      string
	Category        FileCategory
	Composite       CompositeKind
	DefaultStrategy MergeStrategy
	UserOverridable bool
}

// SpecsFor returns the ordered list of tracked files for a language.
// The returned slice is a copy; callers may not mutate the registry.
func SpecsFor(lang Language) ([]FileSpec, error) {
	if err := ValidateLanguage(lang); err != nil {
		return nil, err
	}
	src := specsByLanguage[lang]
	out := make([]FileSpec, len(src))
	copy(out, src)
	return out, nil
}

// specsByLanguage is the registry table. Files shared by both flavors keep
// the same category and strategy in each list.
var specsByLanguage = map[Language][]FileSpec{
	LangPython: {
		{Path: ".aida/aida.json", TemplateID: "common/aida.json.tmpl", Category: CategoryMetadata, DefaultStrategy: StrategyMerge},
		{Path: "CLAUDE.md", Category: CategoryCustom, DefaultStrategy: StrategySkip},
		{Path: "README.md", Category: CategoryCustom, DefaultStrategy: StrategySkip},
		{Path: ".gitignore", TemplateID: "python/gitignore.tmpl", Category: CategoryComposite, Composite: CompositeIgnore, DefaultStrategy: StrategyMerge, UserOverridable: true},
		{Path: "Makefile", TemplateID: "python/Makefile.tmpl", Category: CategoryComposite, Composite: CompositeBuild, DefaultStrategy: StrategyMerge, UserOverridable: true},
		{Path: ".editorconfig", TemplateID: "common/editorconfig.tmpl", Category: CategoryBoilerplate, DefaultStrategy: StrategyOverwrite, UserOverridable: true},
		{Path: "ruff.toml", TemplateID: "python/ruff.toml.tmpl", Category: CategoryBoilerplate, DefaultStrategy: StrategyOverwrite, UserOverridable: true},
		{Path: "pyproject.toml", TemplateID: "python/pyproject.toml.tmpl", Category: CategoryDependencyManifest, DefaultStrategy: StrategyManualReview},
		{Path: ".pre-commit-config.yaml", TemplateID: "python/pre-commit-config.yaml.tmpl", Category: CategoryDependencyManifest, DefaultStrategy: StrategyManualReview},
		{Path: ".github/workflows/ci.yml", TemplateID: "python/ci.yml.tmpl", Category: CategoryCIWorkflow, DefaultStrategy: StrategyAdd, UserOverridable: true},
		{Path: "tests/test_smoke.py", TemplateID: "python/test_smoke.py.tmpl", Category: CategoryTestScaffold, DefaultStrategy: StrategyAdd, UserOverridable: true},
	},
	LangJavaScript: {
		{Path: ".aida/aida.json", TemplateID: "common/aida.json.tmpl", Category: CategoryMetadata, DefaultStrategy: StrategyMerge},
		{Path: "CLAUDE.md", Category: CategoryCustom, DefaultStrategy: StrategySkip},
		{Path: "README.md", Category: CategoryCustom, DefaultStrategy: StrategySkip},
		{Path: ".gitignore", TemplateID: "javascript/gitignore.tmpl", Category: CategoryComposite, Composite: CompositeIgnore, DefaultStrategy: StrategyMerge, UserOverridable: true},
		{Path: "Makefile", TemplateID: "javascript/Makefile.tmpl", Category: CategoryComposite, Composite: CompositeBuild, DefaultStrategy: StrategyMerge, UserOverridable: true},
		{Path: ".editorconfig", TemplateID: "common/editorconfig.tmpl", Category: CategoryBoilerplate, DefaultStrategy: StrategyOverwrite, UserOverridable: true},
		{Path: "eslint.config.js", TemplateID: "javascript/eslint.config.js.tmpl", Category: CategoryBoilerplate, DefaultStrategy: StrategyOverwrite, UserOverridable: true},
		{Path: "package.json", TemplateID: "javascript/package.json.tmpl", Category: CategoryDependencyManifest, DefaultStrategy: StrategyManualReview},
		{Path: ".github/workflows/ci.yml", TemplateID: "javascript/ci.yml.tmpl", Category: CategoryCIWorkflow, DefaultStrategy: StrategyAdd, UserOverridable: true},
		{Path: "tests/smoke.test.js", TemplateID: "javascript/smoke.test.js.tmpl", Category: CategoryTestScaffold, DefaultStrategy: StrategyAdd, UserOverridable: true},
	},
}
