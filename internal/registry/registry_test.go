package registry

import (
	"strings"
	"testing"
)

// --- SpecsFor ---

func TestSpecsFor_Python(t *testing.T) {
	specs, err := SpecsFor(LangPython)
	if err != nil {
		t.Fatalf("SpecsFor(python) failed: %v", err)
	}
	if len(specs) == 0 {
		t.Fatal("python registry is empty")
	}

	paths := make(map[string]bool)
	for _, s := range specs {
		paths[s.Path] = true
	}

	for _, want := range []string{".aida/aida.json", ".gitignore", "Makefile", "pyproject.toml", "ruff.toml", ".github/workflows/ci.yml", "tests/test_smoke.py"} {
		if !paths[want] {
			t.Errorf("python registry missing %s", want)
		}
	}
}

func TestSpecsFor_JavaScript(t *testing.T) {
	specs, err := SpecsFor(LangJavaScript)
	if err != nil {
		t.Fatalf("SpecsFor(javascript) failed: %v", err)
	}

	paths := make(map[string]bool)
	for _, s := range specs {
		paths[s.Path] = true
	}

	if !paths["package.json"] {
		t.Error("javascript registry missing package.json")
	}
	if !paths["eslint.config.js"] {
		t.Error("javascript registry missing eslint.config.js")
	}
	if paths["pyproject.toml"] {
		t.Error("javascript registry should not contain pyproject.toml")
	}
}

func TestSpecsFor_UnsupportedLanguage(t *testing.T) {
	_, err := SpecsFor(Language("rust"))
	if err == nil {
		t.Fatal("SpecsFor(rust) should fail")
	}
}

func TestSpecsFor_ReturnsCopy(t *testing.T) {
	specs, err := SpecsFor(LangPython)
	if err != nil {
		t.Fatalf("SpecsFor: %v", err)
	}

	specs[0].DefaultStrategy = StrategyOverwrite

	again, err := SpecsFor(LangPython)
	if err != nil {
		t.Fatalf("SpecsFor: %v", err)
	}
	if again[0].DefaultStrategy == StrategyOverwrite && again[0].Category.IsProtected() {
		t.Error("mutating the returned slice leaked into the registry")
	}
}

// --- Registry table invariants ---

func TestRegistry_EverySpecIsWellFormed(t *testing.T) {
	for _, lang := range Languages() {
		specs, err := SpecsFor(lang)
		if err != nil {
			t.Fatalf("SpecsFor(%s): %v", lang, err)
		}
		for _, s := range specs {
			if s.Path == "" {
				t.Errorf("%s: spec with empty path", lang)
			}
			if strings.HasPrefix(s.Path, "/") || strings.Contains(s.Path, "..") {
				t.Errorf("%s: %s is not a clean relative path", lang, s.Path)
			}
			if err := ValidateCategory(s.Category); err != nil {
				t.Errorf("%s: %s: %v", lang, s.Path, err)
			}
			if err := ValidateStrategy(s.DefaultStrategy); err != nil {
				t.Errorf("%s: %s: %v", lang, s.Path, err)
			}
			if s.Category == CategoryNewAddition {
				t.Errorf("%s: %s declares new_addition, which is scan-derived only", lang, s.Path)
			}
		}
	}
}

func TestRegistry_ProtectedCategoriesNeverDefaultOverwrite(t *testing.T) {
	for _, lang := range Languages() {
		specs, _ := SpecsFor(lang)
		for _, s := range specs {
			if s.Category.IsProtected() && s.DefaultStrategy == StrategyOverwrite {
				t.Errorf("%s: %s is %s but defaults to overwrite", lang, s.Path, s.Category)
			}
		}
	}
}

func TestRegistry_CustomFilesHaveNoTemplate(t *testing.T) {
	for _, lang := range Languages() {
		specs, _ := SpecsFor(lang)
		for _, s := range specs {
			if s.Category == CategoryCustom && s.TemplateID != "" {
				t.Errorf("%s: custom file %s should not carry a template", lang, s.Path)
			}
			if s.Category != CategoryCustom && s.TemplateID == "" {
				t.Errorf("%s: %s has no template", lang, s.Path)
			}
		}
	}
}

func TestRegistry_CustomFilesNotOverridable(t *testing.T) {
	for _, lang := range Languages() {
		specs, _ := SpecsFor(lang)
		for _, s := range specs {
			if s.Category.IsProtected() && s.UserOverridable {
				t.Errorf("%s: %s is %s and must not be user-overridable", lang, s.Path, s.Category)
			}
		}
	}
}

func TestRegistry_CompositeKindMatchesCategory(t *testing.T) {
	for _, lang := range Languages() {
		specs, _ := SpecsFor(lang)
		for _, s := range specs {
			if s.Category == CategoryComposite && s.Composite == CompositeNone {
				t.Errorf("%s: composite file %s has no composite kind", lang, s.Path)
			}
			if s.Category != CategoryComposite && s.Composite != CompositeNone {
				t.Errorf("%s: non-composite file %s carries composite kind %s", lang, s.Path, s.Composite)
			}
		}
	}
}

func TestRegistry_SharedFilesAgreeAcrossLanguages(t *testing.T) {
	py, _ := SpecsFor(LangPython)
	js, _ := SpecsFor(LangJavaScript)

	pyByPath := make(map[string]FileSpec)
	for _, s := range py {
		pyByPath[s.Path] = s
	}

	for _, s := range js {
		other, ok := pyByPath[s.Path]
		if !ok {
			continue
		}
		if other.Category != s.Category || other.DefaultStrategy != s.DefaultStrategy {
			t.Errorf("%s: category/strategy differs between languages", s.Path)
		}
	}
}

// --- Validators ---

func TestValidateLanguage(t *testing.T) {
	if err := ValidateLanguage(LangPython); err != nil {
		t.Errorf("python should validate: %v", err)
	}
	if err := ValidateLanguage(Language("cobol")); err == nil {
		t.Error("cobol should not validate")
	}
}

func TestValidateStrategy(t *testing.T) {
	for _, s := range []MergeStrategy{StrategySkip, StrategyOverwrite, StrategyAdd, StrategyMerge, StrategyManualReview} {
		if err := ValidateStrategy(s); err != nil {
			t.Errorf("%s should validate: %v", s, err)
		}
	}
	if err := ValidateStrategy(MergeStrategy("yolo")); err == nil {
		t.Error("unknown strategy should not validate")
	}
}

func TestIsProtected(t *testing.T) {
	tests := []struct {
		category FileCategory
		want     bool
	}{
		{CategoryCustom, true},
		{CategoryMetadata, true},
		{CategoryDependencyManifest, true},
		{CategoryBoilerplate, false},
		{CategoryComposite, false},
		{CategoryCIWorkflow, false},
		{CategoryTestScaffold, false},
	}

	for _, tt := range tests {
		if got := tt.category.IsProtected(); got != tt.want {
			t.Errorf("IsProtected(%s) = %v, want %v", tt.category, got, tt.want)
		}
	}
}
