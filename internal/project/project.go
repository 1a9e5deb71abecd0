// Package project reads and writes a target project's AIDA metadata and
// detects its language flavor.
//
// The manifest (.aida/aida.json) is the only state the engine persists
// inside a project besides backup snapshots. Its generator_version field is
// informational: it records which template revision was last reconciled in,
// and never influences how files are compared.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aida-assistant/aida/internal/fsutil"
	"github.com/aida-assistant/aida/internal/registry"
	"github.com/aida-assistant/aida/internal/templates"
)

const (
	// AidaDir is the metadata directory at the project root.
	AidaDir = ".aida"
	// ManifestFile is the manifest filename inside AidaDir.
	ManifestFile = "aida.json"
	// UnknownVersion is the sentinel recorded-generator-version for projects
	// generated before the marker existed.
	UnknownVersion = "unknown"
)

// Manifest is the project's AIDA metadata. Field order matters: templates
// and json.MarshalIndent must produce byte-identical files so repeated
// reconciliation runs converge.
type Manifest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Author           string `json:"author"`
	Version          string `json:"version"`
	Language         string `json:"language"`
	GeneratorVersion string `json:"generator_version"`
}

// AidaPath returns the absolute path to the project's .aida directory.
func AidaPath(projectRoot string) string {
	return filepath.Join(projectRoot, AidaDir)
}

// ManifestPath returns the absolute path to the project's manifest.
func ManifestPath(projectRoot string) string {
	return filepath.Join(AidaPath(projectRoot), ManifestFile)
}

// Exists reports whether a project has an AIDA manifest.
func Exists(projectRoot string) bool {
	_, err := os.Stat(ManifestPath(projectRoot))
	return err == nil
}

// Store defines manifest persistence. Abstracted for testability.
type Store interface {
	Load(projectRoot string) (*Manifest, error)
	Save(projectRoot string, m *Manifest) error
}

// FileStore implements Store on the local filesystem.
type FileStore struct{}

// NewFileStore creates a filesystem-backed manifest store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Load reads and parses the project manifest.
func (fs *FileStore) Load(projectRoot string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project not initialized: no %s/%s found", AidaDir, ManifestFile)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}
	if m.GeneratorVersion == "" {
		m.GeneratorVersion = UnknownVersion
	}
	return &m, nil
}

// Save writes the manifest atomically. The output format is the same as the
// metadata template's, so a manifest written here and one rendered from the
// canonical template compare byte-equal when their values agree.
func (fs *FileStore) Save(projectRoot string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return fsutil.WriteFileAtomic(ManifestPath(projectRoot), data, 0o644)
}

// --- Language detection ---

// languageMarkers maps a marker file at the project root to a flavor.
var languageMarkers = map[string]registry.Language{
	"pyproject.toml": registry.LangPython,
	"package.json":   registry.LangJavaScript,
}

// DetectLanguage determines the project flavor from marker files at the
// project root. No marker or more than one marker is an error — the caller
// surfaces it as an unsupported-language failure.
func DetectLanguage(projectRoot string) (registry.Language, error) {
	var found []registry.Language
	for marker, lang := range languageMarkers {
		if _, err := os.Stat(filepath.Join(projectRoot, marker)); err == nil {
			found = append(found, lang)
		}
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", fmt.Errorf("no language marker file found (expected pyproject.toml or package.json)")
	default:
		return "", fmt.Errorf("ambiguous language: multiple marker files present")
	}
}

// Variables builds the template variable map from a manifest. It must match
// what a fresh generation of the same project would use, so rendered
// "expected" content equals what would have been generated originally.
// The generator version is always the current template set's, not the
// project's recorded one.
func Variables(m *Manifest, lang registry.Language) templates.Variables {
	return templates.Variables{
		Name:             m.Name,
		Description:      m.Description,
		Author:           m.Author,
		Version:          m.Version,
		Language:         string(lang),
		GeneratorVersion: templates.SetVersion,
	}
}

// UpdateGeneratorVersion rewrites the manifest's generator_version marker.
// Called at the end of an apply run; tolerant of nothing else changing.
func UpdateGeneratorVersion(store Store, projectRoot, version string) error {
	m, err := store.Load(projectRoot)
	if err != nil {
		return fmt.Errorf("loading manifest for version update: %w", err)
	}
	m.GeneratorVersion = version
	if err := store.Save(projectRoot, m); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}
