// compare.go implements the per-category comparison algorithms: whole-file
// for template-generated content, line sets for ignore files, target sets
// for build files, and structural key comparison for dependency manifests.
package scanner

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/aida-assistant/aida/internal/registry"
)

// compare fills Status and DiffSummary for a file that exists and rendered
// cleanly.
func compare(d *FileDiff, spec registry.FileSpec) {
	switch {
	case spec.Category == registry.CategoryComposite && spec.Composite == registry.CompositeIgnore:
		compareIgnoreFile(d)
	case spec.Category == registry.CategoryComposite && spec.Composite == registry.CompositeBuild:
		compareBuildFile(d)
	case spec.Category == registry.CategoryDependencyManifest:
		compareManifest(d)
	default:
		compareWholeFile(d)
	}
}

// compareWholeFile byte-compares rendered content against the file on disk.
// Applies to metadata, boilerplate, ci_workflow and test_scaffold files.
func compareWholeFile(d *FileDiff) {
	if d.Actual == d.Expected {
		d.Status = StatusUpToDate
		return
	}

	d.Status = StatusOutdated
	switch d.Category {
	case registry.CategoryMetadata:
		d.DiffSummary = "metadata schema fields will be refreshed; user values are preserved"
	case registry.CategoryCIWorkflow:
		d.DiffSummary = "existing workflow differs from canonical; left untouched (create-if-missing)"
	case registry.CategoryTestScaffold:
		d.DiffSummary = "existing scaffold differs from canonical; left untouched (create-if-missing)"
	default:
		d.DiffSummary = fmt.Sprintf("content differs from canonical template (%d lines vs %d expected)",
			lineCount(d.Actual), lineCount(d.Expected))
	}
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

// --- Ignore-file comparison ---

// significantLines returns the non-blank, non-comment lines of an
// ignore-style file, trimmed, in first-occurrence order.
func significantLines(content string) []string {
	var lines []string
	seen := make(map[string]bool)
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	return lines
}

// MissingLines returns the expected lines absent from actual, in expected
// order. The actual file's own order and duplicates are never considered.
// The patcher appends exactly these lines when merging an ignore file.
func MissingLines(expected, actual string) []string {
	have := make(map[string]bool)
	for _, line := range significantLines(actual) {
		have[line] = true
	}

	var missing []string
	for _, line := range significantLines(expected) {
		if !have[line] {
			missing = append(missing, line)
		}
	}
	return missing
}

func compareIgnoreFile(d *FileDiff) {
	missing := MissingLines(d.Expected, d.Actual)
	if len(missing) == 0 {
		d.Status = StatusUpToDate
		return
	}
	d.Status = StatusOutdated
	d.DiffSummary = fmt.Sprintf("missing %d canonical entries: %s", len(missing), strings.Join(missing, ", "))
}

// --- Build-file comparison ---

// targetPattern matches a top-level target declaration: a name followed by
// a colon at line start.
var targetPattern = regexp.MustCompile(`^([A-Za-z0-9_.%/-]+):`)

// buildTargets returns the top-level target names of a makefile-style file,
// in first-occurrence order.
func buildTargets(content string) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(content, "\n") {
		m := targetPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if !seen[name] {
			seen[name] = true
			targets = append(targets, name)
		}
	}
	return targets
}

// MissingTargets returns expected target names absent from actual, in
// expected order.
func MissingTargets(expected, actual string) []string {
	have := make(map[string]bool)
	for _, t := range buildTargets(actual) {
		have[t] = true
	}

	var missing []string
	for _, t := range buildTargets(expected) {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

// TargetBlock extracts a target's full declaration block from content: the
// name line through its indented body, trailing blank lines trimmed.
// Returns "" if the target is not declared. The patcher appends these blocks
// when merging a build file.
func TargetBlock(content, name string) string {
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		m := targetPattern.FindStringSubmatch(line)
		if m != nil && m[1] == name {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}

	end := start + 1
	for end < len(lines) {
		line := lines[end]
		if line == "" || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, " ") {
			end++
			continue
		}
		break
	}

	block := strings.Join(lines[start:end], "\n")
	return strings.TrimRight(block, "\n") + "\n"
}

func compareBuildFile(d *FileDiff) {
	missing := MissingTargets(d.Expected, d.Actual)
	if len(missing) == 0 {
		d.Status = StatusUpToDate
		return
	}
	d.Status = StatusOutdated
	d.DiffSummary = fmt.Sprintf("missing %d canonical targets: %s", len(missing), strings.Join(missing, ", "))
}

// --- Dependency-manifest comparison ---

// compareManifest performs a structural key-level comparison. It never
// computes a literal patch body — the summary names differing keys so a
// human can act on them.
func compareManifest(d *FileDiff) {
	diffs, err := manifestKeyDiff(d.Path, d.Expected, d.Actual)
	if err != nil {
		d.Status = StatusOutdated
		d.Strategy = registry.StrategyManualReview
		d.DiffSummary = fmt.Sprintf("structural comparison failed: %v", err)
		return
	}

	if len(diffs) == 0 {
		d.Status = StatusUpToDate
		return
	}
	d.Status = StatusOutdated
	d.DiffSummary = fmt.Sprintf("structure differs from canonical in %d keys: %s",
		len(diffs), strings.Join(diffs, ", "))
}

// manifestKeyDiff parses both documents by file extension and compares keys
// to a depth of two levels. Each returned entry is "key: missing",
// "key: differs" or "key: extra", sorted for deterministic output.
func manifestKeyDiff(path, expected, actual string) ([]string, error) {
	expDoc, err := parseStructured(path, expected)
	if err != nil {
		return nil, fmt.Errorf("canonical %s: %w", filepath.Base(path), err)
	}
	actDoc, err := parseStructured(path, actual)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", filepath.Base(path), err)
	}

	expKeys := flattenKeys(expDoc, "", 2)
	actKeys := flattenKeys(actDoc, "", 2)

	var diffs []string
	for key, expVal := range expKeys {
		actVal, ok := actKeys[key]
		if !ok {
			diffs = append(diffs, key+": missing")
			continue
		}
		if !reflect.DeepEqual(normalize(expVal), normalize(actVal)) {
			diffs = append(diffs, key+": differs")
		}
	}
	for key := range actKeys {
		if _, ok := expKeys[key]; !ok {
			diffs = append(diffs, key+": extra")
		}
	}

	sort.Strings(diffs)
	return diffs, nil
}

// parseStructured decodes TOML, JSON or YAML by extension into a generic map.
func parseStructured(path, content string) (map[string]any, error) {
	doc := make(map[string]any)
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal([]byte(content), &doc); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("no structural parser for %s", filepath.Ext(path))
	}
	return doc, nil
}

// flattenKeys walks nested maps down to maxDepth, producing dotted keys.
// Values below the depth limit stay attached to their parent key.
func flattenKeys(doc map[string]any, prefix string, maxDepth int) map[string]any {
	out := make(map[string]any)
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := toStringMap(v); ok && maxDepth > 1 {
			for nk, nv := range flattenKeys(sub, key, maxDepth-1) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// toStringMap converts the map shapes the three decoders produce.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	}
	return nil, false
}

// normalize makes scalar values comparable across decoders (TOML int64 vs
// JSON float64, etc.) by round-tripping through JSON.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
