// Package spec loads and validates the gate's rule file (.saykai/spec.yml).
package spec

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PatternRule forbids a literal substring in newly added lines.
type PatternRule struct {
	ID      string
	Pattern string
	Message string
}

// PathRule protects a set of path prefixes behind an approval label.
type PathRule struct {
	ID      string
	Paths   []string
	Message string
}

// Spec is the validated rule set. Built once per run, read-only afterwards.
type Spec struct {
	Version      string
	PatternRules []PatternRule
	PathRules    []PathRule
}

// ErrNotFound reports that the spec file does not exist at the given path.
var ErrNotFound = errors.New("spec file not found")

// Load reads, parses, validates and normalizes a spec file.
// A missing file returns an error wrapping ErrNotFound; any validation
// problem returns the joined validation errors.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read spec file: %w", err)
	}

	tree, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if errs := Validate(tree); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return Normalize(tree), nil
}

// Parse decodes spec text into a generic tree.
func Parse(data []byte) (any, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse spec YAML: %w", err)
	}
	return tree, nil
}

// Validate checks the raw tree against the spec schema. It records at most
// one error per category: the document shape, the version field, the rules
// object, each rule list's shape, and the first malformed rule in each list.
func Validate(tree any) []error {
	var errs []error

	root, ok := tree.(map[string]any)
	if !ok {
		return []error{errors.New("spec: document is not an object")}
	}

	if v, ok := root["version"]; !ok {
		errs = append(errs, errors.New("spec: missing version"))
	} else if _, ok := v.(string); !ok {
		errs = append(errs, fmt.Errorf("spec: version must be a string, got %T", v))
	}

	rulesAny, ok := root["rules"]
	if !ok {
		errs = append(errs, errors.New("spec: missing rules"))
		return errs
	}
	rules, ok := rulesAny.(map[string]any)
	if !ok {
		errs = append(errs, fmt.Errorf("spec: rules must be an object, got %T", rulesAny))
		return errs
	}

	if v, ok := rules["forbidden_patterns"]; ok {
		if list, isList := v.([]any); !isList {
			errs = append(errs, errors.New("spec: forbidden_patterns must be a list"))
		} else if err := validatePatternRules(list); err != nil {
			errs = append(errs, err)
		}
	}
	if v, ok := rules["protected_paths"]; ok {
		if list, isList := v.([]any); !isList {
			errs = append(errs, errors.New("spec: protected_paths must be a list"))
		} else if err := validatePathRules(list); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

func validatePatternRules(list []any) error {
	for i, item := range list {
		rule, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("spec: forbidden_patterns[%d] is not an object", i)
		}
		for _, key := range []string{"id", "pattern", "message"} {
			if !hasStringField(rule, key) {
				return fmt.Errorf("spec: forbidden_patterns[%d] missing %s", i, key)
			}
		}
	}
	return nil
}

func validatePathRules(list []any) error {
	for i, item := range list {
		rule, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("spec: protected_paths[%d] is not an object", i)
		}
		for _, key := range []string{"id", "message"} {
			if !hasStringField(rule, key) {
				return fmt.Errorf("spec: protected_paths[%d] missing %s", i, key)
			}
		}
		paths, ok := rule["paths"].([]any)
		if !ok || len(paths) == 0 {
			return fmt.Errorf("spec: protected_paths[%d] needs a non-empty paths list", i)
		}
		for _, p := range paths {
			if s, ok := p.(string); !ok || s == "" {
				return fmt.Errorf("spec: protected_paths[%d] has a non-string path entry", i)
			}
		}
	}
	return nil
}

func hasStringField(m map[string]any, key string) bool {
	s, ok := m[key].(string)
	return ok && s != ""
}

// Normalize shapes a validated tree into a Spec. Callers must run Validate
// first; Normalize silently skips anything that does not match the schema.
func Normalize(tree any) *Spec {
	s := &Spec{}

	root, ok := tree.(map[string]any)
	if !ok {
		return s
	}
	s.Version, _ = root["version"].(string)

	rules, ok := root["rules"].(map[string]any)
	if !ok {
		return s
	}

	if list, ok := rules["forbidden_patterns"].([]any); ok {
		for _, item := range list {
			rule, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, _ := rule["id"].(string)
			pattern, _ := rule["pattern"].(string)
			message, _ := rule["message"].(string)
			s.PatternRules = append(s.PatternRules, PatternRule{ID: id, Pattern: pattern, Message: message})
		}
	}

	if list, ok := rules["protected_paths"].([]any); ok {
		for _, item := range list {
			rule, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, _ := rule["id"].(string)
			message, _ := rule["message"].(string)
			var paths []string
			if raw, ok := rule["paths"].([]any); ok {
				for _, p := range raw {
					if s, ok := p.(string); ok {
						paths = append(paths, s)
					}
				}
			}
			s.PathRules = append(s.PathRules, PathRule{ID: id, Paths: paths, Message: message})
		}
	}

	return s
}
