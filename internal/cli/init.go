// Package cli implements the auxiliary subcommands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

const starterSpec = `# Saykai policy gate spec.
# Docs: rules evaluate only lines ADDED by the pull request.
version: "1"

rules:
  forbidden_patterns:
    - id: no-rm-rf
      pattern: "rm -rf"
      message: destructive shell commands are not allowed in this repository
    - id: no-debug-print
      pattern: "console.log("
      message: remove debug logging before merging

  protected_paths:
    - id: deploy-approval
      paths:
        - deploy/
        - .github/workflows/
      message: deployment and CI changes need an explicit approval label
`

// RunInit writes a starter spec file at path. It refuses to overwrite an
// existing file.
func RunInit(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(starterSpec), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Printf("Wrote starter spec to %s\n", path)
	fmt.Println("Edit the rules, then run 'saykai check' in CI.")
	return nil
}
