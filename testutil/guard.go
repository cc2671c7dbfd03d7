// Package testutil provides test helpers that enforce package boundaries.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// AssertNoDirectImports parses every non-test .go file in each dir and fails
// if an import path satisfies forbidden. Build tags are not evaluated.
func AssertNoDirectImports(t testing.TB, forbidden func(importPath string) bool, reason string, dirs ...string) {
	t.Helper()
	var viols []string
	for _, dir := range dirs {
		found, err := directImportViolations(dir, forbidden)
		if err != nil {
			t.Fatalf("scan %s: %v", dir, err)
		}
		viols = append(viols, found...)
	}
	failIfDirectViolations(t, reason, viols)
}

// InternalImportForbidden matches imports of the runtime's internal tree.
func InternalImportForbidden(path string) bool {
	return path == "reactivegraph/internal" || strings.HasPrefix(path, "reactivegraph/internal/")
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+path+")")
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
