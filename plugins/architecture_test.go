package plugins

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestPluginsDependOnlyOnPublicPackages ensures plugin implementations build
// against pkg/pluginapi and the other public packages. Only their tests may
// reach into the runtime under internal/.
func TestPluginsDependOnlyOnPublicPackages(t *testing.T) {
	const forbidden = "reactivegraph/internal"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: false}
	pkgs, err := packages.Load(cfg, "reactivegraph/plugins/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("no plugin packages loaded")
	}

	var violations []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			t.Errorf("%s: %v", pkg.PkgPath, e)
		}
		for importPath := range pkg.Imports {
			if importPath == forbidden || strings.HasPrefix(importPath, forbidden+"/") {
				violations = append(violations, pkg.PkgPath+": "+importPath)
			}
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("plugin imports runtime internals: %s", v)
	}
}
