//go:build mage

// Package main provides build targets for the todos project using Mage.
//
// Usage:
//
//	mage build           Compile the todos binary to bin/
//	mage test            Run all tests (unit + integration)
//	mage testUnit        Run only unit tests (exclude integration)
//	mage testIntegration Run only integration tests (builds first)
//	mage lint            Run golangci-lint
//	mage serve           Build and serve the UI on the default address
//	mage clean           Remove build artifacts
//	mage install         Install todos to GOPATH/bin
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName  = "todos"
	binaryDir   = "bin"
	cmdDir      = "./cmd/todos"
	versionVar  = "github.com/mesh-intelligence/todos/internal/cli.Version"
	integration = "/tests/"
)

// Build compiles the todos binary to bin/. TODOS_VERSION, when set, is
// stamped into `todos version`.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", binaryPath()}
	if v := os.Getenv("TODOS_VERSION"); v != "" {
		args = append(args, "-ldflags", fmt.Sprintf("-X %s=%s", versionVar, v))
	}
	return sh.RunV("go", append(args, cmdDir)...)
}

// Test runs all tests (unit and integration).
func Test() error {
	mg.Deps(Build)
	return sh.RunV("go", "test", "./...")
}

// TestUnit runs only unit tests, excluding the tests/ directory.
func TestUnit() error {
	pkgs, err := sh.Output("go", "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for _, pkg := range strings.Split(pkgs, "\n") {
		if pkg != "" && !strings.Contains(pkg+"/", integration) {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	return sh.RunV("go", append([]string{"test", "-race"}, unitPkgs...)...)
}

// TestIntegration builds first, then runs only integration tests.
func TestIntegration() error {
	mg.Deps(Build)
	return sh.RunV("go", "test", "./tests/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Serve builds the binary and runs the web UI until interrupted.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binaryPath(), "serve")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), binaryPath())
}

func binaryPath() string {
	return filepath.Join(binaryDir, binaryName)
}
