package confkit

import (
	"fmt"
	"os"
	"path/filepath"
)

const maxWalkDepth = 8

// ProjectRoot walks up from the working directory to the nearest go.mod.
// The working directory itself is returned when none is found.
func ProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return ".", fmt.Errorf("getwd: %w", err)
	}
	root := wd
	walkUp(wd, func(dir string) bool {
		if fileExists(filepath.Join(dir, "go.mod")) {
			root = dir
			return true
		}
		return false
	})
	return root, nil
}

// ProjectPath joins the project root with rel.
func ProjectPath(rel string) (string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, rel), nil
}

// MustProjectPath is ProjectPath that panics on failure.
func MustProjectPath(rel string) string {
	p, err := ProjectPath(rel)
	if err != nil {
		panic(err)
	}
	return p
}

// walkUp calls visit for start and each parent until visit returns true.
func walkUp(start string, visit func(dir string) bool) {
	dir := filepath.Clean(start)
	for i := 0; i < maxWalkDepth; i++ {
		if visit(dir) {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
