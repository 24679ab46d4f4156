// Package splittest builds working directories of decoded split
// modules for tests.
package splittest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteTree writes files, keyed by slash-separated path relative to
// root, creating parent directories as needed.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// ReadFile returns the content of the slash-separated path under root.
func ReadFile(t testing.TB, root, name string) string {
	t.Helper()

	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		t.Fatal(err)
	}

	return string(b)
}

// Exists reports whether the slash-separated path under root exists.
func Exists(t testing.TB, root, name string) bool {
	t.Helper()

	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(name)))
	if err == nil {
		return true
	} else if os.IsNotExist(err) {
		return false
	}

	t.Fatal(err)
	return false
}

// Files returns every regular file under root as a sorted
// slash-separated path relative to root.
func Files(t testing.TB, root string) []string {
	t.Helper()

	files := []string{}
	if err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		} else if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, filepath.ToSlash(rel))
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	sort.Strings(files)

	return files
}

// Public renders a public.xml from items of type, id and name.
func Public(items ...[3]string) string {
	s := `<?xml version="1.0" encoding="utf-8"?>` + "\n<resources>\n"
	for _, item := range items {
		s += `    <public type="` + item[0] + `" name="` + item[2] + `" id="` + item[1] + `" />` + "\n"
	}

	return s + "</resources>\n"
}
