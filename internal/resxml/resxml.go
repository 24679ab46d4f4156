// Package resxml reads and writes the XML documents of
// a decoded Android resource tree.
package resxml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

// Declaration is written at the top of every document
// that does not already declare its encoding.
const Declaration = `version="1.0" encoding="utf-8"`

// Read parses the XML document at name. A document
// without a root element is not well-formed.
func Read(name string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(name); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	if doc.Root() == nil {
		return nil, fmt.Errorf("parse %s: no root element", name)
	}

	return doc, nil
}

// Write serializes doc to name with an explicit encoding declaration,
// replacing name atomically. Quotes and apostrophes in text are written
// as is, so escaped resource strings keep their form.
func Write(doc *etree.Document, name string) error {
	declare(doc)
	doc.WriteSettings.CanonicalText = true

	b, err := doc.WriteToBytes()
	if err != nil {
		return err
	}

	return WriteFile(name, b)
}

func declare(doc *etree.Document) {
	for _, token := range doc.Child {
		if pi, ok := token.(*etree.ProcInst); ok && pi.Target == "xml" {
			if !strings.Contains(pi.Inst, "encoding=") {
				pi.Inst += ` encoding="utf-8"`
			}

			return
		}
	}

	doc.InsertChildAt(0, etree.NewText("\n"))
	doc.InsertChildAt(0, etree.NewProcInst("xml", Declaration))
}

// WriteFile writes b to a temporary file next to name and renames it
// over name so that readers never observe a partially written file.
// An existing file's permissions are kept.
func WriteFile(name string, b []byte) error {
	perm := os.FileMode(0o644)
	if fi, err := os.Stat(name); err == nil {
		perm = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), name)
}

// Name returns the name attribute of el.
func Name(el *etree.Element) string {
	return el.SelectAttrValue("name", "")
}

// Type returns the resource type of el: its type attribute,
// or its tag for elements like <string> or <drawable>.
func Type(el *etree.Element) string {
	return el.SelectAttrValue("type", el.Tag)
}

// Remove removes el from its parent along with the
// indentation that preceded it.
func Remove(el *etree.Element) {
	parent := el.Parent()
	if parent == nil {
		return
	}

	i := el.Index()
	parent.RemoveChildAt(i)

	if i > 0 {
		if cd, ok := parent.Child[i-1].(*etree.CharData); ok && cd.IsWhitespace() {
			parent.RemoveChildAt(i - 1)
		}
	}
}

// Walk calls fn for el and every element nested in it, depth first.
func Walk(el *etree.Element, fn func(*etree.Element) error) error {
	if err := fn(el); err != nil {
		return err
	}

	for _, child := range el.ChildElements() {
		if err := Walk(child, fn); err != nil {
			return err
		}
	}

	return nil
}
