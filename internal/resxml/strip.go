package resxml

import (
	"os"
	"path/filepath"

	"github.com/frantjc/splitmerge/internal/splitregexp"
)

// StripPlaceholders removes every top-level element of the XML document
// at src whose name is a placeholder and writes what remains into
// destDir under the same filename. A document left with no elements
// is not written at all, and kept is false.
func StripPlaceholders(src, destDir string) (kept bool, err error) {
	doc, err := Read(src)
	if err != nil {
		return false, err
	}

	root := doc.Root()
	for _, el := range root.ChildElements() {
		if splitregexp.IsPlaceholder(Name(el)) {
			Remove(el)
		}
	}

	if len(root.ChildElements()) == 0 {
		return false, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return false, err
	}

	return true, Write(doc, filepath.Join(destDir, filepath.Base(src)))
}
