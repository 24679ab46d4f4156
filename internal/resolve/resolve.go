// Package resolve replaces the placeholders in a base module's
// resources with the real names its splits know them by.
package resolve

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/frantjc/splitmerge/internal/resxml"
	"github.com/frantjc/splitmerge/internal/splitindex"
	"github.com/frantjc/splitmerge/internal/splitregexp"
	"github.com/go-logr/logr"
)

// LookupError is returned when a placeholder's identifier
// is not in the index.
type LookupError struct {
	Path     string
	Type     string
	Fragment string
	// Exact is set when the identifier had to match in full.
	Exact bool
}

func (e *LookupError) Error() string {
	if e.Exact {
		return fmt.Sprintf("resolve %s: no %s with id %s in any split", e.Path, e.Type, e.Fragment)
	}

	return fmt.Sprintf("resolve %s: no %s with an id containing %q in any split", e.Path, e.Type, e.Fragment)
}

// Resolver rewrites placeholders using Index.
type Resolver struct {
	Index *splitindex.Index
}

func New(index *splitindex.Index) *Resolver {
	return &Resolver{Index: index}
}

// contains resolves fragment of typ by containment, flagging ties.
func (r *Resolver) contains(ctx context.Context, path, typ, fragment string) (string, error) {
	match, ok := r.Index.Contains(typ, fragment)
	if !ok {
		return "", &LookupError{Path: path, Type: typ, Fragment: fragment}
	}

	if len(match.Ambiguous) > 0 {
		logr.FromContextOrDiscard(ctx).Info("placeholder matches more than one resource, using the first",
			"path", path,
			"type", typ,
			"fragment", fragment,
			"id", match.ID,
			"name", match.Name,
			"others", match.Ambiguous,
		)
	}

	return match.Name, nil
}

// resolveName replaces el's placeholder name, if it has one,
// resolving it by containment against el's type.
func (r *Resolver) resolveName(ctx context.Context, path string, el *etree.Element) (bool, error) {
	name := resxml.Name(el)
	if !splitregexp.IsPlaceholder(name) {
		return false, nil
	}

	resolved, err := r.contains(ctx, path, resxml.Type(el), splitregexp.Fragment(name))
	if err != nil {
		return false, err
	}

	el.CreateAttr("name", resolved)

	return true, nil
}

// resolveText replaces the placeholder referenced by el's text, if it
// has one, keeping the reference's prefix, e.g. "@drawable/". typ
// derives the resource type to resolve against from the trimmed text.
func (r *Resolver) resolveText(ctx context.Context, path string, el *etree.Element, typ func(string) string) (bool, error) {
	text := el.Text()
	if !splitregexp.HasPlaceholder(text) {
		return false, nil
	}

	var (
		trimmed = strings.TrimSpace(text)
		segment = trimmed[strings.LastIndex(trimmed, "/")+1:]
	)

	resolved, err := r.contains(ctx, path, typ(trimmed), splitregexp.Fragment(trimmed))
	if err != nil {
		return false, err
	}

	el.SetText(strings.ReplaceAll(text, segment, resolved))

	return true, nil
}

// ReferenceType returns the resource type of a reference
// like "@color/x", "?attr/x" or "@android:color/x".
func ReferenceType(ref string) string {
	typ, _, _ := strings.Cut(strings.TrimLeft(strings.TrimSpace(ref), "@?*+"), "/")
	if i := strings.LastIndex(typ, ":"); i >= 0 {
		typ = typ[i+1:]
	}

	return typ
}

func rewrite(path string, fn func(*etree.Element) (int, error)) (int, error) {
	doc, err := resxml.Read(path)
	if err != nil {
		return 0, err
	}

	n, err := fn(doc.Root())
	if err != nil || n == 0 {
		return n, err
	}

	return n, resxml.Write(doc, path)
}

// Public resolves the placeholder names in the identifier table at path.
// Its items carry full identifiers, so each must be in the index exactly.
func (r *Resolver) Public(ctx context.Context, path string) (int, error) {
	return rewrite(path, func(root *etree.Element) (int, error) {
		n := 0
		for _, el := range root.ChildElements() {
			if err := ctx.Err(); err != nil {
				return n, err
			}

			if !splitregexp.IsPlaceholder(resxml.Name(el)) {
				continue
			}

			id := splitindex.ResourceID{Type: resxml.Type(el), ID: el.SelectAttrValue("id", "")}
			resolved, ok := r.Index.Lookup(id)
			if !ok {
				return n, &LookupError{Path: path, Type: id.Type, Fragment: id.ID, Exact: true}
			}

			el.CreateAttr("name", resolved)
			n++
		}

		return n, nil
	})
}

// Drawables resolves the drawables table at path: placeholder names,
// and otherwise placeholders referenced by an item's text, both against
// the item's own type.
func (r *Resolver) Drawables(ctx context.Context, path string) (int, error) {
	return rewrite(path, func(root *etree.Element) (int, error) {
		n := 0
		for _, el := range root.ChildElements() {
			if err := ctx.Err(); err != nil {
				return n, err
			}

			ok, err := r.resolveName(ctx, path, el)
			if err != nil {
				return n, err
			} else if !ok {
				typ := resxml.Type(el)
				if ok, err = r.resolveText(ctx, path, el, func(string) string { return typ }); err != nil {
					return n, err
				}
			}

			if ok {
				n++
			}
		}

		return n, nil
	})
}

// Styles resolves the styles table at path like Drawables, but at every
// depth, and resolves references in text against the type the reference
// itself names, since a style's items point at colors, dimensions and
// other styles.
func (r *Resolver) Styles(ctx context.Context, path string) (int, error) {
	return rewrite(path, func(root *etree.Element) (int, error) {
		n := 0
		err := resxml.Walk(root, func(el *etree.Element) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ok, err := r.resolveName(ctx, path, el)
			if err != nil {
				return err
			} else if !ok {
				if ok, err = r.resolveText(ctx, path, el, ReferenceType); err != nil {
					return err
				}
			}

			if ok {
				n++
			}

			return nil
		})

		return n, err
	})
}

// Strings resolves the placeholder names in the strings table at path.
func (r *Resolver) Strings(ctx context.Context, path string) (int, error) {
	return rewrite(path, func(root *etree.Element) (int, error) {
		n := 0
		for _, el := range root.ChildElements() {
			if err := ctx.Err(); err != nil {
				return n, err
			}

			ok, err := r.resolveName(ctx, path, el)
			if err != nil {
				return n, err
			} else if ok {
				n++
			}
		}

		return n, nil
	})
}

// Generic resolves every quoted "@drawable/" reference to a placeholder
// in the resource file at path as text, replacing each placeholder
// wherever it occurs in the file. The file is only rewritten if
// something was replaced.
func (r *Resolver) Generic(ctx context.Context, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var (
		text      = string(b)
		fragments = map[string]string{}
		tokens    = []string{}
	)

	for _, m := range splitregexp.DrawableRef.FindAllStringSubmatch(text, -1) {
		if _, ok := fragments[m[1]]; !ok {
			fragments[m[1]] = m[2]
			tokens = append(tokens, m[1])
		}
	}

	if len(tokens) == 0 {
		return 0, nil
	}

	// Longest first so no token is replaced inside a longer one.
	sort.SliceStable(tokens, func(i, j int) bool {
		return len(tokens[i]) > len(tokens[j])
	})

	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		resolved, err := r.contains(ctx, path, "drawable", fragments[token])
		if err != nil {
			return 0, err
		}

		text = regexp.MustCompile(regexp.QuoteMeta(token)+`\b`).ReplaceAllLiteralString(text, resolved)
	}

	return len(tokens), resxml.WriteFile(path, []byte(text))
}
