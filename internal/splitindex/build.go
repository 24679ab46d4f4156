package splitindex

import (
	"context"
	"fmt"
	"runtime"

	"github.com/frantjc/splitmerge/internal/resxml"
	"github.com/frantjc/splitmerge/internal/splitregexp"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

type BuildOpts struct {
	Jobs int
}

type BuildOpt func(*BuildOpts)

// WithJobs bounds how many tables are parsed at once.
func WithJobs(jobs int) BuildOpt {
	return func(o *BuildOpts) {
		o.Jobs = jobs
	}
}

// Item is one entry of an identifier table.
type Item struct {
	ResourceID
	Name string
}

// ReadTable parses the identifier table at name into its items.
func ReadTable(name string) ([]Item, error) {
	doc, err := resxml.Read(name)
	if err != nil {
		return nil, err
	}

	var (
		elements = doc.Root().ChildElements()
		items    = make([]Item, 0, len(elements))
	)

	for _, el := range elements {
		var (
			typ  = el.SelectAttr("type")
			id   = el.SelectAttr("id")
			attr = el.SelectAttr("name")
		)

		if typ == nil || id == nil || attr == nil {
			return nil, fmt.Errorf("parse %s: %s needs type, id and name", name, el.GetPath())
		}

		items = append(items, Item{
			ResourceID: ResourceID{Type: typ.Value, ID: id.Value},
			Name:       attr.Value,
		})
	}

	return items, nil
}

// Build parses every identifier table, concurrently, and then merges them
// in the order given. Items named by a placeholder are skipped. Any table
// that cannot be read fails the whole build.
func Build(ctx context.Context, tables []string, opts ...BuildOpt) (*Index, error) {
	var (
		log = logr.FromContextOrDiscard(ctx)
		o   = &BuildOpts{Jobs: runtime.GOMAXPROCS(0)}
	)

	for _, opt := range opts {
		opt(o)
	}

	if o.Jobs < 1 {
		o.Jobs = 1
	}

	var (
		parsed    = make([][]Item, len(tables))
		eg, egctx = errgroup.WithContext(ctx)
	)
	eg.SetLimit(o.Jobs)

	for i, table := range tables {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}

			items, err := ReadTable(table)
			if err != nil {
				return err
			}

			parsed[i] = items

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	x := New()
	for i, items := range parsed {
		added := 0
		for _, item := range items {
			if splitregexp.IsPlaceholder(item.Name) {
				continue
			}

			if x.Add(item.ResourceID, item.Name, tables[i]) {
				added++
			}
		}

		log.V(1).Info("indexed identifier table", "table", tables[i], "items", len(items), "added", added)
	}

	for _, conflict := range x.Conflicts() {
		log.Info("identifier named differently by two splits, keeping the first",
			"id", conflict.ResourceID.String(),
			"kept", conflict.Kept,
			"ignored", conflict.Ignored,
			"table", conflict.Table,
		)
	}

	return x, nil
}
