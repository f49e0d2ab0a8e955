package catalog

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/invertedv/profile"
)

type task struct {
	path []string
	node *Node
	item *profile.MetricItem
}

// Assemble evaluates every indicator against data for each of relations and returns the document. Indicators
// are evaluated in parallel, each into its own slot; the tree is then built in catalog order. Missing data
// never fails: those relations are null. The only errors are from ctx.
//
// Metadata without a release is given geo.CensusRelease.
func (c *Catalog) Assemble(ctx context.Context, data profile.GeoData, relations []profile.GeographyRelation,
	geo profile.Geography, geoMetadata *profile.GeoMetadata) (*profile.Document, error) {
	start := time.Now()

	var tasks []*task
	c.walk(func(path []string, n *Node) {
		if n.IsIndicator() {
			tasks = append(tasks, &task{path: path, node: n})
		}
	})

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, tk := range tasks {
		tk := tk
		g.Go(func() error {
			if e := gCtx.Err(); e != nil {
				return e
			}

			tk.item = profile.BuildItem(tk.node.Name, data, relations, tk.node.formula)
			if md := tk.node.Metadata; md != nil {
				tk.item.AddMetadata(md.TableID, md.Universe, release(md, geo.CensusRelease))
			}

			return nil
		})
	}

	if e := g.Wait(); e != nil {
		return nil, e
	}

	b := profile.NewBuilder()
	next := 0
	var add func(gb *profile.GroupBuilder, n *Node)
	add = func(gb *profile.GroupBuilder, n *Node) {
		if n.IsIndicator() {
			gb.Item(n.Key, tasks[next].item)
			next++

			return
		}

		child := gb.Group(n.Key)
		if md := n.Metadata; md != nil {
			child.SetMetadata(profile.Metadata{TableID: md.TableID, Universe: md.Universe,
				ACSRelease: release(md, geo.CensusRelease)})
		}

		for _, x := range n.Nodes {
			add(child, x)
		}
	}

	for _, s := range c.Sections {
		sb := b.Section(s.Name)
		for _, n := range s.Nodes {
			add(sb, n)
		}
	}

	doc := b.Build(geo, geoMetadata)

	logger := c.logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("assembled document",
		slog.Int("indicators", len(tasks)),
		slog.Int("relations", len(relations)),
		slog.Duration("elapsed", time.Since(start)))

	return doc, nil
}

func release(md *Metadata, dflt string) string {
	if md.Release != "" {
		return md.Release
	}

	return dflt
}
