// Package site assembles the static dashboard: the landing page, the schema
// diagram, and one detail page plus dependency diagrams per object.
package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sabrimoh/erdash/internal/render"
	"github.com/sabrimoh/erdash/pkg/depgraph"
	"github.com/sabrimoh/erdash/pkg/lineage"
	"github.com/sabrimoh/erdash/pkg/metadata"
)

// SVGRenderFunc converts one DOT file into the SVG the pages embed.
type SVGRenderFunc func(ctx context.Context, dotPath, svgPath string) error

// DotSVGRenderer returns a renderer backed by the graphviz dot binary, or
// nil when dot is not on PATH. A nil renderer leaves only the DOT sources
// behind, to be rendered by hand.
func DotSVGRenderer() SVGRenderFunc {
	bin, err := exec.LookPath("dot")
	if err != nil {
		return nil
	}
	return func(ctx context.Context, dotPath, svgPath string) error {
		out, err := exec.CommandContext(ctx, bin, "-Tsvg", "-o", svgPath, dotPath).CombinedOutput()
		if err != nil {
			return fmt.Errorf("render %s: %w: %s", filepath.Base(dotPath), err, bytes.TrimSpace(out))
		}
		return nil
	}
}

// Builder writes the dashboard site for one schema into an output directory.
type Builder struct {
	index   *metadata.Index
	graph   *depgraph.Graph
	tracer  *lineage.Tracer
	schema  string
	outDir  string
	workers int
	svg     SVGRenderFunc
	logger  *slog.Logger
}

// Options configures a Builder. Zero values fall back to sane defaults.
type Options struct {
	Schema  string
	OutDir  string
	Workers int
	// SVG renders each emitted DOT file; nil skips SVG output entirely.
	SVG    SVGRenderFunc
	Logger *slog.Logger
}

// NewBuilder wires the index into a graph and tracer and returns a builder.
func NewBuilder(index *metadata.Index, opts Options) *Builder {
	graph := depgraph.FromEdges(index.Edges())

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.OutDir == "" {
		opts.OutDir = "erd_output"
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}

	return &Builder{
		index:   index,
		graph:   graph,
		tracer:  lineage.NewTracer(index, graph),
		schema:  opts.Schema,
		outDir:  opts.OutDir,
		workers: opts.Workers,
		svg:     opts.SVG,
		logger:  opts.Logger,
	}
}

// OutDir returns the directory the builder writes into.
func (b *Builder) OutDir() string { return b.outDir }

// RendersSVG reports whether diagrams are rendered to SVG during Build.
func (b *Builder) RendersSVG() bool { return b.svg != nil }

// Build writes the whole site: main.html, the public ER diagram, and
// per-object detail pages with their dependency diagrams. Diagrams are DOT
// sources, rendered to SVG when a renderer is configured. Object pages are
// built concurrently; the first failure cancels the rest.
func (b *Builder) Build(ctx context.Context) error {
	detailsDir := filepath.Join(b.outDir, "details")
	if err := os.MkdirAll(detailsDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	diagrams := render.NewDiagramBuilder(b.index, b.graph)

	if err := b.writeDiagram(ctx, filepath.Join(b.outDir, "public_er_diagram.dot"), diagrams.ERDiagramDOT()); err != nil {
		return err
	}
	if err := b.writeIndexPage(); err != nil {
		return err
	}

	objects := append(b.index.Tables(), b.index.Views()...)
	b.logger.Info("building detail pages",
		"objects", len(objects), "workers", b.workers, "out", b.outDir)

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)
	for _, name := range objects {
		eg.Go(func() error {
			select {
			case <-egctx.Done():
				return egctx.Err()
			default:
			}
			return b.buildObject(egctx, diagrams, detailsDir, name)
		})
	}
	return eg.Wait()
}

func (b *Builder) writeIndexPage() error {
	f, err := os.Create(filepath.Join(b.outDir, "main.html"))
	if err != nil {
		return fmt.Errorf("create main page: %w", err)
	}
	defer func() { _ = f.Close() }()

	node := render.IndexPage(b.schema, b.index.Tables(), b.index.Views())
	if err := render.WriteNode(f, node); err != nil {
		return fmt.Errorf("render main page: %w", err)
	}
	return f.Close()
}

func (b *Builder) buildObject(ctx context.Context, diagrams *render.DiagramBuilder, detailsDir, name string) error {
	isTable := b.index.IsTable(name)

	if err := b.writeDiagram(ctx, filepath.Join(detailsDir, name+"_dependencies.dot"), diagrams.SourcesDOT(name)); err != nil {
		return err
	}
	if err := b.writeDiagram(ctx, filepath.Join(detailsDir, name+"_reverse_dependencies.dot"), diagrams.DependentsDOT(name)); err != nil {
		return err
	}

	var (
		lineages []render.ColumnLineage
		viewSQL  string
		columns  []string
	)
	if isTable {
		columns = b.index.TableColumns(name)
	} else {
		columns = b.index.ViewColumns(name)
		viewSQL, _ = b.index.Definition(name)
		lineages = b.traceColumns(name, columns)
	}

	f, err := os.Create(filepath.Join(detailsDir, name+".html"))
	if err != nil {
		return fmt.Errorf("create detail page for %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	node := render.DetailPage(name, isTable, columns, b.index.PrimaryKeyColumns(name), lineages, viewSQL)
	if err := render.WriteNode(f, node); err != nil {
		return fmt.Errorf("render detail page for %s: %w", name, err)
	}
	return f.Close()
}

// TraceView returns the condensed lineage for every column of the named view.
func (b *Builder) TraceView(name string) []render.ColumnLineage {
	return b.traceColumns(name, b.index.ViewColumns(name))
}

func (b *Builder) traceColumns(view string, columns []string) []render.ColumnLineage {
	lineages := make([]render.ColumnLineage, 0, len(columns))
	for _, col := range columns {
		chain := b.tracer.Trace(col, view)
		lineages = append(lineages, render.ColumnLineage{
			Column: col,
			Chain:  lineage.Condense(chain, col),
		})
	}
	return lineages
}

// writeDiagram writes a DOT source and, when a renderer is configured, the
// SVG the pages embed next to it.
func (b *Builder) writeDiagram(ctx context.Context, dotPath, content string) error {
	if err := writeFile(dotPath, content); err != nil {
		return err
	}
	if b.svg == nil {
		return nil
	}
	return b.svg(ctx, dotPath, strings.TrimSuffix(dotPath, ".dot")+".svg")
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
