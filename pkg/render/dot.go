package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowc/pkg/engine"
	"github.com/matzehuels/flowc/pkg/errors"
)

// Format is an output format of the graph command.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
	FormatJSON Format = "json"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatSVG, FormatJSON:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unsupported graph format %q (want dot, svg or json)", s)
}

// Options configures [ToDOT].
type Options struct {
	// Detailed adds the own and final ranges and the rewrite count to
	// each label. Otherwise only the module path is shown.
	Detailed bool
}

// ToDOT converts a resolved graph to Graphviz DOT. Output is deterministic.
func ToDOT(g *engine.ResolvedGraph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14];\n")
	buf.WriteString("\n")

	mods := g.Modules()
	sort.Slice(mods, func(i, j int) bool { return mods[i].Path < mods[j].Path })
	for _, m := range mods {
		fmt.Fprintf(&buf, "  %q [%s];\n", m.Path, strings.Join(nodeAttrs(m, opts), ", "))
	}

	buf.WriteString("\n")
	for _, m := range mods {
		for _, dep := range m.Dependencies {
			fmt.Fprintf(&buf, "  %q -> %q;\n", m.Path, dep)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(m *engine.Module, opts Options) []string {
	label := m.Path
	if opts.Detailed {
		label += fmt.Sprintf("\nown: %s\nfinal: %s", m.Own, m.Final)
		if n := len(m.Rewrites); n > 0 {
			label += fmt.Sprintf("\nrewrites: %d", n)
		}
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if m.Entry {
		attrs = append(attrs, `style="rounded,filled,bold"`, "penwidth=2", `fontname="Helvetica-Bold"`)
	}
	if m.Final.Empty() {
		attrs = append(attrs, "fillcolor=mistyrose")
	}
	return attrs
}

// RenderSVG lays out and renders DOT source as SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one whose
// width and height match the view box, so browsers scale the image.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
