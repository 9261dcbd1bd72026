// Package render draws the resolved module graph.
//
// [ToDOT] produces Graphviz source with one box per module. Arrows point
// from the importing module to the module it requires, entry points are
// drawn bold, and detailed labels carry each module's own and final SDK
// range:
//
//	dot := render.ToDOT(g, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// [ToJSON] emits the same information for tooling.
//
// SVG rendering runs Graphviz in process through
// [github.com/goccy/go-graphviz]; no system Graphviz install is needed.
package render
