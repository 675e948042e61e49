package pipeline

import (
	"context"

	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/render"
)

// Scene attaches a fresh canvas to m, applies the selection and returns
// its display list. The canvas is detached before returning.
func Scene(m dataflow.Model, opts Options) canvas.Scene {
	c := canvas.New(opts.CanvasOptions())
	c.Attach(m)
	defer c.Detach()
	if len(opts.Selection) > 0 {
		c.SetSelection(opts.Selection, nil)
	}
	return c.Scene()
}

// RenderGraph paints m in each of formats. The scene is built once and
// shared; DOT and PNG are produced from the model with pinned positions.
func RenderGraph(ctx context.Context, m dataflow.Model, formats []string, opts Options) (map[string][]byte, error) {
	scene := Scene(m, opts)
	var dot string
	dotSource := func() string {
		if dot == "" {
			dot = render.ToDOT(m, render.DOTOptions{Pinned: true, PortTypes: true})
		}
		return dot
	}

	out := make(map[string][]byte, len(formats))
	for _, format := range formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := renderFormat(ctx, format, scene, dotSource)
		if err != nil {
			return nil, err
		}
		out[format] = data
	}
	return out, nil
}

func renderFormat(ctx context.Context, format string, scene canvas.Scene, dot func() string) ([]byte, error) {
	switch format {
	case render.FormatSVG:
		return render.RenderSVG(scene), nil
	case render.FormatJSON:
		return render.RenderJSON(scene)
	case render.FormatDOT:
		return []byte(dot()), nil
	case render.FormatPNG:
		return render.GraphvizPNG(ctx, dot())
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "format %q", format)
}
