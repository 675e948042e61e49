package canvas

import (
	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// ConnectionVisual mirrors one live model connection.
type ConnectionVisual struct {
	canvas *Canvas
	conn   dataflow.Connection
	id     string
	src    *Port
	dst    *Port
	from   geom.Vec
	to     geom.Vec

	z        float64
	seq      uint64
	selected bool
	hovered  bool
}

func (cv *ConnectionVisual) Kind() ItemKind  { return KindConnection }
func (cv *ConnectionVisual) Z() float64      { return cv.z }
func (cv *ConnectionVisual) ID() string      { return cv.id }
func (cv *ConnectionVisual) Source() *Port   { return cv.src }
func (cv *ConnectionVisual) Dest() *Port     { return cv.dst }
func (cv *ConnectionVisual) From() geom.Vec  { return cv.from }
func (cv *ConnectionVisual) To() geom.Vec    { return cv.to }
func (cv *ConnectionVisual) Selected() bool  { return cv.selected }
func (cv *ConnectionVisual) Hovered() bool   { return cv.hovered }
func (cv *ConnectionVisual) stack() stackKey { return stackKey{z: cv.z, seq: cv.seq} }

// Connection returns the model connection handle.
func (cv *ConnectionVisual) Connection() dataflow.Connection { return cv.conn }

func (cv *ConnectionVisual) halfWidth() float64 { return cv.canvas.opts.Metrics.PortHeight }

// Bounds covers the segment and its hit band.
func (cv *ConnectionVisual) Bounds() geom.Rect {
	return geom.RectFromPoints(cv.from, cv.to).Inset(cv.halfWidth())
}

// Contains reports whether p lies within the band around the segment. The
// band is flat-ended: it stops at the two connection points, so the ports a
// connection joins stay reachable under it.
func (cv *ConnectionVisual) Contains(p geom.Vec) bool {
	t, d := geom.Project(p, cv.from, cv.to)
	return t >= 0 && t <= 1 && d <= cv.halfWidth()
}

// updateGeometry re-reads the endpoint positions.
func (cv *ConnectionVisual) updateGeometry() {
	from, to := cv.src.ConnectionPoint(), cv.dst.ConnectionPoint()
	if from == cv.from && to == cv.to {
		return
	}
	old := cv.Bounds()
	cv.from, cv.to = from, to
	cv.canvas.invalidate(old.Union(cv.Bounds()))
}
