package render

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/flowcanvas/pkg/canvas"
)

// RenderJSON encodes the scene as indented JSON.
func RenderJSON(s canvas.Scene) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	return append(data, '\n'), nil
}
