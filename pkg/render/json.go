package render

import (
	"encoding/json"

	"github.com/matzehuels/upgraph/pkg/diagram"
)

// JSON encodes d as the node/edge document consumed by the web viewer.
func JSON(d *diagram.Diagram, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(d, "", "  ")
	}
	return json.Marshal(d)
}
