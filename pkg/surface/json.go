package surface

import (
	"encoding/json"
	"io"

	"github.com/nuages/nuages/pkg/cloud"
)

// JSONRenderer marshals a Cloud to indented JSON.
type JSONRenderer struct{}

type jsonCloud struct {
	Tags        cloud.Cloud `json:"tags"`
	TotalWeight float64     `json:"total_weight"`
}

func (r *JSONRenderer) Render(w io.Writer, c cloud.Cloud) error {
	if c == nil {
		c = cloud.Cloud{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonCloud{Tags: c, TotalWeight: c.TotalWeight()})
}
