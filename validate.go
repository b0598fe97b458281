package ocifetch

import (
	"errors"
	"fmt"

	"github.com/meigma/ocifetch/registry"
)

// ErrComponentLayers is returned when a wasm component artifact does not
// have exactly one layer.
var ErrComponentLayers = errors.New("wasm component artifact must have exactly one layer")

// ValidateArtifact checks structural rules for pulled content.
//
// A wasm component manifest must carry exactly one layer, whatever the
// layers contain. Other manifest types are accepted as they are.
func ValidateArtifact(a *registry.PulledArtifact) error {
	if a == nil {
		return errors.New("nil artifact")
	}
	if registry.IsComponentManifest(a.Manifest) && len(a.Layers) != 1 {
		return fmt.Errorf("%w: found %d layers", ErrComponentLayers, len(a.Layers))
	}
	return nil
}
