package registry

import ocispec "github.com/opencontainers/image-spec/specs-go/v1"

// Media types for WebAssembly components and capability providers.
const (
	// MediaTypeWasmModule is the legacy wasm module content layer.
	MediaTypeWasmModule = "application/vnd.module.wasm.content.layer.v1+wasm"

	// MediaTypeWasmLayer is the layer type used by the CNCF wasm OCI artifact layout.
	MediaTypeWasmLayer = "application/wasm"

	// MediaTypeWasmConfig identifies a wasm component manifest.
	MediaTypeWasmConfig = "application/vnd.wasm.config.v0+json"

	// MediaTypeProviderArchive is the capability provider archive layer.
	MediaTypeProviderArchive = "application/vnd.wasmcloud.provider.archive.layer.v1+par"

	// MediaTypeOCILayer is the generic uncompressed OCI tar layer.
	MediaTypeOCILayer = ocispec.MediaTypeImageLayer

	// MediaTypeDockerManifest is the Docker v2 schema 2 manifest.
	MediaTypeDockerManifest = "application/vnd.docker.distribution.manifest.v2+json"
)

// IsComponentManifest reports whether m describes a wasm component.
func IsComponentManifest(m Manifest) bool {
	return m.MediaType == MediaTypeWasmConfig ||
		m.ConfigMediaType == MediaTypeWasmConfig ||
		m.ArtifactType == MediaTypeWasmConfig
}
