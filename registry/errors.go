package registry

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when a manifest or blob does not exist at the reference.
	ErrNotFound = errors.New("registry: not found")

	// ErrUnauthorized is returned when the registry rejects the supplied credentials.
	ErrUnauthorized = errors.New("registry: unauthorized")

	// ErrForbidden is returned when the registry denies access to the repository.
	ErrForbidden = errors.New("registry: forbidden")

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = errors.New("registry: invalid reference")

	// ErrLatestTag is returned when a reference uses the latest tag and policy forbids it.
	ErrLatestTag = errors.New("registry: latest tag prohibited")

	// ErrManifestInvalid is returned when a manifest cannot be parsed or has an unsupported type.
	ErrManifestInvalid = errors.New("registry: invalid manifest")

	// ErrCertLoad is returned when an additional CA certificate cannot be read or decoded.
	ErrCertLoad = errors.New("registry: load CA certificates")

	// ErrMediaTypeNotAccepted is returned when a layer media type is not in the accepted set.
	ErrMediaTypeNotAccepted = errors.New("registry: layer media type not accepted")
)
