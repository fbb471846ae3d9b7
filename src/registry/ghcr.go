package registry

// GHCR is GitHub Container Registry (ghcr.io). Login, push, and copy
// behave like any OCI registry; the type exists so ghcr-specific
// behavior has a home when it diverges.
type GHCR struct {
	*Generic
}
