// Package story holds the in-memory document model shared by the
// extractors and the renderers.
package story
