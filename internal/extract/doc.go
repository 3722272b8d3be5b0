// Package extract pulls a story out of the site's fixed page templates.
// Every lookup tolerates missing nodes and falls back to a placeholder
// instead of failing.
package extract
