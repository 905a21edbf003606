// Package importers registers the row importers for every migration target
// with the core registry. Import it for its side effects.
package importers
