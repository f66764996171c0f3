// Package engine locates and supervises the backend engine binary.
package engine

import (
	"log/slog"
	"path/filepath"
)

// BinaryName is the engine executable's base name.
const BinaryName = "engined"

// ResolveOptions are the inputs to binary resolution, supplied by the
// hosting runtime.
type ResolveOptions struct {
	// Packaged is true when gantry runs from an installed bundle.
	Packaged bool

	// Platform is the runtime platform identifier (runtime.GOOS).
	Platform string

	// Debug resolves the bare binary name so the PATH copy is used.
	Debug bool

	// BundleDir is the installed bundle's resource directory.
	BundleDir string

	// DevDir is the repository checkout root for unpackaged runs.
	DevDir string
}

// Resolve returns the engine executable path for the given packaging state,
// platform, and debug override. Pure path construction: existence is checked
// by the supervisor immediately before spawning, so a missing binary surfaces
// as a structured failure instead of a raw spawn error.
func Resolve(opts ResolveOptions) string {
	name := BinaryName
	if opts.Platform == "windows" {
		name += ".exe"
	}

	var path string
	switch {
	case opts.Debug:
		// Bare name: resolved against PATH at spawn time.
		path = name
	case opts.Packaged:
		path = filepath.Join(opts.BundleDir, "engine", name)
	default:
		path = filepath.Join(opts.DevDir, "engine", "dist", name)
	}

	slog.Info("resolved engine binary",
		"path", path,
		"packaged", opts.Packaged,
		"platform", opts.Platform,
		"debug", opts.Debug,
	)
	return path
}
