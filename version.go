package aliquot

import _ "embed"

// Version is the library version, embedded from the VERSION file at the
// repository root. Trim it before display.
//
//go:embed VERSION
var Version string
