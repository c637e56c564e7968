// Package build holds version information for the running binary.
package build

// Version is stamped at build time via -ldflags "-X".
var Version = "dev"
