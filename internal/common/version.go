package common

// Version metadata, overridable at build time via -ldflags.
var (
	Version = "0.1.0"
	Build   = "dev"
)

// GetVersion returns the semantic version string.
func GetVersion() string {
	return Version
}
