// Package mediacatalog provides the version information for the media catalog client.
package mediacatalog

// Version is the current release of the media catalog client.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
