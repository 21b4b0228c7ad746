// Package version exposes the build version, injected at link time.
package version

// value is overridden via -ldflags "-X quizsolver/internal/version.value=v1.2.3".
var value = "dev"

// Value returns the build version.
func Value() string {
	return value
}
