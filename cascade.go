// Package cascade identifies the workflow service
package cascade

const (
	// Name is the service name reported by the health endpoint
	Name = "cascade"

	// Version is the service version
	Version = "0.1.0"
)
