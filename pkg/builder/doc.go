// Package builder provides a fluent API for assembling workflow specs
//
// Builders are immutable. Every method returns a copy, so a partially
// configured builder can be reused as a template without later chains
// affecting one another. Build assembles the spec and reports the first
// validation problem found
package builder
