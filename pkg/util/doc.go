// Package util provides common utility functions and data structures
//
// This package includes a generic set implementation and panic recovery
// helpers used throughout the workflow service
package util
