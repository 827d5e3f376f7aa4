// Package api defines the core data types and interfaces for the workflow
// service
//
// This package contains all the shared types used across the orchestrator,
// including step and group specs, run results, reports, and HTTP messages
package api
