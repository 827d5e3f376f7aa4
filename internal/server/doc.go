// Package server implements the HTTP API for the workflow service
//
// This package provides REST endpoints for running workflows, listing
// presets and capabilities, managing artifacts, and streaming run events
// over WebSocket connections
package server
