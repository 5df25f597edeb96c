package topology

import "errors"

var (
	// ErrNodeNotFound is returned when a node ID is not in the graph.
	ErrNodeNotFound = errors.New("topology: node not found")

	// ErrInvalidPosition is returned for non-finite coordinates.
	ErrInvalidPosition = errors.New("topology: invalid position")
)
