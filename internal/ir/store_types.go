package ir

import "time"

// NOTE: These are store-layer records owned by the persistence collaborator.
// The engine reads them; only the store and the package importer write them.

// ImportedPackage records the highest version of a package group that has
// been imported.
type ImportedPackage struct {
	GroupID    string    `json:"group_id"`
	Name       string    `json:"name"`
	Version    int       `json:"version"`
	ImportedAt time.Time `json:"imported_at"`
}

// RunStatus is the terminal state of a deploy run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run records one refresh triggered by the CLI.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Status     RunStatus `json:"status"`
	Bundles    int       `json:"bundles"`
	Error      string    `json:"error,omitempty"`
}
