package models

// Scope carries the caller identity into every namespace call.
type Scope struct {
	ProjectID string
	Principal string
}

// DefaultProject is used when a caller does not name a project.
const DefaultProject = "default"
