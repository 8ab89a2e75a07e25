package sandbox

// Status is the lifecycle state of an instance.
type Status string

const (
	StatusCreated   Status = "created"
	StatusLoaded    Status = "loaded"
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusDestroyed Status = "destroyed"
)
