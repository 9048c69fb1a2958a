package models

// Job statuses the controller reports while a job has not finished yet.
// An empty status (JSON null) means the controller has not assigned one.
const (
	StatusUnknown = ""
	StatusPending = "pending"
	StatusWaiting = "waiting"
	StatusRunning = "running"
)

// Job is a job template run on the controller.
type Job struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	JobTemplate int     `json:"job_template"`
	Inventory   int     `json:"inventory"`
	Status      string  `json:"status"`
	Failed      bool    `json:"failed"`
	Elapsed     float64 `json:"elapsed"`
}

// IsTerminal reports whether status ends the wait for a job.
// Anything other than unknown, pending, waiting or running is terminal.
func IsTerminal(status string) bool {
	switch status {
	case StatusUnknown, StatusPending, StatusWaiting, StatusRunning:
		return false
	}
	return true
}

// Inventory is a named collection of hosts scoped to an organization.
type Inventory struct {
	ID           int    `json:"id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Organization int    `json:"organization"`
}

// Host is a target machine registered into exactly one inventory.
type Host struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
