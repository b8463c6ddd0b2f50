package models

// WorkerRole is the field role a worker performs.
type WorkerRole string

const (
	WorkerCollector   WorkerRole = "collector"
	WorkerMaintenance WorkerRole = "maintenance"
	WorkerSupervisor  WorkerRole = "supervisor"
)

type Worker struct {
	ID                string     `json:"id" db:"id"`
	Name              string     `json:"name" db:"name"`
	Email             string     `json:"email" db:"email"`
	Phone             string     `json:"phone" db:"phone"`
	Role              WorkerRole `json:"role" db:"role"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	JoinDate          int64      `json:"join_date" db:"join_date"` // Unix timestamp
	Address           *string    `json:"address,omitempty" db:"address"`
	PerformanceRating float64    `json:"performance_rating" db:"performance_rating"`
	CreatedAt         int64      `json:"created_at" db:"created_at"`
	UpdatedAt         int64      `json:"updated_at" db:"updated_at"`
}

func ValidWorkerRole(r WorkerRole) bool {
	switch r {
	case WorkerCollector, WorkerMaintenance, WorkerSupervisor:
		return true
	}
	return false
}

// CreateWorkerRequest is the request body for POST /api/workers
type CreateWorkerRequest struct {
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Phone   string     `json:"phone"`
	Role    WorkerRole `json:"role"`
	Address *string    `json:"address,omitempty"`
}

// UpdateWorkerRequest is the request body for PATCH /api/workers/{id}
type UpdateWorkerRequest struct {
	Name              *string     `json:"name,omitempty"`
	Phone             *string     `json:"phone,omitempty"`
	Role              *WorkerRole `json:"role,omitempty"`
	IsActive          *bool       `json:"is_active,omitempty"`
	Address           *string     `json:"address,omitempty"`
	PerformanceRating *float64    `json:"performance_rating,omitempty"`
}

// WorkerStats aggregates a worker's maintenance history.
type WorkerStats struct {
	WorkerID       string  `json:"worker_id"`
	TotalJobs      int     `json:"total_jobs"`
	CompletedJobs  int     `json:"completed_jobs"`
	PendingJobs    int     `json:"pending_jobs"`
	CancelledJobs  int     `json:"cancelled_jobs"`
	TotalCost      float64 `json:"total_cost"`
	AssignedBins   int     `json:"assigned_bins"`
	CompletionRate float64 `json:"completion_rate"`
}
