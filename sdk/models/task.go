package models

import (
	"sort"
	"time"
)

// Status is the server-side state of a compute task
type Status string

// Defines the task states. PROCESSING is what the service reports while a
// task runs; RUNNING is accepted as a synonym.
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusRunning    Status = "RUNNING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether the status is absorbing.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SubmitResponse is the body returned by the submission endpoint
type SubmitResponse struct {
	TaskID string `json:"taskId"`
}

// TaskStatus is a snapshot of a task as reported by the status endpoint
type TaskStatus struct {
	TaskID             string              `json:"taskId,omitempty"`
	Status             Status              `json:"status"`
	CreatedAt          *time.Time          `json:"createdAt,omitempty"`
	Message            string              `json:"message,omitempty"`
	RemovalReasons     map[string][]string `json:"removalReasons,omitempty"`
	CurrentProgress    int                 `json:"currentProgress,omitempty"`
	TotalProgressSteps int                 `json:"totalProgressSteps,omitempty"`
	ProgressMessage    string              `json:"progressMessage,omitempty"`
}

// RemovedModels returns the names of the models excluded from consensus,
// sorted for stable output.
func (s *TaskStatus) RemovedModels() []string {
	names := make([]string, 0, len(s.RemovalReasons))
	for name := range s.RemovalReasons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProgress reports whether the server sent step counters.
func (s *TaskStatus) HasProgress() bool {
	return s.TotalProgressSteps > 0
}
