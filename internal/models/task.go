package models

import (
	"errors"
	"strings"
	"time"
)

// TaskCollection is the collection tasks are persisted in.
const TaskCollection = "tasks"

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// dateLayout is the wire format of due dates.
const dateLayout = "2006-01-02"

// Task is a unit of work that can be assigned to a user.
type Task struct {
	Record
	Name           string `json:"name"`
	Description    string `json:"description"`
	Status         string `json:"status"`   // "todo", "in_progress", "completed"
	Priority       string `json:"priority"` // "low", "medium", "high"
	AssignedToID   string `json:"assigned_to_id,omitempty"`
	AssignedToName string `json:"assigned_to_name,omitempty"`
	DueDate        string `json:"due_date,omitempty"`
	CreatedByID    string `json:"created_by_id"`
	CreatedByName  string `json:"created_by_name,omitempty"`
}

// TaskPatch lists the task fields a caller may write. Nil fields are left
// untouched.
type TaskPatch struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	Status         *string `json:"status,omitempty"`
	Priority       *string `json:"priority,omitempty"`
	AssignedToID   *string `json:"assigned_to_id,omitempty"`
	AssignedToName *string `json:"assigned_to_name,omitempty"`
	DueDate        *string `json:"due_date,omitempty"`
	CreatedByID    *string `json:"created_by_id,omitempty"`
	CreatedByName  *string `json:"created_by_name,omitempty"`
}

// Fields returns the set fields of the patch.
func (p TaskPatch) Fields() Document {
	d := Document{}
	put(d, "name", p.Name)
	put(d, "description", p.Description)
	put(d, "status", p.Status)
	put(d, "priority", p.Priority)
	put(d, "assigned_to_id", p.AssignedToID)
	put(d, "assigned_to_name", p.AssignedToName)
	put(d, "due_date", p.DueDate)
	put(d, "created_by_id", p.CreatedByID)
	put(d, "created_by_name", p.CreatedByName)
	return d
}

// WithDefaults fills the fields a new task needs when the caller left them
// unset.
func (p TaskPatch) WithDefaults() TaskPatch {
	if p.Description == nil {
		p.Description = Ptr("")
	}
	if p.Status == nil {
		p.Status = Ptr(StatusTodo)
	}
	if p.Priority == nil {
		p.Priority = Ptr(PriorityMedium)
	}
	if p.CreatedByID == nil {
		p.CreatedByID = Ptr("")
	}
	return p
}

// Validate checks the fields present in the patch. When creating is true the
// name is required.
func (p TaskPatch) Validate(creating bool) error {
	if p.Name != nil || creating {
		if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
			return errors.New("name is required")
		}
	}

	if p.Status != nil && !validStatus(*p.Status) {
		return errors.New("status must be 'todo', 'in_progress', or 'completed'")
	}

	if p.Priority != nil && !validPriority(*p.Priority) {
		return errors.New("priority must be 'high', 'medium', or 'low'")
	}

	if p.DueDate != nil && *p.DueDate != "" {
		if _, err := time.Parse(dateLayout, *p.DueDate); err != nil {
			return errors.New("due_date must be formatted as YYYY-MM-DD")
		}
	}

	return nil
}

// IsOverdue returns true if the task has a due date that has passed and is not completed.
func (t *Task) IsOverdue() bool {
	if t.Status == StatusCompleted || t.DueDate == "" {
		return false
	}
	due, err := time.Parse(dateLayout, t.DueDate)
	if err != nil {
		return false
	}
	return due.Before(time.Now())
}

func validStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusCompleted
}

func validPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Ptr returns a pointer to v.
func Ptr[V any](v V) *V {
	return &v
}
