package models

import "time"

// User is an account that can own projects and be assigned tasks.
// PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarURL    *string   `json:"avatarUrl"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Project groups tasks under a single owning user. Tasks and Members are
// populated on list and update responses.
type Project struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	OwnerID   int64        `json:"ownerId"`
	StartDate *time.Time   `json:"startDate"`
	EndDate   *time.Time   `json:"endDate"`
	CreatedAt time.Time    `json:"createdAt"`
	Tasks     []Task       `json:"tasks"`
	Members   []Membership `json:"members"`
}

// Task is a single card on the project board.
type Task struct {
	ID         int64      `json:"id"`
	ProjectID  int64      `json:"projectId"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	DueDate    *time.Time `json:"dueDate"`
	AssigneeID *int64     `json:"assigneeId"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Membership links a non-owner collaborator to a project. The relation is
// read-only: no endpoint adds or removes members.
type Membership struct {
	ID        int64 `json:"id"`
	ProjectID int64 `json:"projectId"`
	UserID    int64 `json:"userId"`
	User      *User `json:"user,omitempty"`
}

// Task status columns. Any status is reachable from any other.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// Task priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// ValidTaskStatuses enumerates the statuses supported by the board columns.
var ValidTaskStatuses = map[string]struct{}{
	StatusTodo:       {},
	StatusInProgress: {},
	StatusDone:       {},
}

// ValidTaskPriorities enumerates the accepted priority values.
var ValidTaskPriorities = map[string]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
}
