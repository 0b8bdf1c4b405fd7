package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	StatusOngoing  ProjectStatus = "ongoing"
	StatusPending  ProjectStatus = "pending"
	StatusComplete ProjectStatus = "complete"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusOngoing, StatusPending, StatusComplete:
		return true
	}
	return false
}

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "2006-01-02" or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return NewDate(t), nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD" (null when unset).
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes "YYYY-MM-DD", an RFC 3339 timestamp, "" or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is a single free-text item in a project's task list.
type Task struct {
	Task string `json:"task"`
}

// Project is a tracked piece of work with a task list and a schedule.
type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	TaskList    []Task        `json:"taskList"`
	UserID      string        `json:"userId"`
	AssignDate  Date          `json:"assignDate"`
	DueDate     Date          `json:"dueDate"`
	StartDate   Date          `json:"startDate"`
	EndDate     Date          `json:"endDate"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// NewProject creates a new Project with initialized timestamps and default status.
func NewProject(title, description, userID string) *Project {
	now := time.Now()
	return &Project{
		Title:       title,
		Description: description,
		UserID:      userID,
		TaskList:    []Task{},
		Status:      StatusOngoing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ProjectTitle is the projection served by the title listing.
type ProjectTitle struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	AssignDate Date          `json:"assignDate"`
	EndDate    Date          `json:"endDate"`
	Status     ProjectStatus `json:"status"`
}

// TitleUpdate is one element of a batch title/status update. An empty
// Status leaves the stored status unchanged.
type TitleUpdate struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Status ProjectStatus `json:"status"`
}
