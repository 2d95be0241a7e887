package course

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("course: not found")
	ErrModuleNotFound = errors.New("course: module not found")
	ErrInvalidInput   = errors.New("course: invalid input")
)

// FeeType is how a course is charged.
type FeeType string

const (
	FeeOneTime      FeeType = "one-time"
	FeeSubscription FeeType = "subscription"
)

// ParseFeeType validates a raw fee type string.
func ParseFeeType(raw string) (FeeType, bool) {
	ft := FeeType(strings.TrimSpace(strings.ToLower(raw)))
	switch ft {
	case FeeOneTime, FeeSubscription:
		return ft, true
	default:
		return "", false
	}
}

// Course is a published or draft course owned by an instructor. Price is in
// minor currency units.
type Course struct {
	ID             string    `json:"id"`
	InstructorID   string    `json:"instructor_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DisplayPicture string    `json:"display_picture,omitempty"`
	Price          int64     `json:"price"`
	FeeType        FeeType   `json:"fee_type"`
	Subscribers    []string  `json:"subscribers"`
	Published      bool      `json:"published"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Module is a unit of course content.
type Module struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ModuleWithInstructor joins a module with its parent course's instructor.
type ModuleWithInstructor struct {
	Module
	CourseTitle  string `json:"course_title"`
	InstructorID string `json:"course_instructor_id"`
}
