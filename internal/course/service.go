package course

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store describes course persistence. Implementations must be safe for
// concurrent use.
type Store interface {
	CreateCourse(ctx context.Context, c *Course) error
	FindCourse(ctx context.Context, id string) (*Course, error)
	ListCourses(ctx context.Context) ([]*Course, error)
	UpdateCourse(ctx context.Context, c *Course) error
	DeleteCourse(ctx context.Context, id string) error
	AddSubscriber(ctx context.Context, courseID, userID string) error

	CreateModule(ctx context.Context, m *Module) error
	FindModule(ctx context.Context, id string) (*Module, error)
	ListModules(ctx context.Context, courseID string) ([]*Module, error)
	UpdateModule(ctx context.Context, m *Module) error
	DeleteModule(ctx context.Context, id string) error
	FindModuleWithInstructor(ctx context.Context, id string) (*ModuleWithInstructor, error)
}

// Service owns course and module operations. Access control is the HTTP
// layer's responsibility; the service only validates domain rules.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("course: store is required")
	}
	return &Service{store: store}, nil
}

// CreateCourseInput carries the fields a caller may set on creation.
type CreateCourseInput struct {
	InstructorID   string
	Title          string
	Description    string
	DisplayPicture string
	Price          int64
	FeeType        string
	Published      bool
}

func (s *Service) CreateCourse(ctx context.Context, in CreateCourseInput) (*Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.InstructorID) == "" {
		return nil, fmt.Errorf("%w: instructor is required", ErrInvalidInput)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrInvalidInput)
	}
	feeType, ok := ParseFeeType(in.FeeType)
	if !ok {
		return nil, fmt.Errorf("%w: fee_type must be one-time or subscription", ErrInvalidInput)
	}

	c := &Course{
		InstructorID:   strings.TrimSpace(in.InstructorID),
		Title:          title,
		Description:    in.Description,
		DisplayPicture: strings.TrimSpace(in.DisplayPicture),
		Price:          in.Price,
		FeeType:        feeType,
		Published:      in.Published,
	}
	if err := s.store.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCourse(ctx context.Context, id string) (*Course, error) {
	return s.store.FindCourse(ctx, id)
}

func (s *Service) ListCourses(ctx context.Context) ([]*Course, error) {
	return s.store.ListCourses(ctx)
}

// UpdateCourseInput uses pointers to distinguish absent fields from zero
// values.
type UpdateCourseInput struct {
	Title          *string
	Description    *string
	DisplayPicture *string
	Price          *int64
	FeeType        *string
	Published      *bool
}

func (s *Service) UpdateCourse(ctx context.Context, id string, in UpdateCourseInput) (*Course, error) {
	c, err := s.store.FindCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		c.Title = title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.DisplayPicture != nil {
		c.DisplayPicture = strings.TrimSpace(*in.DisplayPicture)
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, fmt.Errorf("%w: price must be >= 0", ErrInvalidInput)
		}
		c.Price = *in.Price
	}
	if in.FeeType != nil {
		feeType, ok := ParseFeeType(*in.FeeType)
		if !ok {
			return nil, fmt.Errorf("%w: fee_type must be one-time or subscription", ErrInvalidInput)
		}
		c.FeeType = feeType
	}
	if in.Published != nil {
		c.Published = *in.Published
	}
	if err := s.store.UpdateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	return s.store.DeleteCourse(ctx, id)
}

// Subscribe adds a user to a course's subscriber list. Subscribing twice is a
// no-op success.
func (s *Service) Subscribe(ctx context.Context, courseID, userID string) (*Course, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if _, err := s.store.FindCourse(ctx, courseID); err != nil {
		return nil, err
	}
	if err := s.store.AddSubscriber(ctx, courseID, userID); err != nil {
		return nil, err
	}
	return s.store.FindCourse(ctx, courseID)
}

// CreateModule adds a module to an existing course.
func (s *Service) CreateModule(ctx context.Context, courseID, title, description string) (*Module, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if _, err := s.store.FindCourse(ctx, courseID); err != nil {
		return nil, err
	}
	m := &Module{
		CourseID:    courseID,
		Title:       title,
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}
	if err := s.store.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListModules returns the modules of an existing course.
func (s *Service) ListModules(ctx context.Context, courseID string) ([]*Module, error) {
	if _, err := s.store.FindCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.store.ListModules(ctx, courseID)
}

func (s *Service) GetModule(ctx context.Context, id string) (*Module, error) {
	return s.store.FindModule(ctx, id)
}

// UpdateModuleInput uses pointers to distinguish absent fields.
type UpdateModuleInput struct {
	Title       *string
	Description *string
	IsActive    *bool
}

func (s *Service) UpdateModule(ctx context.Context, id string, in UpdateModuleInput) (*Module, error) {
	m, err := s.store.FindModule(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		m.Title = title
	}
	if in.Description != nil {
		m.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if err := s.store.UpdateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) DeleteModule(ctx context.Context, id string) error {
	return s.store.DeleteModule(ctx, id)
}

// GetModuleWithInstructor returns a module joined with its course's
// instructor reference.
func (s *Service) GetModuleWithInstructor(ctx context.Context, id string) (*ModuleWithInstructor, error) {
	return s.store.FindModuleWithInstructor(ctx, id)
}
