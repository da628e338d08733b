package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/database/templates"
	"github.com/stories1001/publisher/internal/entities"
)

var ErrTemplateNotFound = errors.New("template not found")

type TemplateInput struct {
	Name            string                    `json:"name"`
	Category        entities.TemplateCategory `json:"category"`
	Message         string                    `json:"message"`
	ApplicableRoles []entities.UserRole       `json:"applicable_roles"`
	IsActive        *bool                     `json:"is_active"`
}

type TemplateService struct {
	repo *templates.Repository
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{repo: templates.NewRepository(db)}
}

// List returns templates visible to the actor. Admins and content admins see
// every template; other reviewers only active ones that apply to their role.
func (s *TemplateService) List(actor Actor, category entities.TemplateCategory, activeOnly bool) ([]entities.RejectionTemplate, error) {
	if !actor.Role.IsReviewer() {
		return nil, fmt.Errorf("%w: templates are for reviewers", ErrForbidden)
	}
	if category != "" && !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %s", ErrInvalidInput, category)
	}

	privileged := actor.Role.IsPrivileged()
	list, err := s.repo.List(templates.Filter{Category: category, ActiveOnly: activeOnly || !privileged})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if privileged {
		return list, nil
	}

	visible := make([]entities.RejectionTemplate, 0, len(list))
	for i := range list {
		if list[i].AppliesTo(actor.Role) {
			visible = append(visible, list[i])
		}
	}
	return visible, nil
}

func (s *TemplateService) Get(id uint) (*entities.RejectionTemplate, error) {
	t, err := s.repo.GetByID(id)
	if errors.Is(err, templates.ErrTemplateNotFound) {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

func (s *TemplateService) Create(actor Actor, in TemplateInput) (*entities.RejectionTemplate, error) {
	if !actor.Role.IsPrivileged() {
		return nil, fmt.Errorf("%w: only admins manage templates", ErrForbidden)
	}
	if err := validateTemplate(in, true); err != nil {
		return nil, err
	}

	t := &entities.RejectionTemplate{
		Name:            strings.TrimSpace(in.Name),
		Category:        in.Category,
		Message:         strings.TrimSpace(in.Message),
		ApplicableRoles: in.ApplicableRoles,
		IsActive:        in.IsActive == nil || *in.IsActive,
		CreatedByID:     actor.ID,
	}
	if err := s.repo.Create(t); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return t, nil
}

func (s *TemplateService) Update(actor Actor, id uint, in TemplateInput) (*entities.RejectionTemplate, error) {
	if !actor.Role.IsPrivileged() {
		return nil, fmt.Errorf("%w: only admins manage templates", ErrForbidden)
	}
	if err := validateTemplate(in, false); err != nil {
		return nil, err
	}

	t, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		t.Name = name
	}
	if in.Category != "" {
		t.Category = in.Category
	}
	if msg := strings.TrimSpace(in.Message); msg != "" {
		t.Message = msg
	}
	if in.ApplicableRoles != nil {
		t.ApplicableRoles = in.ApplicableRoles
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}

	if err := s.repo.Save(t); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return t, nil
}

func (s *TemplateService) Delete(actor Actor, id uint) error {
	if !actor.Role.IsPrivileged() {
		return fmt.Errorf("%w: only admins manage templates", ErrForbidden)
	}
	err := s.repo.Delete(id)
	if errors.Is(err, templates.ErrTemplateNotFound) {
		return ErrTemplateNotFound
	}
	return err
}

func validateTemplate(in TemplateInput, create bool) error {
	if create {
		if strings.TrimSpace(in.Name) == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if strings.TrimSpace(in.Message) == "" {
			return fmt.Errorf("%w: message is required", ErrInvalidInput)
		}
		if in.Category == "" {
			return fmt.Errorf("%w: category is required", ErrInvalidInput)
		}
	}
	if in.Category != "" && !in.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %s", ErrInvalidInput, in.Category)
	}
	if len(in.Name) > 100 {
		return fmt.Errorf("%w: name must be at most 100 characters", ErrInvalidInput)
	}
	for _, r := range in.ApplicableRoles {
		if !r.IsReviewer() {
			return fmt.Errorf("%w: %s is not a reviewer role", ErrInvalidInput, r)
		}
	}
	return nil
}
