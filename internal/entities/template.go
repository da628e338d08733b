package entities

import "time"

type TemplateCategory string

const (
	TemplateCategoryContent  TemplateCategory = "CONTENT"
	TemplateCategoryFormat   TemplateCategory = "FORMAT"
	TemplateCategoryPolicy   TemplateCategory = "POLICY"
	TemplateCategoryQuality  TemplateCategory = "QUALITY"
	TemplateCategoryLanguage TemplateCategory = "LANGUAGE"
	TemplateCategoryOther    TemplateCategory = "OTHER"
)

func (c TemplateCategory) IsValid() bool {
	switch c {
	case TemplateCategoryContent, TemplateCategoryFormat, TemplateCategoryPolicy,
		TemplateCategoryQuality, TemplateCategoryLanguage, TemplateCategoryOther:
		return true
	}
	return false
}

// RejectionTemplate is a reusable reason for rejections and revision requests.
type RejectionTemplate struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"size:100" json:"name"`
	Category        TemplateCategory `gorm:"size:20;index" json:"category"`
	Message         string           `gorm:"type:text" json:"message"`
	ApplicableRoles []UserRole       `gorm:"serializer:json" json:"applicable_roles"`
	IsActive        bool             `gorm:"index" json:"is_active"`
	UsageCount      int              `gorm:"default:0" json:"usage_count"`
	CreatedByID     uint             `json:"created_by_id"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (RejectionTemplate) TableName() string {
	return "rejection_templates"
}

// AppliesTo reports whether the template is offered to the given role.
// An empty role list means every reviewer role.
func (t *RejectionTemplate) AppliesTo(role UserRole) bool {
	if len(t.ApplicableRoles) == 0 {
		return true
	}
	return containsRole(t.ApplicableRoles, role)
}
