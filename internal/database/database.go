package database

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stories1001/publisher/internal/entities"
)

// defaultTemplates are seeded on first start so reviewers have a baseline set of reasons.
var defaultTemplates = []entities.RejectionTemplate{
	{
		Name:     "Inappropriate content",
		Category: entities.TemplateCategoryContent,
		Message:  "This story contains content that is not appropriate for our young readers. Please review our content guidelines.",
		IsActive: true,
	},
	{
		Name:     "Formatting issues",
		Category: entities.TemplateCategoryFormat,
		Message:  "The submission has formatting problems that prevent publishing. Please check paragraphs, headings and page breaks.",
		IsActive: true,
		ApplicableRoles: []entities.UserRole{
			entities.UserRoleBookManager, entities.UserRoleContentAdmin, entities.UserRoleAdmin,
		},
	},
	{
		Name:     "Policy violation",
		Category: entities.TemplateCategoryPolicy,
		Message:  "This submission does not comply with our publishing policy on copyright and attribution.",
		IsActive: true,
	},
	{
		Name:     "Needs more polish",
		Category: entities.TemplateCategoryQuality,
		Message:  "The story has potential but needs more work on structure and language before it can move forward.",
		IsActive: true,
	},
	{
		Name:     "Translation accuracy",
		Category: entities.TemplateCategoryLanguage,
		Message:  "The translation diverges from the original in several places. Please compare it against the source book.",
		IsActive: true,
	},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	database := &Database{DB: db}

	if err := database.seedTemplates(); err != nil {
		return nil, fmt.Errorf("failed to seed templates: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.User{},
		&entities.RoleMigration{},
		&entities.Submission{},
		&entities.WorkflowTransition{},
		&entities.Revision{},
		&entities.Book{},
		&entities.FeaturedSet{},
		&entities.Notification{},
		&entities.RejectionTemplate{},
		&entities.AuditEvent{},
		&entities.Setting{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedTemplates() error {
	for _, tmpl := range defaultTemplates {
		var existing entities.RejectionTemplate
		result := d.DB.Where("name = ?", tmpl.Name).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			tmpl := tmpl
			if err := d.DB.Create(&tmpl).Error; err != nil {
				return fmt.Errorf("failed to create template %s: %w", tmpl.Name, err)
			}
			log.Printf("Created rejection template: %s", tmpl.Name)
		} else if result.Error != nil {
			return result.Error
		}
	}
	return nil
}
