// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, template seeding
//	├── users/           # Users and role migrations
//	├── submissions/     # Submissions, transition history, revisions
//	├── books/           # Published library books
//	├── featured/        # Featured book sets
//	├── notifications/   # In-app notifications
//	├── templates/       # Rejection templates
//	├── audit/           # Audit events
//	└── settings/        # Key/value settings overrides
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./stories.db")
//
//	submissionsRepo := submissions.NewRepository(db.DB)
//	booksRepo := books.NewRepository(db.DB)
//
//	sub, err := submissionsRepo.GetByID(123)
//
// # Transactions
//
// Repositories take a *gorm.DB, so a transaction handle can be passed to
// NewRepository inside db.Transaction to compose several repositories
// into one atomic unit. The workflow engine relies on this.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add the entity to Migrate in database.go
package database
