package services

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/database"
	"github.com/stories1001/publisher/internal/entities"
)

const (
	waitTimeout = 2 * time.Second
	waitTick    = 20 * time.Millisecond
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := "./test_services_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	d, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		d.Close()
		os.Remove(dbPath)
	})
	return d.DB
}

func newTestClock() *testclock.Clock {
	return testclock.NewClock(time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC))
}

func createUser(t *testing.T, db *gorm.DB, name string, role entities.UserRole) Actor {
	u := entities.User{Username: name, Email: name + "@example.org", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return Actor{ID: u.ID, Role: u.Role}
}

func createBook(t *testing.T, db *gorm.DB, title, language string, published bool) entities.Book {
	now := time.Now()
	b := entities.Book{Title: title, AuthorName: "Author", Language: language, Published: published, PublishedAt: &now}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func createSubmissionAs(t *testing.T, db *gorm.DB, author Actor, status entities.PublishingStatus) *entities.Submission {
	sub := &entities.Submission{
		Kind:            entities.SubmissionKindStory,
		Title:           "The River",
		AuthorName:      "Amina",
		Content:         "Once upon a time",
		Language:        "en",
		AuthorID:        author.ID,
		Status:          status,
		Version:         1,
		StatusChangedAt: time.Now(),
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}
