package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/database"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/services"
)

func testLoader(t *testing.T) (func() *config.Config, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("TASKS_ENABLED", "false")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	return func() *config.Config {
		cfg := config.NewConfig()
		cfg.Database.Path = dbPath
		return cfg
	}, dbPath
}

func loadUser(t *testing.T, dbPath, username string) entities.User {
	t.Helper()
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var user entities.User
	require.NoError(t, db.DB.Where("username = ?", username).First(&user).Error)
	return user
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand("test")

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "create-user", "migrate-role", "sla-check", "rotate-featured"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("db"))
}

func TestCreateUserCommand(t *testing.T) {
	load, dbPath := testLoader(t)

	cmd := NewCreateUserCommand(load)
	cmd.Username = "root"
	cmd.Email = "root@example.org"
	cmd.Password = "correct-horse-battery"
	cmd.Role = "admin"
	require.NoError(t, cmd.Run())

	user := loadUser(t, dbPath, "root")
	assert.Equal(t, entities.UserRoleAdmin, user.Role)
	assert.NotEmpty(t, user.PasswordHash)

	// Same username again
	assert.Error(t, cmd.Run())
}

func TestCreateUserCommand_PasswordFromEnv(t *testing.T) {
	load, dbPath := testLoader(t)
	t.Setenv(PasswordEnv, "from-the-environment")

	cmd := NewCreateUserCommand(load)
	cmd.Username = "amina"
	cmd.Email = "amina@example.org"
	cmd.Role = string(entities.UserRoleWriter)
	require.NoError(t, cmd.Run())

	assert.Equal(t, entities.UserRoleWriter, loadUser(t, dbPath, "amina").Role)
}

func TestCreateUserCommand_RequiresPassword(t *testing.T) {
	load, _ := testLoader(t)
	t.Setenv(PasswordEnv, "")

	cmd := NewCreateUserCommand(load)
	cmd.Username = "amina"
	cmd.Email = "amina@example.org"

	assert.ErrorContains(t, cmd.Run(), "password is required")
}

func TestMigrateRoleCommand(t *testing.T) {
	load, dbPath := testLoader(t)
	for _, u := range []struct{ name, role string }{{"root", "ADMIN"}, {"amina", "WRITER"}} {
		create := NewCreateUserCommand(load)
		create.Username = u.name
		create.Email = u.name + "@example.org"
		create.Password = "correct-horse-battery"
		create.Role = u.role
		require.NoError(t, create.Run())
	}

	cmd := NewMigrateRoleCommand(load)
	cmd.User = "amina"
	cmd.Role = "story_manager"
	cmd.Reason = "joined the review team"
	require.NoError(t, cmd.Run())

	assert.Equal(t, entities.UserRoleStoryManager, loadUser(t, dbPath, "amina").Role)

	cmd.User = "nobody"
	assert.Error(t, cmd.Run())
}

func TestSLACheckCommand_DryRun(t *testing.T) {
	load, _ := testLoader(t)

	cmd := NewSLACheckCommand(load)
	cmd.DryRun = true
	assert.NoError(t, cmd.Run())

	cmd.DryRun = false
	assert.NoError(t, cmd.Run())
}

func TestRotateFeaturedCommand_NoBooks(t *testing.T) {
	load, _ := testLoader(t)

	cmd := NewRotateFeaturedCommand(load)
	cmd.Force = true
	assert.ErrorIs(t, cmd.Run(), services.ErrNoFeaturedCandidates)
}
