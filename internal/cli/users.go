package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/entrypoint"
	"github.com/stories1001/publisher/internal/services"
)

// PasswordEnv lets scripts pass the password without putting it on the command line.
const PasswordEnv = "PUBLISHER_USER_PASSWORD"

// CreateUserCommand creates an account directly in the database.
type CreateUserCommand struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
	Role        string

	load func() *config.Config
}

func NewCreateUserCommand(load func() *config.Config) *CreateUserCommand {
	return &CreateUserCommand{load: load}
}

func (cmd *CreateUserCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		Example: "  publisher create-user --username admin --email admin@example.org --role ADMIN\n" +
			"  PUBLISHER_USER_PASSWORD=secret publisher create-user --username amina --email amina@example.org",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.Run()
		},
	}
	f := c.Flags()
	f.StringVar(&cmd.Username, "username", "", "Username (required)")
	f.StringVar(&cmd.Email, "email", "", "Email address (required)")
	f.StringVar(&cmd.DisplayName, "name", "", "Display name")
	f.StringVar(&cmd.Password, "password", "", "Password (or set "+PasswordEnv+")")
	f.StringVar(&cmd.Role, "role", string(entities.UserRoleWriter), "Role of the new user")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("email")
	return c
}

func (cmd *CreateUserCommand) Run() error {
	if cmd.Password == "" {
		cmd.Password = os.Getenv(PasswordEnv)
	}
	if cmd.Password == "" {
		return fmt.Errorf("a password is required: use --password or %s", PasswordEnv)
	}

	return withApp(cmd.load, func(_ context.Context, app *entrypoint.App) error {
		user, err := app.Auth.CreateUser(auth.NewUser{
			Username:    cmd.Username,
			Email:       cmd.Email,
			DisplayName: cmd.DisplayName,
			Password:    cmd.Password,
			Role:        entities.UserRole(strings.ToUpper(cmd.Role)),
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Printf("Created user %s (id %d) with role %s\n", user.Username, user.ID, user.Role)
		return nil
	})
}

// MigrateRoleCommand changes a user's role through the audited migration path.
type MigrateRoleCommand struct {
	User   string
	Role   string
	Reason string
	As     string

	load func() *config.Config
}

func NewMigrateRoleCommand(load func() *config.Config) *MigrateRoleCommand {
	return &MigrateRoleCommand{load: load}
}

func (cmd *MigrateRoleCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:     "migrate-role",
		Short:   "Change a user's role",
		Example: "  publisher migrate-role --user amina --role STORY_MANAGER --reason \"joined the review team\"",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.Run()
		},
	}
	f := c.Flags()
	f.StringVar(&cmd.User, "user", "", "User id or username (required)")
	f.StringVar(&cmd.Role, "role", "", "New role (required)")
	f.StringVar(&cmd.Reason, "reason", "", "Reason recorded with the migration")
	f.StringVar(&cmd.As, "as", "", "Admin id or username performing the change (default: first admin)")
	_ = c.MarkFlagRequired("user")
	_ = c.MarkFlagRequired("role")
	return c
}

func (cmd *MigrateRoleCommand) Run() error {
	return withApp(cmd.load, func(_ context.Context, app *entrypoint.App) error {
		actor, err := app.Auth.ResolveDebugUser(cmd.As)
		if err != nil {
			return fmt.Errorf("failed to resolve acting admin %q: %w", cmd.As, err)
		}
		user, err := app.Auth.ResolveDebugUser(cmd.User)
		if err != nil {
			return fmt.Errorf("failed to resolve user %q: %w", cmd.User, err)
		}

		migration, err := app.Admin.MigrateRole(
			services.Actor{ID: actor.ID, Role: actor.Role},
			user.ID,
			entities.UserRole(strings.ToUpper(cmd.Role)),
			cmd.Reason,
		)
		if err != nil {
			return err
		}
		fmt.Printf("Migration %d: %s %s -> %s (%s)\n",
			migration.ID, user.Username, migration.FromRole, migration.ToRole, migration.Status)
		return nil
	})
}
