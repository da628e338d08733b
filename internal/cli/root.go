package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entrypoint"
)

// NewRootCommand builds the publisher command tree. Running without a
// subcommand starts the server.
func NewRootCommand(version string) *cobra.Command {
	var dbPath string

	serve := NewServeCommand(version)
	root := &cobra.Command{
		Use:           "publisher",
		Short:         "1001 Stories publishing service",
		Long:          "Runs the 1001 Stories publishing API and its maintenance commands.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the database file (overrides DATABASE_PATH)")

	load := func() *config.Config {
		cfg := config.NewConfig()
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		return cfg
	}
	serve.load = load

	root.AddCommand(
		serve.Command(),
		NewCreateUserCommand(load).Command(),
		NewMigrateRoleCommand(load).Command(),
		NewSLACheckCommand(load).Command(),
		NewRotateFeaturedCommand(load).Command(),
	)
	return root
}

// ServeCommand starts the HTTP server.
type ServeCommand struct {
	version string
	load    func() *config.Config
}

func NewServeCommand(version string) *ServeCommand {
	return &ServeCommand{version: version, load: config.NewConfig}
}

func (cmd *ServeCommand) RunE(_ *cobra.Command, _ []string) error {
	return entrypoint.Run(cmd.load(), cmd.version)
}

func (cmd *ServeCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default if no command given)",
		Args:  cobra.NoArgs,
		RunE:  cmd.RunE,
	}
}

// withApp opens the services without the background queue, runs fn and
// closes everything again. Maintenance commands do their work inline.
func withApp(load func() *config.Config, fn func(ctx context.Context, app *entrypoint.App) error) error {
	cfg := load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	app, err := entrypoint.NewApp(cfg, false)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer app.Close(ctx)

	return fn(ctx, app)
}

func printHeader(title string) {
	fmt.Println(title)
	for range title {
		fmt.Print("=")
	}
	fmt.Println()
}
