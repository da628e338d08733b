package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/config"
	http_controllers "github.com/stories1001/publisher/internal/http"
	"github.com/stories1001/publisher/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Stop background work after the last request has finished
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// csrfSecret decodes the configured session secret or generates a fresh one.
func csrfSecret(cfg config.Auth) ([]byte, error) {
	if cfg.SessionSecret != "" {
		secret, err := hex.DecodeString(cfg.SessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			return []byte(cfg.SessionSecret), nil
		}
		return secret, nil
	}
	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

func Run(cfg *config.Config, version string) error {
	log.Printf("Starting 1001 Stories publisher v%s", version)
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := NewApp(cfg, true)
	if err != nil {
		return err
	}

	taskCtx, taskCancel := context.WithCancel(context.Background())
	app.StartTasks(taskCtx)

	jobs := scheduler.New(cfg, app.Runner)
	if err := jobs.Start(taskCtx); err != nil {
		taskCancel()
		app.Close(context.Background())
		return fmt.Errorf("failed to start schedulers: %w", err)
	}

	routerCfg := http_controllers.RouterConfig{
		Database:      app.DB,
		Submissions:   app.Submissions,
		Workflow:      app.Workflow,
		Library:       app.Library,
		Featured:      app.Featured,
		Notifications: app.Notifications,
		Templates:     app.Templates,
		Admin:         app.Admin,
		Settings:      app.Settings,
		Audit:         app.Audit,
		AuthService:   app.Auth,
		Jobs:          jobs,
		JobRunner:     app.Runner,
		SecureCookies: cfg.Auth.SecureCookies,
		Version:       version,
	}
	if app.Tasks != nil {
		routerCfg.TaskQueue = app.Tasks
		routerCfg.TaskDB = app.Tasks.DB()
	}

	var authController *auth.AuthController
	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		sqlDB, err := app.DB.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
		}
		sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			return fmt.Errorf("failed to initialize session manager: %w", err)
		}
		secret, err := csrfSecret(cfg.Auth)
		if err != nil {
			return fmt.Errorf("failed to generate CSRF secret: %w", err)
		}

		authController = auth.NewAuthController(app.Auth, sessionManager, cfg.Auth, app.Audit)
		routerCfg.SessionManager = sessionManager
		routerCfg.AuthMiddleware = auth.NewMiddleware(app.Auth, sessionManager, cfg.Auth)
		routerCfg.AuthController = authController
		routerCfg.CSRFSecret = secret

		if hasUsers, _ := app.Auth.HasUsers(); !hasUsers {
			log.Printf("No users found. POST /api/auth/setup to create an administrator account.")
		}
	} else {
		log.Printf("Authentication mode: none (actor taken from the %s header)", auth.DebugUserHeader)
		routerCfg.AuthMiddleware = auth.NewMiddleware(app.Auth, nil, cfg.Auth)
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		jobs.Stop()
		app.Close(ctx)
		taskCancel()
	}

	Serve(router, cfg, onShutdown)
	return nil
}
