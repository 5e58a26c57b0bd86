package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tendant/simple-workspace/pkg/account"
	accountapi "github.com/tendant/simple-workspace/pkg/account/api"
	"github.com/tendant/simple-workspace/pkg/audit"
	auditapi "github.com/tendant/simple-workspace/pkg/audit/api"
	"github.com/tendant/simple-workspace/pkg/authz"
	"github.com/tendant/simple-workspace/pkg/config"
	"github.com/tendant/simple-workspace/pkg/idp"
	idpapi "github.com/tendant/simple-workspace/pkg/idp/api"
	"github.com/tendant/simple-workspace/pkg/ratelimit"
	"github.com/tendant/simple-workspace/pkg/workspace"
	workspaceapi "github.com/tendant/simple-workspace/pkg/workspace/api"
)

// loadEnvFile loads environment variables from .env file if it exists
// Only sets variables that are not already set in the environment
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("Failed to get current working directory", "error", err)
		return
	}

	envFile := filepath.Join(cwd, ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
	}
}

func newVerifier(cfg config.IdpConfig) idp.TokenVerifier {
	if cfg.Mode == "remote" {
		return idp.NewRemoteVerifier(cfg.BaseURL, nil)
	}
	return idp.NewLocalVerifier(cfg.Secret, cfg.Issuer, cfg.Audience)
}

func main() {

	// Create a logger with source enabled
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true, // Enables line number & file path
	}))
	slog.SetDefault(logger)

	// Load .env file if it exists (before reading environment variables)
	loadEnvFile()

	cfg := config.Config{}
	cleanenv.ReadEnv(&cfg)

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseConfig.URL())
	if err != nil {
		slog.Error("Failed creating dbpool",
			"db", cfg.DatabaseConfig.Database,
			"host", cfg.DatabaseConfig.Host,
			"port", cfg.DatabaseConfig.Port,
			"user", cfg.DatabaseConfig.User,
		)
		os.Exit(-1)
	}
	defer pool.Close()

	// Repositories
	accountRepo := account.NewPostgresAccountRepository(pool)
	workspaceRepo := workspace.NewPostgresWorkspaceRepository(pool)
	auditRepo := audit.NewPostgresAuditRepository(pool)

	// Services
	recorder := audit.NewRecorder(auditRepo, nil)
	accountService := account.NewAccountService(accountRepo, recorder)
	recorder.SetResolver(accountService)
	workspaceService := workspace.NewWorkspaceService(workspaceRepo, accountService, recorder)
	claimsResolver := workspace.NewClaimsResolver(workspaceRepo, accountService)

	idpClient := idp.NewClient(cfg.IdpConfig.BaseURL, nil)
	verifier := newVerifier(cfg.IdpConfig)

	// Handlers
	authHandle := idpapi.NewHandle(idpClient, accountService)
	accountHandle := accountapi.NewHandle(accountService)
	workspaceHandle := workspaceapi.NewHandle(workspaceService, accountService)
	auditHandle := auditapi.NewHandle(recorder)

	registry := authz.BuildRegistry()
	guard := authz.NewMiddleware(registry, verifier, claimsResolver, accountService)

	rateLimitConfig := ratelimit.DefaultConfig()
	rateLimitConfig.PerIPBurst = cfg.RateLimitConfig.PerIPBurst
	rateLimitConfig.PerAccountBurst = cfg.RateLimitConfig.PerAccountBurst
	rateLimitConfig.AdminBurst = cfg.RateLimitConfig.AdminBurst
	rateLimitConfig.BucketTTL = cfg.RateLimitConfig.BucketTTL
	rateLimitMiddleware := ratelimit.NewMiddleware(rateLimitConfig)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if cfg.RateLimitConfig.Enabled {
		r.Use(rateLimitMiddleware.Handler)
	}
	r.Use(audit.RequestInfoMiddleware)
	r.Use(guard.Authenticator)
	if cfg.RateLimitConfig.Enabled {
		// keyed on the identity the Authenticator attached
		r.Use(rateLimitMiddleware.AccountHandler)
	}
	r.Use(guard.Authorizer)
	r.Use(guard.AccountStatusGuard)

	// Public
	r.Post("/login", authHandle.Login)
	r.Post("/signup", authHandle.Signup)
	r.Get("/healthz", authHandle.Healthz)

	// Session
	r.Get("/me", workspaceHandle.Me)

	// Accounts (self-service)
	r.Get("/accounts/{id}", accountHandle.Get)
	r.Patch("/accounts/{id}", accountHandle.Update)

	// Workspaces
	r.Get("/workspaces", workspaceHandle.List)
	r.Post("/workspaces", workspaceHandle.Create)
	r.Get("/workspaces/{id}", workspaceHandle.Get)
	r.Patch("/workspaces/{id}", workspaceHandle.Update)
	r.Delete("/workspaces/{id}", workspaceHandle.Delete)
	r.Patch("/workspaces/{id}/profile", workspaceHandle.UpdateProfile)
	r.Get("/workspaces/{id}/members", workspaceHandle.ListMembers)
	r.Post("/workspaces/{id}/members", workspaceHandle.AddMember)
	r.Put("/workspaces/{id}/members/{memberId}", workspaceHandle.UpdateMemberRole)
	r.Delete("/workspaces/{id}/members/{memberId}", workspaceHandle.RemoveMember)

	// Superadmin
	r.Get("/admin/accounts", accountHandle.List)
	r.Post("/admin/accounts", accountHandle.Create)
	r.Put("/admin/accounts/{id}/role", accountHandle.UpdateRole)
	r.Put("/admin/accounts/{id}/status", accountHandle.UpdateStatus)
	r.Get("/admin/workspaces", workspaceHandle.AdminListWorkspaces)
	r.Get("/admin/memberships", workspaceHandle.AdminListMemberships)
	r.Get("/admin/audit-logs", auditHandle.List)
	r.Get("/admin/audit-logs/stats", auditHandle.Stats)

	guard.SetRoutes(r)

	// Refuse to start if any registered route is missing a permission entry
	if err := registry.Validate(r); err != nil {
		slog.Error("Permission registry incomplete", "error", err)
		os.Exit(-1)
	}

	slog.Info("Starting server", "addr", cfg.ServerConfig.Addr())
	if err := http.ListenAndServe(cfg.ServerConfig.Addr(), r); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(-1)
	}
}
