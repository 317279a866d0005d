package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/idm-admin/pkg/apikey"
	apikeyapi "github.com/tendant/idm-admin/pkg/apikey/api"
	"github.com/tendant/idm-admin/pkg/app"
	"github.com/tendant/idm-admin/pkg/audit"
	auditapi "github.com/tendant/idm-admin/pkg/audit/api"
	"github.com/tendant/idm-admin/pkg/externalprovider"
	providerapi "github.com/tendant/idm-admin/pkg/externalprovider/api"
	"github.com/tendant/idm-admin/pkg/oauth2client"
	clientapi "github.com/tendant/idm-admin/pkg/oauth2client/api"
	"github.com/tendant/idm-admin/pkg/urivalidator"
	policyapi "github.com/tendant/idm-admin/pkg/urivalidator/api"
)

type repositories struct {
	audit    audit.Repository
	apiKey   apikey.Repository
	client   oauth2client.Repository
	provider externalprovider.Repository
}

func buildRepositories(config *app.Config) (*repositories, error) {
	if config.Database.URL == "" {
		slog.Info("No DATABASE_URL configured, using in-memory repositories")
		return &repositories{
			audit:    audit.NewInMemoryRepository(),
			apiKey:   apikey.NewInMemoryRepository(),
			client:   oauth2client.NewInMemoryRepository(),
			provider: externalprovider.NewInMemoryRepository(),
		}, nil
	}

	pool, err := pgxpool.New(context.Background(), config.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed creating dbpool: %w", err)
	}

	providerRepo, err := externalprovider.NewPostgresRepository(pool, config.Security.ProviderEncryptionKey)
	if err != nil {
		return nil, err
	}

	return &repositories{
		audit:    audit.NewPostgresRepository(pool),
		apiKey:   apikey.NewPostgresRepository(pool),
		client:   oauth2client.NewPostgresRepository(pool),
		provider: providerRepo,
	}, nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	config, err := app.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	repos, err := buildRepositories(config)
	if err != nil {
		slog.Error("Failed to build repositories", "error", err)
		os.Exit(1)
	}

	auditService := audit.NewService(repos.audit)
	policyStore := urivalidator.NewStore(config.Policy.ValidationSettings(), auditService)
	keyService := apikey.NewService(repos.apiKey, auditService)
	clientService := oauth2client.NewClientService(repos.client, policyStore, auditService)
	providerService := externalprovider.NewService(repos.provider, auditService)

	gate := apikey.NewMiddleware(keyService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(audit.CaptureRequestInfo)
	r.Use(gate.Authenticate)

	r.Route("/admin", func(r chi.Router) {
		r.Use(apikey.RequireAuth)
		r.Mount("/clients", clientapi.NewHandle(clientService).Routes())
		r.Mount("/api-keys", apikeyapi.NewHandle(keyService).Routes())
		r.Mount("/external-providers", providerapi.NewHandle(providerService).Routes())
		r.Mount("/audit", auditapi.NewHandle(auditService).Routes())
		r.Mount("/policy", policyapi.NewHandle(policyStore).Routes())
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	slog.Info("Starting idm-admin", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
