// Package app assembles the storage backend, repository and appeal service
// from configuration. It is shared by the server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/claimflow/backend/internal/ai"
	"github.com/claimflow/backend/internal/awsutil"
	"github.com/claimflow/backend/internal/config"
	"github.com/claimflow/backend/internal/repository"
	"github.com/claimflow/backend/internal/s3io"
	"github.com/claimflow/backend/internal/service"
	"github.com/claimflow/backend/internal/store"
)

type App struct {
	Store     *store.Store
	Repo      *repository.Repository
	Appeals   *service.AppealService
	Documents *s3io.Documents
}

func (a *App) Close() {
	a.Store.Close()
}

// NewBackend opens the storage backend named by cfg.StoreBackend.
func NewBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "", "memory":
		return store.NewMemoryBackend(), nil
	case "file":
		return store.NewFileBackend(cfg.StoreDir)
	case "postgres":
		return store.NewPostgresBackend(ctx, cfg.DatabaseURL, 30*time.Second)
	case "dynamodb":
		awsCfg, err := awsutil.Load(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		return &store.DynamoBackend{DB: dynamodb.NewFromConfig(awsCfg), Table: cfg.DDBTable}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	st := store.New(backend, logger)
	logger.Info().Str("backend", cfg.StoreBackend).Msg("storage ready")

	validator, err := ai.New(ai.Options{
		Kind:             cfg.Validator,
		HTTPURL:          cfg.AIURL,
		AssistantBaseURL: cfg.AssistantBaseURL,
		AssistantModel:   cfg.AssistantModel,
		AssistantAPIKey:  cfg.AssistantAPIKey,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
		AnthropicModel:   cfg.AnthropicModel,
		Delay:            cfg.ValidationDelay,
		Timeout:          cfg.ValidationTimeout,
	}, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	policies, err := ai.LoadPolicyCatalog(cfg.PolicyCatalogPath)
	if err != nil {
		st.Close()
		return nil, err
	}

	repo := repository.New(st, logger)
	a := &App{
		Store: st,
		Repo:  repo,
		Appeals: &service.AppealService{
			Repo:         repo,
			Validator:    validator,
			Policies:     policies,
			Logger:       logger.With().Str("component", "appeals").Logger(),
			Timeout:      cfg.ValidationTimeout,
			AutoValidate: cfg.AutoValidate,
		},
	}

	if cfg.S3Bucket != "" {
		awsCfg, err := awsutil.Load(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("aws config: %w", err)
		}
		a.Documents = s3io.NewDocuments(awsCfg, cfg.S3Bucket, cfg.PresignTTL, cfg.AWSEndpoint != "")
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("document uploads enabled")
	}
	return a, nil
}
