package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
	"github.com/dmitrymomot/lifeplanner/pkg/config"
	"github.com/dmitrymomot/lifeplanner/pkg/logger"
	"github.com/dmitrymomot/lifeplanner/pkg/principal"
	"github.com/dmitrymomot/lifeplanner/pkg/requestid"
)

const tokenEnvVar = "LIFEPLANNER_ID_TOKEN"

type appConfig struct {
	Billing     billing.Config
	Log         logger.Config
	TokenFile   string `env:"LIFEPLANNER_TOKEN_FILE"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// app holds what every command needs.
type app struct {
	cfg      appConfig
	log      *slog.Logger
	client   *billing.Client
	registry *prometheus.Registry
	tokens   oauth2.TokenSource
}

func setup(cmd *cobra.Command) (*app, error) {
	if envFile != "" {
		if err := config.LoadEnv(envFile); err != nil {
			return nil, err
		}
	}

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Billing.BaseURL = cmp.Or(apiURL, cfg.Billing.BaseURL)
	cfg.Log.Format = cmp.Or(logFormat, cfg.Log.Format)
	cfg.Log.Environment = cmp.Or(appEnv, cfg.Log.Environment)
	cfg.TokenFile = cmp.Or(tokenFile, cfg.TokenFile)

	log := logger.NewFromConfig(cfg.Log,
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithContextExtractors(requestid.LoggerExtractor(), principal.LoggerExtractor()),
	)

	registry := prometheus.NewRegistry()
	client, err := billing.NewClientFromConfig(cfg.Billing,
		billing.WithLogger(log),
		billing.WithMetrics(registry),
		billing.WithUserAgent("planctl/"+Version),
	)
	if err != nil {
		return nil, err
	}

	tokens := principal.EnvTokenSource(tokenEnvVar)
	if cfg.TokenFile != "" {
		tokens = principal.FileTokenSource(cfg.TokenFile)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		registry: registry,
		tokens:   tokens,
	}, nil
}

// signedIn returns the principal of the current ID token, or nil when no
// usable token is available. The client then fails with billing.ErrUnauthenticated.
func (a *app) signedIn() *principal.Principal {
	tok, err := a.tokens.Token()
	if err != nil {
		a.log.Debug("no ID token available", logger.Error(err))
		return nil
	}
	p, err := principal.FromToken(tok.AccessToken, a.tokens)
	if err != nil {
		a.log.Warn("ignoring unusable ID token", logger.Error(err))
		return nil
	}
	return p
}

// callContext returns the command context with a request id and the
// signed-in principal attached, so log lines carry both.
func (a *app) callContext(cmd *cobra.Command) (context.Context, *principal.Principal) {
	ctx, _ := requestid.Ensure(cmd.Context())
	p := a.signedIn()
	if p != nil {
		ctx = principal.WithContext(ctx, p)
	}
	return ctx, p
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
