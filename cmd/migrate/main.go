package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/rrrobertsson/airmango-admin-panel/internal/config"
	"github.com/rrrobertsson/airmango-admin-panel/internal/logging"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/postgres"
	"github.com/rrrobertsson/airmango-admin-panel/internal/service"
)

// migrateConfig is the subset of the API configuration the migrator needs.
type migrateConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "command: up|down|status|version|redo|reset|up-to|down-to|create-user")
	target := flag.String("version", "", "target version for up-to and down-to")
	email := flag.String("email", "", "account email for create-user")
	fullName := flag.String("name", "", "account display name for create-user")
	role := flag.String("role", "editor", "account role for create-user: admin|editor")
	flag.Parse()

	var cfg migrateConfig
	if err := envconfig.Process(config.EnvPrefix, &cfg); err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel).With().Str("cmd", *cmd).Logger()
	ctx := logger.WithContext(context.Background())

	var args []string
	switch *cmd {
	case "up", "down", "status", "version", "redo", "reset", "create-user":
	case "up-to", "down-to":
		if *target == "" {
			fmt.Fprintf(os.Stderr, "missing -version for %s\n", *cmd)
			os.Exit(1)
		}
		args = append(args, *target)
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxOpenConns: 1})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	if *cmd == "create-user" {
		users := service.NewUserService(postgres.NewUserRepo(db))
		user, err := users.Provision(ctx, service.NewUser{
			Email:    *email,
			FullName: *fullName,
			Role:     *role,
			Password: os.Getenv(config.EnvPrefix + "_NEW_USER_PASSWORD"),
		})
		if err != nil {
			logger.Error().Err(err).Msg("create user failed")
			os.Exit(1)
		}
		logger.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("user created")
		return
	}

	if err := postgres.Migrate(ctx, db.DB, *cmd, args...); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
	logger.Info().Msg("migration finished")
}
