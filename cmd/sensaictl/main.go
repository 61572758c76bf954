// Command sensaictl performs administrative tasks against a SensAI deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/database"
	"github.com/sensai/sensai-backend/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sensaictl",
		Short:         "Administrative tool for the SensAI backend",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("database-url", "", "PostgreSQL connection URL (default from DATABASE_URL)")
	pf.String("redis-url", "", "Redis connection URL (default from REDIS_URL)")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		createUserCmd(),
		seedMistakeTypesCmd(),
		purgeSessionsCmd(),
		setCourseKeyCmd(),
		migrateCmd(),
	)
	return root
}

// viperForCmd binds a command's flags and SENSAI_* environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SENSAI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("sensaictl")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/sensai")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "warning: reading config file: %v\n", err)
		}
	}
	return v
}

// loadConfig starts from the server configuration and applies CLI overrides.
func loadConfig(v *viper.Viper) *config.Config {
	cfg := config.Load()
	if u := v.GetString("database-url"); u != "" {
		cfg.DatabaseURL = u
	}
	if u := v.GetString("redis-url"); u != "" {
		cfg.RedisURL = u
	}
	if k := v.GetString("secret-key"); k != "" {
		cfg.SecretKey = k
	}
	cfg.LogLevel = v.GetString("log-level")
	cfg.LogFormat = "pretty"
	return cfg
}

type env struct {
	cfg  *config.Config
	log  zerolog.Logger
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// connect opens PostgreSQL and, when withRedis is set, Redis.
func connect(ctx context.Context, cmd *cobra.Command, withRedis bool) (*env, error) {
	v := viperForCmd(cmd)
	cfg := loadConfig(v)
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	e := &env{cfg: cfg, log: log, pool: pool}

	if withRedis {
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		e.rdb = rdb
	}
	return e, nil
}

func (e *env) Close() {
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	e.pool.Close()
}
