package main

import (
	"context"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/oncecache"
	rb "github.com/unkn0wn-root/oncecache/backend/redis"
	"github.com/unkn0wn-root/oncecache/codec"
	"github.com/unkn0wn-root/oncecache/fingerprint"
	"github.com/unkn0wn-root/oncecache/lease"
	"github.com/unkn0wn-root/oncecache/lease/redsync"
	zaplog "github.com/unkn0wn-root/oncecache/log/zap"
)

var (
	cfgFile string
	byKey   bool
)

var rootCmd = &cobra.Command{
	Use:   "oncecache",
	Short: "Inspect and seed a oncecache namespace",
	Long: `oncecache talks to the Redis store shared by oncecache coordinators.

Requests are given as text and fingerprinted the same way the library does,
unless --key is set, in which case the argument is used as the fingerprint.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $"+ConfigEnv+")")
	rootCmd.PersistentFlags().BoolVar(&byKey, "key", false, "treat the request argument as a fingerprint")
}

func loadConfig() (*Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		return defaultConfig(), nil
	}
	return Load(path)
}

func keyOf(arg string) fingerprint.Key {
	if byKey {
		return fingerprint.Key(arg)
	}
	return fingerprint.String(arg)
}

// env is everything a command needs to talk to the store.
type env struct {
	cfg    *Config
	log    *zap.Logger
	cache  oncecache.Cache[[]byte]
	locker lease.Locker
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rc := rb.Config{Client: rdb, CloseClient: true}
	if cfg.Redis.ReplicaAddr != "" {
		rc.Replica = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.ReplicaAddr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	store, err := rb.New(rc)
	if err != nil {
		return nil, err
	}

	var locker lease.Locker
	switch cfg.Locker {
	case "redsync":
		locker = redsync.New(rdb)
	default:
		if locker, err = lease.New(store); err != nil {
			return nil, err
		}
	}

	leaseTTL, poll, maxWait := cfg.durations()
	cache, err := oncecache.New(oncecache.Options[[]byte]{
		Namespace:    cfg.Namespace,
		Backend:      store,
		Codec:        codec.Bytes{},
		Locker:       locker,
		Logger:       zaplog.New(logger),
		LeaseTTL:     leaseTTL,
		PollInterval: poll,
		MaxLockWait:  maxWait,
	})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: logger, cache: cache, locker: locker}, nil
}

func (e *env) Close(ctx context.Context) {
	if err := e.cache.Close(ctx); err != nil {
		e.log.Warn("close", zap.Error(err))
	}
	_ = e.log.Sync()
}

// withEnv opens the store around fn.
func withEnv(fn func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		defer e.Close(ctx)
		if err := fn(ctx, e, cmd, args); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name(), err)
		}
		return nil
	}
}
