package cmd

import (
	"context"
	"os"
	"time"

	coreConfig "github.com/AzielCF/az-qcache/core/config"
	coreDB "github.com/AzielCF/az-qcache/core/database"
	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	"github.com/AzielCF/az-qcache/infrastructure/valkey"
	"github.com/AzielCF/az-qcache/pkg/utils"
	"github.com/AzielCF/az-qcache/repository"
	"github.com/AzielCF/az-qcache/usecase"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Flag overrides (applied over env config in initApp)
	flagPort     string
	flagDebug    bool
	flagDBDriver string
	flagDBName   string

	// Wiring
	serverID     string
	vkClient     *valkey.Client
	cacheStore   domainCache.ICacheStore
	stateTracker domainCache.IStateTracker
	cacheUsecase domainCache.ICacheUsecase

	appCtx    context.Context
	appCancel context.CancelFunc
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-qcache",
	Short: "Analytical query cache management engine",
	Long: `az-qcache decides what stays cached, what gets evicted, and how
eviction cascades through the dependency graph of derived query results.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagDBDriver,
		"db-driver", "",
		"",
		`metadata store driver --db-driver <string> | example: --db-driver="postgres"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagDBName,
		"db-name", "",
		"",
		`metadata store database (file path for sqlite, db name for postgres) --db-name <string>`,
	)
}

// initEnvConfig loads the structured configuration and applies viper/flag overrides.
func initEnvConfig() {
	if _, err := coreConfig.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	if envPort := viper.GetString("app_port"); envPort != "" {
		coreConfig.Global.App.Port = envPort
	}
	if viper.GetBool("app_debug") {
		coreConfig.Global.App.Debug = true
	}

	if flagPort != "" {
		coreConfig.Global.App.Port = flagPort
	}
	if flagDebug {
		coreConfig.Global.App.Debug = true
	}
	if flagDBDriver != "" {
		coreConfig.Global.Database.Driver = flagDBDriver
	}
	if flagDBName != "" {
		coreConfig.Global.Database.Name = flagDBName
	}
}

func initApp() {
	cfg := coreConfig.Global

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// Instance identity for multi-replica log correlation.
	serverID = uuid.NewString()
	logrus.Infof("[APP] Engine instance %s starting (version %s)", serverID, cfg.App.Version)

	if err := utils.CreateFolder(cfg.Paths.Storages); err != nil {
		logrus.Errorln(err)
	}

	appCtx, appCancel = context.WithCancel(context.Background())

	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open metadata store: %v", err)
	}

	defaults := domainCache.CacheConfig{
		HalfLife:               cfg.Cache.HalfLife,
		CacheSizeLimitBytes:    cfg.Cache.SizeLimitBytes,
		ProtectedPeriodSeconds: cfg.Cache.ProtectedPeriodSeconds,
	}
	store := repository.NewCacheGormRepository(db, defaults)
	if err := store.InitSchema(appCtx); err != nil {
		logrus.Fatalf("failed to init cache schema: %v", err)
	}
	cacheStore = store

	// Tracker backend: Valkey when configured so replicas share one view,
	// in-process map otherwise.
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, falling back to in-memory state tracker")
			stateTracker = repository.NewMemoryStateTracker()
		} else {
			stateTracker = repository.NewValkeyStateTracker(vkClient)
		}
	} else {
		stateTracker = repository.NewMemoryStateTracker()
	}

	cacheUsecase = usecase.NewCacheService(cacheStore, stateTracker)

	if cfg.Cache.ShrinkEnabled {
		cacheUsecase.StartBackgroundShrink(appCtx)
		logrus.Infof("[APP] Background shrink enabled (every %d minutes)", cfg.Cache.ShrinkIntervalMinutes)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of all connections and services.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if appCancel != nil {
		appCancel()
	}
	if vkClient != nil {
		vkClient.Close()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
