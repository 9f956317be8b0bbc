package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/snapfood/snapfood-engine/core/config"
	domainCache "github.com/snapfood/snapfood-engine/domains/cache"
	domainDish "github.com/snapfood/snapfood-engine/domains/dish"
	domainHealth "github.com/snapfood/snapfood-engine/domains/health"
	"github.com/snapfood/snapfood-engine/infrastructure/imagecache"
	"github.com/snapfood/snapfood-engine/infrastructure/valkey"
	"github.com/snapfood/snapfood-engine/integrations/dify"
	"github.com/snapfood/snapfood-engine/pkg/prefetch"
	"github.com/snapfood/snapfood-engine/pkg/retrier"
	"github.com/snapfood/snapfood-engine/pkg/utils"
	"github.com/snapfood/snapfood-engine/usecase"
)

var (
	// Usecase
	dishImageUsecase domainDish.IDishImageUsecase
	cacheUsecase     domainCache.ICacheUsecase
	healthUsecase    domainHealth.IHealthUsecase

	// Infrastructure
	memoryCache  *imagecache.MemoryCache
	tieredCache  *imagecache.TieredCache
	valkeyClient *valkey.Client
	prefetchPool *prefetch.Pool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Short: "Dish image resolution engine",
	Long: `Resolves dish photos for scanned restaurant menus through an AI
image-matching workflow, with a two-tier cache in front of it.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if _, err := config.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize flags first, before any subcommands are added
	initFlags()

	// Then initialize other components
	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig applies viper-resolved settings on top of the loaded config,
// so .env values win over compiled defaults but lose to flags.
func initEnvConfig() {
	if envPort := viper.GetString("app_port"); envPort != "" {
		config.Global.App.Port = envPort
	}
	if viper.GetBool("app_debug") {
		config.Global.App.Debug = true
	}
	envBasicAuth := viper.GetString("app_basic_auth")
	if envBasicAuth == "" {
		envBasicAuth = os.Getenv("APP_BASIC_AUTH")
	}
	if envBasicAuth != "" {
		config.Global.App.BasicAuth = strings.Split(envBasicAuth, ",")
	}
	if envBasePath := viper.GetString("app_base_path"); envBasePath != "" {
		config.Global.App.BasePath = envBasePath
	}
	if envTrustedProxies := viper.GetString("app_trusted_proxies"); envTrustedProxies != "" {
		config.Global.App.TrustedProxies = strings.Split(envTrustedProxies, ",")
	}
	if envKey := viper.GetString("dify_api_key_matcher"); envKey != "" {
		config.Global.Dify.MatcherAPIKey = envKey
	}
	if envBase := viper.GetString("dify_base_url"); envBase != "" {
		config.Global.Dify.BaseURL = envBase
	}
	if viper.IsSet("valkey_enabled") {
		config.Global.Database.ValkeyEnabled = viper.GetBool("valkey_enabled")
	}
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&config.Global.App.Port,
		"port", "p",
		config.Global.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&config.Global.App.Debug,
		"debug", "d",
		config.Global.App.Debug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&config.Global.App.BasicAuth,
		"basic-auth", "b",
		config.Global.App.BasicAuth,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&config.Global.App.BasePath,
		"base-path", "",
		config.Global.App.BasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/snapfood"`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&config.Global.App.TrustedProxies,
		"trusted-proxies", "",
		config.Global.App.TrustedProxies,
		`trusted proxy IP ranges for reverse proxy deployments --trusted-proxies <string> | example: --trusted-proxies="10.0.0.0/8"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&config.Global.Database.Name,
		"db-name", "",
		config.Global.Database.Name,
		`path of the sqlite cache database --db-name <string> | example: --db-name="storages/imagecache.db"`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&config.Global.Prefetch.Workers,
		"prefetch-workers", "",
		config.Global.Prefetch.Workers,
		`number of concurrent thumbnail warmup workers --prefetch-workers <number> | example: --prefetch-workers=16`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&config.Global.Prefetch.QueueSize,
		"prefetch-queue-size", "",
		config.Global.Prefetch.QueueSize,
		`queue size per warmup worker --prefetch-queue-size <number> | example: --prefetch-queue-size=512`,
	)
}

func initApp() {
	if config.Global.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := os.MkdirAll(config.Global.Paths.Storages, 0755); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	serverID := utils.GetPersistentServerID(config.Global.App.ServerID, config.Global.Paths.Storages)
	config.Global.App.ServerID = serverID

	// Persistent cache tier: Valkey when enabled, sqlite otherwise.
	var store imagecache.PersistentStore
	if config.Global.Database.ValkeyEnabled {
		client, err := valkey.NewClient(valkey.Config{
			Address:   config.Global.Database.ValkeyAddress,
			Password:  config.Global.Database.ValkeyPassword,
			DB:        config.Global.Database.ValkeyDB,
			KeyPrefix: config.Global.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, falling back to sqlite cache tier")
		} else {
			valkeyClient = client
			store = imagecache.NewValkeyStore(client)
		}
	}
	if store == nil {
		sqliteStore, err := imagecache.NewSQLiteStore(config.Global.Database.Name)
		if err != nil {
			logrus.Fatalf("failed to open cache database: %v", err)
		}
		store = sqliteStore
	}

	memoryCache = imagecache.NewMemoryCache(
		config.Global.Cache.TTL,
		config.Global.Cache.MaxEntries,
		config.Global.Cache.SweepInterval,
	)
	memoryCache.Start(ctx)
	tieredCache = imagecache.NewTieredCache(memoryCache, store, config.Global.Cache.TTL)

	difyClient := dify.NewClient(
		config.Global.Dify.BaseURL,
		config.Global.Dify.MatcherAPIKey,
		serverID,
		config.Global.Dify.RequestTimeout,
	)

	policy := retrier.Policy{
		MaxAttempts: config.Global.Retry.MaxAttempts,
		BaseDelay:   config.Global.Retry.BaseDelay,
		Multiplier:  config.Global.Retry.Multiplier,
	}

	dishImageUsecase = usecase.NewDishImageService(difyClient, tieredCache, policy)

	prefetchPool = prefetch.NewPool(
		config.Global.Prefetch.Workers,
		config.Global.Prefetch.QueueSize,
		func(ctx context.Context, job prefetch.ThumbnailJob) error {
			_, err := dishImageUsecase.ResolveThumbnail(ctx, job.Name, job.Category)
			return err
		},
	)
	prefetchPool.Start(ctx)

	cacheUsecase = usecase.NewCacheService(tieredCache)
	cacheUsecase.StartBackgroundCleanup(ctx)

	healthUsecase = usecase.NewHealthService(tieredCache, valkeyClient)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the cache tiers and worker pool.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if prefetchPool != nil {
		prefetchPool.Stop()
	}
	if memoryCache != nil {
		memoryCache.Stop()
	}
	if tieredCache != nil {
		if err := tieredCache.Store().Close(); err != nil {
			logrus.WithError(err).Error("[APP] Failed to close persistent cache tier")
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
