package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/config"
	"github.com/xxxsen/yawiki/internal/db"
	"github.com/xxxsen/yawiki/internal/doctree"
	"github.com/xxxsen/yawiki/internal/filestore"
	"github.com/xxxsen/yawiki/internal/handler"
	"github.com/xxxsen/yawiki/internal/job"
	"github.com/xxxsen/yawiki/internal/license"
	"github.com/xxxsen/yawiki/internal/middleware"
	"github.com/xxxsen/yawiki/internal/render"
	"github.com/xxxsen/yawiki/internal/repo"
	"github.com/xxxsen/yawiki/internal/schedule"
	"github.com/xxxsen/yawiki/internal/search"
	"github.com/xxxsen/yawiki/internal/service"
	"github.com/xxxsen/yawiki/internal/session"
	"github.com/xxxsen/yawiki/internal/settings"
)

const writeLimit = 2 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "yawiki",
		Short: "yawiki backend server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run yawiki server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer conn.Close()
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "report inconsistencies of the document tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			tree, err := doctree.NewManager(ctx, doctree.NewStore(cfg.Docs.Root, cfg.Docs.MetaFile))
			if err != nil {
				return err
			}
			report, err := tree.Check(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("document tree is inconsistent")
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, checkCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func runServer(cfg *config.Config, conn *sqlx.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logutil.GetLogger(ctx)
	log.Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("docs_root", cfg.Docs.Root),
		zap.String("file_store", cfg.FileStore.Type),
	)

	var revoker session.Revoker = session.Nop{}
	if cfg.RedisURL != "" {
		store, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer store.Close()
		revoker = store
	} else {
		log.Warn("redis_url not set, logout only discards the token on the client")
	}

	tree, err := doctree.NewManager(ctx, doctree.NewStore(cfg.Docs.Root, cfg.Docs.MetaFile))
	if err != nil {
		return fmt.Errorf("load document tree: %w", err)
	}
	var meili *search.Meili
	if cfg.Meilisearch.URL != "" {
		meili = search.NewMeili(ctx, cfg.Meilisearch.URL, cfg.Meilisearch.APIKey)
	}
	index := search.NewService(meili, search.NewLocal(tree))
	defer index.Close()

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	userRepo := repo.NewUserRepo(conn)
	promotions := settings.NewPromotionStore(cfg.SettingsDir)
	renderer := render.New(cfg.RenderCache.Size, time.Duration(cfg.RenderCache.TTLSeconds)*time.Second)

	authService := service.NewAuthService(userRepo, revoker, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	pageService := service.NewPageService(tree, renderer, index)
	boardService := service.NewDevBoardService(repo.NewDevItemRepo(conn), repo.NewVoteRepo(conn), repo.NewCommentRepo(conn))
	reviewService := service.NewReviewService(repo.NewReviewRepo(conn))
	licenseClient := license.NewClient(cfg.License.BaseURL, time.Duration(cfg.License.TimeoutSeconds)*time.Second)
	licenseService := service.NewLicenseService(licenseClient, promotions, userRepo)
	avatarService := service.NewAvatarService(files, userRepo)

	if meili != nil && meili.Healthy() {
		log.Info("pages submitted to search index", zap.Int("count", pageService.ReindexAll(ctx)))
	}

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJobs(
		schedule.Entry{Job: job.NewTreeCheckJob(tree), Spec: cfg.Jobs.TreeCheck},
		schedule.Entry{Job: job.NewPromotionSweepJob(promotions), Spec: cfg.Jobs.PromotionSweep},
	); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService),
		Pages:         handler.NewPageHandler(pageService),
		Avatars:       handler.NewAvatarHandler(avatarService),
		DevBoard:      handler.NewDevBoardHandler(boardService),
		Reviews:       handler.NewReviewHandler(reviewService),
		Settings:      handler.NewSettingsHandler(promotions, settings.NewTermsStore(cfg.SettingsDir)),
		License:       handler.NewLicenseHandler(licenseService),
		Authenticator: authService,
		WriteLimit:    writeLimit,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	log.Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server stopping...")
	return nil
}
