package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"wedsite/cmd/buildCFG"
	"wedsite/internal/api/api"
	"wedsite/internal/auth"
	rabbitReader "wedsite/internal/consumerWorker"
	"wedsite/internal/mailer"
	"wedsite/internal/media"
	"wedsite/internal/notify"
	"wedsite/internal/rabbit"
	"wedsite/internal/repo"
	"wedsite/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	migrateDown := flag.Bool("migrate-down", false, "roll back all migrations and exit")
	issueToken := flag.String("issue-admin-token", "", "print an admin JWT for the given subject and exit")
	flag.Parse()

	zlog.Init()
	log := zlog.Logger

	cfg, err := buildCFG.Load(*configPath, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	authCfg := buildCFG.BuildAuthConfig(cfg, &log)
	guard := auth.NewAdminGuard(authCfg.AdminSecret, authCfg.TokenTTL)
	if *issueToken != "" {
		token, err := guard.IssueToken(*issueToken)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot issue admin token, set auth.admin_jwt_secret")
		}
		fmt.Println(token)
		return
	}

	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer db.Master.Close()

	repository, err := repo.NewRepository(db, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize repository")
	}
	log.Info().Msg("Database connected successfully")

	migrationsDir := buildCFG.MigrationsDir(cfg)
	if *migrateDown {
		if err := repository.MigrateDown(migrationsDir); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		return
	}
	if err := repository.MigrateUp(migrationsDir); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	mailCfg, err := buildCFG.BuildMailConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build mail config")
	}
	var mail mailer.Mailer = mailer.NewLogMailer(&log)
	if mailCfg.Enabled() {
		mail = mailer.NewSMTPMailer(mailCfg.SMTP, &log)
	}

	mediaCfg, err := buildCFG.BuildMediaConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build media config")
	}
	uploader, err := newUploader(mediaCfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize media uploader")
	}

	notifyCfg, err := buildCFG.BuildNotifyConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build notify config")
	}

	var (
		dispatcher notify.Dispatcher
		executor   *notify.Executor
		queue      *notify.QueueDispatcher
		reader     *rabbitReader.Reader
	)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	switch notifyCfg.Mode {
	case buildCFG.NotifyQueue:
		rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
		}
		rmq, err := rabbit.NewRabbit(rabbitCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		reader = rabbitReader.NewReader(rmq, mail, &log, notifyCfg.Worker)
		if err := reader.Start(workerCtx); err != nil {
			log.Fatal().Err(err).Msg("failed to start notification reader")
		}
		queue = notify.NewQueueDispatcher(rmq, &log)
		dispatcher = queue
	default:
		executor = notify.NewExecutor(mail, notifyCfg.Workers, &log)
		dispatcher = executor
	}

	serviceInstance := service.NewService(repository, &log, service.Dependencies{
		Uploader:   uploader,
		Dispatcher: dispatcher,
		Mailer:     mail,
		Guard:      guard,
		Options: service.Options{
			Event:     mailCfg.Event,
			Organizer: mailCfg.Organizer,
			Upload:    mediaCfg.Upload,
			Location:  serverCfg.Location,
		},
	})
	app := api.NewRouters(&api.Routers{
		Service:     serviceInstance,
		Guard:       guard,
		BasePath:    serverCfg.BasePath,
		BodyLimit:   serverCfg.BodyLimit,
		CORSOrigins: serverCfg.CORSOrigins,
		Debug:       serverCfg.Debug,
	})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", serverCfg.Port).
			Str("base_path", serverCfg.BasePath).
			Str("media", uploader.Name()).
			Str("notify", notifyCfg.Mode).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Err(err).Msg("Server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down server")
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), notifyCfg.DrainTimeout)
	defer drainCancel()

	// publishes finish before the broker connection is closed by its defer
	if queue != nil {
		_ = queue.Shutdown(drainCtx)
	}
	if reader != nil {
		reader.Stop()
	}
	cancelWorkers()

	if executor != nil {
		_ = executor.Shutdown(drainCtx)
	}

	log.Info().Msg("Shutdown complete")
}

func newUploader(cfg buildCFG.MediaConfig, log *zerolog.Logger) (media.Uploader, error) {
	if cfg.Provider == buildCFG.MediaMinio {
		return media.NewMinioUploader(cfg.Minio, log)
	}
	return media.NewCloudinaryUploader(cfg.CloudinaryURL, log)
}
