package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/kpauljoseph/ankix/internal/config"
	"github.com/kpauljoseph/ankix/internal/counter"
	"github.com/kpauljoseph/ankix/internal/feedback"
	"github.com/kpauljoseph/ankix/internal/importer"
	"github.com/kpauljoseph/ankix/internal/pdf"
	"github.com/kpauljoseph/ankix/internal/probe"
	"github.com/kpauljoseph/ankix/internal/remote"
	"github.com/kpauljoseph/ankix/internal/session"
	"github.com/kpauljoseph/ankix/internal/web"
	"github.com/kpauljoseph/ankix/pkg/logger"
	"github.com/kpauljoseph/ankix/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	envPath := flag.String("env", ".env", "path to .env file (skipped if missing)")
	port := flag.Int("port", 0, "port to listen on (overrides config)")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	debug := flag.Bool("debug", false, "enable debug mode with trace logging")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	log := logger.New(logger.WithPrefix("[ankix] "))
	log.SetVerbose(*verbose)

	if *debug {
		log.SetLevel(logger.LevelTrace)
	}

	build := version.Current()

	if err := config.LoadDotEnv(*envPath); err != nil {
		log.Fatal("Error loading env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Error loading config: %v", err)
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}

	if *showVersion {
		fmt.Print(build.Report(
			version.Detail{Name: "Counter", Value: cfg.Counter.Driver},
			version.Detail{Name: "Remote", Value: cfg.Remote.BaseURL},
		))
		return
	}

	log.Info("%s (counter=%s, remote=%s)", build, cfg.Counter.Driver, cfg.Remote.BaseURL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openCounterStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Error opening counter store: %v", err)
	}
	defer closeStore()

	counterClient := counter.NewClient(store, log.Named("counter"))

	remoteClient := remote.NewClient(cfg.Remote.BaseURL, log.Named("remote"),
		remote.WithPaths(cfg.Remote.ProcessPath, cfg.Remote.ImportPath),
		remote.WithTimeout(cfg.Remote.Timeout),
	)

	cacheProbe, err := probe.NewFromURL(cfg.Cache.URL, log.Named("cache"))
	if err != nil {
		log.Fatal("Error configuring cache probe: %v", err)
	}
	defer cacheProbe.Close()

	sender := feedback.NewEmailJS(feedback.EmailJSConfig{
		Endpoint:   cfg.Feedback.Endpoint,
		ServiceID:  cfg.Feedback.ServiceID,
		TemplateID: cfg.Feedback.TemplateID,
		PublicKey:  cfg.Feedback.PublicKey,
		PrivateKey: cfg.Feedback.PrivateKey,
	}, log.Named("feedback"))

	sessions := session.NewManager(session.Deps{
		Generator:          remoteClient,
		Inspector:          pdf.NewInspector(log.Named("pdf")),
		Counter:            counterClient,
		FeedbackSender:     sender,
		FeedbackLimiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Feedback.PerMinute)), cfg.Feedback.PerMinute),
		FeedbackClearAfter: cfg.Feedback.ClearAfter,
		Logger:             log,
	}, cfg.Server.SessionTTL, session.WithSecureCookie(cfg.Server.SecureCookies))

	downloads := importer.NewStore(cfg.Downloads.TTL)
	dispatcher := importer.NewDispatcher(remoteClient, downloads, log.Named("import"))

	handler := web.NewHandler(sessions, dispatcher, counterClient, cacheProbe, log.Named("http"),
		web.WithMaxUpload(cfg.Server.MaxUploadMB<<20))
	server := web.NewServer(handler, cfg.Server.Port, log, sessions.Sweep, downloads.Purge)

	log.Info("Listening on %s", server.Addr())
	// Run drains in-flight generations before the deferred closes run.
	if err := server.Run(ctx); err != nil {
		log.Error("Server error: %v", err)
	}
	log.Info("Server stopped")
}

func openCounterStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (counter.Store, func(), error) {
	if cfg.Counter.Driver == config.CounterDriverDynamoDB {
		dc := cfg.Counter.DynamoDB
		store, err := counter.NewDynamoStore(ctx, dc.Region, dc.Table, dc.Key)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Counting flashcards in DynamoDB table %s (%s)", dc.Table, dc.Region)
		return store, func() {}, nil
	}

	store, err := counter.OpenSQL(cfg.Counter.Driver, cfg.Counter.DSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Counter.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
	}
	log.Info("Counting flashcards with %s", cfg.Counter.Driver)

	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing counter store: %v", err)
		}
	}
	return store, closeStore, nil
}
