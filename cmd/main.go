package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-qa/internal/chromemdb"
	"pdf-qa/internal/config"
	"pdf-qa/internal/db"
	"pdf-qa/internal/embedding"
	"pdf-qa/internal/helper"
	"pdf-qa/internal/http"
	"pdf-qa/internal/llmservice"
	"pdf-qa/internal/rag"
	"pdf-qa/internal/session"
	"pdf-qa/internal/tui"
)

const (
	configFilePath = "./configs/config.yaml"
	tuiLogFile     = "pdf-qa.log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	useTUI := flag.Bool("tui", false, "Run the terminal UI instead of the web server")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	// the terminal belongs to Bubble Tea in TUI mode
	if *useTUI {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening log file")
		}
		defer f.Close()
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.RFC3339}).With().Caller().Logger()
	}

	log.Debug().Interface("config", cfg.Redacted()).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm, err := llmservice.NewOllamaLLM(&cfg.InferenceLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing inference model")
	}

	newStore, closeStores, err := storeFactory(ctx, cfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing vector store")
	}
	defer closeStores()

	pipeline, err := rag.NewPipeline(&cfg.RAG, embedder, llm, newStore)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating pipeline")
	}

	if *useTUI {
		// answers are shown in the transcript, nothing is streamed
		controller := session.New(session.FromPipeline(pipeline), cfg.UploadPath, nil)
		defer closeSession(controller)

		if _, err := tea.NewProgram(tui.New(ctx, controller), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			log.Error().Err(err).Msg("Error running terminal UI")
		}
		return
	}

	controller := session.New(session.FromPipeline(pipeline), cfg.UploadPath, os.Stdout)
	defer closeSession(controller)

	serve(ctx, cfg, controller)
}

func serve(ctx context.Context, cfg *config.Config, controller *session.Controller) {
	router := http.NewRouter(&http.Deps{
		Session:        controller,
		Logger:         log.Logger,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	})

	server := &nethttp.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down server")
		}
	}()

	log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Error().Err(err).Msg("Server error")
	}
}

// storeFactory returns a constructor for the configured backend. Each call
// yields an empty store with a unique collection or table name.
func storeFactory(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (rag.StoreFactory, func(), error) {
	switch cfg.VectorDB.Backend {
	case config.BackendPGVector:
		dbClient, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		dbInstance := db.NewDB(dbClient, cfg.Database.Debug)
		if err := dbInstance.PingContext(ctx); err != nil {
			_ = dbInstance.Close()
			return nil, nil, err
		}
		newStore := func(ctx context.Context) (rag.Store, error) {
			table, err := helper.UniqueName(cfg.VectorDB.Collection)
			if err != nil {
				return nil, err
			}
			store, err := db.NewStore(ctx, dbInstance, table, cfg.Database.VectorSize)
			if err != nil {
				return nil, err
			}
			return store, nil
		}
		return newStore, func() { _ = dbInstance.Close() }, nil

	default:
		chromemDB := chromem.NewDB()
		newStore := func(ctx context.Context) (rag.Store, error) {
			name, err := helper.UniqueName(cfg.VectorDB.Collection)
			if err != nil {
				return nil, err
			}
			store, err := chromemdb.NewVectorDBManager(chromemDB, name, chromemdb.EmbeddingFunc(embedder))
			if err != nil {
				return nil, err
			}
			return store, nil
		}
		return newStore, func() {}, nil
	}
}

func closeSession(c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing session")
	}
}
