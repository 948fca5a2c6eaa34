package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chess-story-service/internal/app"
	"chess-story-service/internal/config"
	"chess-story-service/internal/infra/memory"
	pgloader "chess-story-service/internal/infra/postgres"
	redisinfra "chess-story-service/internal/infra/redis"
	transport "chess-story-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the story server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.StoryLoader
	switch {
	case pool != nil:
		loader = pgloader.NewStoryLoader(pool)
	case cfg.Content.Dir != "":
		loader = memory.NewDirStoryLoader(cfg.Content.Dir)
	default:
		loader, err = memory.NewStaticStoryLoader(sampleStories())
		if err != nil {
			return err
		}
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var stories app.StoryRepository
	if redisClient != nil {
		stories = redisinfra.NewStoryRepository(redisClient, loader, contentTTL)
	} else {
		stories = memory.NewStoryRepository(loader, contentTTL)
	}

	var presence transport.LearnerPresence
	if redisClient != nil {
		presence = redisinfra.NewLearnerStore(redisClient, redisTTL)
	}

	wsHandler := transport.NewWSHandler(stories, nil, presence)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting story service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleStories provides a minimal two-story learning path; swap the loader
// for a content dir or Postgres in production.
func sampleStories() []string {
	return []string{
		`---
id: 01-introduction
title: Welcome to Chess
nextStory: 02-the-pieces
keyConcepts:
  - The board has 64 squares
  - White moves first
chapters:
  - id: 01-the-board
    chessPosition: startpos
  - id: 02-first-moves
    question:
      type: move-selection
      prompt: Play a pawn two squares forward from its starting square.
      correctAnswer:
        - e2e4
        - d2d4
      explanation: Pawns may advance two squares on their first move.
      initialPosition: startpos
---

## The Board

Chess is played on a board of 64 squares.

## First Moves

White always moves first. Try moving a central pawn.
`,
		`---
id: 02-the-pieces
title: Meet the Pieces
previousStory: 01-introduction
keyConcepts:
  - Each piece moves differently
chapters:
  - id: 01-the-rook
    question:
      type: multiple-choice
      prompt: How does the rook move?
      options:
        - Diagonally
        - In straight lines
        - One square at a time
      correctAnswer: In straight lines
      explanation: Rooks move any number of squares along ranks and files.
---

## The Rook

The rook slides along ranks and files.
`,
	}
}
