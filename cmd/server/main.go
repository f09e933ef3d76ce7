package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	meetingchatui "github.com/MegaGrindStone/meeting-chat-ui"
	"github.com/MegaGrindStone/meeting-chat-ui/internal/handlers"
	"github.com/MegaGrindStone/meeting-chat-ui/internal/services"
	"github.com/MegaGrindStone/meeting-chat-ui/internal/session"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfgFilePath, err := configPath()
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := loadConfig(cfgFilePath)
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.slogLevel()}))

	backend := services.NewBackend(cfg.BackendURL, &http.Client{Timeout: cfg.RequestTimeout}, logger)

	m, err := handlers.NewMain(backend, logger, session.WithStatusClearDelay(cfg.StatusClearDelay))
	if err != nil {
		logger.Error("Failed to create handlers", slog.String("err", err.Error()))
		os.Exit(1)
	}

	// Serve static files
	staticFS, err := fs.Sub(meetingchatui.StaticFS, "static")
	if err != nil {
		logger.Error("Failed to open static files", slog.String("err", err.Error()))
		os.Exit(1)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	// Create custom mux
	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/upload", m.HandleUpload)
	mux.HandleFunc("/chat", m.HandleChat)
	mux.HandleFunc("/sse", m.HandleSSE)

	// Create custom server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String("err", err.Error()))
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("Server starting",
			slog.String("port", cfg.Port),
			slog.String("backendURL", cfg.BackendURL))
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt/terminate signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking select waiting for either interrupt or server error
	select {
	case err := <-serverErrors:
		logger.Error("Server error", slog.String("err", err.Error()))

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Gracefully shutdown the server
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("err", err.Error()))
			}
		}
	}
}

// configPath returns the config file named by MEETINGCHAT_CONFIG, or config.yaml in the user config dir.
func configPath() (string, error) {
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p, nil
	}

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting user config dir: %w", err)
	}
	return filepath.Join(cfgDir, "meetingchat", "config.yaml"), nil
}
