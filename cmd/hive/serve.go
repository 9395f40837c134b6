package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Kerhoff/hive/internal/api"
	"github.com/Kerhoff/hive/internal/handlers"
	"github.com/Kerhoff/hive/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when a token is set, the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Flags())
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("port", "", "HTTP listen port (HIVE_PORT)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	l := a.log
	l.Info("Starting The Hive...")

	if a.cfg.SessionSecret == "" {
		l.Warn("HIVE_SESSION_SECRET is not set; sessions will not survive a restart")
	}
	if !a.svc.ResetEnabled() {
		l.Info("Factory reset disabled: no admin secret configured")
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if a.cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(a.cfg.TelegramToken, l)
		if err != nil {
			return err
		}
		registerCommands(bot, a)

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	apiServer := api.NewServer(a.svc, api.NewSessionStore(a.cfg.SessionSecret), a.metrics, a.cfg.UploadDir, l)
	httpServer := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Infof("HTTP server listening on :%s", a.cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		l.Info("Received shutdown signal...")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	l.Info("Shutting down HTTP server...")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.WithError(err).Warn("HTTP server did not shut down cleanly")
	}

	l.Info("The Hive stopped")
	return nil
}

func registerCommands(bot *telegram.Bot, a *app) {
	l, svc := a.log, a.svc

	bot.RegisterCommand("start", handlers.NewStartHandler(l))
	bot.RegisterCommand("help", handlers.NewHelpHandler(l))
	bot.RegisterCommand("family", handlers.NewFamilyHandler(svc, l))

	// Corkboard handlers
	bot.RegisterCommand("note", handlers.NewNoteHandler(svc, l))
	bot.RegisterCommand("notes", handlers.NewNotesHandler(svc, l))
	bot.RegisterCommand("remind", handlers.NewRemindHandler(svc, l))
	bot.RegisterCommand("reminders", handlers.NewRemindersHandler(svc, l))

	// Calendar handlers
	bot.RegisterCommand("event", handlers.NewEventAddHandler(svc, l))
	bot.RegisterCommand("events", handlers.NewEventsHandler(svc, l))

	// Chat and wishlist handlers
	bot.RegisterCommand("say", handlers.NewSayHandler(svc, l))
	bot.RegisterCommand("wishlist", handlers.NewWishListHandler(svc, l))
	bot.RegisterCommand("claim", handlers.NewClaimHandler(svc, l))
}
