package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/api"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/browser"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/capture"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/describe"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guides"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/store"
)

func newServeCmd() *cobra.Command {
	var withBrowser bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the guide API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.Storage.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := guides.New(st, logger)

			var recorder api.Recorder
			if withBrowser {
				session := capture.NewSession(capture.Config{
					Debounce:      cfg.Recording.Debounce(),
					SettleDelay:   cfg.Recording.SettleDelay(),
					HighlightHold: cfg.Recording.HighlightHold(),
				}, st, st, nil, nil, logger)

				browserOpts := browser.Options{
					Headless:          cfg.Browser.Headless,
					NoSandbox:         cfg.Browser.NoSandbox,
					UserDataDir:       cfg.Browser.UserDataDir,
					ScreenshotTimeout: cfg.Browser.ScreenshotTimeout(),
				}
				b, err := browser.New(browserOpts)
				if err != nil {
					return fmt.Errorf("launch browser: %w", err)
				}
				defer b.Close()

				tab, cancelTab := b.NewTab()
				defer cancelTab()

				rec := browser.NewRecorder(tab, browserOpts, session, logger)
				session.Attach(rec, rec)
				if err := rec.Attach(); err != nil {
					return err
				}
				recorder = session
			}

			var describer *describe.Processor
			if cfg.AI.Endpoint != "" {
				describer, err = describe.NewProcessor(describe.Config{
					Endpoint:        cfg.AI.Endpoint,
					SystemPrompt:    cfg.AI.SystemPrompt,
					Temperature:     cfg.AI.Temperature,
					ReasoningEffort: cfg.AI.ReasoningEffort,
				}, st, logger)
				if err != nil {
					return err
				}
			}

			server := api.NewServer(svc, st, st, recorder, describer,
				float64(cfg.Redaction.MaxDisplayWidth), logger)

			httpServer := &http.Server{
				Addr:              cfg.Server.Bind,
				Handler:           server.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errs := make(chan error, 1)
			go func() {
				logger.Info("serving API", "addr", cfg.Server.Bind, "browser", withBrowser)
				errs <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errs:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withBrowser, "browser", false, "launch a browser so recordings can be driven over the API")
	return cmd
}
