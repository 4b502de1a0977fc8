package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/browser"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/capture"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guides"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/store"
	"github.com/sahilr2050/step-by-step-guide-generator/ui"
)

func newRecordCmd() *cobra.Command {
	var (
		guideID   string
		guideName string
		startURL  string
		plain     bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a new walkthrough in a live browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guideID == "" && guideName == "" {
				return errors.New("either --guide or --new is required")
			}

			st, err := store.Open(cfg.Storage.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := guides.New(st, logger)
			if guideID == "" {
				g, err := svc.Create(ctx, uuid.NewString(), guideName, nil)
				if err != nil {
					return err
				}
				guideID = g.ID
				logger.Info("guide created", "guide", guideID, "name", guideName)
			}
			g, err := svc.Get(ctx, guideID)
			if err != nil {
				return err
			}

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
			if startURL != "" {
				if err := rec.Navigate(startURL); err != nil {
					return err
				}
			}

			if err := session.Start(ctx, guideID); err != nil {
				return err
			}
			defer session.Stop()

			if plain {
				return recordPlain(ctx, session, g.Name)
			}
			return recordTUI(ctx, st, session, g.Name)
		},
	}

	cmd.Flags().StringVar(&guideID, "guide", "", "resume recording into an existing guide")
	cmd.Flags().StringVar(&guideName, "new", "", "create a new guide with this name")
	cmd.Flags().StringVar(&startURL, "url", "", "page to open before recording")
	cmd.Flags().BoolVar(&plain, "plain", false, "log steps to the terminal instead of the full UI")
	return cmd
}

// recordPlain runs without the full-screen UI, showing a spinner and one
// line per captured step until interrupted.
func recordPlain(ctx context.Context, session *capture.Session, guideName string) error {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" recording %q (%d steps)", guideName, session.StepCount())
	s.Start()
	defer s.Stop()

	events, cancel := session.Events().Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.Suffix = fmt.Sprintf(" recording %q (%d steps)", guideName, ev.Count)
		}
	}
}

func recordTUI(ctx context.Context, st *store.Store, session *capture.Session, guideName string) error {
	events, cancel := session.Events().Subscribe()
	defer cancel()

	describe := func(ev capture.StepEvent) ui.StepRecordedMsg {
		msg := ui.StepRecordedMsg{Count: ev.Count}
		g, err := st.GetGuide(ctx, ev.GuideID)
		if err != nil || g == nil || len(g.Steps) == 0 {
			return msg
		}
		last := g.Steps[len(g.Steps)-1]
		msg.Description = last.Description()
		msg.PageTitle = last.Title
		msg.URL = last.URL
		msg.HasImage = last.ScreenshotRef != ""
		return msg
	}

	model := ui.NewModel(session, events, describe, guideName, session.StepCount())
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
