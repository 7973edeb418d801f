package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/quire/internal/notesapi"
	"github.com/starford/quire/internal/session"
)

const reconnectDelay = 5 * time.Second

// Run shows the UI until the user quits, then flushes the open note.
func Run(ctx context.Context, sess *session.Session, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(ctx, sess, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	go follow(ctx, sess, logger, func(e notesapi.Event) { p.Send(eventMsg(e)) })

	_, err := p.Run()
	cancel()

	if saveErr := sess.SaveNow(context.Background()); saveErr != nil {
		logger.Warn("final save failed", slog.String("error", saveErr.Error()))
		if err == nil {
			err = saveErr
		}
	}
	return err
}

// follow keeps an event subscription open, reconnecting after drops.
func follow(ctx context.Context, sess *session.Session, logger *slog.Logger, fn func(notesapi.Event)) {
	for {
		if err := sess.Follow(ctx, fn); err != nil {
			logger.Info("event stream unavailable", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}
