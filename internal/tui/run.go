package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dhanuzh/arrow/internal/document"
	"github.com/Dhanuzh/arrow/internal/panel"
)

var oscColour = regexp.MustCompile(`\d{1,4}/\d{4}/\d{4}`)

// filterOSCSequences drops key messages that are really fragments of a
// terminal OSC reply (for example the OSC 11 background colour answer).
func filterOSCSequences(_ tea.Model, msg tea.Msg) tea.Msg {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return msg
	}
	s := k.String()
	if oscColour.MatchString(s) ||
		strings.HasPrefix(s, "]11;") ||
		strings.HasPrefix(s, "rgb:") ||
		strings.Contains(s, ";rgb:") {
		return nil
	}
	return msg
}

// Run starts the panel in the terminal and blocks until the user quits or
// ctx is cancelled. client answers chat and code requests.
func Run(ctx context.Context, client panel.Completer, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var prog *tea.Program
	sink := panel.SinkFunc(func(o panel.Outbound) {
		prog.Send(OutboundMsg(o))
	})
	ctrl := panel.New(opts.Session, client, opts.Host, sink, opts.Log)
	prog = tea.NewProgram(
		New(ctrl, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithFilter(filterOSCSequences),
	)

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	if opts.Host != nil {
		if doc, err := opts.Host.ActiveDocument(); err == nil {
			if w, ok := doc.(document.Watcher); ok {
				err := w.Watch(ctx, func(text string) {
					prog.Send(OutboundMsg{Command: panel.KindDocumentChanged, Text: text})
				})
				if err != nil && opts.Log != nil {
					opts.Log.WithError(err).Warn("file changes on disk will not be shown")
				}
			}
		}
	}

	_, err := prog.Run()
	ctrl.Close()
	cancel()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) && err == nil {
		err = runErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
