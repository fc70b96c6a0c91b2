package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dhanuzh/arrow/internal/document"
	"github.com/Dhanuzh/arrow/internal/session"
)

// ErrClosed is returned by Post after the controller has stopped.
var ErrClosed = errors.New("panel controller closed")

const queueSize = 32

// Completer produces display text for chat and code requests. It never
// fails; failures come back as fallback text. *provider.Client satisfies it.
type Completer interface {
	Chat(ctx context.Context, model, message string) string
	Generate(ctx context.Context, model, instruction string) string
}

// Controller dispatches panel messages for one Session.
//
// Messages posted with Post are consumed by Run one at a time, so document
// edits and model switches never interleave. Chat and generate round trips
// run in the background; a newer request of the same kind cancels the
// older one and only the newest result is relayed.
type Controller struct {
	session *session.Session
	client  Completer
	host    document.Host
	sink    Sink
	log     logrus.FieldLogger

	events  chan Inbound
	results chan result
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	// owned by the Run goroutine
	inflight map[Kind]inflight
}

type inflight struct {
	id     string
	cancel context.CancelFunc
}

type result struct {
	kind Kind
	id   string
	text string
}

// New creates a Controller. log may be nil.
func New(sess *session.Session, client Completer, host document.Host, sink Sink, log logrus.FieldLogger) *Controller {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Controller{
		session:  sess,
		client:   client,
		host:     host,
		sink:     sink,
		log:      log.WithField("session", sess.ID),
		events:   make(chan Inbound, queueSize),
		results:  make(chan result),
		done:     make(chan struct{}),
		inflight: make(map[Kind]inflight),
	}
}

// Session returns the session this controller drives.
func (c *Controller) Session() *session.Session { return c.session }

// Post queues in for Run. An empty ID is filled with a fresh one, which is
// returned so callers can match the reply.
func (c *Controller) Post(in Inbound) (string, error) {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	select {
	case <-c.done:
		return "", ErrClosed
	default:
	}
	select {
	case c.events <- in:
		return in.ID, nil
	case <-c.done:
		return "", ErrClosed
	}
}

// Close stops Run. Queued messages that have not been consumed are dropped.
func (c *Controller) Close() {
	c.once.Do(func() { close(c.done) })
}

// Run consumes posted messages until ctx is cancelled or Close is called.
func (c *Controller) Run(ctx context.Context) error {
	defer func() {
		for kind, req := range c.inflight {
			req.cancel()
			delete(c.inflight, kind)
		}
		c.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case in := <-c.events:
			c.dispatch(ctx, in)
		case res := <-c.results:
			c.finish(res)
		}
	}
}

func (c *Controller) dispatch(ctx context.Context, in Inbound) {
	if in.Command != KindChatMessage && in.Command != KindGenerateCode {
		c.handleLocal(in)
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		c.notify(in.ID, LevelWarning, MsgEmptyInput)
		return
	}

	if prev, ok := c.inflight[in.Command]; ok {
		prev.cancel()
		c.log.WithFields(logrus.Fields{"kind": in.Command, "request": prev.id}).Debug("superseded request cancelled")
	}

	reqCtx, cancel := context.WithCancel(ctx)
	c.inflight[in.Command] = inflight{id: in.ID, cancel: cancel}
	model := c.session.Model()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		text := c.complete(reqCtx, in.Command, model, in.Text)
		select {
		case c.results <- result{kind: in.Command, id: in.ID, text: text}:
		case <-reqCtx.Done():
		}
	}()
}

func (c *Controller) finish(res result) {
	req, ok := c.inflight[res.kind]
	if !ok || req.id != res.id {
		return
	}
	req.cancel()
	delete(c.inflight, res.kind)
	c.sink.Send(Outbound{ID: res.id, Command: responseKind(res.kind), Text: res.text})
}

// Handle processes in synchronously, including any completion round trip.
func (c *Controller) Handle(ctx context.Context, in Inbound) {
	switch in.Command {
	case KindChatMessage, KindGenerateCode:
		if strings.TrimSpace(in.Text) == "" {
			c.notify(in.ID, LevelWarning, MsgEmptyInput)
			return
		}
		text := c.complete(ctx, in.Command, c.session.Model(), in.Text)
		c.sink.Send(Outbound{ID: in.ID, Command: responseKind(in.Command), Text: text})
	default:
		c.handleLocal(in)
	}
}

func (c *Controller) complete(ctx context.Context, kind Kind, model, text string) string {
	c.log.WithFields(logrus.Fields{"kind": kind, "model": model}).Debug("completion requested")
	if kind == KindGenerateCode {
		return c.client.Generate(ctx, model, text)
	}
	return c.client.Chat(ctx, model, text)
}

func (c *Controller) handleLocal(in Inbound) {
	switch in.Command {
	case KindApplyCode:
		c.apply(in)
	case KindUnapplyCode:
		c.unapply(in)
	case KindUpdateModel:
		c.updateModel(in)
	default:
		c.log.WithField("command", in.Command).Warn("unknown panel command")
		c.notify(in.ID, LevelError, fmt.Sprintf("Unknown command: %q", in.Command))
	}
}

func (c *Controller) apply(in Inbound) {
	doc, err := c.host.ActiveDocument()
	if err != nil {
		c.noDocument(in.ID, err)
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		c.notify(in.ID, LevelWarning, MsgNothingToApply)
		return
	}

	edits := c.session.Edits()
	var updated string
	if in.Position != nil {
		updated, err = edits.ApplyAt(doc, *in.Position, in.Text)
	} else {
		updated, err = edits.ApplyTo(doc, in.Text)
	}
	if err != nil {
		c.log.WithError(err).WithField("document", doc.Name()).Error("apply failed")
		c.notify(in.ID, LevelError, "Could not apply AI recommendation: "+err.Error())
		return
	}

	at := doc.Cursor()
	if in.Position != nil {
		at = *in.Position
	}
	c.log.WithFields(logrus.Fields{"document": doc.Name(), "at": at.String()}).Info("recommendation applied")
	c.notify(in.ID, LevelInfo, MsgApplied)
	c.sink.Send(Outbound{ID: in.ID, Command: KindDocumentChanged, Text: updated})
}

func (c *Controller) unapply(in Inbound) {
	doc, err := c.host.ActiveDocument()
	if err != nil {
		c.noDocument(in.ID, err)
		return
	}

	restored, err := c.session.Edits().UnapplyTo(doc)
	switch {
	case errors.Is(err, session.ErrNoSnapshot):
		c.notify(in.ID, LevelWarning, MsgNoSnapshot)
		return
	case err != nil:
		c.log.WithError(err).WithField("document", doc.Name()).Error("unapply failed")
		c.notify(in.ID, LevelError, "Could not restore previous state: "+err.Error())
		return
	}

	c.log.WithField("document", doc.Name()).Info("recommendation removed")
	c.notify(in.ID, LevelInfo, MsgRemoved)
	c.sink.Send(Outbound{ID: in.ID, Command: KindDocumentChanged, Text: restored})
}

func (c *Controller) updateModel(in Inbound) {
	if err := c.session.SetModel(in.Model); err != nil {
		c.notify(in.ID, LevelWarning, "Model not changed: "+err.Error())
		return
	}
	model := c.session.Model()
	c.log.WithField("model", model).Info("model switched")
	c.notify(in.ID, LevelInfo, fmt.Sprintf(MsgModelSwitched, model))
}

func (c *Controller) noDocument(id string, err error) {
	if !errors.Is(err, document.ErrNoActiveDocument) {
		c.log.WithError(err).Warn("active document lookup failed")
	}
	c.notify(id, LevelError, MsgNoActiveDocument)
}

func (c *Controller) notify(id string, level Level, text string) {
	c.sink.Send(Outbound{ID: id, Command: KindNotify, Level: level, Text: text})
}
