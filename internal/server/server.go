package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dhanuzh/arrow/internal/config"
	"github.com/Dhanuzh/arrow/internal/document"
	"github.com/Dhanuzh/arrow/internal/panel"
	"github.com/Dhanuzh/arrow/internal/session"
)

// Version is reported by /health and /info.
var Version = "dev"

const heartbeatInterval = 30 * time.Second

// Server is the HTTP bridge between remote panels and the controller.
// Every panel gets its own session and controller; replies are streamed
// back over server-sent events.
type Server struct {
	config *config.Config
	client panel.Completer
	host   document.Host
	log    logrus.FieldLogger

	mux    *http.ServeMux
	server *http.Server

	// run loops of all panels live under ctx
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	panels map[string]*panelConn
}

type panelConn struct {
	ctrl *panel.Controller
	hub  *hub
	done chan struct{}
}

// New creates a new bridge server. host may be nil, in which case apply and
// unapply report that no document is open.
func New(cfg *config.Config, client panel.Completer, host document.Host, log logrus.FieldLogger) *Server {
	if host == nil {
		host = document.NewWorkspace(nil)
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: cfg,
		client: client,
		host:   host,
		log:    log.WithField("component", "server"),
		mux:    http.NewServeMux(),
		ctx:    ctx,
		cancel: cancel,
		panels: make(map[string]*panelConn),
	}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start listens on the configured address and blocks until Stop. Changes
// made to the active document by other programs are pushed to every panel.
func (s *Server) Start() error {
	if err := s.watchDocument(); err != nil {
		s.log.WithError(err).Warn("document changes on disk will not be pushed to panels")
	}

	s.log.WithField("addr", s.server.Addr).Info("panel bridge listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes every panel and gracefully stops the server.
func (s *Server) Stop() error {
	s.closeAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	// Health & info
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /info", s.handleInfo)

	// Panels
	s.mux.HandleFunc("GET /panel", s.handleListPanels)
	s.mux.HandleFunc("POST /panel", s.handleCreatePanel)
	s.mux.HandleFunc("GET /panel/{id}", s.handleGetPanel)
	s.mux.HandleFunc("DELETE /panel/{id}", s.handleDeletePanel)
	s.mux.HandleFunc("POST /panel/{id}/message", s.handleMessage)
	s.mux.HandleFunc("GET /panel/{id}/events", s.handleEvents)

	// Models & document
	s.mux.HandleFunc("GET /model", s.handleListModels)
	s.mux.HandleFunc("GET /document", s.handleDocument)
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "version": Version})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	count := len(s.panels)
	s.mu.RUnlock()

	writeJSON(w, map[string]interface{}{
		"name":     "arrow",
		"version":  Version,
		"model":    s.config.Model,
		"base_url": s.config.BaseURL,
		"panels":   count,
	})
}

func (s *Server) handleListPanels(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	infos := make([]session.Info, 0, len(s.panels))
	for _, pc := range s.panels {
		infos = append(infos, pc.ctrl.Session().Info())
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	writeJSON(w, infos)
}

func (s *Server) handleCreatePanel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sess := session.New(s.config.Model, s.config.Models)
	if req.Model != "" {
		if err := sess.SetModel(req.Model); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	pc := s.open(sess)
	s.log.WithFields(logrus.Fields{"session": sess.ID, "model": sess.Model()}).Info("panel opened")

	w.Header().Set("Location", "/panel/"+sess.ID)
	writeJSONStatus(w, http.StatusCreated, pc.ctrl.Session().Info())
}

func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	pc, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "panel not found")
		return
	}
	writeJSON(w, pc.ctrl.Session().Info())
}

func (s *Server) handleDeletePanel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	pc, ok := s.panels[id]
	delete(s.panels, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "panel not found")
		return
	}
	pc.close()
	s.log.WithField("session", id).Info("panel closed")
	writeJSON(w, map[string]string{"status": "deleted"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	pc, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "panel not found")
		return
	}

	var in panel.Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if in.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	id, err := pc.ctrl.Post(in)
	if err != nil {
		writeError(w, http.StatusGone, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	pc, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "panel not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := pc.hub.subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	fmt.Fprintf(w, "event: connected\ndata: {\"session\":%q}\n\n", pc.ctrl.Session().ID)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-pc.done:
			return
		case data := <-events:
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"default": s.config.Model,
		"models":  s.config.Models,
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.host.ActiveDocument()
	if err != nil {
		writeError(w, http.StatusNotFound, panel.MsgNoActiveDocument)
		return
	}
	writeJSON(w, map[string]interface{}{
		"name":   doc.Name(),
		"text":   doc.Text(),
		"cursor": doc.Cursor(),
	})
}

// Panel bookkeeping

func (s *Server) open(sess *session.Session) *panelConn {
	h := newHub(s.log.WithField("session", sess.ID))
	// all panels share the host document, so each of them hears about
	// every edit to it
	sink := panel.SinkFunc(func(o panel.Outbound) {
		if o.Command == panel.KindDocumentChanged {
			s.broadcast(o)
			return
		}
		h.Send(o)
	})
	pc := &panelConn{
		ctrl: panel.New(sess, s.client, s.host, sink, s.log),
		hub:  h,
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.panels[sess.ID] = pc
	s.mu.Unlock()

	go func() {
		defer close(pc.done)
		if err := pc.ctrl.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithError(err).WithField("session", sess.ID).Warn("panel loop stopped")
		}
	}()
	return pc
}

// broadcast sends o to every open panel.
func (s *Server) broadcast(o panel.Outbound) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pc := range s.panels {
		pc.hub.Send(o)
	}
}

func (s *Server) watchDocument() error {
	doc, err := s.host.ActiveDocument()
	if err != nil {
		return nil
	}
	w, ok := doc.(document.Watcher)
	if !ok {
		return nil
	}
	return w.Watch(s.ctx, func(text string) {
		s.log.WithField("document", doc.Name()).Debug("document changed on disk")
		s.broadcast(panel.Outbound{Command: panel.KindDocumentChanged, Text: text})
	})
}

func (s *Server) lookup(id string) (*panelConn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pc, ok := s.panels[id]
	return pc, ok
}

func (s *Server) closeAll() {
	s.mu.Lock()
	panels := s.panels
	s.panels = make(map[string]*panelConn)
	s.mu.Unlock()

	for _, pc := range panels {
		pc.ctrl.Close()
	}
	s.cancel()
	for _, pc := range panels {
		<-pc.done
	}
}

func (pc *panelConn) close() {
	pc.ctrl.Close()
	<-pc.done
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSONStatus(w, status, map[string]string{"error": message})
}
