package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shaunagostinho/komsi-bridge/internal/capture"
	"github.com/shaunagostinho/komsi-bridge/internal/komsi"
	"github.com/shaunagostinho/komsi-bridge/internal/link"
	"github.com/shaunagostinho/komsi-bridge/internal/logging"
	"github.com/shaunagostinho/komsi-bridge/internal/source"
	"github.com/shaunagostinho/komsi-bridge/internal/vehicle"
)

// Server polls the vehicle source, turns each snapshot into a KOMSI batch,
// delivers it to the sinks and mirrors everything to WebSocket clients.
type Server struct {
	cfg     *Config
	src     source.Provider
	sinks   []link.Sink
	webFS   fs.FS
	log     zerolog.Logger
	capture *capture.Recorder
	changes vehicle.Logger
	dump    io.Writer

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader

	// Receiver view. prev is what the sinks were last told.
	mu       sync.Mutex
	prev     vehicle.State
	synced   bool
	resync   bool
	lastFull time.Time
	stats    Stats
	now      func() time.Time
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure sent to all WebSocket clients.
type Frame struct {
	State    *vehicle.State `json:"state,omitempty"`
	Batch    string         `json:"batch,omitempty"` // hex
	Text     string         `json:"text,omitempty"`  // printable form, terminator stripped
	Commands int            `json:"commands"`
	Force    bool           `json:"force"`
	Stamp    int64          `json:"stamp"` // Unix ms
}

// Stats counts delivered batches.
type Stats struct {
	Batches     uint64 `json:"batches"`
	FullBatches uint64 `json:"fullBatches"`
	Bytes       uint64 `json:"bytes"`
	WriteErrors uint64 `json:"writeErrors"`
}

// Status is returned by /api/status.
type Status struct {
	Source string   `json:"source"`
	Sinks  []string `json:"sinks"`
	Synced bool     `json:"synced"`
	Stats  Stats    `json:"stats"`
}

// New creates a new Server.
func New(cfg *Config, src source.Provider, sinks []link.Sink, webFS fs.FS, log zerolog.Logger, dump io.Writer) *Server {
	return &Server{
		cfg:     cfg,
		src:     src,
		sinks:   sinks,
		webFS:   webFS,
		log:     logging.Component(log, "server"),
		capture: capture.New(cfg.Capture, logging.Component(log, "capture")),
		changes: logging.NewChangeLogger(log),
		dump:    dump,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.webFS != nil {
		mux.Handle("/", http.FileServer(http.FS(s.webFS)))
	}
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/resync", s.handleResync)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

// Run starts the HTTP server and the poll loop.
func (s *Server) Run(ctx context.Context) error {
	go s.pollLoop(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.log.Info().Str("addr", s.cfg.Server.ListenAddr).Msg("listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// RequestResync makes the next batch a full one.
func (s *Server) RequestResync() {
	s.mu.Lock()
	s.resync = true
	s.mu.Unlock()
}

// pollLoop reads the source at the configured rate and processes every
// snapshot.
func (s *Server) pollLoop(ctx context.Context) {
	hz := s.cfg.Source.PollHz
	if hz <= 0 {
		hz = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.capture.Close()
			return
		case <-ticker.C:
			st, err := s.src.Read()
			if err != nil {
				if !errors.Is(err, source.ErrNoState) {
					s.log.Debug().Err(err).Str("source", s.src.Name()).Msg("read failed")
				}
				continue
			}
			s.process(st)
		}
	}
}

// process diffs cur against the receiver view and delivers the batch.
// A full batch is sent until every sink has accepted one, when the resync
// interval has elapsed, or when a resync was requested.
func (s *Server) process(cur vehicle.State) []byte {
	bridge := s.cfg.BridgeSettings()
	now := s.now()

	s.mu.Lock()
	force := !s.synced || s.resync
	if bridge.ResyncSec > 0 && now.Sub(s.lastFull) >= time.Duration(bridge.ResyncSec)*time.Second {
		force = true
	}
	var changes vehicle.Logger
	if bridge.LogChanges {
		changes = s.changes
	}
	batch := s.prev.Compare(cur, force, changes)
	s.prev = cur
	s.resync = false
	s.mu.Unlock()

	if bridge.Dump && s.dump != nil {
		cur.Print(s.dump)
	}

	ok := true
	if len(batch) > 0 {
		ok = s.deliver(batch)
	}

	s.mu.Lock()
	if ok && force {
		s.synced = true
		s.lastFull = now
	}
	if !ok {
		s.synced = false
	}
	if len(batch) > 0 {
		s.stats.Batches++
		s.stats.Bytes += uint64(len(batch))
		if force {
			s.stats.FullBatches++
		}
	}
	s.mu.Unlock()

	s.capture.Record(batch, force, cur)
	s.broadcast(newFrame(cur, batch, force, now))
	return batch
}

// deliver writes batch to every sink and reports whether all accepted it.
func (s *Server) deliver(batch []byte) bool {
	ok := true
	for _, sink := range s.sinks {
		if err := sink.Write(batch); err != nil {
			ok = false
			s.mu.Lock()
			s.stats.WriteErrors++
			s.mu.Unlock()
			if errors.Is(err, link.ErrNotConnected) {
				s.log.Debug().Str("sink", sink.Name()).Msg("sink not connected")
			} else {
				s.log.Warn().Err(err).Str("sink", sink.Name()).Msg("write failed")
			}
		}
	}
	return ok
}

func newFrame(st vehicle.State, batch []byte, force bool, now time.Time) Frame {
	f := Frame{
		State: &st,
		Force: force,
		Stamp: now.UnixMilli(),
	}
	if len(batch) > 0 {
		f.Batch = hex.EncodeToString(batch)
		f.Text = strings.TrimSuffix(string(batch), "\n")
		f.Commands = komsi.Count(batch)
	}
	return f
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()

	s.log.Info().Int("clients", n).Msg("websocket client connected")

	// Send the current receiver view
	s.mu.Lock()
	st := s.prev
	s.mu.Unlock()
	if data, err := json.Marshal(newFrame(st, nil, false, s.now())); err == nil {
		client.send <- data
	}

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive, incoming messages are ignored)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			n := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			s.log.Info().Int("clients", n).Msg("websocket client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data, err := s.cfg.ToJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := s.cfg.UpdateFromJSON(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.capture.SetEnabled(s.cfg.CaptureSettings().Enabled)
		if err := s.cfg.Save(); err != nil {
			s.log.Warn().Err(err).Msg("config save failed")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleState returns the receiver view, or accepts a pushed snapshot when
// the source is a PushProvider.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		st := s.prev
		s.mu.Unlock()
		writeJSON(w, st)

	case http.MethodPost:
		push, ok := s.src.(*source.PushProvider)
		if !ok {
			http.Error(w, "source does not accept pushed state", http.StatusConflict)
			return
		}
		var st vehicle.State
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		push.Update(st)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.RequestResync()
	s.log.Info().Msg("full resync requested")
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := Status{Source: s.src.Name(), Sinks: make([]string, 0, len(s.sinks))}
	for _, sink := range s.sinks {
		st.Sinks = append(st.Sinks, sink.Name())
	}
	s.mu.Lock()
	st.Synced = s.synced
	st.Stats = s.stats
	s.mu.Unlock()
	writeJSON(w, st)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}
