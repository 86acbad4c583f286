package fakeprod

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tomhaynes/fakeprod/filter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The server only exists for local testing.
		return true
	},
}

// Server serves the mock directory API: user search with LDAP-style filters,
// user CRUD, file-backed mocks, and request inspection.
type Server struct {
	store    *UserStore
	mocks    *MockRegistry
	requests *requestLog
	logger   zerolog.Logger

	// randFloat drives the error_rate fault injection; replaced in tests.
	randFloat func() float64

	// sleep implements delay_ms latency injection; replaced in tests.
	sleep func(time.Duration)

	inspectLimit int
}

// NewServer creates a Server over the given store and mock registry.
func NewServer(store *UserStore, mocks *MockRegistry, logger zerolog.Logger) *Server {
	return &Server{
		store:        store,
		mocks:        mocks,
		requests:     newRequestLog(),
		logger:       logger,
		randFloat:    rand.Float64,
		sleep:        time.Sleep,
		inspectLimit: globalConfig.InspectLimit,
	}
}

// Router builds the HTTP handler with request logging applied.
func (s *Server) Router() http.Handler {
	router := httprouter.New()
	router.GET("/health", s.handleHealth)
	router.GET("/inspect", s.handleInspect)
	router.GET("/inspect/stream", s.handleInspectStream)
	router.GET("/users", s.handleListUsers)
	router.POST("/users", s.handleCreateUser)
	router.GET("/users/:username", s.handleGetUser)
	router.GET("/mocks/:label", s.handleServeMock)
	router.GET("/admin/mocks", s.handleListMocks)
	router.POST("/admin/mocks", s.handleRegisterMock)
	router.DELETE("/admin/mocks/:label", s.handleDeleteMock)
	return s.logRequests(router)
}

// logRequests records method, path, status and latency of every request into
// the structured log and the inspect ring.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("request")

		s.requests.Add(RequestEntry{
			Method: r.Method,
			Path:   r.URL.Path,
			Status: rec.status,
			TimeMS: elapsed.Milliseconds(),
		})
	})
}

// statusRecorder captures the response status while passing hijacking
// through so websocket upgrades keep working under the logging middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recent_requests": s.requests.Recent(s.inspectLimit),
	})
}

func (s *Server) handleInspectStream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("inspect stream upgrade failed")
		return
	}
	defer conn.Close()

	entries, cancel := s.requests.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Drain client frames so closes are noticed; the feed is one-way.
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entry := <-entries:
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	if delayMS, _ := strconv.Atoi(query.Get("delay_ms")); delayMS > 0 {
		s.sleep(time.Duration(delayMS) * time.Millisecond)
	}
	if rate, _ := strconv.ParseFloat(query.Get("error_rate"), 64); rate > 0 && s.randFloat() < rate {
		writeError(w, http.StatusInternalServerError, "injected error")
		return
	}

	results, err := s.store.Search(query.Get("filter"))
	if err != nil {
		s.logger.Debug().Err(err).Str("filter", query.Get("filter")).Msg("bad filter")
		writeError(w, http.StatusBadRequest, "bad filter")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, ok := s.store.Get(ps.ByName("username"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var rec filter.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.Create(rec); err != nil {
		writeError(w, http.StatusBadRequest, "sAMAccountName and dn required")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleServeMock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	meta, path, err := s.mocks.Resolve(ps.ByName("label"))
	if err != nil {
		writeError(w, http.StatusNotFound, "mock not found")
		return
	}

	if delayMS, _ := strconv.Atoi(r.URL.Query().Get("delay_ms")); delayMS > 0 {
		s.sleep(time.Duration(delayMS) * time.Millisecond)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load mock file")
		return
	}

	for name, value := range meta.Headers {
		w.Header().Set(name, value)
	}

	switch meta.Type {
	case "json":
		if !json.Valid(content) {
			writeError(w, http.StatusInternalServerError, "failed to load mock json")
			return
		}
		w.Header().Set("Content-Type", "application/json")
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
	default:
		contentType := meta.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(meta.Status)
	w.Write(content)
}

func (s *Server) handleListMocks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.mocks.List())
}

// registerMockRequest is the POST /admin/mocks payload. The body is decoded
// through mapstructure so mapping metadata and content fields can share one
// flat JSON object, with weakly typed header values.
type registerMockRequest struct {
	Label       string            `mapstructure:"label"`
	Filename    string            `mapstructure:"filename"`
	Content     *string           `mapstructure:"content"`
	ContentB64  *string           `mapstructure:"content_b64"`
	Type        string            `mapstructure:"type"`
	Status      int               `mapstructure:"status"`
	Headers     map[string]string `mapstructure:"headers"`
	ContentType string            `mapstructure:"content_type"`
	Overwrite   bool              `mapstructure:"overwrite"`
}

func decodeRegisterMock(r *http.Request) (registerMockRequest, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return registerMockRequest{}, err
	}

	var req registerMockRequest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return registerMockRequest{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return registerMockRequest{}, err
	}
	return req, nil
}

func (s *Server) handleRegisterMock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := decodeRegisterMock(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label required")
		return
	}
	if req.Content == nil && req.ContentB64 == nil {
		writeError(w, http.StatusBadRequest, "content or content_b64 required")
		return
	}

	var content []byte
	if req.ContentB64 != nil {
		content, err = base64.StdEncoding.DecodeString(*req.ContentB64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid base64: "+err.Error())
			return
		}
	} else {
		content = []byte(*req.Content)
	}

	meta := MockMapping{
		Type:        req.Type,
		Status:      req.Status,
		Headers:     req.Headers,
		ContentType: req.ContentType,
	}
	registered, err := s.mocks.Register(req.Label, req.Filename, content, meta, req.Overwrite)
	if err != nil {
		switch {
		case errors.Is(err, ErrLabelExists):
			writeError(w, http.StatusConflict, "label exists; delete first or use another label")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]MockMapping{req.Label: registered})
}

func (s *Server) handleDeleteMock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := s.mocks.Delete(ps.ByName("label")); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunServer wires the store, mock registry and HTTP server together from the
// global configuration and blocks serving requests.
func RunServer() error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	store := NewUserStore()
	if globalConfig.UsersCSV != "" {
		if err := store.LoadCSV(globalConfig.UsersCSV); err != nil {
			return err
		}
		logger.Info().Int("users", store.Len()).Str("csv", globalConfig.UsersCSV).Msg("seeded user store")
	}

	mocks := NewMockRegistry(globalConfig.DataFolder)
	server := NewServer(store, mocks, logger)

	logger.Info().Str("addr", globalConfig.ListenAddr).Msg("starting fakeprod server")
	return http.ListenAndServe(globalConfig.ListenAddr, server.Router())
}
