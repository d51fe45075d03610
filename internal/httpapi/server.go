package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/barscan/internal/barscan/service"
	"github.com/BrandonDHaskell/barscan/internal/barscan/store"
	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
)

// LogReader is the read side of the scan log.
type LogReader interface {
	ReadAll() ([]byte, error)
	Stat() (size int64, modTime time.Time, err error)
}

// NoticeBoard receives notices and lets the UI poll for them.
type NoticeBoard interface {
	service.Notifier
	Notices() []types.Notice
}

type Dependencies struct {
	Logger      *zap.Logger
	Addr        string
	CORSOrigins []string

	Session     *service.Session
	ScanService *service.ScanService
	Frequency   *service.FrequencyController
	Lifecycle   *service.LogLifecycle
	ScanLog     LogReader
	History     store.ScanEventStore // optional
	Notices     NoticeBoard
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger

	session   *service.Session
	scans     *service.ScanService
	frequency *service.FrequencyController
	lifecycle *service.LogLifecycle
	scanLog   LogReader
	history   store.ScanEventStore
	notices   NoticeBoard
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger:    logger,
		session:   d.Session,
		scans:     d.ScanService,
		frequency: d.Frequency,
		lifecycle: d.Lifecycle,
		scanLog:   d.ScanLog,
		history:   d.History,
		notices:   d.Notices,
	}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", s.handleSession)

		r.Post("/scan", s.handleScan)
		r.Post("/scan/arm", s.handleArm)
		r.Post("/camera/flip", s.handleFlip)
		r.Put("/validation", s.handleSetValidation)

		r.Get("/frequency", s.handleGetFrequency)
		r.Post("/frequency", s.handleSelectFrequency)

		r.Get("/log", s.handleGetLog)
		r.Get("/log/status", s.handleLogStatus)
		r.Post("/log/export", s.handleExport)
		r.Delete("/log", s.handleDeleteLog)

		r.Get("/scans", s.handleRecentScans)
		r.Get("/notices", s.handleNotices)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
