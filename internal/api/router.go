package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harrylevesque/qrgen/internal/files"
	"github.com/harrylevesque/qrgen/internal/metrics"
	"github.com/harrylevesque/qrgen/internal/render"
)

var log = logging.Logger("qrgen/api")

// UserHeader carries the caller identity set by the authenticating proxy.
const UserHeader = "X-User-ID"

type Options struct {
	Store    files.RecordStore
	Renderer *render.Renderer
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer  prometheus.Gatherer
	Location  *time.Location
	CacheSize int
	Sessions  int
}

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	store    files.RecordStore
	renderer *render.Renderer
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	loc      *time.Location
	images   *lru.Cache[string, []byte]
	slots    *lru.Cache[string, *render.Slot]
	now      func() time.Time
}

func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Renderer == nil {
		return nil, fmt.Errorf("api: store and renderer are required")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.Sessions <= 0 {
		opts.Sessions = 1024
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	images, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	slots, err := lru.New[string, *render.Slot](opts.Sessions)
	if err != nil {
		return nil, err
	}
	return &Server{
		store:    opts.Store,
		renderer: opts.Renderer,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		loc:      opts.Location,
		images:   images,
		slots:    slots,
		now:      time.Now,
	}, nil
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintln(w, "OK"); err != nil {
			log.Debugf("health: %v", err)
		}
	}).Methods("GET")
	r.HandleFunc("/time", GetTimeHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	r.HandleFunc("/payload", s.PayloadHandler).Methods("POST")
	r.HandleFunc("/render", s.RenderHandler).Methods("POST")
	r.HandleFunc("/preview", s.PreviewHandler).Methods("POST")
	r.HandleFunc("/scan", s.ScanHandler).Methods("POST")

	r.HandleFunc("/codes", s.CreateCodeHandler).Methods("POST")
	r.HandleFunc("/codes", s.ListCodesHandler).Methods("GET")
	r.HandleFunc("/codes/{id}", s.GetCodeHandler).Methods("GET")
	r.HandleFunc("/codes/{id}", s.UpdateCodeHandler).Methods("PUT")
	r.HandleFunc("/codes/{id}", s.DeleteCodeHandler).Methods("DELETE")
	r.HandleFunc("/codes/{id}/toggle", s.ToggleCodeHandler).Methods("POST")
	r.HandleFunc("/codes/{id}/image", s.CodeImageHandler).Methods("GET")
	r.HandleFunc("/export", s.ExportHandler).Methods("GET")
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debugw("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
