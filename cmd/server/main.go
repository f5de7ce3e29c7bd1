package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/harrylevesque/qrgen/internal/api"
	"github.com/harrylevesque/qrgen/internal/certs"
	"github.com/harrylevesque/qrgen/internal/config"
	"github.com/harrylevesque/qrgen/internal/files"
	"github.com/harrylevesque/qrgen/internal/metrics"
	"github.com/harrylevesque/qrgen/internal/render"
	"github.com/harrylevesque/qrgen/internal/utils"
)

var log = logging.Logger("qrgen/server")

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Errorf("server: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := utils.SetupLogging(cfg.LogOptions()); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	m := metrics.Default()
	store, err := files.Open(cfg.Store, m)
	if err != nil {
		return err
	}
	defer store.Close()

	renderer := render.New(render.Options{
		DefaultSize: cfg.Render.DefaultSize,
		MaxSize:     cfg.Render.MaxSize,
		Logos:       &render.Loader{Timeout: cfg.Render.LogoTimeout},
		Metrics:     m,
	})
	srv, err := api.NewServer(api.Options{
		Store:     store,
		Renderer:  renderer,
		Metrics:   m,
		Location:  loc,
		CacheSize: cfg.Preview.CacheSize,
		Sessions:  cfg.Preview.Sessions,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	useTLS := cfg.Server.TLSCert != ""
	if useTLS {
		pair, err := certs.LoadKeyPair(cfg.Server.TLSCert, cfg.Server.TLSKey, time.Now())
		if err != nil {
			return err
		}
		if certs.ExpiresWithin(pair.Leaf, 14*24*time.Hour, time.Now()) {
			log.Warnf("TLS certificate expires %s", pair.Leaf.NotAfter.Format(time.RFC3339))
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server running on %s (tls=%t)", cfg.Server.Addr, useTLS)
		if useTLS {
			errCh <- httpServer.ListenAndServeTLS("", "")
		} else {
			errCh <- httpServer.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
