package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/sentinel/internal/cache"
	"github.com/dshills/sentinel/internal/config"
	"github.com/dshills/sentinel/internal/index"
	"github.com/dshills/sentinel/internal/logging"
	"github.com/dshills/sentinel/internal/metrics"
	"github.com/dshills/sentinel/internal/providers"
	"github.com/dshills/sentinel/internal/store/badgerstore"
	"github.com/dshills/sentinel/internal/store/weaviatestore"
	"github.com/dshills/sentinel/internal/telemetry"
)

// app holds the collaborators shared by the commands of one process.
type app struct {
	cfg      config.Config
	log      hclog.Logger
	db       *badgerstore.Store
	weaviate *weaviatestore.Store
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	shutdown telemetry.Shutdown
}

// globalOverrides returns the config overrides of the root flags.
func globalOverrides() map[string]string {
	m := map[string]string{}
	if flagLogLevel != "" {
		m["log.level"] = flagLogLevel
	}
	if flagLogJSON {
		m["log.json"] = "true"
	}
	return m
}

// newApp opens the local database and, when configured, the weaviate class.
func newApp(ctx context.Context, cfg config.Config, stderr io.Writer) (*app, error) {
	log := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: stderr})

	tracer, shutdown, err := telemetry.Setup(cfg.Trace.Enabled, stderr, version)
	if err != nil {
		return nil, err
	}

	db, err := badgerstore.Open(badgerstore.Options{Path: cfg.Store.Path, Logger: log})
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		metrics:  metrics.New(),
		tracer:   tracer,
		shutdown: shutdown,
	}
	if cfg.Store.Backend == "weaviate" {
		w, err := weaviatestore.Open(ctx, weaviatestore.Options{
			URL:       cfg.Store.WeaviateURL,
			ClassName: cfg.Store.ClassName,
			Logger:    log,
		})
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.weaviate = w
	}
	return a, nil
}

// symbols returns the store that holds the symbol index.
func (a *app) symbols() index.Store {
	if a.weaviate != nil {
		return a.weaviate
	}
	return a.db
}

func (a *app) provider() (*providers.OpenAI, error) {
	return providers.New(providers.Options{
		Provider:       a.cfg.Provider,
		Model:          a.cfg.Model,
		EmbeddingModel: a.cfg.EmbeddingModel,
		BaseURL:        a.cfg.BaseURL,
	})
}

func (a *app) cache() *cache.Cache {
	return cache.New(a.db.DB(), a.cfg.Cache.Enabled, a.cfg.Cache.TTLSeconds)
}

// close flushes spans and metrics and closes the database.
func (a *app) close(ctx context.Context) {
	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("trace shutdown failed", "error", err)
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Warn("metrics export failed", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing database failed", "error", fmt.Errorf("badger: %w", err))
	}
}
