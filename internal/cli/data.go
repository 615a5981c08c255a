package cli

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lexatlas/wordmap/pkg/cache"
	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/config"
	"github.com/lexatlas/wordmap/pkg/errors"
	"github.com/lexatlas/wordmap/pkg/store"
)

// loadItems reads a JSON array of items from path.
func loadItems(path string) ([]store.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataLoading, err, "read items file %s", path)
	}

	var items []store.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse items file %s", path)
	}
	return items, nil
}

// buildStore constructs the item store: MongoDB-backed when configured, else
// an in-memory store seeded from itemsPath. The cleanup function stops
// polling and disconnects.
func buildStore(ctx context.Context, cfg *config.Config, itemsPath string, logger *log.Logger) (store.Store, func(), error) {
	if cfg.Data.MongoURI != "" {
		ms, err := store.NewMongoStore(ctx, store.MongoStoreOptions{
			URI:          cfg.Data.MongoURI,
			Database:     cfg.Data.MongoDatabase,
			Collection:   cfg.Data.MongoCollection,
			PollInterval: cfg.Data.Interval(),
			Logger:       logger,
		})
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeDataLoading, err, "connect to mongodb")
		}

		runCtx, cancel := context.WithCancel(ctx)
		go ms.Run(runCtx)

		cleanup := func() {
			cancel()
			if err := ms.Close(context.Background()); err != nil {
				logger.Warn("mongo disconnect failed", "err", err)
			}
		}
		return ms, cleanup, nil
	}

	ms := store.NewMemStore()
	if itemsPath != "" {
		items, err := loadItems(itemsPath)
		if err != nil {
			return nil, nil, err
		}
		ms.SetItems(items)
	}
	return ms, func() {}, nil
}

// buildCache constructs the artifact cache backend from config.
func buildCache(cfg *config.Config) (cache.Cache, error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case "", "none":
		return cache.NewNullCache(), nil
	case "file":
		return cache.NewFileCache(cfg.Cache.Dir)
	case "redis":
		return cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Cache.Backend)
	}
}

// chartOptions maps the chart config section to engine options.
func chartOptions(cfg *config.Config) chart.Options {
	return chart.Options{
		Width:       cfg.Chart.Width,
		Height:      cfg.Chart.Height,
		Palette:     cfg.Chart.Palette,
		Zoom:        cfg.Chart.ZoomEnabled(),
		Breadcrumbs: cfg.Chart.BreadcrumbsEnabled(),
	}
}
