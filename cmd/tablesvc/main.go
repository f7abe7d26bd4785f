// Command tablesvc runs the card table coordinator as a standalone HTTP
// service, outside Nakama.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tcgtable/internal/app"
	"tcgtable/internal/config"
	"tcgtable/internal/logger"
	"tcgtable/internal/ports"
	"tcgtable/internal/ports/httpapi"
	"tcgtable/internal/ports/memory"
	"tcgtable/internal/ports/redisstore"
	"tcgtable/internal/ports/sqlstore"

	"github.com/gin-gonic/gin"
)

type stores struct {
	tables   ports.TableStore
	profiles ports.ProfileStore
	close    func() error
}

func openStores(ctx context.Context, cfg config.ServerConfig) (stores, error) {
	switch cfg.Store {
	case config.StoreRedis:
		client, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return stores{}, err
		}
		s := redisstore.NewStore(client)
		return stores{tables: s, profiles: s, close: client.Close}, nil
	case config.StoreSQLite:
		s, err := sqlstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		return stores{tables: s, profiles: s, close: s.Close}, nil
	case config.StorePostgres:
		s, err := sqlstore.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return stores{}, err
		}
		return stores{tables: s, profiles: s, close: s.Close}, nil
	default:
		s := memory.NewStore()
		return stores{tables: s, profiles: s, close: func() error { return nil }}, nil
	}
}

func main() {
	log := logger.Default()
	defer log.Sync()

	cfg, err := config.ParseServerConfig()
	if err != nil {
		log.Fatal("invalid server config: %v", err)
	}
	tableCfg, err := cfg.LoadTable()
	if err != nil {
		log.Fatal("invalid table config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open %s store: %v", cfg.Store, err)
	}

	coord, err := app.NewCoordinator(app.Dependencies{Tables: st.tables, Profiles: st.profiles}, tableCfg)
	if err != nil {
		log.Fatal("failed to build coordinator: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.NewHandler(coord, log)),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed: %v", err)
		}
	}()

	log.WithFields(map[string]interface{}{
		"addr":  cfg.HTTPAddr,
		"store": cfg.Store,
	}).Info("tablesvc started")

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed: %v", err)
	}
	if err := st.close(); err != nil {
		log.Error("failed to close store: %v", err)
	}
	log.Info("tablesvc stopped cleanly")
}
