package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/fountkit/fount"
	"github.com/fountkit/fount/internal/config"
	"github.com/fountkit/fount/internal/statusapi"
	"github.com/fountkit/fount/internal/statusmirror"
)

func main() {
	cfgPath := "fountdemo.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := buildLogger()
	defer log.Sync()
	log = log.Named("main")

	opts := []fount.Option{fount.WithLogger(log), fount.WithName("demo")}
	if limit, burst, ok := cfg.RateLimit(); ok {
		opts = append(opts, fount.WithSpawnRateLimit(limit, burst))
	}

	f, err := fount.New(demoFactory{}, cfg.SlabSize, cfg.Depth, opts...)
	if err != nil {
		log.Fatal("fount construction failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, egCtx := errgroup.WithContext(ctx)

	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery())
		statusapi.Register(r, f, log)

		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
		eg.Go(func() error {
			log.Info("status http listening", zap.String("addr", cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.StatusMirror.Enabled {
		rdb := buildRedisClient(cfg.StatusMirror.RedisDSN, cfg.StatusMirror.RedisDB)
		eg.Go(func() error {
			statusmirror.Mirror(egCtx, rdb, cfg.StatusMirror.Key, 2*time.Second, f, log)
			return rdb.Close()
		})
	}

	<-ctx.Done()
	log.Info("shutting down")

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.Close(closeCtx); err != nil {
		log.Error("fount close failed", zap.Error(err))
	}

	if err := eg.Wait(); err != nil {
		log.Error("demo server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}

func buildRedisClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})
}
