package main

import (
	"context"
	"fmt"

	"github.com/lmco/eurekastreams-sub009/internal/adapters/blob"
	"github.com/lmco/eurekastreams-sub009/internal/adapters/cache"
	sqliteadapter "github.com/lmco/eurekastreams-sub009/internal/adapters/db/sqlite"
	"github.com/lmco/eurekastreams-sub009/internal/application"
	"github.com/lmco/eurekastreams-sub009/internal/config"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/lmco/eurekastreams-sub009/internal/worker"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// stack is the wired application used by the server and by local maintenance commands.
type stack struct {
	cfg     config.Config
	log     *logrus.Logger
	db      *gorm.DB
	service *application.Service
	exec    *application.Executor
	queue   *worker.Queue
	closers []func() error
}

func openStack(ctx context.Context, cfg config.Config, log *logrus.Logger) (*stack, error) {
	st := &stack{cfg: cfg, log: log}

	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	st.db = db
	st.closers = append(st.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := sqliteadapter.RunMigrations(ctx, db, log); err != nil {
		st.Close()
		return nil, err
	}

	c, err := st.openCache(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	blobs, err := st.openBlobs(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	st.service = application.NewService(sqliteadapter.NewRepository(db), c, blobs, log, application.Options{
		RootOrgShortName:   cfg.RootOrgShortName,
		MaxCacheListSize:   cfg.MaxCacheListSize,
		UsageRetentionDays: cfg.UsageRetentionDays,
		EmailTokenSecret:   cfg.EmailTokenSecret,
		InboundEmailUser:   cfg.InboundEmailUser,
		InboundEmailDomain: cfg.InboundEmailDomain,
	})
	st.queue = worker.NewQueue(cfg.QueueSize, log)
	st.exec = application.NewExecutor(st.queue, log)
	st.exec.Register(st.service.Actions()...)
	return st, nil
}

func (st *stack) openCache(ctx context.Context) (domain.Cache, error) {
	if st.cfg.CacheDriver == "redis" {
		client, err := cache.DialRedis(ctx, st.cfg.RedisAddr, st.cfg.RedisDB, st.cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", st.cfg.RedisAddr, err)
		}
		st.closers = append(st.closers, client.Close)
		st.log.WithField("addr", st.cfg.RedisAddr).Info("using redis cache")
		return cache.NewRedis(client, st.cfg.RedisPrefix, st.cfg.MaxCacheListSize), nil
	}
	return cache.NewMemory(st.cfg.CacheSize, st.cfg.MaxCacheListSize)
}

func (st *stack) openBlobs(ctx context.Context) (domain.BlobStore, error) {
	if st.cfg.BlobDriver == "s3" {
		st.log.WithField("bucket", st.cfg.S3Bucket).Info("using s3 blob store")
		return blob.NewS3(ctx, blob.S3Config{
			Region:          st.cfg.S3Region,
			Bucket:          st.cfg.S3Bucket,
			Endpoint:        st.cfg.S3Endpoint,
			AccessKeyID:     st.cfg.S3AccessKeyID,
			SecretAccessKey: st.cfg.S3SecretKey,
			PathStyle:       st.cfg.S3PathStyle,
		})
	}
	return blob.NewFS(st.cfg.BlobDir)
}

// Close releases resources in reverse order of acquisition.
func (st *stack) Close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			st.log.WithError(err).Warn("close failed")
		}
	}
	st.closers = nil
}
