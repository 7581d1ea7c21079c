package config

import (
	"context"
	"path/filepath"

	"github.com/matzehuels/upgraph/pkg/artifact"
	"github.com/matzehuels/upgraph/pkg/cache"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/store"
)

// OpenCache builds the configured layout cache.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheMemory:
		mc, err := cache.NewMemoryCache(c.Cache.Size)
		if err != nil {
			return nil, err
		}
		return mc, nil
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, c.Cache.RedisURL, c.Cache.Prefix)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCache, err, "connect redis")
		}
		return rc, nil
	}
	dir := c.Cache.Dir
	if dir == "" {
		d, err := CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCache, err, "open cache dir")
	}
	return fc, nil
}

// OpenStore builds the configured snapshot store.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Store.Backend {
	case StoreFile:
		fs, err := store.NewFileStore(c.Store.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "open snapshot dir")
		}
		return fs, nil
	case StoreMongo:
		ms, err := store.NewMongoStore(ctx, c.Store.MongoURI, c.Store.Database, c.Store.Collection)
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	return store.NewMemoryStore(), nil
}

// OpenSink builds the configured artifact sink.
func (c *Config) OpenSink() (artifact.Sink, error) {
	if c.Artifacts.Backend == ArtifactS3 {
		s3, err := artifact.NewS3Sink(c.Artifacts.S3)
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	dir := c.Artifacts.Dir
	if dir == "" {
		dir = "."
	}
	fs, err := artifact.NewFileSink(filepath.Clean(dir))
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// Keyer returns the cache keyer. Redis applies the prefix itself; other
// backends get it through the keys.
func (c *Config) Keyer() cache.Keyer {
	if c.Cache.Prefix == "" || c.Cache.Backend == CacheRedis {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.Cache.Prefix)
}
