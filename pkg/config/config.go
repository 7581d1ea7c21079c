// Package config loads upgraph settings.
//
// Settings come from three layers, later ones winning:
//
//  1. Built-in defaults ([Default])
//  2. A TOML file: the path passed to [Load], else ./upgraph.toml, else
//     $XDG_CONFIG_HOME/upgraph/config.toml
//  3. Environment variables named UPGRAPH_<SECTION>_<KEY>, optionally set
//     from a .env file in the working directory
//
// Command-line flags are applied on top by the CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/upgraph/pkg/artifact"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/pipeline"
)

// AppName names the config, cache and data directories.
const AppName = "upgraph"

// FileName is the project-local config file.
const FileName = "upgraph.toml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "UPGRAPH_"

// Config is the complete upgraph configuration.
type Config struct {
	Render    RenderConfig   `toml:"render"`
	Cache     CacheConfig    `toml:"cache"`
	Store     StoreConfig    `toml:"store"`
	Artifacts ArtifactConfig `toml:"artifacts"`
	Server    ServerConfig   `toml:"server"`

	// Path is the file the config was read from, if any.
	Path string `toml:"-"`
}

// RenderConfig holds the default render options.
type RenderConfig struct {
	Layout       string   `toml:"layout"`
	EdgeStyle    string   `toml:"edge_style"`
	FitView      bool     `toml:"fit_view"`
	Views        []string `toml:"views"`
	FieldView    string   `toml:"field_view"`
	TagArgs      bool     `toml:"tag_args"`
	CharWidth    float64  `toml:"char_width"`
	NestedEngine string   `toml:"nested_engine"`
	TreeEngine   string   `toml:"tree_engine"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig selects the layout cache.
type CacheConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	Size     int    `toml:"size"`
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreMongo  = "mongo"
)

// StoreConfig selects where committed snapshots are kept.
type StoreConfig struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Artifact backends.
const (
	ArtifactFile = "file"
	ArtifactS3   = "s3"
)

// ArtifactConfig selects where exported files go.
type ArtifactConfig struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"`
	S3      artifact.S3Config `toml:"s3"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr          string        `toml:"addr"`
	MaxSessions   int           `toml:"max_sessions"`
	RenderTimeout time.Duration `toml:"render_timeout"`
	AllowOrigins  []string      `toml:"allow_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Layout:       string(pipeline.DefaultLayout),
			EdgeStyle:    string(pipeline.DefaultEdgeStyle),
			FieldView:    string(pipeline.DefaultFieldView),
			CharWidth:    pipeline.DefaultCharWidth,
			NestedEngine: pipeline.DefaultEngine,
			TreeEngine:   pipeline.DefaultEngine,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Size:    1024,
			Prefix:  AppName + ":",
		},
		Store: StoreConfig{
			Backend:    StoreMemory,
			Database:   AppName,
			Collection: "snapshots",
		},
		Artifacts: ArtifactConfig{
			Backend: ArtifactFile,
			Dir:     "upgraph-out",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			MaxSessions:   256,
			RenderTimeout: 30 * time.Second,
		},
	}
}

// Load reads the configuration. An empty path searches the default
// locations; a missing default file is not an error, a missing explicit
// one is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, err, "read .env")
	}

	cfg := Default()
	file := path
	if file == "" {
		file = findFile()
	}
	if file != "" {
		if _, err := toml.DecodeFile(file, cfg); err != nil {
			if path == "" && os.IsNotExist(err) {
				file = ""
			} else if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", file)
			} else {
				return nil, errors.Wrap(errors.ErrCodeMalformedInput, err, "parse %s", file)
			}
		}
	}
	cfg.Path = file

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text on top of the defaults without reading the
// environment.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, err, "parse config")
	}
	return cfg, cfg.Validate()
}

func findFile() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	dir, err := Dir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Dir returns the config directory (~/.config/upgraph).
func Dir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// CacheDir returns the cache directory (~/.cache/upgraph).
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// Validate checks backend names and render options.
func (c *Config) Validate() error {
	if _, err := c.Options(); err != nil {
		return err
	}
	if err := oneOf("cache.backend", c.Cache.Backend, CacheNone, CacheFile, CacheMemory, CacheRedis); err != nil {
		return err
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis_url is required for the redis backend")
	}
	if err := oneOf("store.backend", c.Store.Backend, StoreMemory, StoreFile, StoreMongo); err != nil {
		return err
	}
	if c.Store.Backend == StoreMongo && c.Store.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "store.mongo_uri is required for the mongo backend")
	}
	if err := oneOf("artifacts.backend", c.Artifacts.Backend, ArtifactFile, ArtifactS3); err != nil {
		return err
	}
	if c.Server.RenderTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "server.render_timeout must not be negative")
	}
	return nil
}

// Options converts the render section to validated pipeline options.
func (c *Config) Options() (pipeline.Options, error) {
	r := c.Render
	opts := pipeline.Options{
		Layout:       r.Layout,
		EdgeStyle:    r.EdgeStyle,
		FitView:      r.FitView,
		Views:        append([]string(nil), r.Views...),
		FieldView:    r.FieldView,
		TagArgs:      r.TagArgs,
		CharWidth:    r.CharWidth,
		NestedEngine: r.NestedEngine,
		TreeEngine:   r.TreeEngine,
	}
	check := opts
	if err := check.ValidateAndSetDefaults(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

func oneOf(name, value string, valid ...string) error {
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown %s %q (valid: %s)", name, value, strings.Join(valid, ", "))
}

// applyEnv overrides fields from UPGRAPH_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = splitList(v)
		}
	}
	var firstErr error
	parse := func(key string, set func(string) error) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || firstErr != nil {
			return
		}
		if err := set(strings.TrimSpace(v)); err != nil {
			firstErr = errors.Wrap(errors.ErrCodeInvalidInput, err, "%s%s", EnvPrefix, key)
		}
	}
	boolean := func(key string, dst *bool) {
		parse(key, func(v string) (err error) { *dst, err = strconv.ParseBool(v); return })
	}
	integer := func(key string, dst *int) {
		parse(key, func(v string) (err error) { *dst, err = strconv.Atoi(v); return })
	}

	str("RENDER_LAYOUT", &c.Render.Layout)
	str("RENDER_EDGE_STYLE", &c.Render.EdgeStyle)
	boolean("RENDER_FIT_VIEW", &c.Render.FitView)
	list("RENDER_VIEWS", &c.Render.Views)
	str("RENDER_FIELD_VIEW", &c.Render.FieldView)
	boolean("RENDER_TAG_ARGS", &c.Render.TagArgs)
	parse("RENDER_CHAR_WIDTH", func(v string) (err error) { c.Render.CharWidth, err = strconv.ParseFloat(v, 64); return })
	str("RENDER_NESTED_ENGINE", &c.Render.NestedEngine)
	str("RENDER_TREE_ENGINE", &c.Render.TreeEngine)

	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_DIR", &c.Cache.Dir)
	integer("CACHE_SIZE", &c.Cache.Size)
	str("CACHE_REDIS_URL", &c.Cache.RedisURL)
	str("CACHE_PREFIX", &c.Cache.Prefix)

	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_DIR", &c.Store.Dir)
	str("STORE_MONGO_URI", &c.Store.MongoURI)
	str("STORE_DATABASE", &c.Store.Database)
	str("STORE_COLLECTION", &c.Store.Collection)

	str("ARTIFACTS_BACKEND", &c.Artifacts.Backend)
	str("ARTIFACTS_DIR", &c.Artifacts.Dir)
	str("ARTIFACTS_S3_ENDPOINT", &c.Artifacts.S3.Endpoint)
	str("ARTIFACTS_S3_REGION", &c.Artifacts.S3.Region)
	str("ARTIFACTS_S3_ACCESS_KEY", &c.Artifacts.S3.AccessKey)
	str("ARTIFACTS_S3_SECRET_KEY", &c.Artifacts.S3.SecretKey)
	str("ARTIFACTS_S3_BUCKET", &c.Artifacts.S3.Bucket)
	boolean("ARTIFACTS_S3_USE_SSL", &c.Artifacts.S3.UseSSL)

	str("SERVER_ADDR", &c.Server.Addr)
	integer("SERVER_MAX_SESSIONS", &c.Server.MaxSessions)
	parse("SERVER_RENDER_TIMEOUT", func(v string) (err error) { c.Server.RenderTimeout, err = time.ParseDuration(v); return })
	list("SERVER_ALLOW_ORIGINS", &c.Server.AllowOrigins)

	// PORT is honored for container platforms that only set it.
	if port, ok := lookup("PORT"); ok && port != "" {
		if _, set := lookup(EnvPrefix + "SERVER_ADDR"); !set {
			if strings.HasPrefix(port, ":") {
				c.Server.Addr = port
			} else {
				c.Server.Addr = ":" + port
			}
		}
	}
	return firstErr
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
