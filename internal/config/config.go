// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration with precedence
// ENV > YAML file > defaults and hot-reloads it when the file changes.
package config

import "time"

// AppConfig is the effective configuration. The same shape is used for the
// YAML file; fields absent from the file keep their defaults.
type AppConfig struct {
	Version string `yaml:"-"`

	DataDir   string `yaml:"dataDir"`
	LogLevel  string `yaml:"logLevel"`
	Quality   string `yaml:"quality"`
	PublicURL string `yaml:"publicURL"`

	Catalog      CatalogConfig      `yaml:"catalog"`
	Proxy        ProxyConfig        `yaml:"proxy"`
	Resolver     ResolverConfig     `yaml:"resolver"`
	Cache        CacheConfig        `yaml:"cache"`
	Store        StoreConfig        `yaml:"store"`
	Continuation ContinuationConfig `yaml:"continuation"`
	Download     DownloadConfig     `yaml:"download"`
	API          APIConfig          `yaml:"api"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

type CatalogConfig struct {
	BaseURL          string        `yaml:"baseURL"`
	ClientName       string        `yaml:"clientName"`
	ClientVersion    string        `yaml:"clientVersion"`
	Timeout          time.Duration `yaml:"timeout"`
	RateLimit        float64       `yaml:"rateLimit"` // requests per second
	Burst            int           `yaml:"burst"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

type ProxyConfig struct {
	Type string `yaml:"type"` // none|http|socks5
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ResolverConfig struct {
	WindowBytes    int64         `yaml:"windowBytes"`
	ResolveTimeout time.Duration `yaml:"resolveTimeout"`
	MemoCapacity   int           `yaml:"memoCapacity"`
}

type CacheConfig struct {
	Backend string `yaml:"backend"` // disk|memory
	// Dir defaults to <dataDir>/rangecache.
	Dir string `yaml:"dir"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"` // sqlite|memory|redis
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
}

type ContinuationConfig struct {
	MaxDepth    int           `yaml:"maxDepth"`
	PlaylistTTL time.Duration `yaml:"playlistTTL"`
}

type DownloadConfig struct {
	MaxParallel int    `yaml:"maxParallel"`
	ChunkBytes  int64  `yaml:"chunkBytes"`
	ExportDir   string `yaml:"exportDir"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit       int           `yaml:"rateLimit"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc|http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  "/var/lib/streamres",
		LogLevel: "info",
		Quality:  "auto",
		Catalog: CatalogConfig{
			ClientName:       "WEB_REMIX",
			ClientVersion:    "1.20250101.01.00",
			Timeout:          15 * time.Second,
			RateLimit:        10,
			Burst:            20,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Proxy: ProxyConfig{Type: "none"},
		Resolver: ResolverConfig{
			WindowBytes:    10 << 20,
			ResolveTimeout: 20 * time.Second,
			MemoCapacity:   2,
		},
		Cache: CacheConfig{Backend: "disk"},
		Store: StoreConfig{Backend: "sqlite"},
		Continuation: ContinuationConfig{
			MaxDepth:    50,
			PlaylistTTL: 10 * time.Minute,
		},
		Download: DownloadConfig{
			MaxParallel: 2,
			ChunkBytes:  1 << 20,
		},
		API: APIConfig{
			ListenAddr:      ":8088",
			RateLimit:       600,
			ShutdownTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
