package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/interview-brain/internal/chunker"
	"github.com/spigell/interview-brain/internal/embedding"
	"github.com/spigell/interview-brain/internal/grounding"
	"github.com/spigell/interview-brain/internal/interview"
	"github.com/spigell/interview-brain/internal/vectorstore/qdrant"
)

const (
	app = "interview-brain"
)

// ErrConfiguration marks configuration problems that must stop the process before it serves.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Server      *ServerConfig      `mapstructure:"server"`
	Content     *ContentConfig     `mapstructure:"content"`
	Indexer     *IndexerConfig     `mapstructure:"indexer"`
	Embedding   *EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore *VectorStoreConfig `mapstructure:"vector-store"`
	AI          *AIConfig          `mapstructure:"ai"`
	Interview   *InterviewConfig   `mapstructure:"interview"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed-origins"`
	IndexOnStart   bool     `mapstructure:"index-on-start"`
}

type ContentConfig struct {
	// File is a YAML corpus. The built-in corpus is used when empty.
	File string `mapstructure:"file"`
}

type IndexerConfig struct {
	ChunkSize    int `mapstructure:"chunk-size"`
	ChunkOverlap int `mapstructure:"chunk-overlap"`
}

type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	BatchSize int           `mapstructure:"batch-size"`
	Cache     *CacheConfig  `mapstructure:"cache"`
	OpenAI    *OpenAIConfig `mapstructure:"openai"`
	Gemini    *GeminiConfig `mapstructure:"gemini"`
}

type CacheConfig struct {
	Backend    string       `mapstructure:"backend"`
	MaxEntries int          `mapstructure:"max-entries"`
	Redis      *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	PasswordFile string        `mapstructure:"password-file"`
	DB           int           `mapstructure:"db"`
	TTL          time.Duration `mapstructure:"ttl"`
}

type VectorStoreConfig struct {
	Backend string        `mapstructure:"backend"`
	Qdrant  *QdrantConfig `mapstructure:"qdrant"`
}

type QdrantConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
	MaxTokens  int    `mapstructure:"max-tokens"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type InterviewConfig struct {
	CallTimeout   time.Duration `mapstructure:"call-timeout"`
	HistoryWindow int           `mapstructure:"history-window"`
	Grounding     string        `mapstructure:"grounding"`
	PerQueryLimit int           `mapstructure:"per-query-limit"`
	TopK          int           `mapstructure:"top-k"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-brain runs grounded, adaptive technical interviews from a resume and a role rubric",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"ai.openai.api-key":              "OPENAI_API_KEY",
	"ai.openai.api-key-file":         "OPENAI_API_KEY_FILE",
	"ai.gemini.api-key":              "GEMINI_API_KEY",
	"ai.gemini.api-key-file":         "GEMINI_API_KEY_FILE",
	"embedding.openai.api-key":       "OPENAI_API_KEY",
	"embedding.gemini.api-key":       "GEMINI_API_KEY",
	"vector-store.qdrant.url":        "QDRANT_URL",
	"vector-store.qdrant.api-key":    "QDRANT_API_KEY",
	"vector-store.qdrant.collection": "QDRANT_COLLECTION",
	"server.allowed-origins":         "ALLOWED_ORIGINS",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-brain.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicit config file must parse. The default one is optional: env and defaults are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate fills defaults and rejects configurations the process cannot run with.
func (c *Config) Validate() error {
	if c.Server == nil {
		c.Server = &ServerConfig{IndexOnStart: true}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	c.Server.AllowedOrigins = splitOrigins(c.Server.AllowedOrigins)

	if c.Content == nil {
		c.Content = &ContentConfig{}
	}

	if c.Indexer == nil {
		c.Indexer = &IndexerConfig{}
	}
	if c.Indexer.ChunkSize == 0 {
		c.Indexer.ChunkSize = chunker.DefaultSize
	}
	if c.Indexer.ChunkOverlap == 0 {
		c.Indexer.ChunkOverlap = chunker.DefaultOverlap
	}
	if c.Indexer.ChunkOverlap < 0 || c.Indexer.ChunkOverlap >= c.Indexer.ChunkSize {
		return fmt.Errorf("%w: indexer.chunk-overlap must be in [0, chunk-size)", ErrConfiguration)
	}

	if c.Embedding == nil {
		c.Embedding = &EmbeddingConfig{}
	}
	c.Embedding.Provider = normalize(c.Embedding.Provider, "openai")
	if !oneOf(c.Embedding.Provider, "openai", "gemini", "hashing") {
		return fmt.Errorf("%w: unsupported embedding provider %q", ErrConfiguration, c.Embedding.Provider)
	}
	if c.Embedding.Cache == nil {
		c.Embedding.Cache = &CacheConfig{}
	}
	c.Embedding.Cache.Backend = normalize(c.Embedding.Cache.Backend, "memory")
	if !oneOf(c.Embedding.Cache.Backend, "memory", "redis", "none") {
		return fmt.Errorf("%w: unsupported embedding cache backend %q", ErrConfiguration, c.Embedding.Cache.Backend)
	}
	if c.Embedding.Cache.MaxEntries < 0 {
		return fmt.Errorf("%w: embedding.cache.max-entries must not be negative", ErrConfiguration)
	}
	if c.Embedding.Cache.MaxEntries == 0 {
		c.Embedding.Cache.MaxEntries = embedding.DefaultMemoryCacheEntries
	}
	if c.Embedding.Cache.Backend == "redis" && (c.Embedding.Cache.Redis == nil || c.Embedding.Cache.Redis.Addr == "") {
		return fmt.Errorf("%w: embedding.cache.redis.addr is required for the redis cache", ErrConfiguration)
	}

	if c.VectorStore == nil {
		c.VectorStore = &VectorStoreConfig{}
	}
	c.VectorStore.Backend = normalize(c.VectorStore.Backend, "qdrant")
	switch c.VectorStore.Backend {
	case "qdrant":
		if c.VectorStore.Qdrant == nil || strings.TrimSpace(c.VectorStore.Qdrant.URL) == "" {
			return fmt.Errorf("%w: qdrant url is required (set QDRANT_URL)", ErrConfiguration)
		}
		if strings.TrimSpace(c.VectorStore.Qdrant.Collection) == "" {
			c.VectorStore.Qdrant.Collection = qdrant.DefaultCollection
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unsupported vector store backend %q", ErrConfiguration, c.VectorStore.Backend)
	}

	if c.AI == nil {
		c.AI = &AIConfig{}
	}
	c.AI.Provider = normalize(c.AI.Provider, "openai")
	if !oneOf(c.AI.Provider, "openai", "gemini") {
		return fmt.Errorf("%w: unsupported ai provider %q", ErrConfiguration, c.AI.Provider)
	}

	if c.Interview == nil {
		c.Interview = &InterviewConfig{}
	}
	if c.Interview.CallTimeout <= 0 {
		c.Interview.CallTimeout = interview.DefaultCallTimeout
	}
	if c.Interview.HistoryWindow <= 0 {
		c.Interview.HistoryWindow = interview.DefaultHistoryWindow
	}
	c.Interview.Grounding = normalize(c.Interview.Grounding, string(grounding.PolicySyntactic))
	if !oneOf(c.Interview.Grounding, string(grounding.PolicySyntactic), string(grounding.PolicyStrict)) {
		return fmt.Errorf("%w: unsupported grounding policy %q", ErrConfiguration, c.Interview.Grounding)
	}

	return nil
}

func normalize(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// splitOrigins accepts both lists and comma-separated entries.
func splitOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
