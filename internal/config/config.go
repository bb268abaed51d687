package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendChromem  = "chromem"
	BackendPGVector = "pgvector"

	defaultAddr        = ":8501"
	defaultLogLevel    = "info"
	defaultMaxUploadMB = 64
	defaultUploadPath  = "uploaded_file.pdf"
	defaultOllamaURL   = "http://localhost:11434"
	defaultChunkSize   = 500
	defaultTopK        = 4
	defaultCollection  = "pdf_chunks"
	defaultDriver      = "pgdriver"
	defaultVectorSize  = 384
)

type Config struct {
	LogLevel     string         `yaml:"log_level"`
	UploadPath   string         `yaml:"upload_path"`
	Server       ServerConfig   `yaml:"server"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
	VectorDB     VectorDBConfig `yaml:"vector_db"`
	Database     DatabaseConfig `yaml:"database"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// LLMConfig points at a local model service. The model names themselves are
// fixed, see models.InferenceModel and models.EmbeddingModel.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

type VectorDBConfig struct {
	Backend    string `yaml:"backend"`
	Collection string `yaml:"collection"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password" json:"-"`
	VectorSize int    `yaml:"vector_size"`
	Debug      bool   `yaml:"debug"`
}

// LoadConfig reads the YAML file at path, falling back to defaults when it
// does not exist, then applies .env and PDFQA_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel:     defaultLogLevel,
		UploadPath:   defaultUploadPath,
		Server:       ServerConfig{Addr: defaultAddr, MaxUploadMB: defaultMaxUploadMB},
		EmbedLLM:     LLMConfig{BaseURL: defaultOllamaURL},
		InferenceLLM: LLMConfig{BaseURL: defaultOllamaURL},
		RAG:          RAGConfig{ChunkSize: defaultChunkSize, ChunkOverlap: 0, TopK: defaultTopK},
		VectorDB:     VectorDBConfig{Backend: BackendChromem, Collection: defaultCollection},
		Database:     DatabaseConfig{Driver: defaultDriver, VectorSize: defaultVectorSize},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be > 0, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be >= 0 and < chunk_size, got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be > 0, got %d", c.RAG.TopK)
	}
	switch c.VectorDB.Backend {
	case BackendChromem:
	case BackendPGVector:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the pgvector backend")
		}
		if c.Database.VectorSize <= 0 {
			return fmt.Errorf("database.vector_size must be > 0, got %d", c.Database.VectorSize)
		}
		if c.Database.Driver != "pgdriver" && c.Database.Driver != "pq" {
			return fmt.Errorf("unknown database.driver: %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown vector_db.backend: %s", c.VectorDB.Backend)
	}
	return nil
}

// Redacted returns a copy safe to log: the password is dropped and any
// password inside the DSN is masked.
func (c Config) Redacted() Config {
	c.Database.Password = ""
	if c.Database.DSN == "" {
		return c
	}
	u, err := url.Parse(c.Database.DSN)
	if err != nil {
		c.Database.DSN = "<redacted>"
		return c
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	q := u.Query()
	if q.Has("password") {
		q.Set("password", "xxxxx")
		u.RawQuery = q.Encode()
	}
	c.Database.DSN = u.String()
	return c
}

func applyEnv(cfg *Config) error {
	setString(&cfg.LogLevel, "PDFQA_LOG_LEVEL")
	setString(&cfg.UploadPath, "PDFQA_UPLOAD_PATH")
	setString(&cfg.Server.Addr, "PDFQA_ADDR")
	setString(&cfg.EmbedLLM.BaseURL, "PDFQA_EMBED_URL")
	setString(&cfg.InferenceLLM.BaseURL, "PDFQA_LLM_URL")
	setString(&cfg.VectorDB.Backend, "PDFQA_VECTOR_BACKEND")
	setString(&cfg.Database.DSN, "PDFQA_DATABASE_DSN")
	setString(&cfg.Database.Password, "PDFQA_DATABASE_PASSWORD")

	if v := os.Getenv("PDFQA_TOP_K"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PDFQA_TOP_K must be a valid integer: %w", err)
		}
		cfg.RAG.TopK = k
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// zero values left by a partial YAML file fall back to defaults; chunk_overlap
// is legitimately 0 and is left alone
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.UploadPath == "" {
		cfg.UploadPath = defaultUploadPath
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = defaultOllamaURL
	}
	if cfg.InferenceLLM.BaseURL == "" {
		cfg.InferenceLLM.BaseURL = defaultOllamaURL
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.VectorDB.Backend == "" {
		cfg.VectorDB.Backend = BackendChromem
	}
	if cfg.VectorDB.Collection == "" {
		cfg.VectorDB.Collection = defaultCollection
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaultDriver
	}
	if cfg.Database.VectorSize == 0 {
		cfg.Database.VectorSize = defaultVectorSize
	}
}
