package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPDFPath  = "esi_handbook.pdf"
	DefaultStoreDir = "./knowledge_db"

	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	DefaultGeminiModel  = "models/text-embedding-004"
	DefaultGeminiKeyEnv = "GOOGLE_API_KEY"
)

// ErrMissingCredential is returned when the embedder's API key is not set.
var ErrMissingCredential = errors.New("missing credential")

// InputConfig names the document to ingest.
type InputConfig struct {
	PDFPath string `yaml:"pdf_path"`
}

// LoaderConfig selects the PDF text extraction backend.
type LoaderConfig struct {
	Type string `yaml:"type"`
}

// ChunkerConfig configures how pages are split into chunks.
type ChunkerConfig struct {
	Type              string   `yaml:"type"`
	ChunkSize         int      `yaml:"chunk_size"`
	ChunkOverlap      int      `yaml:"chunk_overlap"`
	Separators        []string `yaml:"separators,omitempty"`
	SentencesPerChunk int      `yaml:"sentences_per_chunk"`
	OverlapSentences  int      `yaml:"overlap_sentences"`
}

// GeminiEmbedderConfig holds configuration for the Gemini embeddings API.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	TaskType  string `yaml:"task_type"`
	BaseURL   string `yaml:"base_url,omitempty"`
	BatchSize int    `yaml:"batch_size"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Gemini *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string        `yaml:"type"`
	Dir        string        `yaml:"dir"`
	Collection string        `yaml:"collection"`
	Reset      bool          `yaml:"reset"`
	Qdrant     *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Input       InputConfig       `yaml:"input"`
	Loader      LoaderConfig      `yaml:"loader"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Log         LogConfig         `yaml:"log"`
}

// LoadEnv loads a .env file from dir into the process environment.
// Variables that are already set win; a missing file is not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	// Decode over the defaults so keys absent from the file keep their default
	// while explicit zero values (chunk_overlap: 0) survive.
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyConfigDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault reads ./config.yaml when present and falls back to defaults.
func LoadDefault() (*AppConfig, string, error) {
	const cwdPath = "config.yaml"
	cfg, err := Load(cwdPath)
	if err != nil {
		return nil, "", err
	}
	if _, statErr := os.Stat(cwdPath); statErr != nil {
		return cfg, "", nil
	}
	return cfg, cwdPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CredentialEnv returns the environment variable holding the API key for the
// configured embedder, or "" when the embedder runs locally.
func (c *AppConfig) CredentialEnv() string {
	switch c.Embedder.Type {
	case "gemini", "":
		if c.Embedder.Gemini != nil && c.Embedder.Gemini.APIKeyEnv != "" {
			return c.Embedder.Gemini.APIKeyEnv
		}
		return DefaultGeminiKeyEnv
	case "openai":
		if c.Embedder.OpenAI != nil && c.Embedder.OpenAI.APIKeyEnv != "" {
			return c.Embedder.OpenAI.APIKeyEnv
		}
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// RequireCredential fails when the embedder's API key is absent from the environment.
func (c *AppConfig) RequireCredential() error {
	env := c.CredentialEnv()
	if env == "" {
		return nil
	}
	if strings.TrimSpace(os.Getenv(env)) == "" {
		return fmt.Errorf("%w: %s not found in environment or .env file", ErrMissingCredential, env)
	}
	return nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Input:  InputConfig{PDFPath: DefaultPDFPath},
		Loader: LoaderConfig{Type: "native"},
		Chunker: ChunkerConfig{
			Type:              "recursive",
			ChunkSize:         DefaultChunkSize,
			ChunkOverlap:      DefaultChunkOverlap,
			SentencesPerChunk: 5,
			OverlapSentences:  1,
		},
		Embedder:    EmbedderConfig{Type: "gemini"},
		VectorStore: VectorStoreConfig{Type: "sqlite", Dir: DefaultStoreDir, Collection: "knowledge"},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Input.PDFPath == "" {
		cfg.Input.PDFPath = DefaultPDFPath
	}
	if cfg.Loader.Type == "" {
		cfg.Loader.Type = "native"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = DefaultChunkSize
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "gemini"
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = DefaultGeminiKeyEnv
		}
		if cfg.Embedder.Gemini.Model == "" {
			cfg.Embedder.Gemini.Model = DefaultGeminiModel
		}
		if cfg.Embedder.Gemini.TaskType == "" {
			cfg.Embedder.Gemini.TaskType = "RETRIEVAL_DOCUMENT"
		}
		if cfg.Embedder.Gemini.BatchSize == 0 {
			cfg.Embedder.Gemini.BatchSize = 100
		}
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Dir == "" {
		cfg.VectorStore.Dir = DefaultStoreDir
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "knowledge"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("KBINGEST_PDF_PATH"); v != "" {
		cfg.Input.PDFPath = v
	}
	if v := os.Getenv("KBINGEST_STORE_DIR"); v != "" {
		cfg.VectorStore.Dir = v
	}
	if v := os.Getenv("KBINGEST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
