package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingEnv = errors.New("missing required environment variable")

const (
	BackendAstra    = "astra"
	BackendMilvus   = "milvus"
	BackendWeaviate = "weaviate"
	// BackendMemory keeps vectors in process; intended for local runs and tests.
	BackendMemory = "memory"
)

type Config struct {
	Server      ServerConfig
	Astra       AstraConfig
	VectorStore VectorStoreConfig
	Milvus      MilvusConfig
	Weaviate    WeaviateConfig
	LLM         LLMConfig
	Ingestion   IngestionConfig
	Retrieval   RetrievalConfig
	Flare       FlareConfig
	Query       QueryConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
	Development  bool
}

type AstraConfig struct {
	Keyspace          string
	SecureBundlePath  string
	ApplicationToken  string
	ConnectTimeoutSec int
	BatchSize         int
}

type VectorStoreConfig struct {
	Backend   string
	TableName string
	VectorDim int
}

type MilvusConfig struct {
	Endpoint string
}

type WeaviateConfig struct {
	Host   string
	APIKey string
}

type LLMConfig struct {
	APIKey             string
	BaseURL            string
	Model              string
	Temperature        float32
	EmbeddingModel     string
	EmbeddingBatchSize int
	TimeoutSec         int
	MaxAttempts        int
}

type IngestionConfig struct {
	Sources         []string
	Selector        string
	UserAgent       string
	ChunkSize       int
	ChunkOverlap    int
	Encoding        string
	FetchTimeoutSec int
}

type RetrievalConfig struct {
	TopK int
}

type FlareConfig struct {
	MaxGenerationLen int
	MinProb          float64
	MinTokenGap      int
	NumPadTokens     int
	MaxIter          int
}

type QueryConfig struct {
	DefaultQuery string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// requiredEnv maps config keys to the environment variables that must set them.
var requiredEnv = []struct {
	key string
	env string
}{
	{"astra.keyspace", "ASTRA_DB_KEYSPACE"},
	{"astra.secureBundlePath", "ASTRA_DB_SECURE_BUNDLE_PATH"},
	{"astra.applicationToken", "ASTRA_DB_APPLICATION_TOKEN"},
	{"llm.apiKey", "OPENAI_API_KEY"},
}

// Load reads .env, an optional YAML file and the process environment, in that
// order of increasing precedence. An empty path searches the default locations.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/lawchat")
	}

	v.SetEnvPrefix("LAWCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, r := range requiredEnv {
		if err := v.BindEnv(r.key, r.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", r.env, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate fails fast on missing secrets and inconsistent chunking parameters.
// All four secrets are required whichever backend is selected.
func (c *Config) Validate() error {
	values := map[string]string{
		"ASTRA_DB_KEYSPACE":           c.Astra.Keyspace,
		"ASTRA_DB_SECURE_BUNDLE_PATH": c.Astra.SecureBundlePath,
		"ASTRA_DB_APPLICATION_TOKEN":  c.Astra.ApplicationToken,
		"OPENAI_API_KEY":              c.LLM.APIKey,
	}

	var missing []string
	for _, r := range requiredEnv {
		if strings.TrimSpace(values[r.env]) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	switch c.VectorStore.Backend {
	case BackendAstra, BackendMilvus, BackendWeaviate, BackendMemory:
	default:
		return fmt.Errorf("unknown vector store backend %q", c.VectorStore.Backend)
	}

	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunkSize must be positive, got %d", c.Ingestion.ChunkSize)
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("ingestion.chunkOverlap must be in [0, %d), got %d", c.Ingestion.ChunkSize, c.Ingestion.ChunkOverlap)
	}
	if len(c.Ingestion.Sources) == 0 {
		return errors.New("ingestion.sources must not be empty")
	}
	if c.VectorStore.VectorDim <= 0 {
		return fmt.Errorf("vectorStore.vectorDim must be positive, got %d", c.VectorStore.VectorDim)
	}

	return nil
}

var DefaultSources = []string{
	"https://www.austlii.edu.au/cgi-bin/viewdoc/au/cases/nsw/NSWSC/1998/423.html",
	"https://www8.austlii.edu.au/cgi-bin/viewdoc/au/cases/nsw/NSWSC/2002/949.html",
	"https://www8.austlii.edu.au/cgi-bin/viewdoc/au/cases/nsw/NSWSC/1998/4.html",
	"https://www8.austlii.edu.au/cgi-bin/viewdoc/au/cases/nsw/NSWSC/2005/1181.html",
	"https://www8.austlii.edu.au/cgi-bin/viewdoc/au/cases/nsw/NSWSC/1998/483.html",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.development", false)

	v.SetDefault("astra.connectTimeoutSec", 10)
	v.SetDefault("astra.batchSize", 20)

	v.SetDefault("vectorStore.backend", BackendAstra)
	v.SetDefault("vectorStore.tableName", "nswsc")
	v.SetDefault("vectorStore.vectorDim", 1536)

	v.SetDefault("milvus.endpoint", "localhost:19530")

	v.SetDefault("weaviate.host", "http://localhost:8080")
	v.SetDefault("weaviate.apiKey", "")

	v.SetDefault("llm.baseURL", "")
	v.SetDefault("llm.model", "gpt-3.5-turbo-16k")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.embeddingModel", "text-embedding-ada-002")
	v.SetDefault("llm.embeddingBatchSize", 100)
	v.SetDefault("llm.timeoutSec", 60)
	v.SetDefault("llm.maxAttempts", 1)

	v.SetDefault("ingestion.sources", DefaultSources)
	v.SetDefault("ingestion.selector", "article.the-document")
	v.SetDefault("ingestion.userAgent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.0.0 Safari/537.36")
	v.SetDefault("ingestion.chunkSize", 500)
	v.SetDefault("ingestion.chunkOverlap", 50)
	v.SetDefault("ingestion.encoding", "cl100k_base")
	v.SetDefault("ingestion.fetchTimeoutSec", 30)

	v.SetDefault("retrieval.topK", 2)

	v.SetDefault("flare.maxGenerationLen", 164)
	v.SetDefault("flare.minProb", 0.3)
	v.SetDefault("flare.minTokenGap", 5)
	v.SetDefault("flare.numPadTokens", 2)
	v.SetDefault("flare.maxIter", 10)

	v.SetDefault("query.defaultQuery", "What are the sentencing guidelines to follow")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
