package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	LLM      LLMConfig
	Job      JobConfig
	Agents   map[string]AgentConfig
	Database DatabaseConfig
	Storage  StorageConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
	UploadLimit  int64 // 上传文件大小上限（MB）
}

// LLMConfig 模型端点配置
type LLMConfig struct {
	ModelName             string
	APIKey                string
	BaseURL               string
	Timeout               int // 秒，0 表示使用 HTTP 客户端默认值
	GuidedDecodingBackend string
}

// ChunkingConfig 切分配置
type ChunkingConfig struct {
	Strategy    string
	ChunkSize   int
	OverlapSize int
}

// JobConfig 任务默认配置
type JobConfig struct {
	Mode       string
	InputFile  string
	OutputDir  string
	MaxWorkers int
	Variants   int
	Chunking   ChunkingConfig
}

// AgentConfig 单个阶段的提示词覆盖
type AgentConfig struct {
	SystemPrompt string
}

// DatabaseConfig 数据库配置，未启用时任务历史只保存在内存中
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// StorageConfig 产物存储配置
type StorageConfig struct {
	Type  string
	MinIO MinIOConfig
}

// MinIOConfig MinIO 配置
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLPrefix string
}

// Load 加载配置
// path 为空或文件不存在时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			log.Printf("Config file %s not found, using defaults", path)
		}
	}

	// 环境变量
	v.SetEnvPrefix("NEXT_AUGMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv 读取 .env，文件不存在时忽略
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("Warning: failed to load %s: %v", path, err)
	}
}

// bindLegacyEnv 兼容旧的 LLM_* 环境变量
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("llm.apiKey", "NEXT_AUGMENT_LLM_APIKEY", "LLM_API_KEY")
	_ = v.BindEnv("llm.baseUrl", "NEXT_AUGMENT_LLM_BASEURL", "LLM_BASE_URL")
	_ = v.BindEnv("llm.modelName", "NEXT_AUGMENT_LLM_MODELNAME", "LLM_MODEL_NAME")
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SystemPrompt 返回阶段提示词覆盖，没有配置时返回空串
func (c *Config) SystemPrompt(stage string) string {
	if c.Agents == nil {
		return ""
	}
	// viper 的 key 不区分大小写，统一按小写查找
	if a, ok := c.Agents[strings.ToLower(stage)]; ok {
		return a.SystemPrompt
	}
	return ""
}

// JobConfig 生成一次运行的不可变配置
func (c *Config) JobConfig() model.JobConfig {
	return model.JobConfig{
		Mode:       model.Mode(strings.TrimSpace(c.Job.Mode)),
		InputFile:  c.Job.InputFile,
		OutputDir:  c.Job.OutputDir,
		ModelName:  c.LLM.ModelName,
		MaxWorkers: c.Job.MaxWorkers,
		Variants:   c.Job.Variants,
		Chunking: model.Chunking{
			Strategy:    model.ChunkStrategy(c.Job.Chunking.Strategy),
			ChunkSize:   c.Job.Chunking.ChunkSize,
			OverlapSize: c.Job.Chunking.OverlapSize,
		},
		Credentials: model.Credentials{
			APIKey:  c.LLM.APIKey,
			BaseURL: c.LLM.BaseURL,
		},
	}
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "next-augment")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 0)
	v.SetDefault("server.uploadLimit", 200)

	// LLM
	v.SetDefault("llm.baseUrl", "http://localhost:8001/v1")
	v.SetDefault("llm.timeout", 0)
	v.SetDefault("llm.guidedDecodingBackend", "outlines")

	// Job
	v.SetDefault("job.outputDir", "output")
	v.SetDefault("job.maxWorkers", model.DefaultMaxWorkers)
	v.SetDefault("job.variants", model.DefaultVariants)
	v.SetDefault("job.chunking.strategy", string(model.ChunkNone))
	v.SetDefault("job.chunking.chunkSize", 1500)
	v.SetDefault("job.chunking.overlapSize", 100)

	// Database
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "next_augment")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 2)
	v.SetDefault("database.maxLifetime", 300)

	// Storage
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.minio.bucket", "next-augment")
}
