package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	AI       AIConfig
	Chatbot  ChatbotConfig
}

// AuthConfig 认证配置
type AuthConfig struct {
	// JWTSecret 校验 Bearer Token 的 HMAC 密钥，留空则只认 X-User-ID
	JWTSecret string
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
}

// DatabaseConfig 会话存储数据库配置（服务自身的 PostgreSQL）
type DatabaseConfig struct {
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

// RedisConfig Redis配置（问题推荐缓存）
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AIConfig AI配置
type AIConfig struct {
	Provider string
	OpenAI   OpenAIConfig
	DeepSeek DeepSeekConfig
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// DeepSeekConfig DeepSeek配置
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// ChatbotConfig 问答流水线配置
type ChatbotConfig struct {
	// MaxRetries SQL 修复重试上限
	MaxRetries int
	// PipelineTimeoutSeconds 单次请求的整体超时（分类→生成→重试→回答）
	PipelineTimeoutSeconds int
	// ResultTokenBudget 查询结果注入提示词前的 token 上限
	ResultTokenBudget int
	// SchemaTokenBudget 表结构描述注入提示词前的 token 上限
	SchemaTokenBudget int
	// SampleRows 每张表采样的行数
	SampleRows int
	// ConsoleURL 慢事务分析结果附带的控制台地址
	ConsoleURL string
	// SuggestionTTLSeconds 问题推荐缓存有效期
	SuggestionTTLSeconds int
}

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 默认配置
	setDefaults(v)

	// 环境变量
	v.SetEnvPrefix("CHAT2SQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
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

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "chat2sql")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	// LLM 流水线可能运行较久，写超时需大于 chatbot.pipelineTimeoutSeconds
	v.SetDefault("server.writeTimeout", 150)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "chat2sql")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")

	// Chatbot
	v.SetDefault("chatbot.maxRetries", 7)
	v.SetDefault("chatbot.pipelineTimeoutSeconds", 120)
	v.SetDefault("chatbot.resultTokenBudget", 9000)
	v.SetDefault("chatbot.schemaTokenBudget", 1000)
	v.SetDefault("chatbot.sampleRows", 3)
	v.SetDefault("chatbot.consoleURL", "")
	v.SetDefault("chatbot.suggestionTTLSeconds", 3600)
}
