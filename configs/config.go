package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port                          string
	Environment                   string
	APIKey                        string
	AdminUsername                 string
	AdminPassword                 string
	AzureOpenAIEndpoint           string
	AzureOpenAIAPIKey             string
	AzureOpenAIAPIVersion         string
	AzureOpenAIChatDeploymentName string
	ShopifyAPIVersion             string
	ShopifyTimeoutSeconds         int
	LogLevel                      string
	LogFormat                     string
	PromptsFile                   string
	MonitoringTimezone            string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:                          getEnv("PORT", "8080"),
		Environment:                   getEnv("ENVIRONMENT", "development"),
		APIKey:                        getEnv("API_KEY", ""),
		AdminUsername:                 getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:                 getEnv("ADMIN_PASSWORD", ""),
		AzureOpenAIEndpoint:           getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIKey:             getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion:         getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
		AzureOpenAIChatDeploymentName: getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME", "gpt-4o-mini"),
		ShopifyAPIVersion:             getEnv("SHOPIFY_API_VERSION", "2025-10"),
		ShopifyTimeoutSeconds:         getEnvInt("SHOPIFY_HTTP_TIMEOUT_SECONDS", 60),
		LogLevel:                      getEnv("LOG_LEVEL", "info"),
		LogFormat:                     getEnv("LOG_FORMAT", defaultLogFormat()),
		PromptsFile:                   getEnv("PROMPTS_FILE", ""),
		MonitoringTimezone:            getEnv("MONITORING_TIMEZONE", "UTC"),
	}
}

// IsProduction 本番環境かどうか
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultLogFormat() string {
	if os.Getenv("ENVIRONMENT") == "production" {
		return "json"
	}
	return "console"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 数値の環境変数を取得（不正な値はデフォルト値）
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
