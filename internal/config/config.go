package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/SiLeader/composite-llm/providers/ai"
)

// Backend kinds accepted in a configuration file.
const (
	BackendOpenAI  = "openai"
	BackendAzure   = "azure"
	BackendBedrock = "bedrock"
	BackendVertex  = "vertex"
)

// Config selects a backend and carries its credentials. Every credential
// field falls back to the corresponding environment variable when left
// empty, so a config file can name just the backend and model.
type Config struct {
	Backend string        `yaml:"backend"`
	Model   string        `yaml:"model"`
	OpenAI  OpenAIConfig  `yaml:"openai,omitempty"`
	Azure   AzureConfig   `yaml:"azure,omitempty"`
	Bedrock BedrockConfig `yaml:"bedrock,omitempty"`
	Vertex  VertexConfig  `yaml:"vertex,omitempty"`
}

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// AzureConfig configures the Azure OpenAI backend.
type AzureConfig struct {
	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// BedrockConfig configures the Amazon Bedrock backend.
type BedrockConfig struct {
	Region      string `yaml:"region,omitempty"`
	BearerToken string `yaml:"bearer_token,omitempty"`
}

// VertexConfig configures the Vertex AI backend.
type VertexConfig struct {
	Project  string `yaml:"project,omitempty"`
	Location string `yaml:"location,omitempty"`
}

// Load reads a YAML configuration file, applies environment-variable
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvDefaults() {
	defaultFromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	defaultFromEnv(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	defaultFromEnv(&c.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	defaultFromEnv(&c.Azure.Endpoint, "AZURE_OPENAI_ENDPOINT")
	defaultFromEnv(&c.Bedrock.Region, "AWS_REGION")
	defaultFromEnv(&c.Bedrock.BearerToken, "AWS_BEARER_TOKEN_BEDROCK")
	defaultFromEnv(&c.Vertex.Project, "GOOGLE_CLOUD_PROJECT")
	defaultFromEnv(&c.Vertex.Location, "GOOGLE_CLOUD_LOCATION")
}

func defaultFromEnv(field *string, key string) {
	if *field == "" {
		*field = os.Getenv(key)
	}
}

// Validate checks that the backend kind is one of the supported set and a
// model is named.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenAI, BackendAzure, BackendBedrock, BackendVertex:
	default:
		return &ai.UnsupportedError{Feature: "backend kind " + strconv.Quote(c.Backend)}
	}

	if c.Model == "" {
		return errors.New("model is required")
	}
	return nil
}
