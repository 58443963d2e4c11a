package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var embeddedPrompts []byte

// PromptConfig はprompts.yamlの構造を定義
type PromptConfig struct {
	Version string `yaml:"version"`

	Classifier struct {
		Role     string `yaml:"role"`
		Guidance string `yaml:"guidance"`
		Mappings []struct {
			Phrases []string `yaml:"phrases"`
			Intent  string   `yaml:"intent"`
		} `yaml:"mappings"`
		OutputFormat string   `yaml:"output_format"`
		DateExamples []string `yaml:"date_examples"`
	} `yaml:"classifier"`

	Synthesizer struct {
		Role     string   `yaml:"role"`
		Examples []string `yaml:"examples"`
	} `yaml:"synthesizer"`

	Explainer struct {
		Role     string   `yaml:"role"`
		Currency string   `yaml:"currency"`
		Rules    []string `yaml:"rules"`
	} `yaml:"explainer"`
}

// LoadPrompts はプロンプト設定を読み込む。path が空なら埋め込みのprompts.yamlを使用
func LoadPrompts(path string) (*PromptConfig, error) {
	data := embeddedPrompts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("プロンプト設定ファイルの読み込みに失敗: %w", err)
		}
		data = b
	}

	var cfg PromptConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("YAMLのパースに失敗: %w", err)
	}
	return &cfg, nil
}

// BuildClassifierPrompt は分類用のシステムプロンプトを構築
func (c *PromptConfig) BuildClassifierPrompt(knownIntents []string) string {
	var sb strings.Builder

	sb.WriteString(c.Classifier.Role + "\n\n")
	if c.Classifier.Guidance != "" {
		sb.WriteString(c.Classifier.Guidance + "\n\n")
	}

	sb.WriteString("MAPPINGS:\n")
	for _, m := range c.Classifier.Mappings {
		quoted := make([]string, len(m.Phrases))
		for i, p := range m.Phrases {
			quoted[i] = fmt.Sprintf("%q", p)
		}
		sb.WriteString(fmt.Sprintf("- %s -> %q\n", strings.Join(quoted, ", "), m.Intent))
	}

	sb.WriteString("\nKNOWN REPORT IDS:\n")
	for _, intent := range knownIntents {
		sb.WriteString(fmt.Sprintf("- %q\n", intent))
	}
	sb.WriteString("- \"unknown\" (Only if COMPLETELY unrelated to above)\n")

	sb.WriteString("\nOUTPUT JSON format:\n")
	sb.WriteString(c.Classifier.OutputFormat)

	if len(c.Classifier.DateExamples) > 0 {
		sb.WriteString("\nDate Examples:\n")
		for _, ex := range c.Classifier.DateExamples {
			sb.WriteString("- " + ex + "\n")
		}
	}
	return sb.String()
}

// BuildSynthesizerPrompt はShopifyQL生成用のシステムプロンプトを構築
func (c *PromptConfig) BuildSynthesizerPrompt() string {
	var sb strings.Builder
	sb.WriteString(c.Synthesizer.Role)
	sb.WriteString(" Examples:")
	for i, ex := range c.Synthesizer.Examples {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, ex))
	}
	return sb.String()
}

// BuildExplainerPrompt は回答文生成用のシステムプロンプトを構築
func (c *PromptConfig) BuildExplainerPrompt() string {
	var sb strings.Builder
	sb.WriteString(c.Explainer.Role + "\n\nRULES:\n")
	sb.WriteString(fmt.Sprintf("1. Currency: ALWAYS use %s.\n", c.Explainer.Currency))
	for i, rule := range c.Explainer.Rules {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+2, rule))
	}
	return strings.TrimRight(sb.String(), "\n")
}
