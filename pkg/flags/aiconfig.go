package flags

import (
	"regexp"
	"strings"
)

// AIMessage is one prompt message carried by an AI Config.
type AIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIConfig is the model configuration served by an AI Config flag. Completion
// configs carry Messages; agent configs carry Instructions.
type AIConfig struct {
	Enabled      bool
	Mode         string
	Model        string
	Instructions string
	Messages     []AIMessage
	Temperature  *float64
	MaxTokens    *int64
}

// aiConfigValue mirrors the JSON shape of an AI Config variation.
type aiConfigValue struct {
	Meta struct {
		Enabled bool   `json:"enabled"`
		Mode    string `json:"mode"`
	} `json:"_ldMeta"`
	Model struct {
		Name       string         `json:"name"`
		Parameters map[string]any `json:"parameters"`
	} `json:"model"`
	Messages     []AIMessage `json:"messages"`
	Instructions string      `json:"instructions"`
}

// LoadAIConfig evaluates the AI Config key for fc. An empty key, an
// unreachable service, or a malformed value yields a disabled config.
func LoadAIConfig(ev Evaluator, key string, fc Context) AIConfig {
	key = strings.TrimSpace(key)
	if ev == nil || key == "" {
		return AIConfig{}
	}
	var raw aiConfigValue
	if !ev.JSON(key, fc, &raw) || !raw.Meta.Enabled {
		return AIConfig{}
	}

	cfg := AIConfig{
		Enabled:      true,
		Mode:         strings.ToLower(strings.TrimSpace(raw.Meta.Mode)),
		Model:        strings.TrimSpace(raw.Model.Name),
		Instructions: strings.TrimSpace(interpolate(raw.Instructions, fc)),
	}
	for _, m := range raw.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role == "" || strings.TrimSpace(m.Content) == "" {
			continue
		}
		cfg.Messages = append(cfg.Messages, AIMessage{Role: role, Content: interpolate(m.Content, fc)})
	}
	if t, ok := number(raw.Model.Parameters, "temperature"); ok {
		cfg.Temperature = &t
	}
	for _, name := range []string{"maxTokens", "max_tokens", "maxCompletionTokens"} {
		if n, ok := number(raw.Model.Parameters, name); ok && n > 0 {
			v := int64(n)
			cfg.MaxTokens = &v
			break
		}
	}
	return cfg
}

func number(params map[string]any, name string) (float64, bool) {
	v, ok := params[name].(float64)
	return v, ok
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// interpolate fills {{name}} placeholders from fc's attributes. ldctx.key
// and ldctx.kind name the context itself; unknown names render empty.
func interpolate(text string, fc Context) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		switch name {
		case "ldctx.key":
			return fc.Key
		case "ldctx.kind":
			return fc.Kind
		}
		return fc.Attributes[strings.TrimPrefix(name, "ldctx.")]
	})
}
