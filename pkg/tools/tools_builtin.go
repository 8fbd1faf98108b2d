package tools

import (
	"fmt"

	"github.com/minhyannv/ai-chat-go/pkg/config"
)

// Builtins are the built-in tool providers a toolset draws from.
type Builtins struct {
	Search  *WebSearch
	Support SupportTools
}

// BuiltinSpecs returns the specs for toolset in registration order.
func BuiltinSpecs(toolset string, b Builtins) ([]Spec, error) {
	var specs []Spec
	assistant := func() error {
		if b.Search == nil {
			return fmt.Errorf("toolset %q needs web search", toolset)
		}
		specs = append(specs, b.Search.Spec(), CalculatorSpec())
		return nil
	}

	switch toolset {
	case config.ToolsetNone:
	case config.ToolsetAssistant:
		if err := assistant(); err != nil {
			return nil, err
		}
	case config.ToolsetSupport:
		specs = append(specs, b.Support.Specs()...)
	case config.ToolsetAll, "":
		if err := assistant(); err != nil {
			return nil, err
		}
		specs = append(specs, b.Support.Specs()...)
	default:
		return nil, fmt.Errorf("unknown toolset %q", toolset)
	}
	return specs, nil
}

// RegisterToolset registers every built-in tool of toolset on r.
func RegisterToolset(r *Registry, toolset string, b Builtins) error {
	specs, err := BuiltinSpecs(toolset, b)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
