package tools

import (
	"context"
	"encoding/json"
)

// Param describes one string argument of a tool.
type Param struct {
	Name        string
	Description string
	Required    bool
}

// Tool is the interface for all tools
type Tool interface {
	Name() string
	Description() string
	Params() []Param
	Run(ctx context.Context, args json.RawMessage) (string, error)
}
