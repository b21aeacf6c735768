package scout

import (
	"context"
	"errors"
	"fmt"
)

// Provider names accepted by configuration
const (
	ProviderOpenAI  = "openai"
	ProviderService = "service"
	ProviderMock    = "mock"
)

// ErrEmptyReport is returned when a provider answers without any text
var ErrEmptyReport = errors.New("empty scouting report")

// Generator writes a scouting report for one player
type Generator interface {
	Generate(ctx context.Context, p Profile) (string, error)
}

// Mock returns a canned report without calling anything
type Mock struct{}

func (Mock) Generate(ctx context.Context, p Profile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[MOCK REPORT] Scouting report for %s (ID: %d) generated.", p.Name, p.PlayerID), nil
}

// Config selects and configures a generator
type Config struct {
	Provider string
	OpenAI   OpenAIConfig
	Service  ServiceConfig
}

// New builds the generator named by cfg.Provider
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		g, err := NewOpenAI(cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderService:
		g, err := NewService(cfg.Service)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderMock, "":
		return Mock{}, nil
	default:
		return nil, fmt.Errorf("unknown scouting report provider %q", cfg.Provider)
	}
}
