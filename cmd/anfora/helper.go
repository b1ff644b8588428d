package main

import (
	"fmt"

	"github.com/anforahq/anfora/internal/agent"
	"github.com/anforahq/anfora/internal/config"
	"github.com/anforahq/anfora/internal/model"
	"github.com/anforahq/anfora/internal/tool"
	_ "github.com/anforahq/anfora/internal/tool/builtin" // register built-in tools
)

func buildRunner(cfg *config.Config) (*tool.Runner, error) {
	tools, err := tool.InstantiateBuiltins(tool.BuiltinOptions{
		Database:   cfg.Database,
		Gmail:      cfg.Gmail,
		Classifier: cfg.Classifier,
		Tools:      cfg.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("build tools: %w", err)
	}

	registry := tool.NewRegistry()
	for _, t := range tools {
		registry.Register(t)
	}
	return tool.NewRunner(registry), nil
}

func buildLoop(cfg *config.Config, runner *tool.Runner) (*agent.Loop, error) {
	registry, ok := cfg.DefaultRegistry()
	if !ok {
		return nil, fmt.Errorf("no model registry entries configured")
	}
	provider, err := model.FromRegistry(registry)
	if err != nil {
		return nil, fmt.Errorf("build model provider: %w", err)
	}

	return &agent.Loop{
		Provider:     provider,
		Runner:       runner,
		Model:        registry.Name,
		SystemPrompt: cfg.Prompts.System,
		MaxRounds:    cfg.Agent.MaxRounds,
	}, nil
}
