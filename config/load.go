package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mailshim/mailshim/types"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, expands environment variables, and
// unmarshals into a Config struct. Unknown keys are rejected to catch
// typos early, since a misspelled rule or action field would otherwise
// silently do nothing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded := ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	return &cfg, nil
}

// Resolved is a Config with every component built into the runtime
// values the child orchestrator and action dispatcher consume.
type Resolved struct {
	LogLevel         string
	Accounts         []*types.Account
	Actions          []types.ActionDef
	Rules            []*types.Rule
	ImplicitDecision types.Decision
	KeepAll          bool
	FQDN             string
}

// Resolve builds every account, action, and rule declared in c,
// failing fast on the first construction error (an invalid regex, an
// unknown action kind, an unknown predicate type).
func (c *Config) Resolve() (*Resolved, error) {
	accounts := make([]*types.Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		accounts = append(accounts, a.ToAccount())
	}

	actions, err := BuildActions(c.Actions)
	if err != nil {
		return nil, fmt.Errorf("config: actions: %w", err)
	}

	rules, err := BuildRules(c.Rules)
	if err != nil {
		return nil, fmt.Errorf("config: rules: %w", err)
	}

	implicit, err := parseImplicitDecision(c.ImplicitDecision)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &Resolved{
		LogLevel:         c.LogLevel,
		Accounts:         accounts,
		Actions:          actions,
		Rules:            rules,
		ImplicitDecision: implicit,
		KeepAll:          c.KeepAll,
		FQDN:             c.FQDN,
	}, nil
}

// parseImplicitDecision maps the implicit_decision YAML string to its
// types.Decision value. An empty string is DecisionNone, resolved by
// the rule evaluator to keep-with-a-warning (§9).
func parseImplicitDecision(s string) (types.Decision, error) {
	switch s {
	case "", "none":
		return types.DecisionNone, nil
	case "keep":
		return types.DecisionKeep, nil
	case "drop":
		return types.DecisionDrop, nil
	default:
		return types.DecisionNone, fmt.Errorf("implicit_decision: unknown value %q, want keep, drop, or none", s)
	}
}

// Account looks up a configured account by name, for the parent
// process to select which account a spawned child should handle.
func (c *Config) Account(name string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return AccountConfig{}, false
}
