// Package config loads the mailshim configuration file: the account
// list, the action registry, and the rule tree (§3, §4.3-§4.5).
// Grounded on the teacher's cli/config/config.go (struct-of-YAML-tags
// shape) and load.go/envexpand.go (verbatim: generic YAML-plus-env-var
// loading has no mail-domain specifics to rewrite).
package config

import "time"

// Config is the top-level shape of a mailshim configuration file. All
// accounts in one file are intended to run as separate child processes
// sharing one rule tree and one action registry; Account selects the
// rules that apply to it via Rule.Accounts glob matching (§4.3 step 1).
type Config struct {
	LogLevel string          `yaml:"log_level"`
	Accounts []AccountConfig `yaml:"accounts"`
	Actions  []ActionConfig  `yaml:"actions"`
	Rules    []RuleConfig    `yaml:"rules"`
	// ImplicitDecision is applied when the rule tree runs to completion
	// without a Stop: "keep", "drop", or unset/"none" (§4.3 step 7, §9).
	ImplicitDecision string `yaml:"implicit_decision,omitempty"`
	// KeepAll forces every mail to be kept regardless of rule outcome,
	// a global counterpart to the per-account AccountConfig.Keep (§4.3
	// "global override").
	KeepAll bool `yaml:"keep_all,omitempty"`
	// FQDN names this host in the "Received:" header the child inserts
	// (§4.4.1 step 2); left empty, the child falls back to the local
	// hostname.
	FQDN string `yaml:"fqdn,omitempty"`
}

// AccountConfig is the YAML shape of one types.Account (§3).
type AccountConfig struct {
	Name             string            `yaml:"name"`
	Backend          string            `yaml:"backend"`
	BackendConfig    map[string]string `yaml:"backend_config"`
	Keep             bool              `yaml:"keep"`
	Users            []string          `yaml:"users"`
	FindUID          bool              `yaml:"find_uid"`
	SizeLimit        int64             `yaml:"size_limit"`
	DelBig           bool              `yaml:"del_big"`
	PurgeAfter       int               `yaml:"purge_after"`
	SuppressReceived bool              `yaml:"suppress_received"`
}

// ActionConfig is the YAML shape of one named action (§3 ActionDef,
// §4.5). Kind selects which concrete package deliver constructor to
// use; Path/MaxPartBytes are interpreted only by the kinds that need
// them.
type ActionConfig struct {
	Name         string            `yaml:"name"`
	Kind         string            `yaml:"kind"`
	Path         string            `yaml:"path,omitempty"`
	MaxPartBytes int               `yaml:"max_part_bytes,omitempty"`
	URL          string            `yaml:"url,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Timeout      Duration          `yaml:"timeout,omitempty"`
	Retries      int               `yaml:"retries,omitempty"`
	FindUID      bool              `yaml:"find_uid,omitempty"`
	Users        []string          `yaml:"users,omitempty"`
}

// RuleConfig is the YAML shape of one types.Rule node (§3, §4.3).
type RuleConfig struct {
	Accounts []string         `yaml:"accounts,omitempty"`
	Kind     string           `yaml:"kind"`
	Expr     []ExprItemConfig `yaml:"expr,omitempty"`
	Key      string           `yaml:"key,omitempty"`
	Value    string           `yaml:"value,omitempty"`
	Actions  []string         `yaml:"actions,omitempty"`
	Rules    []RuleConfig     `yaml:"rules,omitempty"`
	Stop     bool             `yaml:"stop,omitempty"`
	FindUID  bool             `yaml:"find_uid,omitempty"`
	Users    []string         `yaml:"users,omitempty"`
}

// ExprItemConfig is the YAML shape of one types.ExprItem (§3, §4.3.1).
type ExprItemConfig struct {
	Predicate PredicateConfig `yaml:"predicate"`
	Invert    bool            `yaml:"invert,omitempty"`
	Op        string          `yaml:"op,omitempty"`
}

// PredicateConfig is the YAML shape of one package match predicate.
// Type selects header/body/size/tagged/glob/all; the remaining fields
// are interpreted only by the matching constructor.
type PredicateConfig struct {
	Type            string `yaml:"type"`
	Header          string `yaml:"header,omitempty"`
	Pattern         string `yaml:"pattern,omitempty"`
	CaseInsensitive bool   `yaml:"case_insensitive,omitempty"`
	Cmp             string `yaml:"cmp,omitempty"`
	Bytes           int64  `yaml:"bytes,omitempty"`
	Key             string `yaml:"key,omitempty"`
	Value           string `yaml:"value,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
// ActionConfig.Timeout uses it for a webhook action's per-request timeout.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
