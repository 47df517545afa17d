// Package pyconfig implements spec.md §6's "project-level options are
// enumerated (not free-form)" configuration: which lint rules are enabled,
// the target Python version, the custom stdlib search path, and the
// include/exclude glob lists. A config file is read by an external loader
// (this package) and handed to internal/engine as a plain struct via
// Db.SetConfig (Db.ApplyChanges takes no configuration parameter) — the
// engine itself never touches YAML.
//
// The teacher carries no project-config file of its own (funxy is driven
// entirely by CLI flags, see internal/config.Version/IsTestMode), but
// already depends on gopkg.in/yaml.v3 in its go.mod; this package is the
// first real user of that dependency, read the same way the rest of the
// pack's config loaders use it: unmarshal into a plain struct, validate,
// and turn validation failures into diagnostics instead of fatal errors.
package pyconfig

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tycore/tycore/internal/diagnostics"
	"github.com/tycore/tycore/internal/pyglob"
)

// PythonVersion is a (major, minor) target version, compared numerically
// so "3.9" < "3.10".
type PythonVersion struct {
	Major, Minor int
}

func (v PythonVersion) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// AtLeast reports whether v is v2 or newer.
func (v PythonVersion) AtLeast(v2 PythonVersion) bool {
	if v.Major != v2.Major {
		return v.Major > v2.Major
	}
	return v.Minor >= v2.Minor
}

func parsePythonVersion(s string) (PythonVersion, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return PythonVersion{}, fmt.Errorf("expected \"major.minor\", got %q", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return PythonVersion{}, fmt.Errorf("invalid major version %q", parts[0])
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return PythonVersion{}, fmt.Errorf("invalid minor version %q", parts[1])
	}
	return PythonVersion{Major: major, Minor: minor}, nil
}

// DefaultPythonVersion is used when a config omits python-version.
var DefaultPythonVersion = PythonVersion{Major: 3, Minor: 13}

// knownRules is the closed set of lint rules a config is allowed to name,
// matching the diagnostics package's RuleID list; an unrecognized name is
// a config error (spec.md §7's "unknown option" case), not a silent no-op.
var knownRules = map[string]diagnostics.RuleID{
	string(diagnostics.RuleSyntaxError):             diagnostics.RuleSyntaxError,
	string(diagnostics.RuleInvalidTypeForm):         diagnostics.RuleInvalidTypeForm,
	string(diagnostics.RuleInvalidNamedTuple):       diagnostics.RuleInvalidNamedTuple,
	string(diagnostics.RuleInvalidMethodOverride):   diagnostics.RuleInvalidMethodOverride,
	string(diagnostics.RuleOverrideOfFinalMethod):   diagnostics.RuleOverrideOfFinalMethod,
	string(diagnostics.RuleInvalidExplicitOverride): diagnostics.RuleInvalidExplicitOverride,
}

// raw is the literal YAML shape; every field is optional, matching
// spec.md's "options are enumerated" without requiring any of them.
type raw struct {
	PythonVersion string            `yaml:"python-version"`
	SearchPaths   []string          `yaml:"search-paths"`
	Include       []string          `yaml:"include"`
	Exclude       []string          `yaml:"exclude"`
	Rules         map[string]string `yaml:"rules"` // rule name -> "error"|"warning"|"off"
}

// Config is the validated, ready-to-use project configuration.
type Config struct {
	PythonVersion PythonVersion
	SearchPaths   []string
	Include       []*pyglob.Pattern
	Exclude       []*pyglob.Pattern
	// RuleSeverity overrides a rule's default severity; absence from the
	// map means "use the rule's built-in default". A rule set to "off" is
	// recorded in RuleDisabled instead.
	RuleSeverity map[diagnostics.RuleID]diagnostics.Severity
	RuleDisabled map[diagnostics.RuleID]bool
}

// Default returns the configuration used when no config file is present:
// the default target version, no extra search paths, and every rule at
// its built-in severity.
func Default() Config {
	return Config{
		PythonVersion: DefaultPythonVersion,
		RuleSeverity:  map[diagnostics.RuleID]diagnostics.Severity{},
		RuleDisabled:  map[diagnostics.RuleID]bool{},
	}
}

// Load parses and validates a pyproject.toml/ty.toml-equivalent YAML
// document. A field that fails validation is dropped from the returned
// Config (which otherwise carries every field that did validate) and
// reported as a RuleInvalidSetting diagnostic — spec.md §7's "the last
// good configuration is retained" is the caller's responsibility: Load
// never returns a partially-applied Config silently, it always pairs the
// Config with the diagnostics explaining what was dropped.
func Load(data []byte) (Config, []diagnostics.Diagnostic) {
	cfg := Default()
	var bag []diagnostics.Diagnostic
	settingError := func(format string, args ...any) {
		bag = append(bag, diagnostics.Diagnostic{
			Rule:     diagnostics.RuleInvalidSetting,
			Severity: diagnostics.SeverityError,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		settingError("invalid configuration file: %v", err)
		return cfg, bag
	}

	if r.PythonVersion != "" {
		if v, err := parsePythonVersion(r.PythonVersion); err != nil {
			settingError("python-version: %v", err)
		} else {
			cfg.PythonVersion = v
		}
	}

	cfg.SearchPaths = append([]string(nil), r.SearchPaths...)

	for _, pat := range r.Include {
		p, err := pyglob.Compile(pat)
		if err != nil {
			settingError("include: %v", err)
			continue
		}
		cfg.Include = append(cfg.Include, p)
	}
	for _, pat := range r.Exclude {
		p, err := pyglob.Compile(pat)
		if err != nil {
			settingError("exclude: %v", err)
			continue
		}
		cfg.Exclude = append(cfg.Exclude, p)
	}

	for name, level := range r.Rules {
		rule, ok := knownRules[name]
		if !ok {
			settingError("unknown lint rule %q", name)
			continue
		}
		switch level {
		case "error":
			cfg.RuleSeverity[rule] = diagnostics.SeverityError
		case "warning":
			cfg.RuleSeverity[rule] = diagnostics.SeverityWarning
		case "off":
			cfg.RuleDisabled[rule] = true
		default:
			settingError("rules.%s: unrecognized level %q (want error, warning, or off)", name, level)
		}
	}

	return cfg, bag
}

// IncludesPath reports whether path should be analyzed under cfg: no
// Include patterns means everything is included by default, then Exclude
// (with its own `!`-negation convention, spec.md §6) is applied on top.
func (c Config) IncludesPath(path string) bool {
	included := len(c.Include) == 0
	if !included {
		for _, p := range c.Include {
			if p.Match(path) {
				included = true
			}
		}
	}
	if !included {
		return false
	}
	if len(c.Exclude) == 0 {
		return true
	}
	return !pyglob.MatchAny(c.Exclude, path)
}

// Severity resolves rule's effective severity under cfg, given its
// built-in default.
func (c Config) Severity(rule diagnostics.RuleID, builtin diagnostics.Severity) (diagnostics.Severity, bool) {
	if c.RuleDisabled[rule] {
		return builtin, false
	}
	if s, ok := c.RuleSeverity[rule]; ok {
		return s, true
	}
	return builtin, true
}
