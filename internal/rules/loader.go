package rules

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	toml "github.com/pelletier/go-toml/v2"

	"aiaudit/internal/errors"
)

// DefaultMatchTimeout bounds a single rule evaluation against one file.
const DefaultMatchTimeout = 2 * time.Second

//go:embed catalogs/*.toml
var catalogFS embed.FS

// Options controls how catalogs are compiled.
type Options struct {
	// MatchTimeout is set on every compiled pattern. Zero means DefaultMatchTimeout.
	MatchTimeout time.Duration
}

// catalogFile is the on-disk layout of a catalog.
type catalogFile struct {
	Version  int        `toml:"version"`
	Category string     `toml:"category"`
	Rules    []ruleFile `toml:"rule"`
}

type ruleFile struct {
	Name        string `toml:"name"`
	Pattern     string `toml:"pattern"`
	Flags       string `toml:"flags,omitempty"`
	Severity    string `toml:"severity"`
	Description string `toml:"description"`
	Suggestion  string `toml:"suggestion"`
}

// Parse decodes and compiles one TOML catalog.
func Parse(data []byte, opts Options) (*Catalog, error) {
	var f catalogFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.New(errors.CatalogInvalid, "failed to parse catalog", err)
	}

	category := Category(f.Category)
	if !category.Valid() {
		return nil, errors.Newf(errors.CatalogInvalid, "unknown catalog category %q", f.Category)
	}
	if f.Version != 1 {
		return nil, errors.Newf(errors.CatalogInvalid, "unsupported %s catalog version %d", category, f.Version)
	}
	if len(f.Rules) == 0 {
		return nil, errors.Newf(errors.CatalogInvalid, "%s catalog has no rules", category)
	}

	timeout := opts.MatchTimeout
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}

	cat := &Catalog{Category: category, Version: f.Version, Rules: make([]*Rule, 0, len(f.Rules))}
	seen := make(map[string]bool, len(f.Rules))
	for i, rf := range f.Rules {
		if rf.Name == "" {
			return nil, errors.Newf(errors.CatalogInvalid, "%s rule #%d has no name", category, i+1)
		}
		if seen[rf.Name] {
			return nil, errors.Newf(errors.CatalogInvalid, "duplicate %s rule %q", category, rf.Name)
		}
		seen[rf.Name] = true

		sev := Severity(rf.Severity)
		if !sev.Valid() {
			return nil, errors.Newf(errors.CatalogInvalid, "%s rule %q has invalid severity %q", category, rf.Name, rf.Severity)
		}

		re, err := compile(rf.Pattern, rf.Flags)
		if err != nil {
			return nil, errors.New(errors.CatalogInvalid,
				fmt.Sprintf("%s rule %q does not compile", category, rf.Name), err)
		}
		re.MatchTimeout = timeout

		cat.Rules = append(cat.Rules, &Rule{
			Name:        rf.Name,
			Category:    category,
			Severity:    sev,
			Description: rf.Description,
			Suggestion:  rf.Suggestion,
			Source:      rf.Pattern,
			Flags:       rf.Flags,
			re:          re,
		})
	}
	return cat, nil
}

// compile builds a pattern with JavaScript semantics. Only the "i" flag
// changes matching; "g" is implied by FindAll.
func compile(pattern, flags string) (*regexp2.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'g':
		default:
			return nil, fmt.Errorf("unsupported flag %q", f)
		}
	}
	return regexp2.Compile(pattern, opts)
}

// Load compiles every embedded catalog.
func Load(opts Options) (*Set, error) {
	entries, err := catalogFS.ReadDir("catalogs")
	if err != nil {
		return nil, errors.New(errors.CatalogInvalid, "failed to read embedded catalogs", err)
	}

	var catalogs []*Catalog
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		data, err := catalogFS.ReadFile(path.Join("catalogs", e.Name()))
		if err != nil {
			return nil, errors.New(errors.CatalogInvalid, "failed to read "+e.Name(), err)
		}
		cat, err := Parse(data, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		catalogs = append(catalogs, cat)
	}

	set := NewSet(catalogs...)
	for _, c := range AllCategories() {
		if set.Catalog(c) == nil {
			return nil, errors.Newf(errors.CatalogInvalid, "missing %s catalog", c)
		}
	}
	return set, nil
}

// MustLoad is Load that panics on error. Catalogs ship with the binary, so a
// failure here is a build defect.
func MustLoad(opts Options) *Set {
	set, err := Load(opts)
	if err != nil {
		panic(err)
	}
	return set
}

var defaultSet = sync.OnceValue(func() *Set {
	return MustLoad(Options{})
})

// Default returns the process-wide catalogs compiled with default options.
func Default() *Set {
	return defaultSet()
}
