// Package signature defines the component signature database consumed by the
// scan engine.
//
// The database maps Joomla component identifiers to candidate probe paths,
// sensitive files and version-revealing patterns. It is loaded once at scan
// start, validated eagerly, and treated as immutable for the lifetime of a
// scan. Matching policy lives in the database schema (markers, header rules,
// version patterns), not in code, so new rules ship as data.
package signature

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Validation errors. All of them indicate a configuration problem and are
// reported before any probe is dispatched.
var (
	ErrInvalidDatabase  = errors.New("invalid signature database")
	ErrEmptyDatabase    = errors.New("signature database has no components")
	ErrInvalidSeverity  = errors.New("invalid severity")
	ErrInvalidPattern   = errors.New("invalid version pattern")
	ErrComponentNoPaths = errors.New("component has no probe paths")
)

// Severity levels used across findings and database entries.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

var validSeverities = map[string]bool{
	SeverityCritical: true,
	SeverityHigh:     true,
	SeverityMedium:   true,
	SeverityLow:      true,
	SeverityInfo:     true,
}

//go:embed signatures.yaml
var defaultDatabase []byte

// Database is the root of the signature database. Immutable after Load.
type Database struct {
	Version    string               `yaml:"version"`
	Markers    Markers              `yaml:"markers"`
	Headers    []HeaderRule         `yaml:"headers"`
	Components map[string]Component `yaml:"components"`
}

// Markers holds response-body markers shared by all components.
type Markers struct {
	DirectoryListing []string `yaml:"directory_listing"`
}

// HeaderRule describes a security header expected on the site root response.
type HeaderRule struct {
	Name           string `yaml:"name"`
	Severity       string `yaml:"severity"`
	Recommendation string `yaml:"recommendation"`
}

// SensitiveFile is a file that should not be reachable under a component.
type SensitiveFile struct {
	Path     string `yaml:"path"`
	Severity string `yaml:"severity"`
}

// Component describes the probe surface of a single Joomla component.
type Component struct {
	Paths           []string        `yaml:"paths"`
	Files           []SensitiveFile `yaml:"files"`
	VersionPatterns []string        `yaml:"version_patterns"`

	versionRe []*regexp.Regexp
}

// VersionRegexps returns the compiled version patterns for the component.
// Compilation happens once during Load.
func (c Component) VersionRegexps() []*regexp.Regexp {
	return c.versionRe
}

// Load parses and validates a signature database from r.
func Load(r io.Reader) (*Database, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read signature database: %w", err)
	}
	return parse(raw)
}

// LoadFile parses and validates a signature database from a YAML file.
func LoadFile(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signature database: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in signature database.
func Default() *Database {
	db, err := parse(defaultDatabase)
	if err != nil {
		// The embedded database is validated by tests; reaching this
		// means a broken build.
		panic(fmt.Sprintf("embedded signature database: %v", err))
	}
	return db
}

func parse(raw []byte) (*Database, error) {
	var db Database
	if err := yaml.Unmarshal(raw, &db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}
	if err := db.validate(); err != nil {
		return nil, err
	}
	if err := db.compile(); err != nil {
		return nil, err
	}
	return &db, nil
}

func (db *Database) validate() error {
	if len(db.Components) == 0 {
		return ErrEmptyDatabase
	}
	for id, comp := range db.Components {
		if len(comp.Paths) == 0 {
			return fmt.Errorf("%w: %s", ErrComponentNoPaths, id)
		}
		for _, f := range comp.Files {
			if f.Path == "" {
				return fmt.Errorf("%w: component %s has a file entry without a path", ErrInvalidDatabase, id)
			}
			if !validSeverities[f.Severity] {
				return fmt.Errorf("%w: component %s file %s: %q", ErrInvalidSeverity, id, f.Path, f.Severity)
			}
		}
	}
	for _, h := range db.Headers {
		if h.Name == "" {
			return fmt.Errorf("%w: header rule without a name", ErrInvalidDatabase)
		}
		if !validSeverities[h.Severity] {
			return fmt.Errorf("%w: header %s: %q", ErrInvalidSeverity, h.Name, h.Severity)
		}
	}
	return nil
}

// compile pre-compiles every version pattern. Patterns must contain at least
// one capture group; the first submatch is used as finding evidence.
func (db *Database) compile() error {
	for id, comp := range db.Components {
		comp.versionRe = make([]*regexp.Regexp, 0, len(comp.VersionPatterns))
		for _, p := range comp.VersionPatterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("%w: component %s: %q: %v", ErrInvalidPattern, id, p, err)
			}
			if re.NumSubexp() < 1 {
				return fmt.Errorf("%w: component %s: %q has no capture group", ErrInvalidPattern, id, p)
			}
			comp.versionRe = append(comp.versionRe, re)
		}
		db.Components[id] = comp
	}
	return nil
}
