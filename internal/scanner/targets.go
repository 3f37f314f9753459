package scanner

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/nvduc/joomprobe-cli/internal/signature"
)

// ErrInvalidTarget indicates an unusable base URL. It is fatal before any
// probe is dispatched.
var ErrInvalidTarget = errors.New("invalid target URL")

// TargetKind selects which matching policy applies to a probe.
type TargetKind string

const (
	TargetComponentPath TargetKind = "component-path"
	TargetSensitiveFile TargetKind = "sensitive-file"
	TargetRoot          TargetKind = "root"
)

// RootComponent is the synthetic component id for the site-root probe that
// drives the header policy. It never appears in ComponentsFound.
const RootComponent = "_root"

// Target is one planned probe. Immutable; the full target set is fixed at
// scan start and never grows mid-scan.
type Target struct {
	Component string
	Kind      TargetKind
	Path      string
	URL       string

	// File is set for sensitive-file targets.
	File signature.SensitiveFile
}

// NormalizeBaseURL accepts the loose target formats operators type
// (example.com, example.com:8080, https://example.com/) and returns a
// canonical scheme://host[:port] base.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTarget)
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") {
		parsed, err = url.Parse("http://" + raw)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidTarget, raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidTarget, raw)
	}

	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return base.String(), nil
}

// BuildTargets expands the signature database against a base URL into the
// complete, deterministic probe list for a scan: one target per (component,
// path), one per (component, sensitive file), plus the site-root target.
func BuildTargets(db *signature.Database, baseURL string) ([]Target, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, baseURL)
	}

	ids := make([]string, 0, len(db.Components))
	for id := range db.Components {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	targets := []Target{{
		Component: RootComponent,
		Kind:      TargetRoot,
		Path:      "/",
		URL:       joinPath(base, "/"),
	}}
	for _, id := range ids {
		comp := db.Components[id]
		for _, p := range comp.Paths {
			targets = append(targets, Target{
				Component: id,
				Kind:      TargetComponentPath,
				Path:      p,
				URL:       joinPath(base, p),
			})
		}
		for _, f := range comp.Files {
			targets = append(targets, Target{
				Component: id,
				Kind:      TargetSensitiveFile,
				Path:      f.Path,
				URL:       joinPath(base, f.Path),
				File:      f,
			})
		}
	}
	return targets, nil
}

func joinPath(base *url.URL, path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		// Paths come from a validated database; fall back to naive
		// concatenation for anything url.Parse rejects.
		return strings.TrimRight(base.String(), "/") + "/" + strings.TrimLeft(path, "/")
	}
	return base.ResolveReference(ref).String()
}
