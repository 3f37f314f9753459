// Package matcher turns completed probe responses into findings.
//
// Every function here is a pure function of its inputs: the same response and
// the same signature entry always yield the same findings, which keeps the
// policy independently testable from the network layer. Matching rules are
// driven by the signature database schema; the matcher only interprets the
// schema's categories.
package matcher

import (
	"net/http"
	"strings"

	"github.com/nvduc/joomprobe-cli/internal/probe"
	"github.com/nvduc/joomprobe-cli/internal/signature"
)

// Category classifies a finding.
type Category string

const (
	CategoryDirectoryListing  Category = "directory-listing"
	CategoryExposedFile       Category = "exposed-file"
	CategoryMissingHeader     Category = "missing-header"
	CategoryVersionDisclosure Category = "version-disclosure"
)

// Finding is a confirmed, evidenced misconfiguration. Immutable once created.
type Finding struct {
	Component string   `json:"component"`
	Category  Category `json:"category"`
	Severity  string   `json:"severity"`
	Evidence  string   `json:"evidence"`
	URL       string   `json:"url"`
}

// versionHeaders are response headers commonly leaking server or component
// versions.
var versionHeaders = []string{"Server", "X-Powered-By", "X-Generator"}

// MatchComponentPath evaluates a 200-class response on a component directory
// path: open directory indexes and version disclosure.
func MatchComponentPath(componentID, url string, resp *probe.Response, comp signature.Component, markers signature.Markers) []Finding {
	if resp == nil || !success(resp.StatusCode) {
		return nil
	}

	var findings []Finding
	for _, marker := range markers.DirectoryListing {
		if strings.Contains(resp.Body, marker) {
			findings = append(findings, Finding{
				Component: componentID,
				Category:  CategoryDirectoryListing,
				Severity:  signature.SeverityMedium,
				Evidence:  marker,
				URL:       url,
			})
			break
		}
	}

	if f, ok := matchVersion(componentID, url, resp, comp); ok {
		findings = append(findings, f)
	}
	return findings
}

// MatchSensitiveFile evaluates a response on a known sensitive path (README,
// manifest, changelog). Reachability alone is the finding; the body is also
// checked for version disclosure since manifests carry version tags.
func MatchSensitiveFile(componentID, url string, resp *probe.Response, file signature.SensitiveFile, comp signature.Component) []Finding {
	if resp == nil || !success(resp.StatusCode) {
		return nil
	}

	findings := []Finding{{
		Component: componentID,
		Category:  CategoryExposedFile,
		Severity:  file.Severity,
		Evidence:  file.Path,
		URL:       url,
	}}
	if f, ok := matchVersion(componentID, url, resp, comp); ok {
		findings = append(findings, f)
	}
	return findings
}

// MatchHeaders evaluates the site root response against the expected security
// headers. Evaluated once per scan, not per component probe.
func MatchHeaders(url string, resp *probe.Response, rules []signature.HeaderRule) []Finding {
	if resp == nil {
		return nil
	}

	var findings []Finding
	for _, rule := range rules {
		if resp.Headers.Get(rule.Name) == "" {
			findings = append(findings, Finding{
				Component: "",
				Category:  CategoryMissingHeader,
				Severity:  rule.Severity,
				Evidence:  rule.Name + " missing; " + rule.Recommendation,
				URL:       url,
			})
		}
	}
	return findings
}

// matchVersion scans the body and version-bearing headers against the
// component's patterns. The first capture group of the first matching pattern
// is the disclosed version.
func matchVersion(componentID, url string, resp *probe.Response, comp signature.Component) (Finding, bool) {
	for _, re := range comp.VersionRegexps() {
		if m := re.FindStringSubmatch(resp.Body); len(m) > 1 {
			return versionFinding(componentID, url, m[1]), true
		}
		for _, h := range versionHeaders {
			if v := resp.Headers.Get(h); v != "" {
				if m := re.FindStringSubmatch(v); len(m) > 1 {
					return versionFinding(componentID, url, m[1]), true
				}
			}
		}
	}
	return Finding{}, false
}

func versionFinding(componentID, url, version string) Finding {
	return Finding{
		Component: componentID,
		Category:  CategoryVersionDisclosure,
		Severity:  signature.SeverityLow,
		Evidence:  version,
		URL:       url,
	}
}

func success(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
