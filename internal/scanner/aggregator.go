package scanner

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvduc/joomprobe-cli/internal/matcher"
	"github.com/nvduc/joomprobe-cli/internal/probe"
	"github.com/nvduc/joomprobe-cli/internal/signature"
)

// Aggregator folds the completion stream into a single Report. It is the only
// writer of the report: concurrent completions are serialized by the one
// consuming loop in Collect, so no locking is needed anywhere else.
type Aggregator struct {
	DB     *signature.Database
	Logger *zap.SugaredLogger
}

// Collect consumes results until the stream closes and returns the finalized
// report. The fold is commutative over arrival order: any permutation of the
// same results produces the same report. Incomplete is set when any target
// was abandoned due to cancellation.
func (a *Aggregator) Collect(targetURL string, startedAt time.Time, results <-chan Result) *Report {
	log := a.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	report := &Report{
		ID:        uuid.NewString(),
		TargetURL: targetURL,
		StartedAt: startedAt,
	}
	found := make(map[string]bool)

	for res := range results {
		report.Stats.TargetsTotal++
		if res.Err != nil {
			a.foldError(report, res, log)
			continue
		}
		report.Stats.TargetsProbed++
		a.foldResponse(report, found, res)
	}

	a.finalize(report, found)
	return report
}

func (a *Aggregator) foldError(report *Report, res Result, log *zap.SugaredLogger) {
	report.Stats.TargetsErrored++
	kind := probe.Classify(res.Err)
	if errors.Is(res.Err, ErrScanCancelled) {
		kind = probe.KindCancelled
		report.Incomplete = true
		report.Stats.Abandoned++
	}
	log.Debugw("probe error", "url", res.Target.URL, "kind", kind)
	report.Errors = append(report.Errors, ProbeError{
		Component: res.Target.Component,
		URL:       res.Target.URL,
		Kind:      string(kind),
		Message:   res.Err.Error(),
	})
}

// foldResponse classifies one completed probe and applies the matching
// policy. An errored probe never reaches here, so findings only ever
// reference components with at least one real response.
func (a *Aggregator) foldResponse(report *Report, found map[string]bool, res Result) {
	t := res.Target
	switch t.Kind {
	case TargetRoot:
		report.Findings = append(report.Findings,
			matcher.MatchHeaders(t.URL, res.Response, a.DB.Headers)...)
	case TargetComponentPath:
		comp := a.DB.Components[t.Component]
		fs := matcher.MatchComponentPath(t.Component, t.URL, res.Response, comp, a.DB.Markers)
		report.Findings = append(report.Findings, fs...)
		if succeeded(res.Response.StatusCode) {
			found[t.Component] = true
		}
	case TargetSensitiveFile:
		comp := a.DB.Components[t.Component]
		fs := matcher.MatchSensitiveFile(t.Component, t.URL, res.Response, t.File, comp)
		report.Findings = append(report.Findings, fs...)
		if succeeded(res.Response.StatusCode) {
			found[t.Component] = true
		}
	}
}

// finalize stamps the end time, orders everything deterministically and
// freezes the report.
func (a *Aggregator) finalize(report *Report, found map[string]bool) {
	report.CompletedAt = time.Now()

	report.ComponentsFound = make([]string, 0, len(found))
	for id := range found {
		report.ComponentsFound = append(report.ComponentsFound, id)
	}
	sort.Strings(report.ComponentsFound)

	sort.SliceStable(report.Findings, func(i, j int) bool {
		x, y := report.Findings[i], report.Findings[j]
		if x.Component != y.Component {
			return x.Component < y.Component
		}
		if x.Category != y.Category {
			return x.Category < y.Category
		}
		return x.URL < y.URL
	})
	sort.SliceStable(report.Errors, func(i, j int) bool {
		x, y := report.Errors[i], report.Errors[j]
		if x.Component != y.Component {
			return x.Component < y.Component
		}
		return x.URL < y.URL
	})
}

func succeeded(status int) bool {
	return status >= 200 && status < 300
}
