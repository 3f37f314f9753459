package scanner

import (
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/nvduc/joomprobe-cli/internal/matcher"
	"github.com/nvduc/joomprobe-cli/internal/probe"
)

func respOf(status int, body string, headers map[string]string) *probe.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &probe.Response{StatusCode: status, Headers: h, Body: body}
}

func collect(t *testing.T, doc string, results []Result) *Report {
	t.Helper()
	agg := &Aggregator{DB: testDB(t, doc)}
	ch := make(chan Result, len(results))
	for _, r := range results {
		ch <- r
	}
	close(ch)
	return agg.Collect("http://example.com", time.Now(), ch)
}

func demoTargets(t *testing.T) (root, path, file Target) {
	t.Helper()
	targets, err := BuildTargets(testDB(t, demoDB), "example.com")
	if err != nil {
		t.Fatalf("BuildTargets() error = %v", err)
	}
	for _, target := range targets {
		switch {
		case target.Kind == TargetRoot:
			root = target
		case target.Kind == TargetComponentPath && target.Path == "/components/com_demo/":
			path = target
		case target.Kind == TargetSensitiveFile:
			file = target
		}
	}
	return root, path, file
}

// An exposed README on a component path marks the component found and yields
// an exposed-file finding.
func TestAggregatorExposedFileScenario(t *testing.T) {
	_, path, file := demoTargets(t)
	report := collect(t, demoDB, []Result{
		{Target: path, Response: respOf(404, "Not Found", nil)},
		{Target: file, Response: respOf(200, "Apache/2.4 Index of / listing", nil)},
	})

	if !reflect.DeepEqual(report.ComponentsFound, []string{"com_demo"}) {
		t.Errorf("ComponentsFound = %v, want [com_demo]", report.ComponentsFound)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("findings = %+v, want exactly one", report.Findings)
	}
	if report.Findings[0].Category != matcher.CategoryExposedFile {
		t.Errorf("category = %s, want exposed-file", report.Findings[0].Category)
	}
	if len(report.Errors) != 0 {
		t.Errorf("errors = %+v, want none", report.Errors)
	}
	if report.Incomplete {
		t.Error("complete scan marked incomplete")
	}
}

// A 404 on every candidate path is a valid negative result: no findings, no
// errors, no component.
func TestAggregatorAllNotFound(t *testing.T) {
	root, path, file := demoTargets(t)
	report := collect(t, demoDB, []Result{
		{Target: root, Response: respOf(200, "", map[string]string{"X-Frame-Options": "DENY"})},
		{Target: path, Response: respOf(404, "", nil)},
		{Target: file, Response: respOf(404, "", nil)},
	})

	if len(report.ComponentsFound) != 0 {
		t.Errorf("ComponentsFound = %v, want empty", report.ComponentsFound)
	}
	if len(report.Findings) != 0 {
		t.Errorf("Findings = %+v, want none", report.Findings)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %+v, want none", report.Errors)
	}
}

// Errored probes produce no findings but are recorded; absence of evidence
// is not evidence of absence.
func TestAggregatorRecordsErrors(t *testing.T) {
	_, path, _ := demoTargets(t)
	report := collect(t, demoDB, []Result{
		{Target: path, Err: probe.ErrTooManyRedirects},
	})

	if len(report.Findings) != 0 {
		t.Errorf("Findings = %+v, want none for errored probes", report.Findings)
	}
	if len(report.ComponentsFound) != 0 {
		t.Errorf("ComponentsFound = %v, want empty", report.ComponentsFound)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %+v, want one entry", report.Errors)
	}
	if report.Errors[0].Kind != string(probe.KindRedirects) {
		t.Errorf("error kind = %s, want %s", report.Errors[0].Kind, probe.KindRedirects)
	}
	if report.Incomplete {
		t.Error("per-probe errors must not mark the scan incomplete")
	}
}

// Abandoned targets mark the report incomplete while completed results are
// preserved.
func TestAggregatorPartialReport(t *testing.T) {
	root, path, file := demoTargets(t)
	report := collect(t, demoDB, []Result{
		{Target: root, Err: ErrScanCancelled},
		{Target: path, Response: respOf(200, "<title>Index of /</title>", nil)},
		{Target: file, Err: ErrScanCancelled},
	})

	if !report.Incomplete {
		t.Fatal("cancelled scan not marked incomplete")
	}
	if report.Stats.Abandoned != 2 {
		t.Errorf("Abandoned = %d, want 2", report.Stats.Abandoned)
	}
	if !reflect.DeepEqual(report.ComponentsFound, []string{"com_demo"}) {
		t.Errorf("ComponentsFound = %v, want completed probes preserved", report.ComponentsFound)
	}
	if len(report.Findings) != 1 || report.Findings[0].Category != matcher.CategoryDirectoryListing {
		t.Errorf("Findings = %+v, want the directory-listing finding", report.Findings)
	}
}

// The fold is commutative: any arrival order produces the same report.
func TestAggregatorOrderIndependence(t *testing.T) {
	root, path, file := demoTargets(t)
	results := []Result{
		{Target: root, Response: respOf(200, "", nil)},
		{Target: path, Response: respOf(200, "<title>Index of /</title>", nil)},
		{Target: file, Response: respOf(200, "<version>4.2.0</version>", nil)},
	}
	reversed := []Result{results[2], results[1], results[0]}

	a := collect(t, demoDB, results)
	b := collect(t, demoDB, reversed)

	if !reflect.DeepEqual(a.ComponentsFound, b.ComponentsFound) {
		t.Errorf("ComponentsFound differ: %v vs %v", a.ComponentsFound, b.ComponentsFound)
	}
	if !reflect.DeepEqual(a.Findings, b.Findings) {
		t.Errorf("Findings differ:\n%+v\n%+v", a.Findings, b.Findings)
	}
	if !reflect.DeepEqual(a.Errors, b.Errors) {
		t.Errorf("Errors differ: %+v vs %+v", a.Errors, b.Errors)
	}
	if a.Stats != b.Stats {
		t.Errorf("Stats differ: %+v vs %+v", a.Stats, b.Stats)
	}
}

func TestAggregatorTimestamps(t *testing.T) {
	started := time.Now().Add(-time.Second)
	agg := &Aggregator{DB: testDB(t, demoDB)}
	ch := make(chan Result)
	close(ch)

	report := agg.Collect("http://example.com", started, ch)
	if report.CompletedAt.Before(report.StartedAt) {
		t.Error("CompletedAt before StartedAt")
	}
	if report.Duration() <= 0 {
		t.Error("Duration should be positive")
	}
	if report.ID == "" {
		t.Error("report ID not assigned")
	}
}
