package scanner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nvduc/joomprobe-cli/internal/probe"
	"github.com/nvduc/joomprobe-cli/internal/signature"
)

// ErrNoDatabase indicates the scanner was constructed without signatures.
var ErrNoDatabase = errors.New("signature database is required")

// Config captures everything a scan needs. Zero values fall back to the
// documented defaults.
type Config struct {
	TargetURL          string
	Concurrency        int           // default 10
	RequestTimeout     time.Duration // default 5s, per probe
	ScanTimeout        time.Duration // 0 = no global deadline
	RateLimit          int           // requests per second, 0 = unlimited
	MaxAttempts        int           // default 3, per probe including the first
	InsecureSkipVerify bool
	UserAgent          string
}

const (
	DefaultConcurrency    = 10
	DefaultRequestTimeout = 5 * time.Second
	DefaultMaxAttempts    = 3
)

// Scanner wires the probe client, retry policy, runner and aggregator into a
// single scan operation. Construction fails fast on configuration errors so
// no probe is ever dispatched against an invalid setup.
type Scanner struct {
	cfg     Config
	db      *signature.Database
	targets []Target
	log     *zap.SugaredLogger
}

// New validates the configuration and plans the full probe list.
func New(cfg Config, db *signature.Database, logger *zap.SugaredLogger) (*Scanner, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	normalized, err := NormalizeBaseURL(cfg.TargetURL)
	if err != nil {
		return nil, err
	}
	cfg.TargetURL = normalized

	targets, err := BuildTargets(db, normalized)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scanner{cfg: cfg, db: db, targets: targets, log: logger}, nil
}

// Targets returns the planned probe list. Fixed at construction; no probe is
// added or removed mid-scan.
func (s *Scanner) Targets() []Target {
	out := make([]Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// Scan runs all probes and returns the finalized report. Cancelling ctx (or
// hitting ScanTimeout) stops dispatch cooperatively; completed probes are
// kept and the report comes back with Incomplete set rather than an error.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	if s.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScanTimeout)
		defer cancel()
	}

	client := probe.NewClient(s.cfg.RequestTimeout, s.cfg.InsecureSkipVerify)
	if s.cfg.UserAgent != "" {
		client.UserAgent = s.cfg.UserAgent
	}

	retry := probe.DefaultRetryPolicy()
	retry.MaxAttempts = s.cfg.MaxAttempts

	runner := &Runner{
		Concurrency: s.cfg.Concurrency,
		RateLimit:   s.cfg.RateLimit,
		Client:      client,
		Retry:       retry,
		Logger:      s.log,
	}
	agg := &Aggregator{DB: s.db, Logger: s.log}

	s.log.Infow("scan started",
		"target", s.cfg.TargetURL,
		"targets", len(s.targets),
		"concurrency", s.cfg.Concurrency,
	)
	started := time.Now()
	report := agg.Collect(s.cfg.TargetURL, started, runner.Run(ctx, s.targets))
	s.log.Infow("scan finished",
		"duration", report.Duration(),
		"components", len(report.ComponentsFound),
		"findings", len(report.Findings),
		"errors", len(report.Errors),
		"incomplete", report.Incomplete,
	)
	return report, nil
}
