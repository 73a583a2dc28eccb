package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/adurham/homelab-sub000/internal/config"
	"github.com/adurham/homelab-sub000/internal/relabel"
	"github.com/adurham/homelab-sub000/internal/scraper"
	"github.com/adurham/homelab-sub000/internal/security"
	"github.com/adurham/homelab-sub000/internal/shipper"
	"github.com/adurham/homelab-sub000/internal/token"
)

// Failure classes. Every stage error wraps exactly one of these so the
// top-level handler can report which kind of failure ended the run;
// anything that matches none of them is the unexpected-error bucket.
var (
	ErrConfig       = errors.New("configuration error")
	ErrToken        = errors.New("token error")
	ErrNetwork      = errors.New("network error")
	ErrSinkRejected = errors.New("sink rejected")
)

// tokenSource yields a validated, non-expired bearer token.
type tokenSource interface {
	Ensure(ctx context.Context) (token.Token, error)
}

// fetcher performs the authenticated scrape.
type fetcher interface {
	Fetch(ctx context.Context, tok string) (string, error)
}

// pusher delivers the enriched corpus to the sink.
type pusher interface {
	Push(ctx context.Context, corpus string) error
}

// Pipeline sequences one relay run: token lifecycle, scrape, label
// injection, push. It owns the run-level advisory lock that keeps
// overlapping invocations from racing on the token file.
type Pipeline struct {
	cfg      *config.Config
	tokens   tokenSource
	scraper  fetcher
	shipper  pusher
	injector *relabel.Injector

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// New wires a Pipeline from the loaded configuration.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		tokens: &token.Manager{
			StorePath:   cfg.TokenFile,
			ValidateURL: cfg.TokenService.ValidateURL,
			RenewURL:    cfg.TokenService.RenewURL,
			RenewWithin: cfg.RenewWithin,
			Client:      newTokenClient(cfg.Timeout),
		},
		scraper:  scraper.New(cfg.Source.URL, cfg.Source.InsecureSkipVerify, cfg.Timeout),
		shipper:  shipper.New(cfg.Sink.URL, cfg.Timeout),
		injector: relabel.NewInjector(cfg.Labels),
	}
}

// Run executes the full sequence. It is all-or-nothing: the first
// stage failure aborts the run and no later stage executes.
func (p *Pipeline) Run(ctx context.Context) error {
	lock := flock.New(p.cfg.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("pipeline: acquire run lock %q: %w: %w", p.cfg.LockFile, ErrConfig, err)
	}
	if !locked {
		return fmt.Errorf("pipeline: %w: run already in progress (lock %q held)", ErrConfig, p.cfg.LockFile)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("pipeline: release run lock", "path", p.cfg.LockFile, "err", err)
		}
	}()

	tok, err := p.stageToken(ctx)
	if err != nil {
		return err
	}

	raw, err := p.stageScrape(ctx, tok)
	if err != nil {
		return err
	}

	corpus, err := p.stageInject(ctx, raw)
	if err != nil {
		return err
	}

	return p.stagePush(ctx, corpus)
}

func (p *Pipeline) stageToken(ctx context.Context) (token.Token, error) {
	done := p.stageStart("token")
	tok, err := p.tokens.Ensure(ctx)
	done(err)
	if err != nil {
		return token.Token{}, fmt.Errorf("pipeline: token stage: %w: %w", ErrToken, err)
	}
	slog.Info("pipeline: token valid", "id", tok.ID, "expiry", tok.Expiry)
	return tok, nil
}

func (p *Pipeline) stageScrape(ctx context.Context, tok token.Token) (string, error) {
	if p.cfg.Debug {
		if info := security.Inspect(ctx, p.cfg.Source.URL, p.cfg.Source.InsecureSkipVerify); info != nil {
			slog.Info("pipeline: source certificate",
				"status", info.Status, "issuer", info.Issuer,
				"not_after", info.NotAfter, "days_left", info.DaysLeft)
		}
	}

	done := p.stageStart("scrape")
	raw, err := p.scraper.Fetch(ctx, tok.Value)
	done(err)
	if err != nil {
		return "", fmt.Errorf("pipeline: scrape stage: %w: %w", ErrNetwork, err)
	}

	if err := p.keepArtifact("raw.prom", raw); err != nil {
		return "", err
	}
	return raw, nil
}

func (p *Pipeline) stageInject(_ context.Context, raw string) (string, error) {
	done := p.stageStart("inject")
	corpus, err := p.injector.Apply(raw, p.clock())
	done(err)
	if err != nil {
		return "", fmt.Errorf("pipeline: inject stage: %w", err)
	}

	if p.cfg.Debug {
		if st, err := relabel.CorpusStats(strings.NewReader(corpus)); err != nil {
			slog.Warn("pipeline: enriched corpus does not parse cleanly", "err", err)
		} else {
			slog.Info("pipeline: enriched corpus", "families", st.Families, "samples", st.Samples)
		}
	}
	if err := p.keepArtifact("enriched.prom", corpus); err != nil {
		return "", err
	}
	return corpus, nil
}

func (p *Pipeline) stagePush(ctx context.Context, corpus string) error {
	done := p.stageStart("push")
	err := p.shipper.Push(ctx, corpus)
	done(err)
	if err != nil {
		var rejected *shipper.StatusError
		if errors.As(err, &rejected) {
			return fmt.Errorf("pipeline: push stage: %w: %w", ErrSinkRejected, err)
		}
		return fmt.Errorf("pipeline: push stage: %w: %w", ErrNetwork, err)
	}
	slog.Info("pipeline: run complete", "bytes", len(corpus))
	return nil
}

// stageStart logs stage entry and returns the matching exit logger.
// In debug mode the exit line carries the stage duration in ms.
func (p *Pipeline) stageStart(name string) func(error) {
	slog.Info("pipeline: stage starting", "stage", name)
	start := time.Now()
	return func(err error) {
		attrs := []any{"stage", name}
		if p.cfg.Debug {
			attrs = append(attrs, "duration_ms", time.Since(start).Milliseconds())
		}
		if err != nil {
			slog.Error("pipeline: stage failed", append(attrs, "err", err)...)
			return
		}
		slog.Info("pipeline: stage finished", attrs...)
	}
}

// keepArtifact writes an intermediate corpus under debug_dir.
// A no-op unless debug mode is on.
func (p *Pipeline) keepArtifact(name, body string) error {
	if !p.cfg.Debug {
		return nil
	}
	if err := os.MkdirAll(p.cfg.DebugDir, 0o755); err != nil {
		return fmt.Errorf("pipeline: create debug dir: %w", err)
	}
	path := filepath.Join(p.cfg.DebugDir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("pipeline: keep artifact %q: %w", path, err)
	}
	slog.Info("pipeline: kept debug artifact", "path", path, "bytes", len(body))
	return nil
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// newTokenClient builds the HTTP client the token manager talks to the
// token service with. The service sits behind the same internal CA as
// the source but is reached over plain TLS with verification on; only
// the scrape relaxes it.
func newTokenClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
