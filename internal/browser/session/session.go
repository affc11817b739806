// internal/browser/session/session.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagelens/api/schemas"
	"github.com/xkilldash9x/pagelens/internal/config"
)

// Session owns one browser tab for the lifetime of an audit: the exec
// allocator, the chromedp target context, and the network recorder that
// shadows the page load.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	recorder *Recorder

	mu       sync.Mutex
	isClosed bool
}

// Ensure Session satisfies the executor contract used by the driver.
var _ ActionExecutor = (*Session)(nil)

// NewSession launches a browser tab and starts network recording. The
// recorder must be listening before navigation or early transfers are lost.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	sessionLogger := logger.Named("session").With(zap.String("session_id", sessionID))

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, execOptions(cfg)...)

	var ctxOpts []chromedp.ContextOption
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(sessionLogger.Sugar().Debugf))
	}
	ctx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &Session{
		id:          sessionID,
		logger:      sessionLogger,
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
	}

	// Connect the target and enable network tracking before any navigation.
	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		s.teardown()
		return nil, fmt.Errorf("failed to connect browser target: %w", err)
	}

	s.recorder = NewRecorder(ctx, sessionLogger)
	s.recorder.Start(ctx)

	return s, nil
}

func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.DisableCache {
		opts = append(opts, chromedp.Flag("disable-application-cache", true))
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Context exposes the session's chromedp context for event listeners.
func (s *Session) Context() context.Context { return s.ctx }

// Records returns the transfer records observed since the session started.
func (s *Session) Records() []schemas.NetworkRecord {
	return s.recorder.Records()
}

// RunActions executes chromedp actions on the session target, honoring the
// operational context's cancellation and deadline.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	combined, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(combined, actions...)
	if err != nil {
		// Prefer the operational context's error so callers can tell a
		// deadline from a torn-down session.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("browser action interrupted: %w", ctxErr)
		}
	}
	return err
}

// Navigate drives the tab to the URL, waits for the load event (chromedp's
// navigate semantics), then waits for the network to go quiet so the
// transfer log is settled before the gathering pass starts.
func (s *Session) Navigate(ctx context.Context, targetURL string, quietPeriod time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	s.logger.Info("Navigating.", zap.String("url", targetURL))
	if err := s.RunActions(navCtx, chromedp.Navigate(targetURL)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", targetURL, err)
	}

	if quietPeriod > 0 {
		if err := s.recorder.WaitNetworkIdle(navCtx, quietPeriod); err != nil {
			// A busy page is not fatal; the pass runs against whatever loaded.
			s.logger.Warn("Network did not reach idle before timeout; proceeding.", zap.Error(err))
		}
	}
	return nil
}

// Close tears down the tab and the browser process. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return
	}
	s.isClosed = true

	s.recorder.Stop()
	s.teardown()
	s.logger.Debug("Session closed.")
}

func (s *Session) teardown() {
	// chromedp.Cancel waits for the browser process to exit gracefully.
	if err := chromedp.Cancel(s.ctx); err != nil && s.ctx.Err() == nil {
		s.logger.Debug("Graceful browser shutdown failed.", zap.Error(err))
	}
	s.cancel()
	s.allocCancel()
}
