package rodpage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// BrowserConfig selects how Chrome is obtained
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local one.
	RemoteURL string
	Headless  bool
	// NavigateTimeout bounds navigation and load. Default 30s.
	NavigateTimeout time.Duration
}

// Browser owns a Chrome connection
type Browser struct {
	cfg    BrowserConfig
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Launch starts or connects to Chrome
func Launch(cfg BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 30 * time.Second
	}

	b := &Browser{cfg: cfg, logger: logger}

	wsURL := cfg.RemoteURL
	if wsURL != "" {
		logger.Info("connecting to remote browser", zap.String("url", wsURL))
	} else {
		l := launcher.New().Headless(cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		logger.Info("launched local browser", zap.String("url", wsURL), zap.Bool("headless", cfg.Headless))
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		b.killLauncher()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.browser = rb
	return b, nil
}

// Open creates a stealth tab, navigates to url and waits for load
func (b *Browser) Open(ctx context.Context, url string) (*Page, error) {
	b.mu.Lock()
	rb := b.browser
	b.mu.Unlock()
	if rb == nil {
		return nil, fmt.Errorf("browser: closed")
	}

	page, err := stealth.Page(rb)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.logger.Warn("wait load timeout", zap.String("url", url), zap.Error(err))
	}

	return New(ctx, page, b.logger), nil
}

// Close disconnects and stops a locally launched Chrome
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	b.killLauncher()
	return err
}

func (b *Browser) killLauncher() {
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch = nil
	}
}
