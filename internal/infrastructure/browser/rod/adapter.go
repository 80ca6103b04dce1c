package rod

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var (
	_ output.TargetLocator = (*BrowserAdapter)(nil)
	_ output.PageInspector = (*BrowserAdapter)(nil)
)

const (
	defaultTimeout     = 10 * time.Second
	defaultSlowMotion  = 0
	snapshotTextLimit  = 1000
	maxScreenshotWidth = 1024
)

// BrowserAdapter owns a Chrome instance and tracks which of its pages is the
// active target for incoming actions.
type BrowserAdapter struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration
	closed   bool
	logger   output.LoggerPort
}

type BrowserConfig struct {
	Headless                bool
	SlowMotion              time.Duration
	Timeout                 time.Duration
	NoSandbox               bool
	DevTools                bool
	DisableSecurityFeatures bool
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   false,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig, logger output.LoggerPort) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")

	if cfg.DisableSecurityFeatures {
		l = l.Set("disable-web-security").
			Set("allow-running-insecure-content")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(controlURL).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	logger.Info("Browser launched", "headless", cfg.Headless, "timeout", cfg.Timeout)

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
		logger:   logger,
	}, nil
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.page != nil
}

// Open loads url in the active page, creating one if the previous page was
// closed.
func (b *BrowserAdapter) Open(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("browser is closed")
	}

	if b.page == nil {
		page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return fmt.Errorf("failed to open page: %w", err)
		}
		b.page = page
	}

	p := b.page.Context(ctx).Timeout(b.timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("page did not load: %w", err)
	}
	return nil
}

// ClosePage drops the active page. Later actions fail with no active target
// until Open is called again.
func (b *BrowserAdapter) ClosePage() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.page == nil {
		return nil
	}
	err := b.page.Close()
	b.page = nil
	return err
}

func (b *BrowserAdapter) ActiveTarget(ctx context.Context) (output.PageExecutor, error) {
	b.mu.Lock()
	page := b.page
	closed := b.closed
	b.mu.Unlock()

	if closed || page == nil {
		return nil, &entity.NoActiveTargetError{}
	}
	if _, err := page.Context(ctx).Timeout(b.timeout).Info(); err != nil {
		b.logger.Warn("Active page is unreachable", "error", err)
		return nil, &entity.NoActiveTargetError{}
	}

	return &PageExecutor{page: page, timeout: b.timeout, logger: b.logger}, nil
}

func (b *BrowserAdapter) Snapshot(ctx context.Context, opts output.SnapshotOptions) (*output.PageSnapshot, error) {
	b.mu.Lock()
	page := b.page
	b.mu.Unlock()

	if page == nil {
		return nil, &entity.NoActiveTargetError{}
	}
	p := page.Context(ctx).Timeout(b.timeout)

	info, err := p.Info()
	if err != nil {
		return nil, fmt.Errorf("page info failed: %w", err)
	}

	res, err := p.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return nil, fmt.Errorf("failed to read page text: %w", err)
	}

	snap := &output.PageSnapshot{
		URL:   info.URL,
		Title: info.Title,
		Text:  truncate(strings.Join(strings.Fields(res.Value.Str()), " "), snapshotTextLimit),
	}

	if opts.Screenshot {
		shot, err := screenshot(p)
		if err != nil {
			return nil, err
		}
		snap.Screenshot = shot
	}
	return snap, nil
}

func screenshot(p *rod.Page) ([]byte, error) {
	imgBytes, err := p.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > maxScreenshotWidth {
		img = imaging.Resize(img, maxScreenshotWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *BrowserAdapter) CurrentURL() string {
	b.mu.Lock()
	page := b.page
	b.mu.Unlock()

	if page == nil {
		return ""
	}
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.page = nil

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
