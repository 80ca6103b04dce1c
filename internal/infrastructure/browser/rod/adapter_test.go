package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/domain/grammar"
	"browser-agent/internal/infrastructure/logger"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Headless)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.EqualValues(t, defaultSlowMotion, cfg.SlowMotion)
	assert.False(t, cfg.NoSandbox, "Should be secure by default")
	assert.False(t, cfg.DisableSecurityFeatures, "Should be secure by default")
}

func newTestAdapter(t *testing.T) *BrowserAdapter {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	if _, has := launcher.LookPath(); !has {
		t.Skip("Chrome not found")
	}

	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.NoSandbox = true

	adapter, err := NewBrowserAdapter(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(adapter.Close)
	return adapter
}

func serve(t *testing.T, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func execute(t *testing.T, adapter *BrowserAdapter, action grammar.Action) entity.ActionResult {
	t.Helper()
	target, err := adapter.ActiveTarget(context.Background())
	require.NoError(t, err)
	return target.Execute(context.Background(), action)
}

func text(t *testing.T, adapter *BrowserAdapter, selector string) string {
	t.Helper()
	res, err := adapter.page.Eval(`(s) => document.querySelector(s).textContent`, selector)
	require.NoError(t, err)
	return res.Value.Str()
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日", truncate("日本語", 4))
	assert.Equal(t, "", truncate("日本語", 2))
}

func TestNewBrowserAdapter_WithNilContext(t *testing.T) {
	if _, has := launcher.LookPath(); !has {
		t.Skip("Chrome not found")
	}
	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.NoSandbox = true
	cfg.Timeout = 0

	//nolint:staticcheck
	adapter, err := NewBrowserAdapter(nil, cfg, logger.NewNop())
	require.NoError(t, err)
	defer adapter.Close()

	assert.True(t, adapter.IsReady())
	assert.Equal(t, defaultTimeout, adapter.timeout)
}

func TestBrowserAdapter_NavigateAbsolute(t *testing.T) {
	adapter := newTestAdapter(t)
	url := serve(t, BasicHTML)

	res := execute(t, adapter, grammar.Navigate{URL: url})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, url+"/", res.Data["currentUrl"])
	assert.Equal(t, url+"/", adapter.CurrentURL())
}

func TestBrowserAdapter_NavigateRelative(t *testing.T) {
	adapter := newTestAdapter(t)
	url := serve(t, RouterHTML)
	require.NoError(t, adapter.Open(context.Background(), url))

	res := execute(t, adapter, grammar.Navigate{URL: "/inbox"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, url+"/inbox", res.Data["currentUrl"])
	assert.Equal(t, "/inbox", text(t, adapter, "#route"))
}

func TestBrowserAdapter_NavigateRefusedByHistory(t *testing.T) {
	adapter := newTestAdapter(t)
	url := serve(t, RouterHTML)
	require.NoError(t, adapter.Open(context.Background(), url))

	res := execute(t, adapter, grammar.Navigate{URL: "javascript:void(0)"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "fallback", res.Data["method"])
	assert.Equal(t, "", text(t, adapter, "#route"))
}

func TestBrowserAdapter_Click(t *testing.T) {
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.Open(context.Background(), serve(t, InteractiveHTML)))

	res := execute(t, adapter, grammar.Click{Selector: ".go"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Clicked!", text(t, adapter, "#result"))

	res = execute(t, adapter, grammar.Click{Selector: ".missing"})
	assert.False(t, res.Success)
	assert.Equal(t, "Element not found: .missing", res.Error)
}

func TestBrowserAdapter_Click_InvalidSelector(t *testing.T) {
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.Open(context.Background(), serve(t, InteractiveHTML)))

	res := execute(t, adapter, grammar.Click{Selector: "[["})
	assert.False(t, res.Success)
	assert.Equal(t, entity.KindExecution, res.Kind)
}

func TestBrowserAdapter_Type(t *testing.T) {
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.Open(context.Background(), serve(t, FormHTML)))

	res := execute(t, adapter, grammar.Type{Selector: "#q", Text: "hello"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, map[string]any{"selector": "#q", "text": "hello"}, res.Data)
	value, err := adapter.page.Eval(`() => document.getElementById('q').value`)
	require.NoError(t, err)
	assert.Equal(t, "hello", value.Value.Str())
	assert.Equal(t, "input;change;", text(t, adapter, "#events"))
}

func TestBrowserAdapter_Press(t *testing.T) {
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.Open(context.Background(), serve(t, InteractiveHTML)))

	res := execute(t, adapter, grammar.Press{Key: "Enter"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Enter/Enter", text(t, adapter, "#result"))

	execute(t, adapter, grammar.Press{Key: "a"})
	assert.Equal(t, "a/KeyA", text(t, adapter, "#result"))
}

func TestBrowserAdapter_Snapshot(t *testing.T) {
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.Open(context.Background(), serve(t, BasicHTML)))

	snap, err := adapter.Snapshot(context.Background(), output.SnapshotOptions{Screenshot: true})
	require.NoError(t, err)
	assert.Equal(t, "Test Page", snap.Title)
	assert.Equal(t, "Hello World", snap.Text)
	assert.NotEmpty(t, snap.Screenshot)
}

func TestBrowserAdapter_NoActiveTarget(t *testing.T) {
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.ClosePage())

	_, err := adapter.ActiveTarget(context.Background())
	assert.ErrorIs(t, err, entity.ErrNoActiveTarget)

	require.NoError(t, adapter.Open(context.Background(), serve(t, BasicHTML)))
	_, err = adapter.ActiveTarget(context.Background())
	assert.NoError(t, err)
}

func TestBrowserAdapter_Close(t *testing.T) {
	adapter := newTestAdapter(t)

	adapter.Close()
	adapter.Close()

	assert.False(t, adapter.IsReady())
	_, err := adapter.ActiveTarget(context.Background())
	assert.ErrorIs(t, err, entity.ErrNoActiveTarget)
	assert.Error(t, adapter.Open(context.Background(), "about:blank"))
}
