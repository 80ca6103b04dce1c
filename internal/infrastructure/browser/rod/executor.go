package rod

import (
	"context"
	"fmt"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/domain/grammar"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

var _ output.PageExecutor = (*PageExecutor)(nil)

// Scripts run inside the page so that click, input and key events are the
// synthetic DOM ones rather than CDP input emulation.
const (
	pushStateJS = `(url) => {
		try {
			history.pushState({}, "", url);
		} catch (e) {
			return null;
		}
		window.dispatchEvent(new PopStateEvent("popstate", { state: {} }));
		return window.location.href;
	}`

	assignJS = `(url) => { window.location.href = url; }`

	clickJS = `(selector) => {
		const el = document.querySelector(selector);
		if (!el) return false;
		el.click();
		return true;
	}`

	typeJS = `(selector, text) => {
		const el = document.querySelector(selector);
		if (!el) return false;
		el.focus();
		el.value = text;
		el.dispatchEvent(new Event("input", { bubbles: true }));
		el.dispatchEvent(new Event("change", { bubbles: true }));
		return true;
	}`

	pressJS = `(key, code, keyCode) => {
		const target = document.activeElement || document.body;
		target.dispatchEvent(new KeyboardEvent("keydown", {
			key: key, code: code, keyCode: keyCode, which: keyCode, bubbles: true,
		}));
		return true;
	}`
)

// PageExecutor applies actions to one live page.
type PageExecutor struct {
	page    *rod.Page
	timeout time.Duration
	logger  output.LoggerPort
}

func (e *PageExecutor) Execute(ctx context.Context, action grammar.Action) entity.ActionResult {
	p := e.page.Context(ctx).Timeout(e.timeout)

	switch a := action.(type) {
	case grammar.Navigate:
		return e.navigate(p, a)
	case grammar.Click:
		return e.withElement(p, a.Selector, clickJS, map[string]any{"selector": a.Selector}, a.Selector)
	case grammar.Type:
		return e.withElement(p, a.Selector, typeJS, map[string]any{"selector": a.Selector, "text": a.Text}, a.Selector, a.Text)
	case grammar.Press:
		code, keyCode := grammar.KeyCode(a.Key)
		if _, err := p.Eval(pressJS, a.Key, code, keyCode); err != nil {
			return entity.Failure(err)
		}
		return entity.Succeeded(map[string]any{"key": a.Key})
	default:
		return entity.Failure(&entity.UnsupportedActionError{Code: action.Code()})
	}
}

func (e *PageExecutor) navigate(p *rod.Page, a grammar.Navigate) entity.ActionResult {
	switch grammar.ClassifyNavigation(a.URL) {
	case grammar.NavigateFull:
		if err := p.Navigate(a.URL); err != nil {
			return entity.Failure(fmt.Errorf("navigation failed: %w", err))
		}
		if err := p.WaitLoad(); err != nil {
			return entity.Failure(fmt.Errorf("page did not load: %w", err))
		}
		info, err := p.Info()
		if err != nil {
			return entity.Failure(err)
		}
		return entity.Succeeded(map[string]any{"url": a.URL, "currentUrl": info.URL})

	case grammar.NavigateHistory:
		res, err := p.Eval(pushStateJS, a.URL)
		if err != nil {
			return entity.Failure(err)
		}
		// null means the history refused the target.
		if res.Value.Nil() {
			return e.fallback(p, a.URL)
		}
		return entity.Succeeded(map[string]any{"url": a.URL, "currentUrl": res.Value.Str()})

	default:
		return e.fallback(p, a.URL)
	}
}

func (e *PageExecutor) fallback(p *rod.Page, raw string) entity.ActionResult {
	if _, err := p.Eval(assignJS, raw); err != nil {
		e.logger.Warn("Fallback navigation reported an error", "url", raw, "error", err)
	}
	return entity.Succeeded(map[string]any{"url": raw, "method": "fallback"})
}

func (e *PageExecutor) withElement(p *rod.Page, selector, js string, data map[string]any, args ...any) entity.ActionResult {
	res, err := p.Eval(js, args...)
	if err != nil {
		return entity.Failure(err)
	}
	if !truthy(res.Value) {
		return entity.Failure(&entity.ElementNotFoundError{Selector: selector})
	}
	return entity.Succeeded(data)
}

func truthy(v gson.JSON) bool {
	return !v.Nil() && v.Bool()
}
