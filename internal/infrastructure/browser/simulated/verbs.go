package simulated

import (
	"fmt"

	"browser-agent/internal/domain/entity"
	"browser-agent/internal/domain/grammar"
	"browser-agent/internal/infrastructure/browser/htmldom"
)

func navigate(doc *htmldom.Document, a grammar.Navigate) entity.ActionResult {
	switch grammar.ClassifyNavigation(a.URL) {
	case grammar.NavigateFull:
		if err := doc.Assign(a.URL); err != nil {
			return entity.Failure(err)
		}
	case grammar.NavigateHistory:
		// Targets the history cannot take (another origin, opaque schemes)
		// are handed to the location like unparseable ones.
		if err := doc.PushState(a.URL); err != nil {
			return fallbackNavigate(doc, a.URL)
		}
		doc.DispatchWindow(htmldom.Event{Type: "popstate", State: map[string]any{}})
	default:
		return fallbackNavigate(doc, a.URL)
	}

	return entity.Succeeded(map[string]any{
		"url":        a.URL,
		"currentUrl": doc.Location(),
	})
}

// fallbackNavigate sends the raw target straight to the location; whatever
// it does is not observed.
func fallbackNavigate(doc *htmldom.Document, raw string) entity.ActionResult {
	_ = doc.Assign(raw)
	return entity.Succeeded(map[string]any{"url": raw, "method": "fallback"})
}

func click(doc *htmldom.Document, a grammar.Click) entity.ActionResult {
	el, err := doc.QuerySelector(a.Selector)
	if err != nil {
		return entity.Failure(fmt.Errorf("querySelector: %w", err))
	}
	if el == nil {
		return entity.Failure(&entity.ElementNotFoundError{Selector: a.Selector})
	}

	if err := doc.Click(el); err != nil {
		return entity.Failure(err)
	}
	return entity.Succeeded(map[string]any{"selector": a.Selector})
}

func typeText(doc *htmldom.Document, a grammar.Type) entity.ActionResult {
	el, err := doc.QuerySelector(a.Selector)
	if err != nil {
		return entity.Failure(fmt.Errorf("querySelector: %w", err))
	}
	if el == nil {
		return entity.Failure(&entity.ElementNotFoundError{Selector: a.Selector})
	}

	doc.Focus(el)
	doc.SetValue(el, a.Text)
	doc.Dispatch(el, htmldom.Event{Type: "input", Bubbles: true})
	doc.Dispatch(el, htmldom.Event{Type: "change", Bubbles: true})

	return entity.Succeeded(map[string]any{"selector": a.Selector, "text": a.Text})
}

func press(doc *htmldom.Document, a grammar.Press) entity.ActionResult {
	code, keyCode := grammar.KeyCode(a.Key)
	doc.Dispatch(doc.ActiveElement(), htmldom.Event{
		Type:    "keydown",
		Bubbles: true,
		Key:     a.Key,
		Code:    code,
		KeyCode: keyCode,
	})
	return entity.Succeeded(map[string]any{"key": a.Key})
}
