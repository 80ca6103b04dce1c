package grammar

import (
	"net/url"
	"strings"
)

// NavigationKind says how a navigate target must be applied to the page.
type NavigationKind int

const (
	// NavigateFull loads an absolute URL as a new document.
	NavigateFull NavigationKind = iota
	// NavigateHistory pushes a same-document history entry and fires popstate.
	NavigateHistory
	// NavigateFallback is used when the target cannot be parsed at all. The
	// raw string is assigned to the location and the result is degraded.
	NavigateFallback
)

// Only these schemes carry a non-opaque origin.
var originSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
	"ftp":   true,
}

// ClassifyNavigation decides how raw should be navigated to.
func ClassifyNavigation(raw string) NavigationKind {
	u, err := url.Parse(raw)
	if err != nil {
		return NavigateFallback
	}
	if originSchemes[strings.ToLower(u.Scheme)] && u.Host != "" {
		return NavigateFull
	}
	return NavigateHistory
}

var namedKeyCodes = map[string]int{
	"Backspace":  8,
	"Tab":        9,
	"Enter":      13,
	"Shift":      16,
	"Control":    17,
	"Alt":        18,
	"Escape":     27,
	"Space":      32,
	"PageUp":     33,
	"PageDown":   34,
	"End":        35,
	"Home":       36,
	"ArrowLeft":  37,
	"ArrowUp":    38,
	"ArrowRight": 39,
	"ArrowDown":  40,
	"Delete":     46,
}

// KeyCode derives the KeyboardEvent code and legacy keyCode for key.
// Single characters become "Key"+upper, named keys pass through.
func KeyCode(key string) (code string, keyCode int) {
	runes := []rune(key)
	if len(runes) == 1 {
		upper := strings.ToUpper(key)
		return "Key" + upper, int([]rune(upper)[0])
	}
	if kc, ok := namedKeyCodes[key]; ok {
		return key, kc
	}
	if len(runes) == 0 {
		return key, 0
	}
	return key, int(runes[0])
}
