package prompts

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	template := `Test template

{{range .Verbs -}}
- {{.Signature}}: {{.Hint}}
{{end}}`

	result, err := Generate("test", template)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(result, "Test template") {
		t.Error("Result should contain base template text")
	}

	for _, want := range []string{
		"- navigate(url): Navigate to a specific URL",
		"- click(selector): Click on an element",
		"- type(selector, text): Type text",
		"- press(key): Press a keyboard key",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Result should contain %q", want)
		}
	}
}

func TestGenerateInvalidTemplate(t *testing.T) {
	if _, err := Generate("broken", "{{range .Verbs}"); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestVerbsOrder(t *testing.T) {
	verbs := Verbs()
	if len(verbs) != 4 {
		t.Fatalf("Expected 4 verbs, got %d", len(verbs))
	}

	names := []string{"navigate", "click", "type", "press"}
	for i, v := range verbs {
		if v.Name != names[i] {
			t.Errorf("verb %d: expected %s, got %s", i, names[i], v.Name)
		}
		if v.Hint == "" {
			t.Errorf("verb %s has no hint", v.Name)
		}
	}
}
