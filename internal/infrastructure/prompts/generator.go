package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"browser-agent/internal/domain/grammar"
)

var verbHints = map[grammar.Verb]string{
	grammar.VerbNavigate: "Navigate to a specific URL, absolute or relative to the current page",
	grammar.VerbClick:    "Click on an element matching the CSS selector",
	grammar.VerbType:     "Type text into an input field matching the selector",
	grammar.VerbPress:    `Press a keyboard key (e.g. "Enter", "ArrowDown")`,
}

type VerbInfo struct {
	Name      string
	Signature string
	Hint      string
}

type PromptData struct {
	Verbs []VerbInfo
}

// Verbs describes the action grammar for prompt templates, in grammar order.
func Verbs() []VerbInfo {
	infos := make([]VerbInfo, 0, len(grammar.Verbs))
	for _, v := range grammar.Verbs {
		infos = append(infos, VerbInfo{
			Name:      string(v),
			Signature: fmt.Sprintf("%s(%s)", v, strings.Join(grammar.Params(v), ", ")),
			Hint:      verbHints[v],
		})
	}
	return infos
}

func Generate(name, baseTemplate string) (string, error) {
	tmpl, err := template.New(name).Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, PromptData{Verbs: Verbs()}); err != nil {
		return "", err
	}

	return buf.String(), nil
}
