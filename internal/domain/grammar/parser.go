// Package grammar parses action codes such as click(".btn") into typed actions.
//
//	action := verb "(" string { "," string } ")"
//	verb   := "navigate" | "click" | "type" | "press"
//	string := '"' { any byte except '"' } '"'
//
// Verbs are case-sensitive. Arguments are kept verbatim and must be non-empty.
package grammar

import (
	"fmt"
	"strings"

	"browser-agent/internal/domain/entity"
)

type Verb string

const (
	VerbNavigate Verb = "navigate"
	VerbClick    Verb = "click"
	VerbType     Verb = "type"
	VerbPress    Verb = "press"
)

// Verbs lists the supported verbs in matching order.
var Verbs = []Verb{VerbNavigate, VerbClick, VerbType, VerbPress}

var arity = map[Verb][]string{
	VerbNavigate: {"url"},
	VerbClick:    {"selector"},
	VerbType:     {"selector", "text"},
	VerbPress:    {"key"},
}

// Params returns the argument names for a verb, in order.
func Params(v Verb) []string {
	return arity[v]
}

// Action is one of Navigate, Click, Type or Press.
type Action interface {
	Verb() Verb
	Code() string
}

type Navigate struct{ URL string }

type Click struct{ Selector string }

type Type struct {
	Selector string
	Text     string
}

type Press struct{ Key string }

func (Navigate) Verb() Verb { return VerbNavigate }
func (Click) Verb() Verb    { return VerbClick }
func (Type) Verb() Verb     { return VerbType }
func (Press) Verb() Verb    { return VerbPress }

func (a Navigate) Code() string { return format(VerbNavigate, a.URL) }
func (a Click) Code() string    { return format(VerbClick, a.Selector) }
func (a Type) Code() string     { return format(VerbType, a.Selector, a.Text) }
func (a Press) Code() string    { return format(VerbPress, a.Key) }

func format(v Verb, args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = `"` + a + `"`
	}
	return fmt.Sprintf("%s(%s)", v, strings.Join(quoted, ", "))
}

// Parse turns an action code into a typed Action. It fails with
// *entity.UnsupportedActionError when the code is not a call to a known verb
// and with *entity.MalformedArgumentsError when the verb is known but its
// arguments have the wrong shape.
func Parse(code string) (Action, error) {
	p := &parser{code: code, toks: tokenize(code)}
	return p.parse()
}

type parser struct {
	code string
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) parse() (Action, error) {
	head := p.advance()
	if head.kind != tokIdent {
		return nil, &entity.UnsupportedActionError{Code: p.code}
	}

	verb := Verb(head.text)
	params, known := arity[verb]
	if !known || p.peek().kind != tokLParen {
		return nil, &entity.UnsupportedActionError{Code: p.code}
	}
	p.advance()

	args, err := p.arguments(verb)
	if err != nil {
		return nil, err
	}
	if len(args) != len(params) {
		return nil, &entity.MalformedArgumentsError{
			Verb:   string(verb),
			Reason: fmt.Sprintf("expected %d argument(s) (%s), got %d", len(params), strings.Join(params, ", "), len(args)),
		}
	}
	for i, a := range args {
		if a == "" {
			return nil, &entity.MalformedArgumentsError{
				Verb:   string(verb),
				Reason: fmt.Sprintf("argument %q must not be empty", params[i]),
			}
		}
	}

	switch verb {
	case VerbNavigate:
		return Navigate{URL: args[0]}, nil
	case VerbClick:
		return Click{Selector: args[0]}, nil
	case VerbType:
		return Type{Selector: args[0], Text: args[1]}, nil
	default:
		return Press{Key: args[0]}, nil
	}
}

// arguments reads `string {, string} )` followed by end of input.
func (p *parser) arguments(verb Verb) ([]string, error) {
	malformed := func(t token, want string) error {
		return &entity.MalformedArgumentsError{
			Verb:   string(verb),
			Reason: fmt.Sprintf("expected %s, found %s", want, t),
		}
	}

	var args []string
	if p.peek().kind == tokRParen {
		p.advance()
	} else {
		for {
			t := p.advance()
			if t.kind != tokString {
				return nil, malformed(t, "quoted string")
			}
			args = append(args, t.text)

			sep := p.advance()
			if sep.kind == tokRParen {
				break
			}
			if sep.kind != tokComma {
				return nil, malformed(sep, "',' or ')'")
			}
		}
	}

	if t := p.advance(); t.kind != tokEOF {
		return nil, malformed(t, "end of input")
	}
	return args, nil
}
