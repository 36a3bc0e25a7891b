package prompt

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/rs/zerolog/log"
)

// SourceBuiltin marks templates compiled into the binary.
const SourceBuiltin = "builtin"

// Template is a parsed prompt template. It is immutable once built and safe
// for concurrent use.
type Template struct {
	name         string
	text         string
	description  string
	source       string
	tmpl         *template.Template
	placeholders []string
}

// New parses text and records the placeholders it references.
func New(name, text string) (*Template, error) {
	return newTemplate(name, text, "", SourceBuiltin)
}

func newTemplate(name, text, description, source string) (*Template, error) {
	parsed, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}

	seen := make(map[string]struct{})
	if parsed.Tree != nil {
		collectFields(parsed.Tree.Root, seen)
	}
	placeholders := make([]string, 0, len(seen))
	for key := range seen {
		placeholders = append(placeholders, key)
	}
	sort.Strings(placeholders)

	return &Template{
		name:         name,
		text:         text,
		description:  description,
		source:       source,
		tmpl:         parsed,
		placeholders: placeholders,
	}, nil
}

// Must panics if err is non-nil. It is meant for package-level templates.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Name() string        { return t.name }
func (t *Template) Text() string        { return t.text }
func (t *Template) Description() string { return t.description }
func (t *Template) Source() string      { return t.source }
func (t *Template) String() string      { return t.text }

// Placeholders returns the sorted placeholder names the template expects.
func (t *Template) Placeholders() []string {
	out := make([]string, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

// Render substitutes values into the template. Every placeholder must have an
// entry in values; extra entries are ignored. Values are written verbatim.
func (t *Template) Render(values map[string]string) (string, error) {
	var missing []string
	for _, key := range t.placeholders {
		if _, ok := values[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "", &MissingKeyError{Template: t.name, Keys: missing}
	}

	data := values
	if data == nil {
		data = map[string]string{}
	}

	var out strings.Builder
	if err := t.tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", t.name, err)
	}

	log.Debug().
		Str("template", t.name).
		Int("bytes", out.Len()).
		Msg("Rendered template")

	return out.String(), nil
}

// Render parses text and renders it in one step.
func Render(text string, values map[string]string) (string, error) {
	t, err := newTemplate("inline", text, "", "inline")
	if err != nil {
		return "", err
	}
	return t.Render(values)
}

// collectFields records the root map keys a template reads. Inside range and
// with bodies dot is rebound, so only $.name references count there.
func collectFields(node parse.Node, seen map[string]struct{}) {
	walkFields(node, seen, true)
}

func walkFields(node parse.Node, seen map[string]struct{}, rootDot bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walkFields(child, seen, rootDot)
		}
	case *parse.ActionNode:
		walkFields(n.Pipe, seen, rootDot)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			walkFields(cmd, seen, rootDot)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			walkFields(arg, seen, rootDot)
		}
	case *parse.ChainNode:
		walkFields(n.Node, seen, rootDot)
	case *parse.FieldNode:
		if rootDot {
			seen[n.Ident[0]] = struct{}{}
		}
	case *parse.VariableNode:
		// $.name refers to the root map.
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			seen[n.Ident[1]] = struct{}{}
		}
	case *parse.IfNode:
		walkFields(n.Pipe, seen, rootDot)
		walkFields(n.List, seen, rootDot)
		walkFields(n.ElseList, seen, rootDot)
	case *parse.RangeNode:
		walkFields(n.Pipe, seen, rootDot)
		walkFields(n.List, seen, false)
		walkFields(n.ElseList, seen, rootDot)
	case *parse.WithNode:
		walkFields(n.Pipe, seen, rootDot)
		walkFields(n.List, seen, false)
		walkFields(n.ElseList, seen, rootDot)
	case *parse.TemplateNode:
		walkFields(n.Pipe, seen, rootDot)
	}
}
