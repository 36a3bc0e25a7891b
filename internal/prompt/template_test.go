package prompt

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placeholderSyntax = regexp.MustCompile(`\{\{[^}]*\}\}|\{(branch|files|diff|message)\}`)

func TestBuiltinPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		tmpl *Template
		want []string
	}{
		{name: "commit prompt", tmpl: CommitPrompt, want: []string{"branch", "diff", "files"}},
		{name: "commit template", tmpl: CommitTemplate, want: []string{"branch", "message"}},
		{name: "system prompt", tmpl: SystemPrompt, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tmpl.Placeholders())
			assert.Equal(t, SourceBuiltin, tt.tmpl.Source())
		})
	}
}

func TestRenderCommitPrompt(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{
			name: "typical values",
			values: map[string]string{
				KeyBranch: "feature/login",
				KeyFiles:  "- auth.go\n- login.go",
				KeyDiff:   "diff --git a/auth.go b/auth.go\n+func Login() {}",
			},
		},
		{
			name:   "empty values",
			values: map[string]string{KeyBranch: "", KeyFiles: "", KeyDiff: ""},
		},
		{
			name: "values with special characters",
			values: map[string]string{
				KeyBranch: "fix/%s-<html>&",
				KeyFiles:  "  padded.go  ",
				KeyDiff:   "-\t\"quoted\"\n+ `raw` \\ backslash",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CommitPrompt.Render(tt.values)
			require.NoError(t, err)

			want := "Generate a commit message for the following changes.\n" +
				"Current branch: " + tt.values[KeyBranch] + "\n\n" +
				"Changed files:\n" + tt.values[KeyFiles] + "\n\n" +
				"Git diff:\n" + tt.values[KeyDiff] + "\n\n" +
				"Return only:\n" +
				"1. A high-level title (without the commit type or branch)\n" +
				"2. A list of bullet points\n" +
				"3. No signatures or additional sections"
			assert.Equal(t, want, got)
			assert.Empty(t, placeholderSyntax.FindAllString(got, -1))
		})
	}
}

func TestRenderCommitTemplate(t *testing.T) {
	got, err := CommitTemplate.Render(map[string]string{
		KeyBranch:  "main",
		KeyMessage: "add login",
	})
	require.NoError(t, err)
	assert.Equal(t, "feat(main): add login", got)
}

func TestRenderSystemPromptIsStable(t *testing.T) {
	first, err := SystemPrompt.Render(nil)
	require.NoError(t, err)
	second, err := SystemPrompt.Render(map[string]string{KeyBranch: "ignored"})
	require.NoError(t, err)

	assert.Equal(t, SystemPromptText, first)
	assert.Equal(t, first, second)
	assert.Empty(t, placeholderSyntax.FindAllString(first, -1))
}

func TestRenderMissingKey(t *testing.T) {
	full := map[string]string{
		KeyBranch:  "main",
		KeyFiles:   "a.go",
		KeyDiff:    "+x",
		KeyMessage: "msg",
	}

	tests := []struct {
		name string
		tmpl *Template
		drop []string
	}{
		{name: "prompt without branch", tmpl: CommitPrompt, drop: []string{KeyBranch}},
		{name: "prompt without files", tmpl: CommitPrompt, drop: []string{KeyFiles}},
		{name: "prompt without diff", tmpl: CommitPrompt, drop: []string{KeyDiff}},
		{name: "prompt without anything", tmpl: CommitPrompt, drop: []string{KeyBranch, KeyDiff, KeyFiles}},
		{name: "template without branch", tmpl: CommitTemplate, drop: []string{KeyBranch}},
		{name: "template without message", tmpl: CommitTemplate, drop: []string{KeyMessage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make(map[string]string, len(full))
			for k, v := range full {
				values[k] = v
			}
			for _, k := range tt.drop {
				delete(values, k)
			}

			got, err := tt.tmpl.Render(values)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, ErrMissingKey))

			var missing *MissingKeyError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.tmpl.Name(), missing.Template)
			assert.Equal(t, tt.drop, missing.Keys)
		})
	}
}

func TestRenderIgnoresExtraKeys(t *testing.T) {
	got, err := CommitTemplate.Render(map[string]string{
		KeyBranch:  "dev",
		KeyMessage: "tidy up",
		"unused":   "value",
	})
	require.NoError(t, err)
	assert.Equal(t, "feat(dev): tidy up", got)
}

func TestRenderDoesNotExpandValues(t *testing.T) {
	got, err := CommitTemplate.Render(map[string]string{
		KeyBranch:  "{{.message}}",
		KeyMessage: "{branch}",
	})
	require.NoError(t, err)
	assert.Equal(t, "feat({{.message}}): {branch}", got)
}

func TestInlineRender(t *testing.T) {
	got, err := Render("{{.a}}-{{$.b}}{{if .c}}!{{end}}", map[string]string{"a": "1", "b": "2", "c": "yes"})
	require.NoError(t, err)
	assert.Equal(t, "1-2!", got)

	_, err = Render("{{.a}} {{.b}}", map[string]string{"a": "1"})
	require.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), `"inline"`)
	assert.Contains(t, err.Error(), "b")

	_, err = Render("{{.a", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingKey))
}

func TestNewCollectsPlaceholders(t *testing.T) {
	tmpl, err := New("mixed", "{{.z}} {{if .a}}{{.b}}{{else}}{{.c}}{{end}} {{range .items}}{{.inner}}{{end}} {{.z}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "items", "z"}, tmpl.Placeholders())

	placeholders := tmpl.Placeholders()
	placeholders[0] = "mutated"
	assert.Equal(t, "a", tmpl.Placeholders()[0])
}

func TestPlaceholdersInRebindingBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "with else", text: "{{with .x}}{{.inner}}{{else}}{{.diff}}{{end}}", want: []string{"diff", "x"}},
		{name: "range else", text: "{{range .items}}{{.inner}}{{else}}{{.branch}}{{end}}", want: []string{"branch", "items"}},
		{name: "root variable in body", text: "{{with .x}}{{.inner}} {{$.message}}{{end}}", want: []string{"message", "x"}},
		{name: "chained else with", text: "{{with .a}}{{.}}{{else with .b}}{{.}}{{else}}{{.c}}{{end}}", want: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := New("blocks", tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tmpl.Placeholders())
		})
	}
}

func TestRenderMissingKeyInElseBranch(t *testing.T) {
	tmpl := Must(New("fallback", "{{with .x}}{{.}}{{else}}{{.diff}}{{end}}"))

	_, err := tmpl.Render(map[string]string{"x": ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)

	var missing *MissingKeyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"diff"}, missing.Keys)
}

func TestMustPanicsOnInvalidTemplate(t *testing.T) {
	assert.Panics(t, func() {
		Must(New("broken", "{{.branch"))
	})
	assert.NotPanics(t, func() {
		Must(New("fine", "{{.branch}}"))
	})
}

func TestDefaults(t *testing.T) {
	set := Defaults()
	assert.Same(t, CommitPrompt, set.CommitPrompt)
	assert.Same(t, CommitTemplate, set.CommitTemplate)
	assert.Same(t, SystemPrompt, set.System)
	assert.True(t, strings.HasPrefix(set.System.String(), "You are a helpful assistant"))
}
