package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FileExt is the extension of override files, e.g. system_prompt.tmpl.
const FileExt = ".tmpl"

// Loader resolves templates from override directories, falling back to the
// built-ins. Directories are checked in order; first match wins.
type Loader struct {
	dirs  []string
	cache map[string]*Template
	mu    sync.RWMutex
}

// frontmatter is the optional YAML header of an override file.
type frontmatter struct {
	Description string `yaml:"description"`
}

func NewLoader(dirs ...string) *Loader {
	return &Loader{
		dirs:  dirs,
		cache: make(map[string]*Template),
	}
}

// Dirs returns the override directories in priority order.
func (l *Loader) Dirs() []string {
	out := make([]string, len(l.dirs))
	copy(out, l.dirs)
	return out
}

// Load returns the template called name (one of the Name* constants).
func (l *Loader) Load(name string) (*Template, error) {
	base := builtin(name)
	if base == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	l.mu.RLock()
	if t, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return t, nil
	}
	l.mu.RUnlock()

	t, err := l.loadOverride(name, base)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = base
	}

	l.mu.Lock()
	l.cache[name] = t
	l.mu.Unlock()

	return t, nil
}

// LoadSet resolves all three templates.
func (l *Loader) LoadSet() (Set, error) {
	var set Set
	var err error

	if set.CommitPrompt, err = l.Load(NameCommitPrompt); err != nil {
		return Set{}, err
	}
	if set.CommitTemplate, err = l.Load(NameCommitTemplate); err != nil {
		return Set{}, err
	}
	if set.System, err = l.Load(NameSystemPrompt); err != nil {
		return Set{}, err
	}
	return set, nil
}

// ClearCache drops parsed overrides so the next Load rereads the directories.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*Template)
	l.mu.Unlock()
}

func (l *Loader) loadOverride(name string, base *Template) (*Template, error) {
	for _, dir := range l.dirs {
		path := filepath.Join(dir, name+FileExt)
		content, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read override %s: %w", path, err)
		}

		meta, body, err := parseFrontmatter(content)
		if err != nil {
			return nil, fmt.Errorf("parse override %s: %w", path, err)
		}

		// editors add a final newline; built-ins have none
		body = strings.TrimSuffix(body, "\n")

		t, err := newTemplate(name, body, meta.Description, path)
		if err != nil {
			return nil, err
		}
		if unknown := unknownPlaceholders(t, base); len(unknown) > 0 {
			return nil, &UnknownPlaceholderError{Template: name, Path: path, Keys: unknown}
		}

		log.Debug().Str("template", name).Str("path", path).Msg("Using template override")
		return t, nil
	}
	return nil, nil
}

func unknownPlaceholders(t, base *Template) []string {
	allowed := make(map[string]struct{}, len(base.placeholders))
	for _, key := range base.placeholders {
		allowed[key] = struct{}{}
	}
	var unknown []string
	for _, key := range t.placeholders {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

// parseFrontmatter splits an optional "---" delimited YAML header from the body.
func parseFrontmatter(content []byte) (frontmatter, string, error) {
	var meta frontmatter
	str := strings.ReplaceAll(string(content), "\r\n", "\n")

	if !strings.HasPrefix(str, "---\n") {
		return meta, str, nil
	}

	end := strings.Index(str[4:], "\n---\n")
	if end == -1 {
		// malformed, treat as plain body
		return meta, str, nil
	}

	header := str[4 : 4+end]
	body := str[4+end+5:]

	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return frontmatter{}, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta, body, nil
}
