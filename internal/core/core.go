package core

import (
	"context"
	"errors"
	"fmt"
	"gitcommitai/internal/prompt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrEmptyDiffs  = errors.New("diffs cannot be empty")
	ErrEmptyBranch = errors.New("branch cannot be empty")
	ErrEmptyReply  = errors.New("reply cannot be empty")
	ErrNoTitle     = errors.New("reply has no title")
	ErrInvalidXML  = errors.New("reply is not valid commit XML")
)

type Core struct {
	prompts        prompt.Set
	counter        TokenCounter
	maxInputTokens int
	emoji          bool
}

type Option func(*Core)

func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Core) { c.counter = counter }
}

// WithMaxInputTokens sets the token budget for the diff. Zero disables it.
func WithMaxInputTokens(n int) Option {
	return func(c *Core) { c.maxInputTokens = n }
}

// WithEmoji appends the gitmoji rule to the system prompt.
func WithEmoji(enabled bool) Option {
	return func(c *Core) { c.emoji = enabled }
}

func NewCore(prompts prompt.Set, opts ...Option) *Core {
	if prompts.CommitPrompt == nil || prompts.CommitTemplate == nil || prompts.System == nil {
		panic("prompt set is incomplete")
	}
	c := &Core{
		prompts: prompts,
		counter: EstimateCounter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type GenerateOptions struct {
	Branch  string
	Files   []string
	Diff    string
	Subject string
}

func (o *GenerateOptions) validate() error {
	if strings.TrimSpace(o.Branch) == "" {
		return ErrEmptyBranch
	}
	if strings.TrimSpace(o.Diff) == "" {
		return ErrEmptyDiffs
	}
	return nil
}

// Request is a rendered prompt pair ready to send to a chat model.
type Request struct {
	System    string
	User      string
	Truncated bool

	counter TokenCounter
}

// Messages returns the request as chat messages, system first.
func (r *Request) Messages() []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: r.System},
		{Role: openai.ChatMessageRoleUser, Content: r.User},
	}
}

// TokenEstimate counts the prompt tokens including per-message overhead.
func (r *Request) TokenEstimate() int {
	counter := r.counter
	if counter == nil {
		counter = EstimateCounter{}
	}
	tokens := TokensPerRequest
	for _, msg := range r.Messages() {
		tokens += TokensPerMessage + TokensPerName + counter.Count(msg.Content)
	}
	return tokens
}

// FormatFiles renders the changed file list as one "- path" line per file.
func FormatFiles(files []string) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			lines = append(lines, "- "+f)
		}
	}
	return strings.Join(lines, "\n")
}

func (c *Core) BuildRequest(ctx context.Context, opts GenerateOptions) (*Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	system, err := c.prompts.System.Render(nil)
	if err != nil {
		return nil, &ErrBuildingPrompt{Template: c.prompts.System.Name(), Err: err}
	}
	if c.emoji {
		system += "\n" + prompt.GitmojiRule
	}

	diff, truncated := truncateDiff(opts.Diff, c.maxInputTokens, c.counter)
	if truncated {
		log.Warn().Int("max_input_tokens", c.maxInputTokens).Msg("Diff exceeds token budget, truncating")
	}

	user, err := c.prompts.CommitPrompt.Render(map[string]string{
		prompt.KeyBranch: opts.Branch,
		prompt.KeyFiles:  FormatFiles(opts.Files),
		prompt.KeyDiff:   diff,
	})
	if err != nil {
		return nil, &ErrBuildingPrompt{Template: c.prompts.CommitPrompt.Name(), Err: err}
	}
	if subject := strings.TrimSpace(opts.Subject); subject != "" {
		user += fmt.Sprintf("\n\nPlease focus on the following subject in your commit message: %s", subject)
	}

	req := &Request{
		System:    system,
		User:      user,
		Truncated: truncated,
		counter:   c.counter,
	}

	log.Debug().
		Str("branch", opts.Branch).
		Int("files", len(opts.Files)).
		Int("system_bytes", len(system)).
		Int("user_bytes", len(user)).
		Msg("Built commit prompt")

	return req, nil
}

// FormatCommit parses a model reply and renders its title through the commit
// template.
func (c *Core) FormatCommit(branch, reply string) (*CommitMessage, error) {
	parsed, err := ParseReply(reply)
	if err != nil {
		return nil, err
	}

	title, err := c.prompts.CommitTemplate.Render(map[string]string{
		prompt.KeyBranch:  branch,
		prompt.KeyMessage: parsed.Title,
	})
	if err != nil {
		return nil, &ErrBuildingPrompt{Template: c.prompts.CommitTemplate.Name(), Err: err}
	}

	return &CommitMessage{Title: title, Body: parsed.Body}, nil
}
