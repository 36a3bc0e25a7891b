// Package gitcommitai builds the prompts a commit message generator sends to a
// language model and turns the model's reply into a commit message.
package gitcommitai

import (
	"context"
	"fmt"
	"gitcommitai/internal/config"
	"gitcommitai/internal/core"
	"gitcommitai/internal/prompt"
	"gitcommitai/internal/utils"

	"github.com/rs/zerolog/log"
)

type (
	Config          = config.Config
	GenerateOptions = core.GenerateOptions
	Request         = core.Request
	CommitMessage   = core.CommitMessage
	Template        = prompt.Template
	TemplateSet     = prompt.Set
)

type Prompter struct {
	cfg       *config.Config
	loader    *prompt.Loader
	templates prompt.Set
	core      *core.Core
}

// Load reads configuration from path (or the default search paths when empty)
// and builds a Prompter from it.
func Load(path string) (*Prompter, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return New(cfg)
}

// New builds a Prompter. A nil cfg uses the defaults.
func New(cfg *Config) (*Prompter, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loader := prompt.NewLoader(cfg.TemplateDirs...)
	templates, err := loader.LoadSet()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	p := &Prompter{cfg: cfg, loader: loader}
	p.use(templates)
	return p, nil
}

func (p *Prompter) use(templates prompt.Set) {
	var counter core.TokenCounter = core.NewTiktokenCounter(p.cfg.Encoding)
	if p.cfg.Encoding == config.EncodingEstimate {
		counter = core.EstimateCounter{}
	}

	p.templates = templates
	p.core = core.NewCore(templates,
		core.WithTokenCounter(counter),
		core.WithMaxInputTokens(p.cfg.MaxInputTokens),
		core.WithEmoji(p.cfg.EmojiEnabled()),
	)

	log.Debug().
		Strs("template_dirs", p.cfg.TemplateDirs).
		Str("system_prompt", templates.System.Source()).
		Str("commit_prompt", templates.CommitPrompt.Source()).
		Str("commit_template", templates.CommitTemplate.Source()).
		Msg("Templates loaded")
}

// SetupLogging configures the global logger from cfg.
func SetupLogging(cfg *Config) {
	if cfg == nil {
		cfg = config.Default()
	}
	utils.SetupLogger(cfg.Level())
}

func (p *Prompter) Config() *Config {
	return p.cfg
}

func (p *Prompter) Templates() TemplateSet {
	return p.templates
}

// BuildRequest renders the system and user prompts for a set of changes.
func (p *Prompter) BuildRequest(ctx context.Context, opts GenerateOptions) (*Request, error) {
	return p.core.BuildRequest(ctx, opts)
}

// FormatCommit parses a model reply and formats its title for branch.
func (p *Prompter) FormatCommit(branch, reply string) (*CommitMessage, error) {
	return p.core.FormatCommit(branch, reply)
}

// Reload rereads template overrides from disk. On error the current
// templates stay in use. It must not run concurrently with other methods.
func (p *Prompter) Reload() error {
	p.loader.ClearCache()
	templates, err := p.loader.LoadSet()
	if err != nil {
		return fmt.Errorf("reload templates: %w", err)
	}
	p.use(templates)
	return nil
}
