// Package prompt holds the templates sent to the model when generating a
// commit message and renders them with caller-supplied values.
package prompt

// Placeholder names used by the built-in templates.
const (
	KeyBranch  = "branch"
	KeyFiles   = "files"
	KeyDiff    = "diff"
	KeyMessage = "message"
)

// CommitPromptText is the user prompt. It expects branch, files and diff.
const CommitPromptText = `Generate a commit message for the following changes.
Current branch: {{.branch}}

Changed files:
{{.files}}

Git diff:
{{.diff}}

Return only:
1. A high-level title (without the commit type or branch)
2. A list of bullet points
3. No signatures or additional sections`

// CommitTemplateText formats the final commit title.
const CommitTemplateText = `feat({{.branch}}): {{.message}}`

// SystemPromptText is passed verbatim as the system role content.
const SystemPromptText = `You are a helpful assistant that generates clear and concise Git commit messages.
Follow these rules:
1. Use conventional commit format (feat, fix, docs, etc.)
2. Keep the title short, descriptive, and high-level (e.g., "Add initial project files" instead of listing all files)
3. List all changes in bullet points ONCE
4. Include both staged and unstaged changes
5. Be specific about what was modified
6. Don't include signatures or additional sections
7. Group related changes together
8. Return ONLY the title and bullet points, nothing else`

// GitmojiRule is appended to the system prompt when emoji are enabled.
const GitmojiRule = "9. Follow the gitmoji standard (https://gitmoji.dev/) and use emojis where they make the nature of a change clearer"

// Names of the built-in templates. They double as override file stems.
const (
	NameCommitPrompt   = "commit_prompt"
	NameCommitTemplate = "commit_template"
	NameSystemPrompt   = "system_prompt"
)

var (
	CommitPrompt   = Must(New(NameCommitPrompt, CommitPromptText))
	CommitTemplate = Must(New(NameCommitTemplate, CommitTemplateText))
	SystemPrompt   = Must(New(NameSystemPrompt, SystemPromptText))
)

// Set groups the three templates a commit generation needs.
type Set struct {
	CommitPrompt   *Template
	CommitTemplate *Template
	System         *Template
}

// Defaults returns the built-in templates.
func Defaults() Set {
	return Set{
		CommitPrompt:   CommitPrompt,
		CommitTemplate: CommitTemplate,
		System:         SystemPrompt,
	}
}

func builtin(name string) *Template {
	switch name {
	case NameCommitPrompt:
		return CommitPrompt
	case NameCommitTemplate:
		return CommitTemplate
	case NameSystemPrompt:
		return SystemPrompt
	default:
		return nil
	}
}
