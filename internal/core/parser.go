package core

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

type CommitMessage struct {
	Title string
	Body  string
}

func (m *CommitMessage) String() string {
	if m.Body == "" {
		return m.Title
	}
	return m.Title + "\n\n" + m.Body
}

type xmlCommit struct {
	XMLName     xml.Name `xml:"commit"`
	Title       string   `xml:"title"`
	Description string   `xml:"description"`
	Changes     struct {
		Items []string `xml:"change"`
	} `xml:"changes"`
	Summary string `xml:"summary"`
}

var (
	conventionalPrefix = regexp.MustCompile(`^[a-z]+(\([^)]*\))?!?:\s*`)
	titleLabel         = regexp.MustCompile(`(?i)^(title|summary|subject)\s*:\s*`)
	listMarker         = regexp.MustCompile(`^(?:[-*•+]|\d+[.)])\s+`)
	sectionHeading     = regexp.MustCompile(`^(?:#+\s*|\d+[.)]\s*)?[A-Za-z][A-Za-z ]*:$`)
)

// ParseReply turns a model reply into a title and a bullet list body. It
// accepts the plain "title, then bullets" shape and the <commit> XML shape.
func ParseReply(reply string) (*CommitMessage, error) {
	reply = strings.TrimSpace(stripCodeFence(reply))
	if reply == "" {
		return nil, &ErrParsingCommit{Msg: "empty reply", Err: ErrEmptyReply}
	}

	// A reply opening with <commit> must be a valid commit element. Elsewhere
	// the tag may just be mentioned in plain text, so any failure falls through.
	if start := strings.Index(reply, "<commit>"); start != -1 {
		msg, err := parseXMLReply(reply[start:])
		if err == nil || start == 0 {
			return msg, err
		}
		log.Debug().Err(err).Msg("Reply mentions <commit> but holds no commit, parsing as text")
	}

	var title string
	var body []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if title == "" {
			title = cleanTitle(line)
			continue
		}
		if sectionHeading.MatchString(line) {
			continue
		}
		body = append(body, normalizeBullet(line))
	}

	if title == "" {
		return nil, &ErrParsingCommit{Msg: "no title line", Err: ErrNoTitle}
	}

	return &CommitMessage{
		Title: title,
		Body:  strings.Join(body, "\n"),
	}, nil
}

func parseXMLReply(content string) (*CommitMessage, error) {
	var commit xmlCommit
	if err := xml.Unmarshal([]byte(content), &commit); err != nil {
		return nil, &ErrParsingCommit{Msg: "invalid XML", Err: fmt.Errorf("%w: %w", ErrInvalidXML, err)}
	}

	title := cleanTitle(strings.TrimSpace(commit.Title))
	if title == "" {
		return nil, &ErrParsingCommit{Msg: "missing <title>", Err: ErrNoTitle}
	}

	var body []string
	if strings.TrimSpace(commit.Description) != "" {
		for _, line := range strings.Split(commit.Description, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				body = append(body, normalizeBullet(line))
			}
		}
	} else {
		for _, item := range commit.Changes.Items {
			if item = strings.TrimSpace(item); item != "" {
				body = append(body, normalizeBullet(item))
			}
		}
		if summary := strings.TrimSpace(commit.Summary); summary != "" {
			if len(body) > 0 {
				body = append(body, "")
			}
			body = append(body, summary)
		}
	}

	return &CommitMessage{
		Title: title,
		Body:  strings.Join(body, "\n"),
	}, nil
}

// cleanTitle drops list markers, labels, markdown emphasis, quotes and a
// conventional commit prefix; the commit template adds its own type.
func cleanTitle(line string) string {
	line = strings.TrimLeft(line, "# ")
	line = listMarker.ReplaceAllString(line, "")
	line = strings.Trim(line, "*_` ")
	line = titleLabel.ReplaceAllString(line, "")
	line = strings.Trim(line, "*_` ")
	line = conventionalPrefix.ReplaceAllString(line, "")
	line = strings.Trim(line, `"'`)
	return strings.TrimSpace(line)
}

func normalizeBullet(line string) string {
	if loc := listMarker.FindStringIndex(line); loc != nil {
		return "- " + strings.TrimSpace(line[loc[1]:])
	}
	return line
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i != -1 {
		s = s[i+1:]
	} else {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
