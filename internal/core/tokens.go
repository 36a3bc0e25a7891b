package core

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/rs/zerolog/log"
)

// Encodings come from data embedded in the binary; counting never touches
// the network.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Chat accounting overhead: every message costs 4 tokens plus 1 for the role
// name, and each request is primed with 3 more.
const (
	TokensPerMessage = 4
	TokensPerName    = 1
	TokensPerRequest = 3
)

// TruncationMarker is appended to a diff cut down to the token budget.
const TruncationMarker = "... (diff truncated)"

type TokenCounter interface {
	Count(text string) int
}

// EstimateCounter assumes roughly four characters per token.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// TiktokenCounter counts with a BPE encoding, loaded on first use. If the
// encoding cannot be loaded it falls back to EstimateCounter.
type TiktokenCounter struct {
	encoding string
	once     sync.Once
	tkm      *tiktoken.Tiktoken
}

func NewTiktokenCounter(encoding string) *TiktokenCounter {
	return &TiktokenCounter{encoding: encoding}
}

func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		tkm, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			log.Warn().Err(err).Str("encoding", c.encoding).Msg("Failed to load encoding, estimating tokens")
			return
		}
		c.tkm = tkm
	})
	if c.tkm == nil {
		return EstimateCounter{}.Count(text)
	}
	return len(c.tkm.Encode(text, nil, nil))
}

// truncateDiff cuts diff to at most budget tokens, marker included,
// preferring a line boundary. The marker is dropped when it alone does not
// fit. A budget <= 0 disables the limit.
func truncateDiff(diff string, budget int, counter TokenCounter) (string, bool) {
	if budget <= 0 || counter.Count(diff) <= budget {
		return diff, false
	}

	marker := TruncationMarker
	avail := budget - counter.Count(marker)
	if avail < 0 {
		marker, avail = "", budget
	}

	runes := []rune(diff)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if counter.Count(string(runes[:mid])) <= avail {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	cut := string(runes[:lo])
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i+1]
	}

	log.Debug().
		Int("budget", budget).
		Int("original_bytes", len(diff)).
		Int("kept_bytes", len(cut)).
		Msg("Diff truncated")

	return cut + marker, true
}
