// Package textkit provides the built-in text utility capability. Every
// operation is a pure function over the payload's text field
package textkit

import (
	"context"
	"regexp"
	"strings"

	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/pkg/api"
)

const (
	DefaultSummarySentences = 3
	DefaultHeadRunes        = 100
)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	sentenceEnd = regexp.MustCompile(`[.!?]+`)
)

// New creates the textkit capability
func New() *capability.Map {
	return capability.NewMap("textkit", map[string]capability.Func{
		"word_count": wordCount,
		"normalize":  normalize,
		"summarize":  summarize,
		"head":       head,
	})
}

func requireText(payload api.Args) (string, api.Args) {
	text := payload.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return "", api.Args{"error": "text is required"}
	}
	return text, nil
}

func wordCount(_ context.Context, payload api.Args) (api.Args, error) {
	text, errArgs := requireText(payload)
	if errArgs != nil {
		return errArgs, nil
	}
	return api.Args{
		"words": len(strings.Fields(text)),
		"chars": len([]rune(text)),
	}, nil
}

func normalize(_ context.Context, payload api.Args) (api.Args, error) {
	text, errArgs := requireText(payload)
	if errArgs != nil {
		return errArgs, nil
	}
	res := strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	if payload.GetBool("lower", false) {
		res = strings.ToLower(res)
	}
	return api.Args{"text": res}, nil
}

func summarize(_ context.Context, payload api.Args) (api.Args, error) {
	text, errArgs := requireText(payload)
	if errArgs != nil {
		return errArgs, nil
	}
	limit := payload.GetInt("max_sentences", DefaultSummarySentences)
	if limit <= 0 {
		limit = DefaultSummarySentences
	}

	sentences := splitSentences(text)
	if len(sentences) > limit {
		sentences = sentences[:limit]
	}
	return api.Args{
		"summary":   strings.Join(sentences, " "),
		"sentences": len(sentences),
	}, nil
}

func head(_ context.Context, payload api.Args) (api.Args, error) {
	text, errArgs := requireText(payload)
	if errArgs != nil {
		return errArgs, nil
	}
	limit := payload.GetInt("max_runes", DefaultHeadRunes)
	if limit <= 0 {
		limit = DefaultHeadRunes
	}

	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return api.Args{"text": string(runes)}, nil
}

// splitSentences breaks text into sentences, keeping terminal punctuation
// attached to each sentence
func splitSentences(text string) []string {
	var res []string
	rest := strings.TrimSpace(text)
	for rest != "" {
		loc := sentenceEnd.FindStringIndex(rest)
		if loc == nil {
			res = append(res, rest)
			break
		}
		sentence := strings.TrimSpace(rest[:loc[1]])
		if sentence != "" {
			res = append(res, sentence)
		}
		rest = strings.TrimSpace(rest[loc[1]:])
	}
	return res
}
