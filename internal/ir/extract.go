package ir

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSONObject is returned when model output contains no {...} block.
var ErrNoJSONObject = errors.New("no JSON object found")

var (
	fenceOpen  = regexp.MustCompile("```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("```\\s*$")
	objectSpan = regexp.MustCompile(`(?s)\{.*\}`)
)

// StripFences removes markdown code fences around model output.
func StripFences(text string) string {
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ExtractJSONBlock returns the outermost {...} span of text, ignoring any
// markdown fences or prose around it.
func ExtractJSONBlock(text string) (string, error) {
	block := objectSpan.FindString(StripFences(text))
	if block == "" {
		return "", ErrNoJSONObject
	}
	return block, nil
}

// DecodeBlock extracts the JSON block from text and decodes it.
func DecodeBlock(text string) (any, error) {
	block, err := ExtractJSONBlock(text)
	if err != nil {
		return nil, err
	}
	return Decode([]byte(block))
}
