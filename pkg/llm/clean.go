package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseError is the only error Clean returns. Raw keeps the model output
// for diagnosis.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llm: parse model output: %s (raw: %s)", e.Reason, snippet(e.Raw))
}

// Clean parses model output that may be wrapped in a markdown code fence
// or surrounded by prose into a JSON value. Numbers decode as json.Number.
func Clean(raw string) (any, error) {
	var v any
	if err := decodeCleaned(raw, &v, true); err != nil {
		return nil, err
	}
	return v, nil
}

// CleanInto is Clean decoding into target.
func CleanInto(raw string, target any) error {
	return decodeCleaned(raw, target, false)
}

func decodeCleaned(raw string, target any, useNumber bool) error {
	body := stripCodeFence(raw)
	if body == "" {
		return &ParseError{Reason: "empty output", Raw: raw}
	}

	firstErr := decodeStrict(body, target, useNumber)
	if firstErr == nil {
		return nil
	}
	if inner := extractJSON(body); inner != "" && inner != body {
		if err := decodeStrict(inner, target, useNumber); err == nil {
			return nil
		}
	}
	return &ParseError{Reason: firstErr.Error(), Raw: raw}
}

func decodeStrict(s string, target any, useNumber bool) error {
	dec := json.NewDecoder(strings.NewReader(s))
	if useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(target); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

// stripCodeFence removes a leading ``` or ```json fence and the closing fence.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// extractJSON returns the outermost array or object embedded in prose,
// preferring whichever opens first.
func extractJSON(s string) string {
	obj := strings.Index(s, "{")
	arr := strings.Index(s, "[")
	open, closer := obj, "}"
	if arr >= 0 && (obj < 0 || arr < obj) {
		open, closer = arr, "]"
	}
	if open < 0 {
		return ""
	}
	end := strings.LastIndex(s, closer)
	if end <= open {
		return ""
	}
	return strings.TrimSpace(s[open : end+1])
}

func snippet(s string) string {
	clean := strings.Join(strings.Fields(s), " ")
	const limit = 160
	if r := []rune(clean); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}
