package cognition

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/simulacra-labs/simulacra-go/pkg/memory"
)

var numberPattern = regexp.MustCompile(`\d+\.?\d*`)

// stripCodeBlocks removes markdown code fences (```json ... ```) that chat
// models like to wrap structured answers in.
func stripCodeBlocks(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

// extractJSONObject returns the outermost {...} span of the response, or ""
// when the response contains no object.
func extractJSONObject(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return ""
	}
	return response[start : end+1]
}

// parseScore extracts a numeric score from a model reply. It first tries a
// JSON object with a "score" field, then falls back to the first number in
// the raw text. The result is clamped to [min, max].
func parseScore(response string, min, max float64) (float64, error) {
	response = stripCodeBlocks(response)

	if obj := extractJSONObject(response); obj != "" {
		var result struct {
			Score *float64 `json:"score"`
		}
		if err := json.Unmarshal([]byte(obj), &result); err == nil && result.Score != nil {
			return clamp(*result.Score, min, max), nil
		}
	}

	if m := numberPattern.FindString(response); m != "" {
		var score float64
		if _, err := fmt.Sscanf(m, "%f", &score); err == nil {
			return clamp(score, min, max), nil
		}
	}

	return 0, fmt.Errorf("no numeric score in %q: %w", truncate(response, 80), ErrMalformedOutput)
}

// utteranceReply is the structured result of one iterative dialogue turn.
// End replaces exception-driven termination: the model signals the close of
// the conversation in-band and the state machine consumes it explicitly.
type utteranceReply struct {
	Utterance string `json:"utterance"`
	End       bool   `json:"end"`
}

// parseUtterance extracts the (utterance, end) pair from a model reply.
func parseUtterance(response string) (utteranceReply, error) {
	obj := extractJSONObject(stripCodeBlocks(response))
	if obj == "" {
		return utteranceReply{}, fmt.Errorf("no JSON object in reply: %w", ErrMalformedOutput)
	}

	var reply utteranceReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		return utteranceReply{}, fmt.Errorf("%v: %w", err, ErrMalformedOutput)
	}
	if strings.TrimSpace(reply.Utterance) == "" {
		return utteranceReply{}, fmt.Errorf("empty utterance field: %w", ErrMalformedOutput)
	}
	reply.Utterance = strings.TrimSpace(reply.Utterance)
	return reply, nil
}

// parseTranscript extracts a whole conversation from a model reply formatted
// as a JSON array of [speaker, utterance] pairs.
func parseTranscript(response string) ([]memory.DialogueLine, error) {
	response = stripCodeBlocks(response)
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in reply: %w", ErrMalformedOutput)
	}

	var rows [][]string
	if err := json.Unmarshal([]byte(response[start:end+1]), &rows); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformedOutput)
	}

	lines := make([]memory.DialogueLine, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 || strings.TrimSpace(row[1]) == "" {
			continue
		}
		lines = append(lines, memory.DialogueLine{
			Speaker:   strings.TrimSpace(row[0]),
			Utterance: strings.TrimSpace(row[1]),
		})
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no dialogue lines in reply: %w", ErrMalformedOutput)
	}
	return lines, nil
}

// parseTriple extracts a (subject, predicate, object) triple from a model
// reply shaped like {"subject": ..., "predicate": ..., "object": ...}.
func parseTriple(response string) (string, string, string, error) {
	obj := extractJSONObject(stripCodeBlocks(response))
	if obj == "" {
		return "", "", "", fmt.Errorf("no JSON object in reply: %w", ErrMalformedOutput)
	}

	var triple struct {
		Subject   string `json:"subject"`
		Predicate string `json:"predicate"`
		Object    string `json:"object"`
	}
	if err := json.Unmarshal([]byte(obj), &triple); err != nil {
		return "", "", "", fmt.Errorf("%v: %w", err, ErrMalformedOutput)
	}
	if triple.Subject == "" || triple.Predicate == "" || triple.Object == "" {
		return "", "", "", fmt.Errorf("incomplete triple: %w", ErrMalformedOutput)
	}
	return triple.Subject, triple.Predicate, triple.Object, nil
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
