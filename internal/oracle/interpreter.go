package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tomfuertes/murmur/internal/domain"
	"github.com/tomfuertes/murmur/pkg/log"
)

const interpreterPromptTemplate = `You are the sound engineer for a shared ambient music room. Listeners send short free-text wishes and you translate each wish into parameter changes.

Current state:
%s

Parameters:
- tempo: BPM, range 40 to 120. Relative delta, e.g. {"tempo": -10}.
- reverbMix, density, brightness: range 0 to 1. Relative deltas.
- filterCutoff: Hz, range 200 to 12000. Relative delta.
- key: one of C, C#, D, D#, E, F, F#, G, G#, A, A#, B. Absolute value.
- mode: one of major, minor, dorian, mixolydian. Absolute value.
- instruments: subset of pad, bass, arp, pluck, drums, bells. Absolute, replaces the whole set.
- seed: integer 0 to 999999. Absolute. Change only when the listener asks for something completely new.

A single wish may move a numeric parameter by at most 20%% of its range; larger deltas are clamped. Only include parameters the wish is actually about.

Respond with a single JSON object and nothing else:
{"deltas": {"tempo": -10}, "description": "one sentence describing the new vibe, under 160 characters"}`

// Interpretation is what an accepted prompt does to the room.
type Interpretation struct {
	Deltas      domain.Deltas
	Description string
}

// Interpreter runs the fail-soft interpretation pass. A broken or
// unusable response degrades to an empty delta, never to a rejection;
// the prompt still applies and at minimum rewrites the description.
type Interpreter struct {
	client  Client
	timeout time.Duration
}

// NewInterpreter creates an interpreter with a per-call timeout.
func NewInterpreter(client Client, timeout time.Duration) *Interpreter {
	return &Interpreter{client: client, timeout: timeout}
}

// Interpret asks the oracle what the prompt should do to the current
// state and parses the proposal out of whatever came back.
func (i *Interpreter) Interpret(ctx context.Context, text string, current domain.VibeState) Interpretation {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	logger := log.Ctx(ctx)

	stateJSON, err := json.Marshal(current)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode current state for interpreter")
		return Interpretation{}
	}

	raw, err := i.client.Complete(ctx, CompletionRequest{
		System:      fmt.Sprintf(interpreterPromptTemplate, stateJSON),
		User:        text,
		MaxTokens:   400,
		Temperature: 0.7,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("interpreter call failed, applying empty delta")
		return Interpretation{}
	}

	obj, ok := ExtractJSONObject(raw)
	if !ok {
		logger.Warn().Msg("interpreter response contained no JSON object")
		return Interpretation{}
	}

	var envelope struct {
		Deltas      domain.Deltas `json:"deltas"`
		Description string        `json:"description"`
	}
	if err := json.Unmarshal([]byte(obj), &envelope); err != nil {
		logger.Warn().Err(err).Msg("interpreter response JSON did not parse")
		return Interpretation{}
	}

	return Interpretation{Deltas: envelope.Deltas, Description: envelope.Description}
}

// ExtractJSONObject returns the first balanced JSON object in s. Models
// routinely wrap the object in code fences or prose; the scan tracks
// string literals and escapes so braces inside values do not miscount.
func ExtractJSONObject(s string) (string, bool) {
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
