package domain

import (
	"math"
	"strconv"
	"strings"
)

// Numeric parameter bounds.
const (
	TempoMin, TempoMax               = 40.0, 120.0
	ReverbMixMin, ReverbMixMax       = 0.0, 1.0
	DensityMin, DensityMax           = 0.0, 1.0
	BrightnessMin, BrightnessMax     = 0.0, 1.0
	FilterCutoffMin, FilterCutoffMax = 200.0, 12000.0

	SeedMin, SeedMax = 0, 999999

	// DeltaBudget caps a single prompt's influence on any numeric
	// parameter to this fraction of the parameter's range.
	DeltaBudget = 0.20

	MaxDescriptionLen = 160
)

// DefaultDescription is the vibe description a freshly seeded room starts with.
const DefaultDescription = "A slow ambient drift in C minor, patient and wide."

// FallbackDescription replaces the description when the interpreter gives
// nothing usable.
const FallbackDescription = "The vibe keeps drifting, just out of reach of words."

// Valid enum sets. Key and mode proposals outside these sets are ignored;
// instrument proposals are filtered against the set.
var (
	ValidKeys        = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	ValidModes       = []string{"major", "minor", "dorian", "mixolydian"}
	ValidInstruments = []string{"pad", "bass", "arp", "pluck", "drums", "bells"}
)

// VibeState is the full parameter set describing the room's sound.
// Field names match the wire format the interpreter oracle reads and writes.
type VibeState struct {
	Tempo        float64  `json:"tempo"`
	ReverbMix    float64  `json:"reverbMix"`
	Density      float64  `json:"density"`
	Brightness   float64  `json:"brightness"`
	FilterCutoff float64  `json:"filterCutoff"`
	Key          string   `json:"key"`
	Mode         string   `json:"mode"`
	Instruments  []string `json:"instruments"`
	Seed         int      `json:"seed"`
	Description  string   `json:"description"`
}

// DefaultVibeState returns the hard-coded state a new room is seeded with.
func DefaultVibeState() VibeState {
	return VibeState{
		Tempo:        72,
		ReverbMix:    0.35,
		Density:      0.5,
		Brightness:   0.5,
		FilterCutoff: 8000,
		Key:          "C",
		Mode:         "minor",
		Instruments:  []string{"pad", "bass", "arp"},
		Seed:         4242,
		Description:  DefaultDescription,
	}
}

// Clone returns a deep copy of the state.
func (s VibeState) Clone() VibeState {
	c := s
	c.Instruments = append([]string(nil), s.Instruments...)
	return c
}

// Deltas is the raw delta proposal decoded from an interpreter response.
// Numeric entries are relative deltas; key, mode, instruments, and seed
// are absolute proposals.
type Deltas map[string]any

type numericParam struct {
	name     string
	min, max float64
	field    func(*VibeState) *float64
}

var numericParams = []numericParam{
	{"tempo", TempoMin, TempoMax, func(s *VibeState) *float64 { return &s.Tempo }},
	{"reverbMix", ReverbMixMin, ReverbMixMax, func(s *VibeState) *float64 { return &s.ReverbMix }},
	{"density", DensityMin, DensityMax, func(s *VibeState) *float64 { return &s.Density }},
	{"brightness", BrightnessMin, BrightnessMax, func(s *VibeState) *float64 { return &s.Brightness }},
	{"filterCutoff", FilterCutoffMin, FilterCutoffMax, func(s *VibeState) *float64 { return &s.FilterCutoff }},
}

// ApplyDeltas folds an interpreter proposal into the state and returns the
// names of the parameters that actually changed. Numeric deltas are clamped
// to ±DeltaBudget of the parameter range and the result is clamped to the
// range. Enum proposals outside their valid set are ignored. Instruments
// are replaced wholesale only when the filtered proposal is non-empty.
// Seed is replaced directly when it parses as an integer in range. The
// description is always overwritten and truncated.
func (s *VibeState) ApplyDeltas(d Deltas, description string) []string {
	var changed []string

	for _, p := range numericParams {
		raw, ok := d[p.name]
		if !ok {
			continue
		}
		delta, ok := asFloat(raw)
		if !ok {
			continue
		}
		budget := DeltaBudget * (p.max - p.min)
		delta = clampFloat(delta, -budget, budget)

		field := p.field(s)
		next := clampFloat(*field+delta, p.min, p.max)
		if next != *field {
			*field = next
			changed = append(changed, p.name)
		}
	}

	if raw, ok := d["key"]; ok {
		if key, ok := asKey(raw); ok && key != s.Key {
			s.Key = key
			changed = append(changed, "key")
		}
	}
	if raw, ok := d["mode"]; ok {
		if mode, ok := asMode(raw); ok && mode != s.Mode {
			s.Mode = mode
			changed = append(changed, "mode")
		}
	}
	if raw, ok := d["instruments"]; ok {
		if insts := filterInstruments(raw); len(insts) > 0 {
			s.Instruments = insts
			changed = append(changed, "instruments")
		}
	}
	if raw, ok := d["seed"]; ok {
		if seed, ok := asInt(raw); ok && seed >= SeedMin && seed <= SeedMax && seed != s.Seed {
			s.Seed = seed
			changed = append(changed, "seed")
		}
	}

	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = FallbackDescription
	}
	s.Description = truncate(desc, MaxDescriptionLen)

	return changed
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// asFloat accepts JSON numbers and numeric strings. Interpreter output is
// model-generated, so "−12" arriving as a string is routine.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asKey(v any) (string, bool) {
	str, ok := v.(string)
	if !ok {
		return "", false
	}
	str = strings.ToUpper(strings.TrimSpace(str))
	for _, k := range ValidKeys {
		if str == k {
			return k, true
		}
	}
	return "", false
}

func asMode(v any) (string, bool) {
	str, ok := v.(string)
	if !ok {
		return "", false
	}
	str = strings.ToLower(strings.TrimSpace(str))
	for _, m := range ValidModes {
		if str == m {
			return m, true
		}
	}
	return "", false
}

func filterInstruments(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			continue
		}
		str = strings.ToLower(strings.TrimSpace(str))
		for _, valid := range ValidInstruments {
			if str == valid && !contains(out, valid) {
				out = append(out, valid)
				break
			}
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
