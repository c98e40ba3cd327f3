// Package normalize converts loosely structured model output into values
// the pipeline can rely on. Models wrap payloads in markdown fences and
// report scores as numbers, strings, or not at all, so the helpers here are
// total: every input maps to a usable value and call sites never handle a
// normalization failure.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Score bounds. Model-reported quality scores are clamped into this range;
// anything unparseable falls back to the neutral midpoint.
const (
	MinScore     = 1
	MaxScore     = 10
	NeutralScore = 5
)

// Score converts a raw score of any shape into an integer in
// [MinScore, MaxScore]. Numbers are rounded half away from zero and
// clamped. Numeric strings are parsed first. Nil, non-numeric values, NaN,
// and infinities map to NeutralScore.
func Score(v interface{}) int {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return NeutralScore
	}

	// Clamp before converting; out-of-range float to int is
	// implementation-defined.
	f = math.Round(f)
	if f < MinScore {
		return MinScore
	}
	if f > MaxScore {
		return MaxScore
	}
	return int(f)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Fence identifies the code fence flavor expected around a payload.
type Fence int

const (
	// FenceJSON expects a ```json fence.
	FenceJSON Fence = iota
	// FenceHTML expects a ```html fence.
	FenceHTML
)

func (f Fence) label() string {
	if f == FenceHTML {
		return "html"
	}
	return "json"
}

// StripFence removes a markdown code fence wrapped around s. An opening
// fence matching the requested kind, or a bare ``` fence, is stripped along
// with a trailing ``` if present. Text without a fence comes back trimmed
// as-is; fences are never required.
func StripFence(s string, kind Fence) string {
	out := strings.TrimSpace(s)

	if rest, found := strings.CutPrefix(out, "```"+kind.label()); found {
		out = rest
	} else if rest, found := strings.CutPrefix(out, "```"); found {
		out = rest
	}

	out = strings.TrimSpace(out)
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
