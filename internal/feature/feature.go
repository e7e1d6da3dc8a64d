// Package feature defines the closed set of capability tags written to model
// definition files and the heuristics that derive them from catalog entries.
package feature

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Feature is a normalized capability tag.
type Feature string

const (
	ToolCall         Feature = "tool-call"
	MultiToolCall    Feature = "multi-tool-call"
	AgentThought     Feature = "agent-thought"
	Vision           Feature = "vision"
	StreamToolCall   Feature = "stream-tool-call"
	Document         Feature = "document"
	Video            Feature = "video"
	Audio            Feature = "audio"
	StructuredOutput Feature = "structured-output"
)

// all lists every feature in canonical order. Files are written in this order.
var all = []Feature{
	ToolCall,
	MultiToolCall,
	AgentThought,
	Vision,
	StreamToolCall,
	Document,
	Video,
	Audio,
	StructuredOutput,
}

// All returns every known feature in canonical order.
func All() []Feature {
	out := make([]Feature, len(all))
	copy(out, all)
	return out
}

// Parse converts a raw tag into a Feature, rejecting anything outside the enumeration.
func Parse(s string) (Feature, error) {
	for _, f := range all {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q", s)
}

// Raw capability tags reported by the catalog API.
const (
	rawFunctionCalling   = "function-calling"
	rawStructuredOutputs = "structured-outputs"
	rawVision            = "vision"
)

// Reasoning keywords looked for in catalog descriptions.
var thinkingKeywords = []string{"思维", "推理", "思考"}

var sizePattern = regexp.MustCompile(`(\d+)b`)

// largeModelBillions is the parameter count above which a model is assumed
// to produce visible reasoning.
const largeModelBillions = 70

// Infer derives the feature set for one catalog entry. Unknown raw tags are ignored.
func Infer(id, description string, rawTags []string) Set {
	s := NewSet()

	for _, tag := range rawTags {
		switch tag {
		case rawFunctionCalling:
			s.Add(ToolCall, MultiToolCall, StreamToolCall)
		case rawStructuredOutputs:
			s.Add(StructuredOutput)
		case rawVision:
			s.Add(Vision)
		}
	}

	if hasAgentThought(id, description) {
		s.Add(AgentThought)
	}

	return s
}

func hasAgentThought(id, description string) bool {
	lower := strings.ToLower(id)
	if strings.Contains(lower, "think") {
		return true
	}
	for _, kw := range thinkingKeywords {
		if strings.Contains(description, kw) {
			return true
		}
	}
	// Only the first size token counts, e.g. "qwen-2.5-72b-instruct".
	m := sizePattern.FindStringSubmatch(lower)
	if m == nil {
		return false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Digit runs too long for an int are certainly above the threshold.
		return true
	}
	return n > largeModelBillions
}
