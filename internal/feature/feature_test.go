package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferFunctionCalling(t *testing.T) {
	s := Infer("meta-llama/llama-3.1-8b-instruct", "", []string{"function-calling"})

	assert.True(t, s.Equal(NewSet(ToolCall, MultiToolCall, StreamToolCall)),
		"got %v", s.Strings())
}

func TestInferRawTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want Set
	}{
		{"none", nil, NewSet()},
		{"structured outputs", []string{"structured-outputs"}, NewSet(StructuredOutput)},
		{"vision", []string{"vision"}, NewSet(Vision)},
		{"unknown ignored", []string{"serverless", "reasoning"}, NewSet()},
		{
			"combined",
			[]string{"function-calling", "vision", "structured-outputs"},
			NewSet(ToolCall, MultiToolCall, StreamToolCall, Vision, StructuredOutput),
		},
		{"duplicates collapse", []string{"vision", "vision"}, NewSet(Vision)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer("acme/tiny-7b", "", tt.tags)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got.Strings(), tt.want.Strings())
		})
	}
}

func TestInferAgentThought(t *testing.T) {
	tests := []struct {
		id          string
		description string
		want        bool
	}{
		{"qwen/qwen-2.5-72b-instruct", "", true},
		{"meta-llama/llama-3.1-8b-instruct", "", false},
		{"meta-llama/llama-3.3-70b-instruct", "", false},
		{"meta-llama/llama-3.1-405B-instruct", "", true},
		{"deepseek/deepseek-r1-think", "", true},
		{"acme/DeepThinker", "", true},
		{"acme/small", "擅长复杂推理任务", true},
		{"acme/small", "具备深度思考能力", true},
		{"acme/small", "A chat model.", false},
		// Only the first size token is considered.
		{"acme/model-8b-moe-100b", "", false},
		{"acme/no-size", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.id+"/"+tt.description, func(t *testing.T) {
			got := Infer(tt.id, tt.description, nil).Has(AgentThought)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	for _, f := range All() {
		got, err := Parse(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := Parse("function-calling")
	assert.Error(t, err)
}

func TestSetEqualIgnoresOrder(t *testing.T) {
	a := SetFromStrings([]string{"vision", "tool-call"})
	b := SetFromStrings([]string{"tool-call", "vision"})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewSet(Vision)))
}

func TestSortedCanonicalOrder(t *testing.T) {
	s := SetFromStrings([]string{"structured-output", "zzz-custom", "vision", "tool-call", "aaa-custom"})

	assert.Equal(t,
		[]string{"tool-call", "vision", "structured-output", "aaa-custom", "zzz-custom"},
		s.Strings())
}
