package catalog

// Definition represents one model YAML file in the catalog directory.
// Field order matches the on-disk key order of generated files.
type Definition struct {
	Model           string          `yaml:"model"`
	Label           Label           `yaml:"label"`
	ModelType       string          `yaml:"model_type"`
	Features        []string        `yaml:"features"`
	ModelProperties ModelProperties `yaml:"model_properties"`
	ParameterRules  []ParameterRule `yaml:"parameter_rules"`
	Pricing         Pricing         `yaml:"pricing"`
}

// Label holds the bilingual display name.
type Label struct {
	ZhHans string `yaml:"zh_Hans"`
	EnUS   string `yaml:"en_US"`
}

// ModelProperties holds serving properties.
type ModelProperties struct {
	Mode        string `yaml:"mode,omitempty"`
	ContextSize int64  `yaml:"context_size"`
}

// ParameterRule describes one tunable parameter. Min, Max and Default are
// left untyped because hand-written files use strings and numbers alike.
type ParameterRule struct {
	Name        string `yaml:"name"`
	UseTemplate string `yaml:"use_template,omitempty"`
	Min         any    `yaml:"min"`
	Max         any    `yaml:"max"`
	Default     any    `yaml:"default"`
}

// Pricing holds per-token prices as decimal strings in units of Unit.
type Pricing struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Unit     string `yaml:"unit"`
	Currency string `yaml:"currency"`
}

// Template constants for generated definitions.
const (
	ModelTypeLLM  = "llm"
	ModeChat      = "chat"
	PriceUnit     = "0.0001"
	PriceCurrency = "CNY"
	DefaultIndex  = "_position.yaml"
	definitionExt = ".yaml"
)

// DefaultParameterRules returns the rules written into every new definition.
func DefaultParameterRules() []ParameterRule {
	return []ParameterRule{
		{Name: "temperature", UseTemplate: "temperature", Min: 0, Max: 2, Default: 1},
		{Name: "top_p", UseTemplate: "top_p", Min: 0, Max: 1, Default: 1},
		{Name: "max_tokens", UseTemplate: "max_tokens", Min: 1, Max: 2048, Default: 512},
		{Name: "frequency_penalty", UseTemplate: "frequency_penalty", Min: -2, Max: 2, Default: 0},
		{Name: "presence_penalty", UseTemplate: "presence_penalty", Min: -2, Max: 2, Default: 0},
	}
}

// Synced is the subset of a definition owned by the catalog sync.
// Everything else in a file is left as the author wrote it.
type Synced struct {
	Label       string
	Features    []string
	ContextSize int64
	Input       string
	Output      string
}

// NewDefinition builds a fresh definition from synced fields.
func NewDefinition(id string, s Synced) *Definition {
	return &Definition{
		Model:     id,
		Label:     Label{ZhHans: s.Label, EnUS: s.Label},
		ModelType: ModelTypeLLM,
		Features:  s.Features,
		ModelProperties: ModelProperties{
			Mode:        ModeChat,
			ContextSize: s.ContextSize,
		},
		ParameterRules: DefaultParameterRules(),
		Pricing: Pricing{
			Input:    s.Input,
			Output:   s.Output,
			Unit:     PriceUnit,
			Currency: PriceCurrency,
		},
	}
}
