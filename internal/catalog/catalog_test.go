package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.yaml", "model: acme/foo\nmodel_properties:\n  context_size: 4096\n")
	writeFile(t, dir, "bar.yaml", "model: acme/bar\n")
	writeFile(t, dir, "_position.yaml", "# Acme Models\n- acme/foo\n")
	writeFile(t, dir, "broken.yaml", "model: [unterminated\n")
	writeFile(t, dir, "list.yaml", "- a\n- b\n")
	writeFile(t, dir, "nomodel.yaml", "label:\n  en_US: x\n")
	writeFile(t, dir, "README.md", "not yaml")
	writeFile(t, dir, "zz-copy.yaml", "model: acme/foo\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	d, err := LoadDir(dir, LoadOptions{Ignore: DefaultIgnore})
	require.NoError(t, err)

	require.Len(t, d.Entries, 2)
	assert.Equal(t, "foo.yaml", d.Entries["acme/foo"].FileName)
	assert.Equal(t, int64(4096), d.Entries["acme/foo"].Definition.ModelProperties.ContextSize)
	assert.Empty(t, d.Entries["acme/foo"].Unreadable)
	if assert.Len(t, d.Duplicates, 1) {
		assert.Equal(t, "zz-copy.yaml", d.Duplicates[0].FileName)
	}
	assert.Len(t, d.Malformed, 3)
	assert.False(t, d.Files["_position.yaml"], "index file should not be scanned")
	assert.True(t, d.Files["broken.yaml"], "malformed files should still be listed in Files")

	reasons := make(map[string]error)
	for _, m := range d.Malformed {
		reasons[m.FileName] = m.Err
	}
	assert.ErrorIs(t, reasons["list.yaml"], ErrNotMapping)
	assert.ErrorIs(t, reasons["nomodel.yaml"], ErrNoModel)
}

func TestLoadDirKeepsWrongTypedDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "quoted.yaml", `model: acme/quoted
label:
  en_US: Quoted
features: vision
model_properties:
  context_size: "4096"
pricing:
  input: '0.0001'
`)
	writeFile(t, dir, "flat.yaml", "model: acme/flat\nlabel: Flat\npricing: free\n")
	writeFile(t, dir, "badid.yaml", "model: [acme, x]\n")

	d, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)

	quoted := d.Entries["acme/quoted"]
	require.NotNil(t, quoted, "a wrong-typed field must not hide the model")
	assert.Equal(t, "Quoted", quoted.Definition.Label.EnUS)
	assert.Equal(t, "0.0001", quoted.Definition.Pricing.Input)
	assert.Zero(t, quoted.Definition.ModelProperties.ContextSize)
	assert.ElementsMatch(t, []string{PathFeatures, PathContextSize}, quoted.Unreadable)

	flat := d.Entries["acme/flat"]
	require.NotNil(t, flat)
	assert.ElementsMatch(t, []string{PathLabelZh, PathLabelEn, PathPricingInput, PathPricingOutput}, flat.Unreadable)

	if assert.Len(t, d.Malformed, 1) {
		assert.Equal(t, "badid.yaml", d.Malformed[0].FileName)
		assert.ErrorIs(t, d.Malformed[0].Err, ErrNoModel)
	}
}

func TestReadDefinitionToleratesWrongTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "m.yaml", "model: acme/m\nmodel_properties:\n  context_size: \"4096\"\n")

	def, err := ReadDefinition(filepath.Join(dir, "m.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "acme/m", def.Model)
}

func TestLoadDirIgnoreList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.yaml", "model: acme/foo\n")
	writeFile(t, dir, "skip-me.yaml", "model: acme/skip\n")

	d, err := LoadDir(dir, LoadOptions{Ignore: []string{"skip-me.yaml"}})
	require.NoError(t, err)
	assert.NotContains(t, d.Entries, "acme/skip")
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"), LoadOptions{})
	assert.Error(t, err)
}

func TestConvertPrice(t *testing.T) {
	tests := []struct {
		raw  int64
		want string
	}{
		{8900, "0.0089"},
		{1000000, "1"},
		{0, "0"},
		{1, "0.000001"},
		{100, "0.0001"},
		{2500000, "2.5"},
		{10000000, "10"},
		{12345678, "12.345678"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ConvertPrice(tt.raw), "ConvertPrice(%d)", tt.raw)
	}
}

func TestConvertPriceInjective(t *testing.T) {
	seen := make(map[string]int64)
	for raw := int64(0); raw <= 10_000_000; raw += 100 * 997 {
		s := ConvertPrice(raw)
		prev, ok := seen[s]
		require.False(t, ok, "ConvertPrice(%d) == ConvertPrice(%d) == %q", raw, prev, s)
		seen[s] = raw

		d, err := ParsePrice(s)
		require.NoError(t, err)
		require.Equal(t, raw, d.Shift(6).IntPart(), "round trip of %d", raw)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"meta-llama/llama-3.1-8b-instruct", "llama-3.1-8b-instruct.yaml"},
		{"acme/family/variant", "family-variant.yaml"},
		{"standalone", "standalone.yaml"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.id), "FileName(%q)", tt.id)
	}
}

func TestRenderIndexGroups(t *testing.T) {
	got := RenderIndex([]string{"acme/foo", "zeta/baz", "acme/bar"})
	assert.Equal(t, "# Acme Models\n- acme/foo\n- acme/bar\n\n# Zeta Models\n- zeta/baz\n", got)
}

func TestRenderIndexTitleCase(t *testing.T) {
	tests := []struct {
		id     string
		header string
	}{
		{"meta-llama/llama-3.1-8b-instruct", "# Meta-Llama Models"},
		{"Sao10K/L3-8B-Stheno-v3.2", "# Sao10K Models"},
		{"sao10k/l3-70b-euryale-v2.1", "# Sao10K Models"},
		{"THUDM/glm-4-9b", "# Thudm Models"},
		{"01-ai/yi-large", "# 01-Ai Models"},
		{"nousresearch/hermes-2-pro", "# Nousresearch Models"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.header+"\n- "+tt.id+"\n", RenderIndex([]string{tt.id}))
		})
	}
}

func TestRenderIndexEmpty(t *testing.T) {
	assert.Equal(t, "\n", RenderIndex(nil))
}

func TestWriteIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteIndex(dir, "", []string{"acme/foo"}))

	data, err := os.ReadFile(filepath.Join(dir, DefaultIndex))
	require.NoError(t, err)
	assert.Equal(t, "# Acme Models\n- acme/foo\n", string(data))
}
