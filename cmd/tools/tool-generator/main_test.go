// cmd/tools/tool-generator/main_test.go
package main

import (
	"os"
	"path/filepath"
	"testing"

	"shopping-agent/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoTypeFromJSONType(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"string", "string"},
		{"integer", "int"},
		{"number", "float64"},
		{"boolean", "bool"},
		{"object", "map[string]interface{}"},
		{"array", "[]interface{}"},
		{[]interface{}{"number", "null"}, "float64"},
		{[]interface{}{"null"}, "interface{}"},
		{nil, "interface{}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, goTypeFromJSONType(tt.in), "%v", tt.in)
	}
}

func TestGenerateStructFields(t *testing.T) {
	props := map[string]interface{}{
		"topk":        map[string]interface{}{"type": "integer"},
		"goal":        map[string]interface{}{"type": "string", "description": "what the user wants"},
		"product_url": map[string]interface{}{"type": "string"},
		"skip":        "not a schema",
	}

	got := generateStructFields(props)
	want := "\tGoal string `json:\"goal\"` // what the user wants\n" +
		"\tProductURL string `json:\"product_url\"`\n" +
		"\tTopk int `json:\"topk\"`"
	assert.Equal(t, want, got)
}

func TestSplitToolID(t *testing.T) {
	ns, action, err := splitToolID("price.compare_full")
	require.NoError(t, err)
	assert.Equal(t, "price", ns)
	assert.Equal(t, "compare_full", action)
	assert.Equal(t, filepath.Join("price", "compare-full"), toolDir(ns, action))

	_, _, err = splitToolID("compare")
	assert.Error(t, err)
}

func TestTimeoutLiteral(t *testing.T) {
	lit, err := timeoutLiteral("20s")
	require.NoError(t, err)
	assert.Equal(t, "20 * time.Second", lit)

	lit, err = timeoutLiteral("1500ms")
	require.NoError(t, err)
	assert.Equal(t, "1500 * time.Millisecond", lit)

	lit, err = timeoutLiteral("")
	require.NoError(t, err)
	assert.Equal(t, "30 * time.Second", lit)

	_, err = timeoutLiteral("soon")
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	spec, ok := registry.DefaultCatalog().Find(registry.ToolRecoGenerate)
	require.True(t, ok)
	data, err := newToolData(spec, "")
	require.NoError(t, err)
	assert.Equal(t, "recogenerate", data.PackageName)

	dir := filepath.Join(t.TempDir(), toolDir(data.Namespace, data.Action))
	written, err := generate(data, dir, false)
	require.NoError(t, err)
	assert.Len(t, written, len(templates))

	handler, err := os.ReadFile(filepath.Join(dir, "handler.go"))
	require.NoError(t, err)
	assert.Contains(t, string(handler), "package recogenerate")
	assert.Contains(t, string(handler), `TaskType = "reco.generate"`)

	models, err := os.ReadFile(filepath.Join(dir, "models.go"))
	require.NoError(t, err)
	assert.Contains(t, string(models), "Goal string `json:\"goal\"`")
	assert.Contains(t, string(models), "Budget float64 `json:\"budget\"`")

	config, err := os.ReadFile(filepath.Join(dir, "config.go"))
	require.NoError(t, err)
	assert.Contains(t, string(config), "Timeout: 15 * time.Second")

	_, err = generate(data, dir, false)
	assert.ErrorContains(t, err, "exists")

	_, err = generate(data, dir, true)
	assert.NoError(t, err)
}
