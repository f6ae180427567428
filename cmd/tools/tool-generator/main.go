// cmd/tools/tool-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"shopping-agent/internal/common/validation"
	"shopping-agent/pkg/registry"
)

// ToolData holds data for templates
type ToolData struct {
	Name         string
	PackageName  string
	ToolID       string
	Namespace    string
	Action       string
	InputSchema  map[string]interface{}
	OutputSchema map[string]interface{}
	ErrorCodes   []string
	Description  string
	Timeout      string
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schemaObj interface{}) map[string]interface{} {
	if schemaMap, ok := schemaObj.(map[string]interface{}); ok {
		if props, exists := schemaMap["properties"]; exists {
			if properties, ok := props.(map[string]interface{}); ok {
				return properties
			}
		}
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	// A list of types ("number", "null") maps onto its first non-null entry.
	if list, ok := jsonType.([]interface{}); ok {
		for _, t := range list {
			if s, ok := t.(string); ok && s != "null" {
				return goTypeFromJSONType(s)
			}
		}
		return "interface{}"
	}
	jt, _ := jsonType.(string)
	switch jt {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// fieldName turns a snake_case property into an exported Go identifier.
func fieldName(prop string) string {
	parts := strings.FieldsFunc(prop, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	var b strings.Builder
	for _, p := range parts {
		switch strings.ToLower(p) {
		case "id", "url", "api":
			b.WriteString(strings.ToUpper(p))
		default:
			b.WriteString(strings.ToUpper(p[:1]) + p[1:])
		}
	}
	return b.String()
}

// generateStructFields renders struct fields for schema properties in name order.
func generateStructFields(properties map[string]interface{}) string {
	names := make([]string, 0, len(properties))
	for prop := range properties {
		names = append(names, prop)
	}
	sort.Strings(names)

	var fields []string
	for _, prop := range names {
		details, ok := properties[prop].(map[string]interface{})
		if !ok {
			continue
		}
		field := fmt.Sprintf("\t%s %s `json:\"%s\"`", fieldName(prop), goTypeFromJSONType(details["type"]), prop)
		if desc, ok := details["description"].(string); ok && desc != "" {
			field += " // " + desc
		}
		fields = append(fields, field)
	}
	return strings.Join(fields, "\n")
}

// splitToolID splits "price.compare_full" into its namespace and action.
func splitToolID(id string) (string, string, error) {
	if err := validation.ValidateToolNaming(id); err != nil {
		return "", "", err
	}
	parts := strings.SplitN(id, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("tool id %q must be namespace.action", id)
	}
	return parts[0], parts[1], nil
}

// toolDir maps a tool id onto its package directory, e.g. price/compare-full.
func toolDir(namespace, action string) string {
	return filepath.Join(namespace, strings.ReplaceAll(action, "_", "-"))
}

func newToolData(spec *registry.ToolSpec, packageName string) (ToolData, error) {
	namespace, action, err := splitToolID(spec.ID)
	if err != nil {
		return ToolData{}, err
	}
	if packageName == "" {
		packageName = namespace + strings.ReplaceAll(action, "_", "")
	}
	return ToolData{
		Name:         spec.DisplayName,
		PackageName:  packageName,
		ToolID:       spec.ID,
		Namespace:    namespace,
		Action:       action,
		InputSchema:  spec.InputSchema,
		OutputSchema: spec.OutputSchema,
		ErrorCodes:   spec.ErrorCodes,
		Description:  spec.Description,
		Timeout:      spec.Timeout,
	}, nil
}

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/runtime/tools"
)

const (
	TaskType = "{{ .ToolID }}"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	logger Logger
}

func NewHandler(config *Config, log Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Tool adapts Run to the tool registry's map contract.
func (h *Handler) Tool() tools.Func {
	return func(ctx context.Context, in map[string]interface{}) (map[string]interface{}, error) {
		var input Input
		if err := remarshal(in, &input); err != nil {
			return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
		}
		output, err := h.Run(ctx, &input)
		if err != nil {
			return nil, err
		}
		var out map[string]interface{}
		if err := remarshal(output, &out); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		return out, nil
	}
}

// Run executes {{ .ToolID }}.
func (h *Handler) Run(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.logger.Info("{{ .ToolID }} invoked", nil)
	return &Output{}, nil
}

func remarshal(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
`

const configTemplate = `package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: {{ timeoutLiteral .Timeout }},
	}
}
`

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{- $inputProps := parseSchema .InputSchema }}
{{- if $inputProps }}
{{ generateStructFields $inputProps }}
{{- end }}
}

type Output struct {
{{- $outputProps := parseSchema .OutputSchema }}
{{- if $outputProps }}
{{ generateStructFields $outputProps }}
{{- end }}
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"context"
	"testing"

	"shopping-agent/internal/runtime/tools"
	"shopping-agent/pkg/registry"

	"github.com/stretchr/testify/require"
)

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return l
}

func TestHandler_Run(t *testing.T) {
	h := NewHandler(LoadConfig(), &TestLogger{t})
	out, err := h.Run(context.Background(), &Input{})
	require.NoError(t, err)
	require.NotNil(t, out)
}

func TestHandler_ToolRegisters(t *testing.T) {
	h := NewHandler(LoadConfig(), &TestLogger{t})
	reg := tools.NewRegistry()
	err := reg.RegisterFromCatalog(registry.DefaultCatalog(), TaskType, h.Tool())
	if err != nil {
		t.Skipf("%s is not in the built-in catalog: %v", TaskType, err)
	}
}
`

// timeoutLiteral renders a catalog timeout ("30s") as a Go duration expression.
func timeoutLiteral(timeout string) (string, error) {
	if timeout == "" {
		return "30 * time.Second", nil
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return "", fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}
	if d%time.Second == 0 {
		return fmt.Sprintf("%d * time.Second", d/time.Second), nil
	}
	return fmt.Sprintf("%d * time.Millisecond", d/time.Millisecond), nil
}

var templates = map[string]string{
	"handler.go":      handlerTemplate,
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"handler_test.go": testTemplate,
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"parseSchema":          parseSchema,
		"generateStructFields": generateStructFields,
		"timeoutLiteral":       timeoutLiteral,
	}
}

// generate renders the scaffold into dir and returns the written paths.
// Existing files are left untouched unless force is set.
func generate(data ToolData, dir string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !force {
			return written, fmt.Errorf("%s exists; pass -force to overwrite", path)
		}

		tmpl, err := template.New(name).Funcs(funcMap()).Parse(templates[name])
		if err != nil {
			return written, fmt.Errorf("parse template %s: %w", name, err)
		}
		file, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", path, err)
		}
		err = tmpl.Execute(file, data)
		file.Close()
		if err != nil {
			return written, fmt.Errorf("render %s: %w", name, err)
		}
		written = append(written, path)
	}

	return written, nil
}

func main() {
	id := flag.String("id", "", "Tool ID from the catalog (e.g., price.compare_full)")
	outputDir := flag.String("output", "./internal/workers/", "Root directory for generated tool packages")
	registryPath := flag.String("registry", "configs/tool-registry.json", "Path to the tool catalog JSON file")
	packageName := flag.String("package", "", "Go package name (default: namespace and action joined)")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if *id == "" {
		fmt.Println("Usage: tool-generator -id <namespace.action> [-output <dir>] [-registry <path>] [-package <name>]")
		fmt.Println("\nExample:")
		fmt.Println("  go run ./cmd/tools/tool-generator -id reco.generate")
		os.Exit(1)
	}

	catalog, err := registry.LoadOrDefault(*registryPath)
	if err != nil {
		fmt.Printf("Error loading catalog from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}
	spec, ok := catalog.Find(*id)
	if !ok {
		fmt.Printf("Tool '%s' not found in catalog %s\n", *id, *registryPath)
		os.Exit(1)
	}

	data, err := newToolData(spec, *packageName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	dir := filepath.Join(*outputDir, toolDir(data.Namespace, data.Action))
	written, err := generate(data, dir, *force)
	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nTool scaffold generated at: %s\n", dir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement Run in handler.go\n")
	fmt.Printf("  2. Register Tool() in cmd/agent-server/main.go\n")
	fmt.Printf("  3. Add tools.%s to configs/config.yaml\n", strings.ReplaceAll(data.ToolID, ".", "_"))
}
