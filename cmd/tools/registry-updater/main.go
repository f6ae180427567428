// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"shopping-agent/internal/common/validation"
	"shopping-agent/pkg/registry"
)

const defaultRegistryPath = "configs/tool-registry.json"

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	listPath := listCmd.String("path", defaultRegistryPath, "Path to registry file")

	// Export command flags
	exportPath := exportCmd.String("path", defaultRegistryPath, "Destination for the built-in catalog")
	force := exportCmd.Bool("force", false, "Overwrite an existing file")

	// Update command flags
	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Tool ID to update (e.g., price.compare_full)")
	field := updateCmd.String("field", "", "Field to update (status, version, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		catalog, err := registry.LoadCatalog(*listPath)
		if err != nil {
			fmt.Printf("Error loading catalog: %v\n", err)
			os.Exit(1)
		}
		for _, tool := range catalog.Tools {
			fmt.Printf("%-22s %-8s %-9s %s\n", tool.ID, tool.Version, tool.Status, tool.DisplayName)
		}

	case "export":
		exportCmd.Parse(os.Args[2:])
		if _, err := os.Stat(*exportPath); err == nil && !*force {
			fmt.Printf("Error: %s exists; pass -force to overwrite.\n", *exportPath)
			os.Exit(1)
		}
		catalog := registry.DefaultCatalog()
		catalog.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		if err := registry.SaveCatalog(catalog, *exportPath); err != nil {
			fmt.Printf("Error exporting catalog: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d tools to %s\n", len(catalog.Tools), *exportPath)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTool(*updatePath, *idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating tool: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated tool %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		catalog, err := registry.LoadCatalog(*validatePath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		if err := validateCatalog(catalog); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d tools.\n", len(catalog.Tools))

	case "help":
		fallthrough
	default:
		help()
	}
}

func updateTool(path, id, field, value string) error {
	catalog, err := registry.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	tool, ok := catalog.Find(id)
	if !ok {
		return fmt.Errorf("tool with ID %s not found", id)
	}

	switch field {
	case "status":
		tool.Status = value
	case "version":
		tool.Version = value
	case "displayName":
		tool.DisplayName = value
	case "description":
		tool.Description = value
	case "category":
		tool.Category = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		tool.Timeout = value
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	catalog.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return registry.SaveCatalog(catalog, path)
}

// validateCatalog checks ids, required fields and that both schemas compile.
func validateCatalog(catalog *registry.ToolCatalog) error {
	if len(catalog.Tools) == 0 {
		return fmt.Errorf("registry contains no tools")
	}

	ids := make(map[string]bool)
	for _, tool := range catalog.Tools {
		if tool.ID == "" {
			return fmt.Errorf("tool missing required field: ID")
		}
		if ids[tool.ID] {
			return fmt.Errorf("duplicate tool ID: %s", tool.ID)
		}
		ids[tool.ID] = true

		if err := validation.ValidateToolNaming(tool.ID); err != nil {
			return fmt.Errorf("tool %s: %w", tool.ID, err)
		}
		if tool.DisplayName == "" {
			return fmt.Errorf("tool %s missing required field: DisplayName", tool.ID)
		}
		if tool.Category == "" {
			return fmt.Errorf("tool %s missing required field: Category", tool.ID)
		}
		if _, err := validation.Compile(tool.InputSchema); err != nil {
			return fmt.Errorf("tool %s inputSchema: %w", tool.ID, err)
		}
		if _, err := validation.Compile(tool.OutputSchema); err != nil {
			return fmt.Errorf("tool %s outputSchema: %w", tool.ID, err)
		}
		if tool.Timeout != "" {
			if _, err := time.ParseDuration(tool.Timeout); err != nil {
				return fmt.Errorf("tool %s has invalid timeout: %w", tool.ID, err)
			}
		}
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  list     List tools in the registry
  export   Write the built-in tool catalog to disk
  update   Update an existing tool's field
  validate Validate the registry file
  help     Show this help message

Examples:
  registry-updater export -path configs/tool-registry.json -force
  registry-updater update -id price.compare_full -field timeout -value 25s
  registry-updater validate -path configs/tool-registry.json

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
