// Command generate-schema writes JSON schemas for the extmounts config file
// and for the mount documents accepted by "extmounts add --from".
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/extmounts/pkg/config"
	"github.com/marmos91/extmounts/pkg/mount"
)

func main() {
	kind := flag.String("type", "config", "Schema to generate: config or mount")
	flag.Parse()

	var (
		schema     *jsonschema.Schema
		outputFile string
	)
	switch *kind {
	case "config":
		// Config keys follow the mapstructure tags viper decodes with.
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
			FieldNameTag:              "mapstructure",
		}
		schema = reflector.Reflect(&config.Config{})
		schema.Title = "extmounts Configuration"
		schema.Description = "Configuration schema for the extmounts CLI"
		outputFile = "config.schema.json"
	case "mount":
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		schema = reflector.Reflect(&mount.MountConfig{})
		schema.Title = "extmounts Mount"
		schema.Description = "External storage mount accepted by extmounts add --from"
		outputFile = "mount.schema.json"
	default:
		fmt.Fprintf(os.Stderr, "Unknown schema type %q (want config or mount)\n", *kind)
		os.Exit(2)
	}
	schema.Version = "1.0.0"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling schema: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		outputFile = flag.Arg(0)
	}

	if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", outputFile)
}
