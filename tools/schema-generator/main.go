package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/mattsolo1/grove-vct/cmd"
	"github.com/mattsolo1/grove-vct/pkg/config"
)

func writeSchema(path string, schema *jsonschema.Schema) {
	// Configs should not require any fields
	schema.Required = nil

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Successfully generated schema at %s", path)
}

func main() {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&cmd.VCTConfig{})
	schema.Title = "Grove VCT Configuration"
	schema.Description = "Schema for the 'vct' extension in grove.yml."
	writeSchema("vct.schema.json", schema)

	projectReflector := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
	}
	projectSchema := projectReflector.Reflect(&config.Config{})
	projectSchema.Title = "VCT Project Configuration"
	projectSchema.Description = "Schema for vapi_config.json."
	writeSchema("vapi_config.schema.json", projectSchema)
}
