package gamegraph

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mcoot/teamprogress/internal/model"
)

var (
	//go:embed schemas/tasks.schema.json
	tasksSchemaSource string

	//go:embed schemas/hideout.schema.json
	hideoutSchemaSource string

	tasksSchema   = jsonschema.MustCompileString("tasks.schema.json", tasksSchemaSource)
	hideoutSchema = jsonschema.MustCompileString("hideout.schema.json", hideoutSchemaSource)
)

// validateDocument checks raw document bytes against a schema. Failures
// wrap fault so callers can tell stored corruption from bad uploads.
func validateDocument(name string, schema *jsonschema.Schema, data []byte, fault *model.Error) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", fault, name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", fault, name, err)
	}
	return nil
}
