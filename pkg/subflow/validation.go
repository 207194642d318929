package subflow

import (
	"fmt"
	"strings"

	"github.com/dukex/subflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ValidateInput checks input data against the workflow's JSON schema. Workflows without a schema accept anything.
func ValidateInput(workflow *models.Workflow, input *models.InputData) error {
	if len(workflow.InputSchema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(workflow.InputSchema)
	dataLoader := gojsonschema.NewGoLoader(models.CloneInputData(input))

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("%w for workflow %s: %s", ErrInvalidInput, workflow.Label(), strings.Join(errors, "; "))
	}

	return nil
}
