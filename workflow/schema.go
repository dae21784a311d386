package workflow

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/sluiceworks/sluice/errors"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce  sync.Once
	schemaValue cue.Value
	schemaErr   error
)

// compiledSchema builds the #Workflow schema value once per process.
func compiledSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()

		v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile workflow schema: %w", err)
			return
		}

		def := v.LookupPath(cue.ParsePath("#Workflow"))
		if err := def.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Workflow: %w", err)
			return
		}
		schemaValue = def
	})
	return schemaValue, schemaErr
}

// validateSchema checks a raw YAML document against the embedded schema.
// Schema errors carry CUE's field paths, which name the offending field
// more precisely than the decoder would.
func validateSchema(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "workflow schema unavailable")
	}

	if err := cueyaml.Validate(data, schema); err != nil {
		return errors.Wrap(err, errors.CodeSchemaFailed, "workflow does not match schema")
	}
	return nil
}
