package workflow

import (
	"bytes"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sluiceworks/sluice/errors"
	"github.com/sluiceworks/sluice/fs"
)

// Parse decodes a workflow definition. The raw document is checked
// against the embedded schema first, then strictly decoded (unknown
// fields rejected, duplicate job IDs rejected by the YAML decoder).
// The returned workflow has display-name and runs-on defaults applied
// but has not been structurally validated; call Validate for that.
func Parse(data []byte) (*Workflow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.CodeWorkflowInvalid, "workflow is empty")
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var wf Workflow
	if err := dec.Decode(&wf); err != nil {
		return nil, errors.Wrap(err, errors.CodeWorkflowInvalid, "decode workflow")
	}

	wf.applyDefaults()
	return &wf, nil
}

// Load reads a workflow definition from the filesystem and parses it.
// A workflow without a name is named after its file.
func Load(fsys fs.Filesystem, path string) (*Workflow, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeWorkflowNotFound,
			"read workflow", map[string]interface{}{"path": path})
	}

	wf, err := Parse(data)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeOf(err),
			"load workflow", map[string]interface{}{"path": path})
	}

	if wf.Name == "" {
		base := filepath.Base(path)
		wf.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return wf, nil
}
