// Package batchfile reads action batches from YAML (or JSON) documents.
package batchfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

// File is one batch document.
//
//	driver: web
//	eventName: Login
//	variables: {user: alice}
//	actions:
//	  - kind: Open
//	    params: {url: "https://example.test"}
//	  - kind: Click
//	    params: {locator: id, matcher: submit, wait: 5}
type File struct {
	// Driver selects the engine a new session is created on when the
	// document carries no sessionId.
	Driver string `yaml:"driver"`

	schemas.BatchRequest `yaml:",inline"`

	Actions []ActionSpec `yaml:"actions"`

	// SourcePath is the file the document was loaded from.
	SourcePath string `yaml:"-"`
}

// ActionSpec is an action kind with its parameters left undecoded until the
// kind is known.
type ActionSpec struct {
	Kind   string    `yaml:"kind"`
	Params yaml.Node `yaml:"params"`
}

// Load reads and parses the batch file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.SourcePath = path
	return f, nil
}

// Parse decodes a batch document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid batch document: %w", err)
	}
	if len(f.Actions) == 0 {
		return nil, fmt.Errorf("batch document has no actions")
	}
	return &f, nil
}

// Request builds the batch request, decoding every action. sessionID, when
// not empty, overrides the document's own.
func (f *File) Request(sessionID string) (*schemas.BatchRequest, error) {
	actions := make([]schemas.Action, 0, len(f.Actions))
	for i, spec := range f.Actions {
		action, err := spec.decode()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, action)
	}

	req := f.BatchRequest
	req.Actions = actions
	if sessionID != "" {
		req.SessionID = sessionID
	}
	return &req, nil
}

func (s ActionSpec) decode() (schemas.Action, error) {
	if s.Kind == "" {
		return nil, fmt.Errorf("missing kind")
	}
	var decode func(any) error
	if !s.Params.IsZero() {
		decode = s.Params.Decode
	}
	return schemas.DecodeAction(schemas.ActionKind(s.Kind), decode)
}
