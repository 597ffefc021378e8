package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// acceptedVersions is the known set of schema_version values a read will
// accept; unknown versions are rejected on read. Expressed as a semver
// constraint so compatible patch/minor bumps do not require a code change.
var acceptedVersions = mustConstraint("^1.0.0")

func mustConstraint(c string) *semver.Constraints {
	con, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return con
}

// AcceptsVersion reports whether v satisfies the module's compatibility range.
func AcceptsVersion(v string) bool {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return acceptedVersions.Check(sv)
}

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

// schemaNames maps a bundle kind to its embedded JSON Schema file.
var schemaNames = map[string]string{
	"evidence_bundle": "schemas/evidence_bundle.v1.json",
	"correlation":      "schemas/cross_analysis.v1.json",
	"document":         "schemas/document.v1.json",
	"image":            "schemas/images.v1.json",
	"email":            "schemas/email.v1.json",
}

func compileAll() {
	compiled = make(map[string]*jsonschema.Schema, len(schemaNames))
	for kind, path := range schemaNames {
		c := jsonschema.NewCompiler()
		data, err := schemaFS.ReadFile(path)
		if err != nil {
			compileErr = fmt.Errorf("schema: read %s: %w", path, err)
			return
		}
		if err := c.AddResource(path, bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("schema: add resource %s: %w", path, err)
			return
		}
		sch, err := c.Compile(path)
		if err != nil {
			compileErr = fmt.Errorf("schema: compile %s: %w", path, err)
			return
		}
		compiled[kind] = sch
	}
}

// RawSchema returns the embedded JSON Schema document for kind, the same
// document a caller passes to the oracle as the structured-output contract
// for that call.
func RawSchema(kind string) ([]byte, error) {
	path, ok := schemaNames[kind]
	if !ok {
		return nil, fmt.Errorf("schema: unknown kind %q", kind)
	}
	return schemaFS.ReadFile(path)
}

// ValidateBundleBytes validates raw JSON bytes against the named schema kind
// ("evidence_bundle", "correlation", "document", "image", "email"). Both
// reads and writes call this; an unknown schema_version or a
// structural mismatch returns an error and the write must not proceed.
func ValidateBundleBytes(kind string, data []byte) error {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return compileErr
	}
	sch, ok := compiled[kind]
	if !ok {
		return fmt.Errorf("schema: unknown kind %q", kind)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("schema: decode %s: %w", kind, err)
	}
	if m, ok := doc.(map[string]interface{}); ok {
		if v, ok := m["schema_version"].(string); ok && !AcceptsVersion(v) {
			return fmt.Errorf("schema: unsupported %s schema_version %q", kind, v)
		}
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema: %s validation failed: %w", kind, err)
	}
	return nil
}

// ValidateEvidenceBundle validates a typed EvidenceBundle end to end: the
// schema_version is in the accepted range, and the marshaled form passes
// JSON Schema validation.
func ValidateEvidenceBundle(b *EvidenceBundle) error {
	if !AcceptsVersion(b.SchemaVersion) {
		return fmt.Errorf("schema: unsupported evidence_bundle schema_version %q", b.SchemaVersion)
	}
	data, err := Marshal(b)
	if err != nil {
		return err
	}
	return ValidateBundleBytes("evidence_bundle", data)
}

// ValidateCorrelationResult validates a typed CorrelationResult.
func ValidateCorrelationResult(c *CorrelationResult) error {
	if !AcceptsVersion(c.SchemaVersion) {
		return fmt.Errorf("schema: unsupported correlation schema_version %q", c.SchemaVersion)
	}
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	return ValidateBundleBytes("correlation", data)
}
