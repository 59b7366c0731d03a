// Package configs embeds the templates written by `searchbridge init`.
//
// Templates:
//   - searchbridge.example.yaml: project configuration, written as searchbridge.yaml
//   - schema.example.json: a starter schema descriptor, written as schema.json
//
// The YAML template lists every key with its default, so it also serves as
// the reference for internal/config. Keep the two in step.
package configs

import _ "embed"

// ProjectConfigTemplate is the project configuration template.
//
//go:embed searchbridge.example.yaml
var ProjectConfigTemplate string

// SchemaTemplate is a starter schema descriptor.
//
//go:embed schema.example.json
var SchemaTemplate string
