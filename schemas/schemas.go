// Package schemas holds the embedded JSON Schemas used to validate
// configuration files before they are parsed.
package schemas

import _ "embed"

// RulesSchemaJSON is the JSON Schema for classification rules files.
//
//go:embed rules.schema.json
var RulesSchemaJSON string
