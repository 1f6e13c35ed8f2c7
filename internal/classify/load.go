package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/stagegate/stagegate/schemas"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// rulesSchema is the compiled JSON Schema for rules files.
var rulesSchema *jsonschema.Schema

func init() {
	rulesSchema = mustCompileSchema(schemas.RulesSchemaJSON, "rules.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// RulesFile is an on-disk rules override: any subset of the rule tables
// plus optional extra label→score entries merged into the score table.
type RulesFile struct {
	Rules  `yaml:",inline"`
	Scores map[string]float64 `yaml:"scores,omitempty"`
}

// LoadRulesFile reads a YAML rules file, validates it against the
// embedded schema, and unmarshals it over the defaults so that omitted
// settings keep their reference values.
func LoadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	if errs := ValidateRulesBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("rules file %s is invalid:\n  %s", path, strings.Join(errs, "\n  "))
	}

	rf := &RulesFile{Rules: DefaultRules()}
	if err := yaml.Unmarshal(data, rf); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return rf, nil
}

// ValidateRulesBytes validates raw YAML bytes against the rules schema.
func ValidateRulesBytes(data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	if yamlDoc == nil {
		return nil
	}

	err := rulesSchema.Validate(yamlDoc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
