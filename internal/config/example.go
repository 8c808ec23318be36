package config

import (
	_ "embed"
)

//go:embed example.yaml
var exampleYaml string

// Example returns a commented configuration file holding the defaults.
func Example() string {
	return exampleYaml
}
