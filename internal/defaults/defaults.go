// Package defaults provides an embedded copy of the default
// configuration file written by the "gstd init" subcommand.
package defaults

import _ "embed"

// ConfigYAML is the embedded default configuration file
// (gstd.example.yaml), written by "gstd init".
//
//go:embed gstd.example.yaml
var ConfigYAML []byte
