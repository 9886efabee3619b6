package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dwarflint/dwarflint/internal/lint"
)

// yamlReport is the --report yaml shape: flatter and more parseable than
// the text diagnostic stream, for feeding into other tooling.
type yamlReport struct {
	File       string   `yaml:"file"`
	ErrorCount int      `yaml:"error_count"`
	Messages   []string `yaml:"messages"`
}

func writeYAMLReport(cmd *cobra.Command, report *lint.Report) error {
	out := yamlReport{File: report.Path, ErrorCount: report.ErrorCount}
	for _, m := range report.Messages {
		out.Messages = append(out.Messages, m.String())
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	return enc.Encode(out)
}
