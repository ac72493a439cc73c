package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/pipeline"
)

type keyFlags struct {
	season string
	year   int
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.season, "season", "", "tournament season: fall or spring")
	cmd.Flags().IntVar(&f.year, "year", 0, "tournament year, e.g. 2026")
	_ = cmd.MarkFlagRequired("season")
	_ = cmd.MarkFlagRequired("year")
}

func (f *keyFlags) key() (model.Key, error) {
	s, err := model.ParseSeason(f.season)
	if err != nil {
		return model.Key{}, &pipeline.ValidationError{Field: "season", Err: err}
	}
	if f.year <= 0 {
		return model.Key{}, &pipeline.ValidationError{Field: "year", Err: eris.Errorf("%d must be positive", f.year)}
	}
	return model.Key{Season: s, Year: f.year}, nil
}

var stdout io.Writer = os.Stdout

// printResult writes v to stdout as indented JSON, or YAML when format is
// "yaml".
func printResult(v any, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unknown output format %q: use json or yaml", format)
	}
}
