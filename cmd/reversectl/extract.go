package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reverseDesignAi/internal/extract"
)

func extractCmd() *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "extract {object|array|segments} [file|-]",
		Short: "Pull a JSON value out of a model response",
		Long: `Reads a model response from a file or stdin and prints the JSON value
found in it. "segments" accepts {"texts": [...]} or a bare array and tolerates
code fences, smart quotes, single quotes and trailing commas.`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"object", "array", "segments"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			data, err := readInput(cmd, path)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			x := extract.Extractor{Repair: repair}
			var value any
			switch args[0] {
			case "object":
				value, err = x.ExtractObject(string(data))
			case "array":
				value, err = x.ExtractArray(string(data))
			case "segments":
				value, err = x.ExtractSegments(string(data))
			default:
				return fmt.Errorf("unknown shape %q, want object, array or segments", args[0])
			}
			if err != nil {
				var malformed *extract.MalformedJSONError
				if errors.As(err, &malformed) {
					fmt.Fprintf(cmd.ErrOrStderr(), "raw response:\n%s\n", malformed.Raw)
				}
				return err
			}
			return printJSON(cmd, value)
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "attempt jsonrepair on malformed candidates")
	return cmd
}
