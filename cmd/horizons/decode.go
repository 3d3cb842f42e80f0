package main

import (
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/spf13/cobra"

	"github.com/star/horizons/internal/horizons"
	"github.com/star/horizons/internal/units"
)

var decodeCmd = &cobra.Command{
	Use:   "decode {bodies|vectors|elements|properties} [FILE]",
	Short: "Decode a saved Horizons text table",
	Long: `decode reads the result text of a Horizons query from FILE, or from stdin
when FILE is omitted, and prints the decoded records. Nothing is fetched.`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"bodies", "vectors", "elements", "properties"},
	RunE:      runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&siFlag, "si", false, "convert vectors and elements to SI units")
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) < 2 || args[1] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	lines := horizons.SplitLines(text)
	out := cmd.OutOrStdout()

	switch args[0] {
	case "bodies":
		var bodies []horizons.Body
		for b := range horizons.Bodies(lines) {
			bodies = append(bodies, b)
		}
		return render(out, bodies)

	case "vectors":
		items, decodeErr := collectRecords(horizons.Vectors(lines))
		var v any = items
		if siFlag {
			v = units.Vectors(items)
		}
		if err := render(out, v); err != nil {
			return err
		}
		return decodeErr

	case "elements":
		items, decodeErr := collectRecords(horizons.Elements(lines))
		var v any = items
		if siFlag {
			v = units.ElementSets(items)
		}
		if err := render(out, v); err != nil {
			return err
		}
		return decodeErr

	case "properties":
		props, err := horizons.ParseProperties(lines)
		if err != nil {
			return err
		}
		return render(out, props)

	default:
		return fmt.Errorf("unknown product %q, want bodies, vectors, elements or properties", args[0])
	}
}

// collectRecords drains seq, keeping the records decoded before an error.
func collectRecords[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
