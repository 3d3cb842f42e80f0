package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/horizons/internal/client"
	"github.com/star/horizons/internal/horizons"
	"github.com/star/horizons/internal/units"
)

var (
	nameFilter string
	startFlag  string
	stopFlag   string
	stepFlag   time.Duration
	siFlag     bool
)

var bodiesCmd = &cobra.Command{
	Use:   "bodies",
	Short: "List the major bodies Horizons knows",
	Args:  cobra.NoArgs,
	RunE:  runBodies,
}

var vectorsCmd = &cobra.Command{
	Use:   "vectors ID",
	Short: "Fetch position and velocity vectors of a body",
	Example: `  horizons vectors 301 --start 2022-08-13 --stop 2022-08-14 --step 1h
  horizons vectors --si --start 2024-01-01 --stop 2024-01-02 -- -170000`,
	Args: cobra.ExactArgs(1),
	RunE:  runVectors,
}

var elementsCmd = &cobra.Command{
	Use:   "elements ID",
	Short: "Fetch osculating orbital elements of a body",
	Args:  cobra.ExactArgs(1),
	RunE:  runElements,
}

var propertiesCmd = &cobra.Command{
	Use:   "properties ID",
	Short: "Fetch the physical properties of a body",
	Args:  cobra.ExactArgs(1),
	RunE:  runProperties,
}

func init() {
	bodiesCmd.Flags().StringVar(&nameFilter, "name", "", "only list bodies whose name contains this text (case-insensitive)")

	for _, cmd := range []*cobra.Command{vectorsCmd, elementsCmd} {
		cmd.Flags().StringVar(&startFlag, "start", "", "start time (RFC 3339 or YYYY-MM-DD[ HH:MM[:SS]], UTC)")
		cmd.Flags().StringVar(&stopFlag, "stop", "", "stop time")
		cmd.Flags().DurationVar(&stepFlag, "step", time.Hour, "step between records, whole minutes")
		cmd.Flags().BoolVar(&siFlag, "si", false, "convert to SI units")
		cmd.MarkFlagRequired("start")
		cmd.MarkFlagRequired("stop")
	}
}

func newClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Client, logger), nil
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid body id %q", arg)
	}
	return id, nil
}

func window() (client.Window, error) {
	start, err := client.ParseTime(startFlag)
	if err != nil {
		return client.Window{}, fmt.Errorf("--start: %w", err)
	}
	stop, err := client.ParseTime(stopFlag)
	if err != nil {
		return client.Window{}, fmt.Errorf("--stop: %w", err)
	}
	step, err := client.StepSize(stepFlag)
	if err != nil {
		return client.Window{}, fmt.Errorf("--step: %w", err)
	}
	w := client.Window{Start: start, Stop: stop, Step: step}
	return w, w.Validate()
}

func filterBodies(bodies []horizons.Body, name string) []horizons.Body {
	name = strings.ToLower(name)
	if name == "" {
		return bodies
	}
	var out []horizons.Body
	for _, b := range bodies {
		if strings.Contains(strings.ToLower(b.Name), name) {
			out = append(out, b)
		}
	}
	return out
}

func runBodies(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	bodies, err := c.Bodies(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), filterBodies(bodies, nameFilter))
}

func runVectors(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	w, err := window()
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	// Partial results are still printed before the decode error is reported.
	items, fetchErr := c.Vectors(cmd.Context(), id, w)
	if len(items) > 0 || fetchErr == nil {
		var v any = items
		if siFlag {
			v = units.Vectors(items)
		}
		if err := render(cmd.OutOrStdout(), v); err != nil {
			return err
		}
	}
	return fetchErr
}

func runElements(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	w, err := window()
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	items, fetchErr := c.Elements(cmd.Context(), id, w)
	if len(items) > 0 || fetchErr == nil {
		var v any = items
		if siFlag {
			v = units.ElementSets(items)
		}
		if err := render(cmd.OutOrStdout(), v); err != nil {
			return err
		}
	}
	return fetchErr
}

func runProperties(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	props, err := c.Properties(cmd.Context(), id)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), props)
}
