package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/icodeforyou/spotprice-go/feed"
	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/stats"
	"github.com/icodeforyou/spotprice-go/types/maybe"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print price statistics from the feed file",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	b, err := setup()
	if err != nil {
		return err
	}

	f := feed.NewFile(b.logger, b.cnfg.Storage.GetFeedPath())
	entries, err := f.Load()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("feed %s is empty, run update first", f.Path())
	}

	st, err := stats.Compute(entries, hours.FromNow())
	if err != nil {
		return err
	}

	if statsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	return printStats(cmd.OutOrStdout(), st)
}

func printStats(out io.Writer, st stats.Stats) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Price now (%s)\t%s\n", st.Hour, price(st.PriceNow))
	fmt.Fprintln(w, "\tmax\tmin\tmean")
	for _, d := range []stats.DayStats{st.Today, st.Tomorrow} {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Date, price(d.Max), price(d.Min), price(d.Mean))
	}
	fmt.Fprintln(w, "Cheapest\tstart\tmean")
	for _, c := range st.Cheapest {
		start := c.Start
		if start == "" {
			start = "-"
		}
		fmt.Fprintf(w, "%d h\t%s\t%s\n", c.Hours, start, price(c.Mean))
	}
	return w.Flush()
}

func price(m maybe.Maybe[float64]) string {
	if !m.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%.2f", m.Value())
}
