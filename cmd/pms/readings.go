package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZamarianPatrick/pms/config"
	"github.com/ZamarianPatrick/pms/store"
)

var readingsLimit int

var readingsCmd = &cobra.Command{
	Use:          "readings <config>",
	Short:        "Print the latest stored readings",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}

		records, err := store.New(cfg.DatabaseName, cfg.NewLogger(os.Stderr)).Latest(readingsLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIMESTAMP\tLIGHT\tSOIL\tHUMIDITY\tTEMPERATURE")
		for _, r := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Timestamp, value(r.LightIntensity), value(r.SoilMoisture), value(r.AirHumidity), value(r.Temperature))
		}
		return w.Flush()
	},
}

func init() {
	readingsCmd.Flags().IntVarP(&readingsLimit, "limit", "n", 10, "number of readings to print")
}

func value(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
