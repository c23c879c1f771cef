package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"sqlbridge/internal/stats"
)

var measureGroup string

var measureCmd = &cobra.Command{
	Use:   "measure [abbrev ...]",
	Short: "Record fresh measurements for tracked statistics",
	Long: `Without arguments, records a new measurement for every statistic that
has a measurement command stored in the database. With abbreviations, shows
the latest recorded value for each instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManager()
		if err != nil {
			return err
		}
		defer m.Close()
		m.SetBackendTranslate(true)

		store := stats.NewStore(m)

		if len(args) == 0 {
			log.Println("Measuring all statistics with stored commands...")
			if err := store.MeasureAllHavingSQL(); err != nil {
				return err
			}
			return m.Commit()
		}

		for _, abbrev := range args {
			stat, err := store.Statistic(abbrev)
			if err != nil {
				return err
			}
			latest, err := store.LatestMeasurement(stat)
			if err != nil {
				return err
			}
			if latest == nil {
				fmt.Printf("%-12s %s: no measurements\n", stat.Abbrev, stat.Name)
				continue
			}
			if stat.HasInt {
				fmt.Printf("%-12s %s: %d (%s)\n", stat.Abbrev, stat.Name, latest.IntValue, latest.Timestamp)
			} else {
				fmt.Printf("%-12s %s: %0.3f (%s)\n", stat.Abbrev, stat.Name, latest.FloatValue, latest.Timestamp)
			}
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "List tracked statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManager()
		if err != nil {
			return err
		}
		defer m.Close()
		m.SetBackendTranslate(true)

		store := stats.NewStore(m)
		list, err := store.Statistics(measureGroup)
		if err != nil {
			return err
		}
		for _, s := range list {
			flag := " "
			if s.Private {
				flag = "p"
			}
			fmt.Printf("[%s] %-12s %s\n", flag, s.Abbrev, s.Name)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(measureCmd)
	RootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVarP(&measureGroup, "group", "g", "", "restrict to one statistic group")
}
