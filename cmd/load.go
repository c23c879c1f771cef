package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	loadTable   string
	loadSep     string
	loadNull    string
	loadColumns []string
	loadReindex bool
)

var loadCmd = &cobra.Command{
	Use:   "load [datafile]",
	Short: "Bulk load delimited data into a table",
	Long: `Streams a delimited data file (or stdin) into the target table through
the engine's native bulk mechanism. With --reindex, secondary indexes are
dropped before the load and recreated afterwards, which is much faster for
large files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadTable == "" {
			return fmt.Errorf("--table is required")
		}

		var in io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		m, err := openManager()
		if err != nil {
			return err
		}
		defer m.Close()

		if loadReindex {
			log.Printf("Dropping indexes on %s...", loadTable)
			if err := m.DropIndexes(loadTable); err != nil {
				return err
			}
		}

		start := time.Now()
		n, err := m.CopyFrom(in, loadTable, loadSep, loadNull, loadColumns)
		if err != nil {
			return err
		}

		if loadReindex {
			log.Printf("Recreating indexes on %s...", loadTable)
			if err := m.RestoreIndexes(loadTable); err != nil {
				return err
			}
		}

		if err := m.Commit(); err != nil {
			return err
		}
		log.Printf("Loaded %d row(s) into %s in %s", n, loadTable, time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVarP(&loadTable, "table", "t", "", "target table (required)")
	loadCmd.Flags().StringVar(&loadSep, "sep", "\t", "field separator")
	loadCmd.Flags().StringVar(&loadNull, "null", `\N`, "token representing NULL")
	loadCmd.Flags().StringSliceVar(&loadColumns, "columns", nil, "columns in file order (default: table order)")
	loadCmd.Flags().BoolVar(&loadReindex, "reindex", false, "drop and recreate secondary indexes around the load")
}
