package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"sqlbridge/internal/bridge"
)

var (
	runFiles    []string
	runLimit    int
	runBackend  bool
	runRaw      bool
	runLogFile  string
	runNoCommit bool
)

var runCmd = &cobra.Command{
	Use:   "run [statement ...]",
	Short: "Translate and execute legacy SQL statements",
	Long: `Runs the given statements (or the contents of --file scripts, split on
semicolons) against the target engine. All statements share one connection
and one transaction; the batch commits at the end unless --no-commit is set
or any statement fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		commands, err := collectStatements(args, runFiles)
		if err != nil {
			return err
		}
		if len(commands) == 0 {
			return fmt.Errorf("no statements given (pass them as arguments or via --file)")
		}

		m, err := openManager()
		if err != nil {
			return err
		}
		defer m.Close()

		if runRaw {
			m.SetTranslate(false)
		}
		m.SetBackendTranslate(runBackend)
		if runLogFile != "" {
			f, err := os.OpenFile(runLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("cannot open command log: %w", err)
			}
			defer f.Close()
			m.SetCommandLog(f)
		}

		limits := make([]int, len(commands))
		if runLimit > 0 {
			for i := range limits {
				limits[i] = runLimit
			}
		}

		log.Printf("Running %d statement(s) on %s...", len(commands), m.Dialect().Name())
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(len(commands)).AppendCompleted().PrependElapsed()

		var results []*bridge.Result
		for i, c := range commands {
			res, err := m.Run(bridge.Batch{Commands: []string{c}, RowLimits: limits[i : i+1]})
			if err != nil {
				uiprogress.Stop()
				return err
			}
			results = append(results, res[0])
			bar.Incr()
		}
		uiprogress.Stop()

		for i, res := range results {
			printResult(i+1, res)
		}

		if runNoCommit {
			log.Println("Skipping commit (--no-commit)")
			return m.Rollback()
		}
		if err := m.Commit(); err != nil {
			return err
		}
		log.Printf("Done in %s", time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&runFiles, "file", "f", nil, "SQL script file(s) to run")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "cap the rows returned per select")
	runCmd.Flags().BoolVar(&runBackend, "backend", false, "also apply the backend-specific translation pass")
	runCmd.Flags().BoolVar(&runRaw, "raw", false, "skip the generic translation pass")
	runCmd.Flags().StringVar(&runLogFile, "log", "", "append every executed command to this file")
	runCmd.Flags().BoolVar(&runNoCommit, "no-commit", false, "roll back instead of committing at the end")
}

// collectStatements merges direct arguments with script files, splitting file
// contents on semicolons.
func collectStatements(args, files []string) ([]string, error) {
	commands := append([]string(nil), args...)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, stmt := range strings.Split(string(data), ";") {
			if s := strings.TrimSpace(stmt); s != "" {
				commands = append(commands, s)
			}
		}
	}
	return commands, nil
}

func printResult(n int, res *bridge.Result) {
	if res == nil {
		fmt.Printf("[%02d] ok (no result set)\n", n)
		return
	}
	fmt.Printf("[%02d] %d row(s)\n", n, len(res.Rows))
	fmt.Println(strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}
