package cmd

import (
	"database/sql"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	legacyServer   string
	legacyDatabase string
	legacyUser     string
	legacyPassword string
)

var compareCmd = &cobra.Command{
	Use:   "compare <statement>",
	Short: "Run a statement on both the legacy server and the target engine",
	Long: `Runs the statement untranslated against a still-reachable legacy SQL
Server and translated against the configured target, then reports both row
counts and the first row where the results diverge. Useful while validating a
migration: a mismatch points at either a translation gap or a data divergence.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stmt := args[0]

		legacy, err := sql.Open("sqlserver", legacyDSN())
		if err != nil {
			return fmt.Errorf("cannot open legacy connection: %w", err)
		}
		defer legacy.Close()

		legacyRows, err := fetchRows(legacy, stmt)
		if err != nil {
			return fmt.Errorf("legacy side failed: %w", err)
		}

		m, err := openManager()
		if err != nil {
			return err
		}
		defer m.Close()
		m.SetBackendTranslate(true)

		res, err := m.RunOne(stmt)
		if err != nil {
			return fmt.Errorf("target side failed: %w", err)
		}
		var targetRows [][]string
		if res != nil {
			targetRows = make([][]string, len(res.Rows))
			for i, vals := range res.Rows {
				targetRows[i] = renderRow(vals)
			}
		}

		fmt.Printf("legacy: %d row(s)\n", len(legacyRows))
		fmt.Printf("target: %d row(s)\n", len(targetRows))

		if i, ok := firstDiff(legacyRows, targetRows); ok {
			if i < len(legacyRows) {
				fmt.Printf("legacy[%d]: %s\n", i, strings.Join(legacyRows[i], "\t"))
			}
			if i < len(targetRows) {
				fmt.Printf("target[%d]: %s\n", i, strings.Join(targetRows[i], "\t"))
			}
			if len(legacyRows) != len(targetRows) {
				return fmt.Errorf("row counts differ by %d", len(legacyRows)-len(targetRows))
			}
			return fmt.Errorf("results diverge at row %d", i)
		}
		fmt.Println("match")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&legacyServer, "legacy-server", "", "legacy SQL Server host")
	compareCmd.Flags().StringVar(&legacyDatabase, "legacy-database", "", "legacy database name")
	compareCmd.Flags().StringVar(&legacyUser, "legacy-user", "", "legacy user")
	compareCmd.Flags().StringVar(&legacyPassword, "legacy-password", "", "legacy password")

	viper.BindPFlag("legacy.server", compareCmd.Flags().Lookup("legacy-server"))
	viper.BindPFlag("legacy.name", compareCmd.Flags().Lookup("legacy-database"))
	viper.BindPFlag("legacy.user", compareCmd.Flags().Lookup("legacy-user"))
	viper.BindPFlag("legacy.password", compareCmd.Flags().Lookup("legacy-password"))
}

func legacyDSN() string {
	u := &url.URL{
		Scheme: "sqlserver",
		Host:   viper.GetString("legacy.server"),
		User:   url.UserPassword(viper.GetString("legacy.user"), viper.GetString("legacy.password")),
	}
	q := url.Values{}
	q.Set("database", viper.GetString("legacy.name"))
	u.RawQuery = q.Encode()
	return u.String()
}

// fetchRows runs stmt as-is and renders every row it returns.
func fetchRows(db *sql.DB, stmt string) ([][]string, error) {
	rows, err := db.Query(stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, renderRow(vals))
	}
	return out, rows.Err()
}

// renderRow formats one row's values the same way for both engines, so the
// comparison is over text rather than driver-specific scan types.
func renderRow(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case nil:
			out[i] = "NULL"
		case []byte:
			out[i] = string(x)
		case time.Time:
			out[i] = x.Format("2006-01-02 15:04:05")
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

// firstDiff returns the index of the first row where the two results differ.
// When one side is a prefix of the other, the index is the shorter length.
func firstDiff(legacy, target [][]string) (int, bool) {
	n := min(len(legacy), len(target))
	for i := 0; i < n; i++ {
		if !slices.Equal(legacy[i], target[i]) {
			return i, true
		}
	}
	if len(legacy) != len(target) {
		return n, true
	}
	return 0, false
}
