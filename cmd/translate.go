package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sqlbridge/internal/translate"
)

var (
	translateBackend bool
	translateRaw     bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <statement> [statement ...]",
	Short: "Show how legacy SQL would be rewritten, without connecting",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := targetDialect()
		if err != nil {
			return err
		}
		for _, c := range args {
			out := c
			if !translateRaw {
				out = translate.Generic(out)
			}
			if translateBackend {
				out = d.Translate(out)
			}
			fmt.Println(out)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(translateCmd)

	translateCmd.Flags().BoolVar(&translateBackend, "backend", false, "also apply the backend-specific pass")
	translateCmd.Flags().BoolVar(&translateRaw, "raw", false, "skip the generic pass")
}
