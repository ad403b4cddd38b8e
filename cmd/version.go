package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillhost/quill/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Run: func(cmd *cobra.Command, args []string) {
		detailed, _ := cmd.Flags().GetBool("detailed")
		if detailed {
			fmt.Println(version.Detailed())
			return
		}
		fmt.Println(version.Short())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("detailed", false, "Show full build details")
}
