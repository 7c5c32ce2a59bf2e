// addrbatch adds, and later removes, large batches of firewall address
// objects over an interactive SSH shell.
//
// It splits an address list into capacity-bounded address groups, prints the
// apply and revert command sequences for ScreenOS (ssg) or Junos (srx)
// devices, and on confirmation streams them to the device.
//
// Usage:
//
//	addrbatch run -p addrs.txt fw1            Preview both sequences (dry run)
//	addrbatch run -p addrs.txt -x fw1         Confirm and execute apply, then revert
//	addrbatch preview -t srx -p addrs.txt     Print one sequence
//	addrbatch settings set zone untrust       Persist a default
//	addrbatch audit list --host fw1           Show executed phases
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/addrbatch/pkg/util"
	"github.com/newtron-network/addrbatch/pkg/version"
)

var (
	verbose bool
	logJSON bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "addrbatch",
	Short:             "Bulk firewall address batches for ScreenOS and Junos",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `addrbatch turns a list of addresses into firewall address objects
grouped under address groups of bounded size, and generates the matching
revert sequence.

Nothing is sent to a device unless -x is given, and each phase is
confirmed separately:

  addrbatch run -p addrs.txt -x fw1`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		if err := util.SetLogLevel(level); err != nil {
			return err
		}
		if logJSON {
			util.SetJSONFormat()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")

	rootCmd.AddCommand(
		newRunCmd(),
		newPreviewCmd(),
		settingsCmd,
		auditCmd,
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("addrbatch %s\n", version.Info())
		},
	}
}
