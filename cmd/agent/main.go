package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version  = "0.1.0"
	cfgFile  string
	noReport bool
)

var rootCmd = &cobra.Command{
	Use:   "labassist-agent",
	Short: "LabAssist software check agent",
	Long:  `LabAssist Agent - checks which catalog software is installed on this host and reports it to the collector`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one detection pass and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context())
	},
}

var installCmd = &cobra.Command{
	Use:   "install [software]",
	Short: "Download and install one catalog item on this host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd.Context(), args[0])
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check periodically and report until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForeground()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("LabAssist Agent v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./agent.yaml or /etc/labassist/agent.yaml)")
	checkCmd.Flags().BoolVar(&noReport, "no-report", false, "print results without sending them to the collector")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newServiceCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
