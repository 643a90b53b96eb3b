// Command ipc-chan is a small harness around the channel library: it can
// stand up either end of a channel from the shell and manage the config
// file both ends read.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	ipcchan "github.com/jjpe/ipc-chan"
	"github.com/jjpe/ipc-chan/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "ipc-chan",
	Short:         "Typed synchronous IPC channels",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var sendCmd = &cobra.Command{
	Use:   "send VALUE [VALUE...]",
	Short: "Send each VALUE to the sink and wait for its acknowledgment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		src, err := ipcchan.SourceFromFile(cfgPath)
		if err != nil {
			return err
		}
		defer src.Close()

		for _, arg := range args {
			if asJSON {
				var v interface{}
				if err = json.Unmarshal([]byte(arg), &v); err != nil {
					return fmt.Errorf("argument %q is not valid JSON: %w", arg, err)
				}
				err = src.Send(v)
			} else {
				err = src.Send(arg)
			}
			if err != nil {
				return err
			}
		}
		log.Printf("sent %d value(s)", len(args))
		return nil
	},
}

var recvCmd = &cobra.Command{
	Use:   "recv",
	Short: "Bind a sink and print received values as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")

		snk, err := ipcchan.SinkFromFile(cfgPath)
		if err != nil {
			return err
		}
		defer snk.Close()

		for i := 0; count <= 0 || i < count; i++ {
			var v interface{}
			if err = snk.RecvInto(&v); err != nil {
				return err
			}
			out, err := json.Marshal(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the channel config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		policy := config.DontOverwrite
		if force {
			policy = config.Overwrite
		}
		if err := config.Default().Write(cfgPath, policy); err != nil {
			return err
		}
		log.Printf("wrote %s", cfgPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings and where they came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		origin := "defaults (no config file found)"
		if resolved, err := config.Resolve(cfgPath); err == nil {
			origin = resolved
		}

		fmt.Fprintf(cmd.OutOrStdout(), "host = %q\nport = %d\n# from %s\n", cfg.Host, cfg.Port, origin)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the ipc-chan version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ipc-chan version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "ipc-chan.toml", "config file to resolve")

	sendCmd.Flags().BoolP("json", "j", false, "parse each VALUE as JSON instead of sending it as a string")
	recvCmd.Flags().IntP("count", "n", 0, "number of values to receive (0 = forever)")
	configInitCmd.Flags().BoolP("force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(sendCmd, recvCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
