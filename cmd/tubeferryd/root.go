// Command tubeferryd runs the tubeferry download-queue daemon in the
// foreground. The tubeferry CLI launches it detached via `tubeferry start`.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tubeferry/internal/config"
	"tubeferry/internal/daemonrun"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag      string
		logLevel        string
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:           "tubeferryd",
		Short:         "Run the tubeferry download daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:        strings.TrimSpace(logLevel),
				ShutdownTimeout: shutdownTimeout,
			})
		},
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "How long running downloads get to exit on shutdown")
	return cmd
}
