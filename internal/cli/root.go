package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/pixelart/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
// The configuration is loaded before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Pixelart turns images into pixel art",
		Long: `Pixelart smooths an image with a box blur and repaints it in square blocks of
their most frequent color. Still images and animated GIFs are supported.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			if c.Logger.GetLevel() <= LogDebug {
				installLogHooks(c.Logger)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pixelart/config.toml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file with PIXELART_* variables (default .env)")

	root.AddCommand(c.convertCommand())
	root.AddCommand(c.paletteCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
