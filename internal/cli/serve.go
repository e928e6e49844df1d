package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pixelart/pkg/server"
)

// serveKeyScope namespaces the server's cache entries.
const serveKeyScope = "api:"

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes conversions over HTTP:

  POST /v1/pixelate   convert the image in the request body
  POST /v1/palette    report the dominant colors of an image
  GET  /healthz       liveness probe
  GET  /version       build information

The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}

			ctx := cmd.Context()
			runner := c.newRunner(ctx, noCache, serveKeyScope)
			defer runner.Close()

			srv := server.New(server.Config{
				Runner:         runner,
				Defaults:       cfg.PipelineOptions(),
				MaxUploadBytes: cfg.MaxUploadBytes(),
				Logger:         loggerFromContext(ctx).WithPrefix("http"),
			})

			printInfo("Serving on %s", StyleLink.Render(displayURL(addr)))
			printNextStep("Try", fmt.Sprintf("curl --data-binary @photo.jpg %s/v1/pixelate -o out.jpg", displayURL(addr)))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// displayURL turns a listen address into a URL a user can open.
func displayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
