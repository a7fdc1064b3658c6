package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download a remote dataset into the cache",
	Long:  "Downloads an http, https, or ftp dataset into the local cache, extracting zip archives, and prints the resolved path. analyze and inspect fetch on demand; fetch warms the cache ahead of offline runs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		local, err := newFetcher().Fetch(ctx, args[0], cfg.Sources.CacheDir)
		if err != nil {
			return eris.Wrapf(err, "fetch %s", args[0])
		}

		fmt.Println(local)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
