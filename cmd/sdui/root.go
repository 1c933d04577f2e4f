package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

const appName = "sdui"

var flagConfig string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     appName,
		Short:   "Server-driven UI microapp runtime",
		Version: version + " (" + commit + ")",
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"path to configuration file (default: built-in defaults plus SDUI_* environment)")

	root.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newListCmd(),
		newShowCmd(),
		newRenderCmd(),
		newDeleteCmd(),
	)
	return root
}

// withApp runs fn against a freshly wired app and releases it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, flagConfig)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
