package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pitabwire/sdui/internal/cache"
	"github.com/pitabwire/sdui/internal/microapp"
	"github.com/pitabwire/sdui/model"
)

func newImportCmd() *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "import DIR",
		Short: "Parse a microapp package directory and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				provider := microapp.NewDirProvider(args[0])

				var (
					data *model.CachedMicroappData
					err  error
				)
				if cmd.Flags().Changed("template") {
					data, err = a.service.ImportTemplate(ctx, template, provider)
				} else {
					data, err = a.service.Import(ctx, provider)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d screens, %d queries\n",
					data.MicroappCode, len(data.Screens), len(data.Queries))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&template, "template", "",
		"import as a template stored under this code (empty keeps the package code)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored microapps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				codes, err := a.service.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tSCREENS\tCACHED AT")
				for _, code := range codes {
					data, err := a.service.Get(ctx, code)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\n", code, len(data.Screens), data.CachedAt.Format("2006-01-02T15:04:05Z07:00"))
				}
				return tw.Flush()
			})
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show CODE",
		Short: "Print a stored microapp as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				data, err := a.service.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), data)
			})
		},
	}
}

func newRenderCmd() *cobra.Command {
	var dataFile string
	cmd := &cobra.Command{
		Use:   "render CODE SCREEN",
		Short: "Bind a stored screen against a data context and print it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := model.NewDataContext()
			if dataFile != "" {
				raw, err := os.ReadFile(dataFile)
				if err != nil {
					return fmt.Errorf("reading data context: %w", err)
				}
				if err := json.Unmarshal(raw, dc); err != nil {
					return fmt.Errorf("parsing data context %s: %w", dataFile, err)
				}
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				out, err := a.service.Render(ctx, args[0], args[1], dc)
				if err != nil {
					return err
				}
				var root *model.CachedComponentModel
				if out.Root != nil {
					c, err := cache.ToCached(out.Root)
					if err != nil {
						return err
					}
					root = &c
				}
				if out.Stats.Unresolved() > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d bindings unresolved\n",
						out.Stats.Unresolved(), out.Stats.Total)
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"microapp_code": out.MicroappCode,
					"screen_code":   out.Screen.ScreenCode,
					"title":         out.Screen.Title,
					"root":          root,
					"styles":        out.Styles,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "JSON data context file")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete CODE",
		Short: "Remove a stored microapp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.service.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}
