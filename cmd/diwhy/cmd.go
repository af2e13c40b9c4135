package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gbili/di-why/framework/app"
	"github.com/gbili/di-why/framework/config"
	"github.com/gbili/di-why/framework/manifest"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "diwhy",
		Short:         "Lazy dependency injection container",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newInspectCmd(),
	)

	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		envFiles     []string
		manifestPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the container and serve its introspection routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(envFiles...)
			if manifestPath != "" {
				cfg.Container.Manifest = manifestPath
			}

			application, err := app.New(cfg, app.WithCatalog(builtinCatalog()))
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}
	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "service manifest, overrides CONTAINER_MANIFEST")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <manifest.yaml>",
		Short: "List the definitions of a manifest in load order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dict, err := manifest.Load(args[0], builtinCatalog())
			if err != nil {
				return err
			}
			entries := manifest.Inspect(dict)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTRATEGY\tLOCATE\tUNRESOLVED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Strategy, dash(e.Refs), dash(e.Unresolved))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if manifest.Unresolved(entries) {
				return errors.New("manifest locates undefined names")
			}
			return nil
		},
	}
}

func dash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
