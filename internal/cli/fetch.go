package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/ocifetch"
)

func newComponentCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "component REFERENCE",
		Short: "Fetch a wasm component",
		Long: `Fetch a wasm component into the cache.

Example:
  ocifetch component ghcr.io/acme/widget:1.2.0 -o widget.wasm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fetcher(cmd)
			if err != nil {
				return err
			}
			data, err := f.FetchComponent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), successColor.Sprintf("✓ fetched %s (%d bytes)", args[0], len(data)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the component to this file")
	return cmd
}

func newProviderCmd(a *app) *cobra.Command {
	var hostID string

	cmd := &cobra.Command{
		Use:   "provider REFERENCE",
		Short: "Fetch a capability provider archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fetcher(cmd)
			if err != nil {
				return err
			}
			p, err := f.FetchProvider(cmd.Context(), args[0], hostID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&hostID, "host-id", "", "ID of the requesting host")
	return cmd
}

func newPathCmd(a *app) *cobra.Command {
	var (
		accept  []string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "path REFERENCE",
		Short: "Fetch an artifact and print its cache path",
		Long: `Fetch an artifact whose layers have one of the accepted media types and
print the cache path of its concatenated layers.

With --no-cache nothing is written and the printed path may not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fetcher(cmd)
			if err != nil {
				return err
			}
			mode := ocifetch.CacheUpdate
			if noCache {
				mode = ocifetch.CacheIgnore
			}
			path, err := f.FetchPath(cmd.Context(), args[0], accept, mode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&accept, "accept", ocifetch.ComponentMediaTypes(), "accepted layer media types")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "pull without writing the cache")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect REFERENCE",
		Short: "Show the cache state of a reference",
		Long:  `Show the cache state of a reference without contacting the registry.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fetcher(cmd)
			if err != nil {
				return err
			}
			status, err := f.Inspect(args[0])
			if err != nil {
				return err
			}
			digest := status.LocalDigest
			if digest == "" {
				digest = "-"
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Reference: %s\n", status.Reference)
			fmt.Fprintf(w, "Cached:    %t\n", status.Cached)
			fmt.Fprintf(w, "Digest:    %s\n", digest)
			fmt.Fprintf(w, "Path:      %s\n", status.Entry.ContentPath)
			return nil
		},
	}
}
