package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	radar "github.com/krisalay/package-radar"
	"github.com/krisalay/package-radar/internal/logging"
)

// outputFlags are shared by the read commands.
type outputFlags struct {
	json    bool
	refresh bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass the cache")
}

func (f *outputFlags) options() []radar.FetchOption {
	if f.refresh {
		return []radar.FetchOption{radar.WithForceRefresh()}
	}
	return nil
}

func newOverviewCmd(a *app) *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:     "overview <package>...",
		Short:   "Show the latest release of each package",
		Example: "  radar overview react vue svelte",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithTraceID(a.logger.WithContext(cmd.Context()), logging.NewTraceID())
			summaries, err := a.dashboard.Overview(ctx, args, out.options()...)
			if err != nil {
				return err
			}
			if out.json {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PACKAGE\tLATEST\tPUBLISHED\tREPOSITORY")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.LatestVersion, day(s.LatestPublishedAt), s.Repository)
			}
			return tw.Flush()
		},
	}
	out.register(cmd)
	return cmd
}

func newVersionsCmd(a *app) *cobra.Command {
	var (
		out   outputFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "versions <package>",
		Short: "Show the version timeline of a package, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithTraceID(a.logger.WithContext(cmd.Context()), logging.NewTraceID())
			versions, err := a.dashboard.Timeline(ctx, args[0], out.options()...)
			if err != nil {
				return err
			}
			if limit > 0 && len(versions) > limit {
				versions = versions[:limit]
			}
			if out.json {
				return writeJSON(cmd.OutOrStdout(), versions)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tPUBLISHED\tNOTES")
			for _, v := range versions {
				var notes string
				switch {
				case v.Latest:
					notes = "latest"
				case v.Deprecated != "":
					notes = "deprecated"
				case v.Prerelease:
					notes = "prerelease"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Version, day(v.PublishedAt), notes)
			}
			return tw.Flush()
		},
	}
	out.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most n versions (0 for all)")
	return cmd
}

func newChangelogCmd(a *app) *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:     "changelog <package> <version>",
		Short:   "Show the GitHub release notes of one version",
		Example: "  radar changelog react 18.2.0",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithTraceID(a.logger.WithContext(cmd.Context()), logging.NewTraceID())
			release, err := a.dashboard.Changelog(ctx, args[0], args[1], out.options()...)
			if err != nil {
				return err
			}
			if out.json {
				return writeJSON(cmd.OutOrStdout(), release)
			}

			w := cmd.OutOrStdout()
			title := release.Name
			if title == "" {
				title = release.TagName
			}
			fmt.Fprintf(w, "%s (%s, %s)\n%s\n\n%s\n", title, release.Repository, day(release.PublishedAt), release.HTMLURL, release.Body)
			return nil
		},
	}
	out.register(cmd)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}
