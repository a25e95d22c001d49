package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/render"
	"github.com/espython/website-builder/internal/services"
)

func newProjectsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and create projects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects; the current one is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				state, err := a.projects.ListProjects(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "\tID\tNAME\tLOCALE\tSECTIONS")
				for _, p := range state.Projects {
					marker := ""
					if p.ID == state.CurrentProjectID {
						marker = "*"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", marker, p.ID, p.Name, p.Locale, p.SectionCount)
				}
				return tw.Flush()
			})
		},
	}

	var description, locale string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				project, err := a.projects.CreateProject(ctx, services.CreateProjectCommand{
					Name:        args[0],
					Description: description,
					Locale:      locale,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), project.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "project description")
	create.Flags().StringVar(&locale, "locale", "", "BCP 47 page language, e.g. en-US")

	use := &cobra.Command{
		Use:   "use PROJECT",
		Short: "Make a project current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				_, err := a.projects.SetCurrentProject(ctx, args[0])
				return err
			})
		},
	}

	cmd.AddCommand(list, create, use)
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		out    string
		upload bool
	)
	cmd := &cobra.Command{
		Use:   "export [PROJECT]",
		Short: "Export a project's sections as a JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				projectID, err := a.resolveProject(ctx, args)
				if err != nil {
					return err
				}
				export, err := a.sites.Export(ctx, projectID, services.ExportOptions{Upload: upload})
				if err != nil {
					return err
				}
				if export.Upload != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "gs://%s/%s\n", export.Upload.Bucket, export.Upload.Object)
					if export.Upload.DownloadURL != "" {
						fmt.Fprintln(cmd.OutOrStdout(), export.Upload.DownloadURL)
					}
					return nil
				}
				if out == "" {
					_, err = cmd.OutOrStdout().Write(export.Data)
					return err
				}
				if out == "." {
					out = export.FileName
				}
				return os.WriteFile(out, export.Data, 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout; \".\" uses the generated file name")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload to the configured exports bucket")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE [PROJECT]",
		Short: "Replace a project's sections with an exported document; \"-\" reads stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				src = bytes.NewReader(data)
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				projectID, err := a.resolveProject(ctx, args[1:])
				if err != nil {
					return err
				}
				imported, err := a.sites.Import(ctx, projectID, src)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d sections into %s\n", len(imported), projectID)
				return nil
			})
		},
	}
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		out  string
		mode string
	)
	cmd := &cobra.Command{
		Use:   "render [PROJECT]",
		Short: "Render a project's page to HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				projectID, err := a.resolveProject(ctx, args)
				if err != nil {
					return err
				}
				previewMode, err := a.prefs.PreviewMode(ctx)
				if err != nil {
					return err
				}
				if mode != "" {
					if previewMode, err = domain.ParsePreviewMode(mode); err != nil {
						return err
					}
				}
				project, err := a.projects.GetProject(ctx, projectID)
				if err != nil {
					return err
				}
				sections, err := a.sites.Sections(ctx, projectID)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := a.renderer.Render(&buf, render.Page{
					Project:  project.Project,
					Sections: sections,
					Mode:     previewMode,
				}); err != nil {
					return err
				}
				if out == "" {
					_, err = cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				return os.WriteFile(out, buf.Bytes(), 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&mode, "mode", "", "preview mode: desktop, tablet or mobile (defaults to the saved preference)")
	return cmd
}

func newTemplatesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and apply starter templates",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List starter templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(_ context.Context, a *app) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSECTIONS")
				for _, tmpl := range a.catalog.Templates() {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", tmpl.ID, tmpl.Name, len(tmpl.Sections))
				}
				return tw.Flush()
			})
		},
	}
	apply := &cobra.Command{
		Use:   "apply TEMPLATE [PROJECT]",
		Short: "Append a template's sections to a project",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				projectID, err := a.resolveProject(ctx, args[1:])
				if err != nil {
					return err
				}
				added, err := a.sites.ApplyTemplate(ctx, projectID, args[0])
				if err != nil {
					return err
				}
				for _, section := range added {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", section.ID, section.Type)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(list, apply)
	return cmd
}
