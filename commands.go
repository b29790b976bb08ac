package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mosajjal/bountycatch/pkg/api"
	"github.com/mosajjal/bountycatch/pkg/project"
	"github.com/spf13/cobra"
)

func (a *app) addCmd() *cobra.Command {
	var name, file string
	var noValidate bool

	c := &cobra.Command{
		Use:   "add",
		Short: "Add domains from file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.project(name).Ingest(cmd.Context(), file, !noValidate)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%d domains processed: %d new, %d duplicates (%.2f%%), %d invalid\n",
				report.Total, report.New, report.Duplicates, report.DuplicatePct, report.Invalid)
			return nil
		},
	}
	c.Flags().StringVarP(&name, "project", "p", "", "Project name (required)")
	c.Flags().StringVarP(&file, "file", "f", "", "File containing domains (required)")
	c.Flags().BoolVar(&noValidate, "no-validate", false, "Skip domain validation")
	_ = c.MarkFlagRequired("project")
	_ = c.MarkFlagRequired("file")
	return c
}

func (a *app) exportCmd() *cobra.Command {
	var name, file, format string

	c := &cobra.Command{
		Use:   "export",
		Short: "Export domains to file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := project.ParseFormat(format)
			if err != nil {
				return err
			}
			if !a.project(name).Export(cmd.Context(), file, f) {
				return fmt.Errorf("failed to export project '%s'", name)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&name, "project", "p", "", "Project name (required)")
	c.Flags().StringVarP(&file, "file", "f", "", "Output file (required)")
	c.Flags().StringVar(&format, "format", string(project.FormatText), "Export format: text|json")
	_ = c.MarkFlagRequired("project")
	_ = c.MarkFlagRequired("file")
	return c
}

func (a *app) printCmd() *cobra.Command {
	var name string

	c := &cobra.Command{
		Use:   "print",
		Short: "Print all domains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			domains := a.project(name).Domains(cmd.Context())
			if len(domains) == 0 {
				a.logger.Warn().Msgf("no domains found in project '%s'", name)
				return nil
			}
			w := bufio.NewWriter(a.stdout)
			for _, d := range domains {
				fmt.Fprintln(w, d)
			}
			return w.Flush()
		},
	}
	c.Flags().StringVarP(&name, "project", "p", "", "Project name (required)")
	_ = c.MarkFlagRequired("project")
	return c
}

func (a *app) countCmd() *cobra.Command {
	var name string

	c := &cobra.Command{
		Use:   "count",
		Short: "Count domains in project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, ok := a.project(name).Count(cmd.Context())
			if !ok {
				return fmt.Errorf("project '%s' not found", name)
			}
			fmt.Fprintln(a.stdout, n)
			return nil
		},
	}
	c.Flags().StringVarP(&name, "project", "p", "", "Project name (required)")
	_ = c.MarkFlagRequired("project")
	return c
}

func (a *app) deleteCmd() *cobra.Command {
	var name string
	var confirm bool

	c := &cobra.Command{
		Use:   "delete",
		Short: "Delete project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm && !a.confirm(fmt.Sprintf("Are you sure you want to delete project '%s'? (y/N): ", name)) {
				a.logger.Info().Msg("delete operation cancelled")
				return nil
			}
			if !a.project(name).Delete(cmd.Context()) {
				return fmt.Errorf("failed to delete project '%s'", name)
			}
			fmt.Fprintf(a.stdout, "Project '%s' deleted successfully\n", name)
			return nil
		},
	}
	c.Flags().StringVarP(&name, "project", "p", "", "Project name (required)")
	c.Flags().BoolVar(&confirm, "confirm", false, "Skip confirmation prompt")
	_ = c.MarkFlagRequired("project")
	return c
}

// confirm asks a y/N question on stdin. anything but y or yes is a no.
func (a *app) confirm(prompt string) bool {
	fmt.Fprint(a.stdout, prompt)
	answer, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve projects over a ReST API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			apiConf := a.cfg.API()
			myAPI := api.NewAPI(api.Config{
				ListenAddr: apiConf.Listen,
				BasePath:   apiConf.BasePath,
				Logger:     &a.logger,
				RPS:        apiConf.RPS,
			}, a.store)
			// Blocking call
			if err := myAPI.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
