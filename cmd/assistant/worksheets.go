package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tableau-assistant/internal/config"
)

func newWorksheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worksheets",
		Short: "List the worksheets of the configured dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorksheets(cmd.Context())
		},
	}
}

func runWorksheets(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	host := buildHost(cfg)
	if host == nil {
		return fmt.Errorf("no Tableau host configured (set tableau.workbook_file or tableau.server_url)")
	}

	dash, err := host.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Tableau host: %w", err)
	}

	fmt.Printf("Dashboard: %s\n", dash.Name)
	for _, w := range dash.Worksheets {
		fmt.Println("  " + w.Name)
	}
	return nil
}
