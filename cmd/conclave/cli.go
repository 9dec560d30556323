package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conclave/internal/ports"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

const version = "0.3.0"

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "conclave",
		Short:         "Route queries across a roster of AI backends",
		Long:          "conclave triages a query, assembles supporting context, fans it out to the right backends, merges their answers, and records an attribution trail.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to conclave.yaml")

	rootCmd.AddCommand(newQueryCommand(&configPath))
	rootCmd.AddCommand(newLedgerCommand(&configPath))
	rootCmd.AddCommand(newHealthCommand(&configPath))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("conclave %s\n", version)
		},
	})
	return rootCmd
}

// progressPrinter echoes backend lifecycle events to stderr.
type progressPrinter struct{}

func (progressPrinter) OnEvent(event ports.ProgressEvent) {
	switch event.Type {
	case ports.ProgressBackendStarted:
		fmt.Fprintf(os.Stderr, "%s %s is processing...\n", gray("•"), cyan(event.Backend))
	case ports.ProgressBackendFinished:
		fmt.Fprintf(os.Stderr, "%s %s answered\n", green("✓"), cyan(event.Backend))
	case ports.ProgressBackendFailed:
		fmt.Fprintf(os.Stderr, "%s %s failed: %s\n", red("✗"), cyan(event.Backend), event.Detail)
	}
}

func newQueryCommand(configPath *string) *cobra.Command {
	var scope string
	var preferLocal bool

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Route a query and print the synthesized answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(*configPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := container.Cleanup(); err != nil {
					fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
				}
			}()

			container.Broadcaster.Subscribe(progressPrinter{})

			if scope == "" {
				scope = container.Config.Scope
			}
			answer, err := container.Router.Route(cmd.Context(), ports.Query{
				Text:        strings.Join(args, " "),
				Scope:       scope,
				Preferences: ports.Preferences{PreferLocal: preferLocal},
			})
			if err != nil {
				return err
			}

			fmt.Println(answer.Answer)
			if len(answer.KeyInsights) > 0 {
				fmt.Printf("\n%s\n", bold("Key insights:"))
				for _, insight := range answer.KeyInsights {
					fmt.Printf("  %s %s\n", gray("-"), insight)
				}
			}
			fmt.Fprintf(os.Stderr, "\n%s strategy=%s backends=%s consensus=%.2f cost=$%.3f took=%v\n",
				gray("routing:"), yellow(string(answer.Strategy)),
				cyan(strings.Join(answer.BackendsUsed, ",")),
				answer.Consensus, answer.TotalCost, answer.ExecutionTime.Round(1e6))
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "attribution scope (defaults to the configured scope)")
	cmd.Flags().BoolVar(&preferLocal, "prefer-local", false, "stay on the local backend when the query allows it")
	return cmd
}

func newLedgerCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the attribution ledger",
	}

	var entryType, source string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list [scope]",
		Short: "List attribution entries for a scope",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(*configPath)
			if err != nil {
				return err
			}
			defer container.Cleanup()

			scope := container.Config.Scope
			if len(args) == 1 {
				scope = args[0]
			}
			entries, err := container.Router.GetAttributions(cmd.Context(), scope, ports.LedgerFilter{
				Type:   ports.InteractionType(entryType),
				Source: source,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Printf("%s  %s  %-13s %-12s impact=%.1f  %s\n",
					gray(entry.CreatedAt.Format("2006-01-02 15:04:05")),
					entry.ID, entry.Type, entry.Source, entry.ImpactScore, entry.Summary)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&entryType, "type", "", "filter by interaction type")
	listCmd.Flags().StringVar(&source, "source", "", "filter by source entity")
	listCmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to return")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <entry-id>",
		Short: "Recompute an entry's content hash and compare it to the stored one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(*configPath)
			if err != nil {
				return err
			}
			defer container.Cleanup()

			if err := container.Router.VerifyEntry(cmd.Context(), args[0]); err != nil {
				fmt.Printf("%s %v\n", red("✗"), err)
				return err
			}
			fmt.Printf("%s entry %s verified\n", green("✓"), args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats [scope]",
		Short: "Aggregate a scope's attribution entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(*configPath)
			if err != nil {
				return err
			}
			defer container.Cleanup()

			scope := container.Config.Scope
			if len(args) == 1 {
				scope = args[0]
			}
			stats, err := container.Router.GetStats(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Printf("%s %d\n", bold("entries:"), stats.TotalEntries)
			for entryType, count := range stats.CountsByType {
				fmt.Printf("  %-13s %d\n", entryType, count)
			}
			fmt.Printf("%s total=%.1f average=%.2f\n", bold("impact:"), stats.TotalImpact, stats.AverageImpact)
			fmt.Printf("%s $%.3f\n", bold("cost savings:"), stats.CostSavings)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export [scope]",
		Short: "Export a scope's trail as JSON for external anchoring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(*configPath)
			if err != nil {
				return err
			}
			defer container.Cleanup()

			scope := container.Config.Scope
			if len(args) == 1 {
				scope = args[0]
			}
			records, err := container.Router.ExportForAnchoring(cmd.Context(), scope)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(records)
		},
	})

	return cmd
}

func newHealthCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the classification model and list registered backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(*configPath)
			if err != nil {
				return err
			}
			defer container.Cleanup()

			health := container.Router.CheckHealth(cmd.Context())
			model := red("unreachable")
			if health.ClassifierModel {
				model = green("ok")
			}
			fmt.Printf("classifier model: %s\n", model)
			fmt.Printf("registered backends: %d\n", health.RegisteredBackends)
			return nil
		},
	}
}
