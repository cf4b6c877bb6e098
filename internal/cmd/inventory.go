package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arborlabs/arbor/internal/config"
	"github.com/arborlabs/arbor/internal/observability"
	"github.com/arborlabs/arbor/internal/roots"
	"github.com/arborlabs/arbor/pkg/forest"
	"github.com/arborlabs/arbor/pkg/manifest"
	"github.com/arborlabs/arbor/pkg/match"
	"github.com/arborlabs/arbor/pkg/output"
	"github.com/arborlabs/arbor/pkg/source"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Run an inventory job from manifest",
	Long: `Run an inventory job as defined in a YAML or JSON manifest file.

The manifest specifies the root to crawl, the path specs to expand,
scope filtering, and output configuration.

Example:
  arbor inventory --job job.yaml
  arbor inventory --job job.yaml --output results.jsonl
  arbor inventory --job job.yaml --dry-run`,
	RunE: runInventory,
}

var (
	inventoryJobPath string
	inventoryOutput  string
	inventoryDryRun  bool
)

func init() {
	rootCmd.AddCommand(inventoryCmd)

	inventoryCmd.Flags().StringVarP(&inventoryJobPath, "job", "j", "", "Path to job manifest (required)")
	inventoryCmd.Flags().StringVarP(&inventoryOutput, "output", "o", "", "Override output destination")
	inventoryCmd.Flags().BoolVar(&inventoryDryRun, "dry-run", false, "Validate manifest and show plan without executing")

	_ = inventoryCmd.MarkFlagRequired("job")
}

func runInventory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := manifest.Load(inventoryJobPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load manifest",
			zap.String("path", inventoryJobPath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	observability.CLILogger.Debug("Loaded manifest",
		zap.String("path", inventoryJobPath),
		zap.String("root", m.Root.Name),
		zap.String("backend", m.Root.Backend),
		zap.Strings("paths", m.Paths))

	if inventoryOutput != "" {
		m.Output.Destination = inventoryOutput
	}

	if inventoryDryRun {
		return showInventoryPlan(m)
	}

	return executeInventory(ctx, m)
}

// showInventoryPlan displays what would be inventoried without executing.
func showInventoryPlan(m *manifest.Manifest) error {
	fmt.Println("=== Inventory Plan (dry-run) ===")
	fmt.Println()
	if m.Root.Name != "" {
		fmt.Printf("Root:        %s (named)\n", m.Root.Name)
	} else {
		fmt.Printf("Backend:     %s\n", m.Root.Backend)
		fmt.Printf("Root:        %s\n", m.Root.ID)
	}
	if m.Root.Path != "" {
		fmt.Printf("Base path:   %s\n", m.Root.Path)
	}
	fmt.Println()
	fmt.Println("Paths:")
	for _, p := range m.Paths {
		fmt.Printf("  - %s\n", p)
	}
	if m.Scope.Enabled() {
		fmt.Println()
		fmt.Println("Scope:")
		for _, p := range m.Scope.Includes {
			fmt.Printf("  Include: %s\n", p)
		}
		for _, p := range m.Scope.Excludes {
			fmt.Printf("  Exclude: %s\n", p)
		}
	}
	fmt.Println()
	fmt.Printf("Output:      %s\n", m.Output.Destination)
	fmt.Println()
	fmt.Println("Manifest validated successfully. Remove --dry-run to execute.")
	return nil
}

// executeInventory runs the actual inventory job.
func executeInventory(ctx context.Context, m *manifest.Manifest) error {
	jobID := uuid.New().String()

	lister, root, backend, err := resolveManifestRoot(ctx, m)
	if err != nil {
		observability.CLILogger.Error("Failed to resolve root", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to backend", err)
	}

	var matcher *match.Matcher
	if m.Scope.Enabled() {
		includes := m.Scope.Includes
		if len(includes) == 0 {
			includes = []string{"/**"}
		}
		matcher, err = match.New(match.Config{
			Includes:      includes,
			Excludes:      m.Scope.Excludes,
			IncludeHidden: m.Scope.IncludeHidden,
		})
		if err != nil {
			observability.CLILogger.Error("Failed to create matcher", zap.Error(err))
			return exitError(foundry.ExitInvalidArgument, "Invalid scope patterns", err)
		}
	}

	writer, cleanup, err := createWriter(m, jobID, backend, root.ID)
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	f, err := forest.New(lister)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid backend", err)
	}

	observability.CLILogger.Info("Starting inventory",
		zap.String("job_id", jobID),
		zap.String("root", root.ID),
		zap.Int("specs", len(m.Paths)))

	start := time.Now()
	entries, err := f.Generate(ctx, root, m.Paths, nil)
	if err != nil {
		observability.CLILogger.Error("Inventory failed",
			zap.String("job_id", jobID),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Inventory failed", err)
	}
	cancelled := ctx.Err() != nil

	summary := writeEntries(ctx, writer, entries, matcher)
	summary.Specs = len(m.Paths)
	summary.Cancelled = cancelled
	summary.Duration = time.Since(start)
	summary.DurationHuman = summary.Duration.Round(time.Millisecond).String()

	if err := writer.WriteSummary(ctx, summary); err != nil && ctx.Err() == nil {
		observability.CLILogger.Warn("Failed to write summary", zap.Error(err))
	}

	if cancelled {
		observability.CLILogger.Warn("Inventory cancelled",
			zap.String("job_id", jobID),
			zap.Int64("entries", summary.Entries))
		return exitError(foundry.ExitSignalInt, "Inventory cancelled", ctx.Err())
	}

	observability.CLILogger.Info("Inventory completed",
		zap.String("job_id", jobID),
		zap.Int64("entries", summary.Entries),
		zap.Int64("files", summary.Files),
		zap.Int64("errors", summary.Errors),
		zap.Duration("duration", summary.Duration))

	return nil
}

// writeEntries emits entry records and accumulates summary counts.
func writeEntries(ctx context.Context, writer output.Writer, entries []forest.Entry, matcher *match.Matcher) *output.SummaryRecord {
	summary := &output.SummaryRecord{}

	for _, e := range entries {
		// Marker rows survive scope filtering so per-spec coverage holds.
		if matcher != nil && e.File && !matcher.Match(e.Path) {
			continue
		}

		summary.Entries++
		switch {
		case e.File:
			summary.Files++
		case e.Status == 404:
			summary.NotFound++
		default:
			summary.Errors++
		}

		rec := &output.EntryRecord{
			Path:   e.Path,
			File:   e.File,
			Status: e.Status,
			Error:  e.Error,
		}
		if err := writer.WriteEntry(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return summary
			}
			observability.CLILogger.Warn("Failed to write entry",
				zap.String("path", e.Path),
				zap.Error(err))
		}
	}

	return summary
}

// resolveManifestRoot connects the lister the manifest's root names.
func resolveManifestRoot(ctx context.Context, m *manifest.Manifest) (source.Lister, source.Root, string, error) {
	if m.Root.Name != "" {
		if appConfig == nil || len(appConfig.Roots) == 0 {
			return nil, source.Root{}, "", fmt.Errorf("manifest references root %q but no roots are configured", m.Root.Name)
		}
		registry := roots.New(appConfig.Roots)
		lister, root, err := registry.Resolve(ctx, m.Root.Name)
		if err != nil {
			return nil, source.Root{}, "", err
		}
		return lister, root, appConfig.Roots[m.Root.Name].Backend, nil
	}

	rc := config.RootConfig{
		Backend: m.Root.Backend,
		ID:      m.Root.ID,
		Path:    m.Root.Path,
	}
	lister, err := roots.Build(ctx, rc)
	if err != nil {
		return nil, source.Root{}, "", err
	}
	return lister, source.Root{ID: m.Root.ID, Path: m.Root.Path}, m.Root.Backend, nil
}

// createWriter creates an output writer from manifest configuration.
// Returns the writer, a cleanup function, and any error.
func createWriter(m *manifest.Manifest, jobID, backend, rootID string) (output.Writer, func(), error) {
	dest := m.Output.Destination

	if dest == "" || dest == "stdout" {
		w := output.NewJSONLWriter(os.Stdout, jobID, backend, rootID)
		return w, func() { _ = w.Close() }, nil
	}

	path := dest
	if strings.HasPrefix(dest, "file:") {
		path = strings.TrimPrefix(dest, "file:")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	w := output.NewJSONLWriter(f, jobID, backend, rootID)
	cleanup := func() {
		_ = w.Close()
		_ = f.Close()
	}
	return w, cleanup, nil
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}
