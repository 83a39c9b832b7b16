package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/ingestion"
	"github.com/jonathan/resume-rag/internal/observability"
	"github.com/jonathan/resume-rag/internal/resumes"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest resume files or directories",
	Long:  "Parses and stores resumes from files, ZIP archives or directories. Directories are walked recursively and files with unsupported extensions are ignored.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var (
	ingestUploadedBy string
	ingestVerbose    bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestUploadedBy, "uploaded-by", "cli", "uploader recorded on each document")
	ingestCmd.Flags().BoolVarP(&ingestVerbose, "verbose", "v", false, "print each upload and a corpus summary")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := newApplication(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	var printer *observability.Printer
	if ingestVerbose {
		printer = observability.NewPrinter(cmd.OutOrStdout())
	}

	stats, err := ingestPaths(cmd.Context(), a.resumes, ingestUploadedBy, args, cmd.OutOrStdout(), printer, log)
	if err != nil {
		return err
	}
	if printer != nil {
		analytics, err := a.resumes.Analytics(cmd.Context())
		if err != nil {
			return err
		}
		printer.PrintAnalytics(analytics)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d resume(s), skipped %d, failed %d\n", stats.Ingested, stats.Skipped, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d file(s) failed to ingest", stats.Failed)
	}
	return nil
}

type ingestStats struct {
	Ingested int
	Skipped  int
	Failed   int
}

// ingestPaths uploads every file found under paths. A file that fails to
// parse is reported and counted; it does not stop the run. A non-nil
// printer also gets a box per upload.
func ingestPaths(ctx context.Context, svc *resumes.Service, uploadedBy string, paths []string, out io.Writer, printer *observability.Printer, log *zap.Logger) (ingestStats, error) {
	var stats ingestStats
	files, err := collectFiles(paths)
	if err != nil {
		return stats, err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return stats, fmt.Errorf("failed to read %s: %w", path, err)
		}

		res, _, err := svc.Upload(ctx, uploadedBy, filepath.Base(path), content, "")
		if err != nil {
			stats.Failed++
			log.Warn("ingest failed", zap.String("file", path), zap.Error(err))
			_, _ = fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		for _, item := range res.Items {
			stats.Ingested++
			_, _ = fmt.Fprintf(out, "OK   %s -> %s (%d skills)\n", item.Filename, item.ID, len(item.Skills))
		}
		for _, s := range res.Skipped {
			stats.Skipped++
			_, _ = fmt.Fprintf(out, "SKIP %s: %s\n", s.Filename, s.Reason)
		}
		if printer != nil {
			printer.PrintUpload(filepath.Base(path), res)
		}
	}
	return stats, nil
}

// collectFiles expands directories into the supported files they contain.
// Files named explicitly are always returned.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if strings.HasPrefix(d.Name(), ".") && path != p {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || filepath.Ext(path) == "" {
				return nil
			}
			if _, err := ingestion.DetectFormat(path, nil); err != nil {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}
	return files, nil
}
