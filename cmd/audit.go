package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagelens/api/schemas"
	"github.com/xkilldash9x/pagelens/internal/browser/session"
	"github.com/xkilldash9x/pagelens/internal/imageaudit"
	"github.com/xkilldash9x/pagelens/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newAuditCmd creates and configures the `audit` command.
func newAuditCmd() *cobra.Command {
	var (
		outputPath string
		budget     time.Duration
		headless   bool
	)

	auditCmd := &cobra.Command{
		Use:   "audit [url]",
		Short: "Loads a page and reports every image element it renders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main.go (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Flag overrides on top of the resolved config.
			if cmd.Flags().Changed("budget") {
				cfg.Audit.EnrichmentBudget = budget
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			targetURL := args[0]
			if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
				targetURL = "https://" + targetURL
			}

			report, err := runAudit(ctx, targetURL, logger)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Audit aborted by user signal", zap.String("url", targetURL))
					return fmt.Errorf("audit aborted by user signal")
				}
				logger.Error("Audit failed", zap.Error(err), zap.String("url", targetURL))
				return err
			}

			return writeReport(report, outputPath, logger)
		},
	}

	auditCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the JSON report to this file instead of stdout")
	auditCmd.Flags().DurationVar(&budget, "budget", 5*time.Second, "wall-clock ceiling for per-element enrichment")
	auditCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	return auditCmd
}

// runAudit drives one full pass: attach a browser, load the page, gather the
// image elements, and assemble the report.
func runAudit(ctx context.Context, targetURL string, logger *zap.Logger) (*schemas.AuditReport, error) {
	sess, err := session.NewSession(ctx, cfg.Browser, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	defer sess.Close()

	logger.Info("Navigating to target",
		zap.String("sessionID", sess.ID()),
		zap.String("url", targetURL),
	)
	if err := sess.Navigate(ctx, targetURL, cfg.Audit.NetworkQuietPeriod); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	fetchedAt := time.Now().UTC()

	drv := session.NewDriver(sess, logger)
	gatherer := imageaudit.NewGatherer(drv, cfg.Audit, logger)
	result, err := gatherer.Gather(ctx, sess.Records())
	if err != nil {
		return nil, fmt.Errorf("gathering pass failed: %w", err)
	}

	return &schemas.AuditReport{
		PassID:    sess.ID(),
		URL:       targetURL,
		FetchedAt: fetchedAt,
		Elements:  result.Elements,
		Skipped:   result.Skipped,
		Total:     len(result.Elements),
	}, nil
}

func writeReport(report *schemas.AuditReport, outputPath string, logger *zap.Logger) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if outputPath == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", outputPath, err)
	}
	logger.Info("Report written",
		zap.String("path", outputPath),
		zap.Int("elements", report.Total),
		zap.Int("skipped", report.Skipped),
	)
	return nil
}
