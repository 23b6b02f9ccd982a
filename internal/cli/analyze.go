package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"sjsage522/pagescope/internal/session"
	"sjsage522/pagescope/services/worker"

	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	save        bool
	snapshot    bool
	report      bool
	markdown    bool
	pretty      bool
	text        bool
	publish     bool
	interactive bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <url-or-file>",
		Short: "Fetch a document and report on its structure",
		Example: `  pagescope analyze https://example.com
  pagescope analyze ./page.html --interactive
  pagescope analyze https://example.com -b rendered --snapshot --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, root, opts.publish)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.newSession()
			if err != nil {
				return err
			}
			return session.Run(cmd.Context(), sess, func(ctx context.Context, s *session.Session) error {
				return runAnalyze(ctx, cmd, a, s, args[0], opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the fetched HTML")
	cmd.Flags().BoolVar(&opts.snapshot, "snapshot", false, "Save a screenshot (rendered backend)")
	cmd.Flags().BoolVar(&opts.report, "report", false, "Save the analysis as JSON")
	cmd.Flags().BoolVar(&opts.markdown, "markdown", false, "Print the document as Markdown")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Print the indented document tree")
	cmd.Flags().BoolVar(&opts.text, "text", false, "Print the visible text")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Publish the report to the Redis stream")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Explore the document after the report")

	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, a *app, s *session.Session, source string, opts *analyzeOptions) error {
	out := newPrinter(cmd.OutOrStdout())

	if _, err := s.Fetch(ctx, source); err != nil {
		return err
	}

	report, err := s.Report()
	if err != nil {
		return err
	}
	out.report(report)

	if opts.pretty {
		p, err := s.PrettyPrint(0)
		if err != nil {
			return err
		}
		out.section("Document tree")
		out.line(p.String())
	}
	if opts.text {
		text, err := s.ExtractText()
		if err != nil {
			return err
		}
		out.section("Text")
		out.line(text)
	}
	if opts.markdown {
		md, err := s.Markdown()
		if err != nil {
			return err
		}
		out.section("Markdown")
		out.line(md)
	}

	// saves are best-effort: report and keep going
	if opts.save {
		path, err := s.SaveRaw("")
		out.saved("HTML", path, err)
	}
	if opts.snapshot {
		path, err := s.SaveSnapshot(ctx, "")
		out.saved("Screenshot", path, err)
	}
	if opts.report {
		path, err := s.SaveReport("")
		out.saved("Report", path, err)
	}

	if opts.publish && a.deps.Publisher != nil {
		data, err := json.Marshal(worker.Message{Source: source, Report: report})
		if err != nil {
			return err
		}
		if err := a.deps.Publisher.Publish(worker.ReportKey, data); err != nil {
			return fmt.Errorf("failed to publish report: %w", err)
		}
		out.line("Report published to " + a.cfg.RedisStream)
	}

	if opts.interactive {
		return newREPL(s, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
	}
	return nil
}
