package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/quill/internal/output"
	"github.com/crimson-sun/quill/internal/output/stdout"
	"github.com/crimson-sun/quill/internal/pipeline"
)

var correctCmd = &cobra.Command{
	Use:   "correct [text...]",
	Short: "Correct sentences from arguments or stdin",
	Long: "Correct each argument as one sentence. With no arguments, correct stdin line by line.\n" +
		"Results are written to stdout as NDJSON, or tab-separated with --format text.",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, _ := cmd.Flags().GetString("format")
		pretty, _ := cmd.Flags().GetBool("pretty")
		format, err := output.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, corr, err := newEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer corr.Close()

		p := pipeline.New(eng, stdout.New(format, pretty))
		if len(args) > 0 {
			err = p.Run(ctx, args)
		} else {
			err = p.Stream(ctx, cmd.InOrStdin())
		}
		if closeErr := p.Close(); err == nil {
			err = closeErr
		}
		return err
	},
}

func init() {
	correctCmd.Flags().String("format", "json", "Output format: json or text")
	correctCmd.Flags().Bool("pretty", false, "Indent JSON output")
}
