package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reverseDesignAi/internal/config"
	"reverseDesignAi/internal/design"
	"reverseDesignAi/internal/extract"
	"reverseDesignAi/internal/llm"
	"reverseDesignAi/internal/uploads"
)

// components builds the design operations from the loaded config.
type components struct {
	analyzer design.StyleAnalyzer
	splitter design.ThemeSplitter
	renderer design.SVGRenderer
}

// newComponents is swapped in tests.
var newComponents = func(opts *options) (components, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return components{}, err
	}
	client, err := llm.New(cfg.LLM.ClientOptions())
	if err != nil {
		return components{}, err
	}
	client = llm.Retrying(client, 1, cfg.LLM.RetryDelay)
	extractor := extract.Extractor{Repair: cfg.Extract.Repair}
	return components{
		analyzer: design.StyleAnalyzer{Client: client, Extractor: extractor},
		splitter: design.ThemeSplitter{Client: client, Extractor: extractor},
		renderer: design.SVGRenderer{Client: client},
	}, nil
}

func commandContext(cmd *cobra.Command, opts *options) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.model != "" {
		ctx = llm.WithModel(ctx, opts.model)
	}
	return ctx
}

func analyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image>...",
		Short: "Derive a reusable style prompt from reference images",
		Args:  cobra.RangeArgs(1, uploads.MaxFiles),
		RunE: func(cmd *cobra.Command, args []string) error {
			images := make([]uploads.Image, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				images = append(images, uploads.New(filepath.Base(path), "", data))
			}

			c, err := newComponents(opts)
			if err != nil {
				return err
			}
			analysis, err := c.analyzer.Analyze(commandContext(cmd, opts), images)
			if err != nil {
				return err
			}
			return printJSON(cmd, analysis)
		},
	}
}

func splitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "split <text|->",
		Short: "Split content text into themed segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			if text == "-" {
				data, err := readInput(cmd, "-")
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			c, err := newComponents(opts)
			if err != nil {
				return err
			}
			result, err := c.splitter.Split(commandContext(cmd, opts), text)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func generateCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Render one SVG design from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newComponents(opts)
			if err != nil {
				return err
			}
			img, err := c.renderer.Render(commandContext(cmd, opts), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), img.SVG)
				return err
			}
			if err := os.WriteFile(out, []byte(img.SVG), 0o644); err != nil {
				return fmt.Errorf("write svg: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", out, img.Model)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the SVG to this file instead of stdout")
	return cmd
}
