package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pagedeco/internal/content"
	"github.com/dgallion1/pagedeco/internal/decor"
	"github.com/dgallion1/pagedeco/internal/parser"
	"github.com/dgallion1/pagedeco/internal/pipeline"
)

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Decorate a document and print the resulting page",
	Long: "render parses FILE, runs the eager and lazy phases over it and prints the page. " +
		"Header navigation is loaded from the nav page next to FILE.",
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().String("fragment", "", "URL fragment the page is opened with")
	renderCmd.Flags().Bool("wait-delayed", false, "wait for the delayed phase before printing")
	renderCmd.Flags().String("out", "", "write the page to this file instead of stdout")
	renderCmd.Flags().String("code-base-path", "", "base path scripts and styles are served from")
	renderCmd.Flags().String("lang", "en", "language set on the page")
	renderCmd.Flags().StringSlice("lcp-blocks", nil, "blocks that may hold the largest contentful paint")
	renderCmd.Flags().Duration("delayed-after", pipeline.DefaultDelayedAfter, "delay before the delayed phase")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)
	file := args[0]

	fragment, _ := cmd.Flags().GetString("fragment")
	waitDelayed, _ := cmd.Flags().GetBool("wait-delayed")
	out, _ := cmd.Flags().GetString("out")
	cbp, _ := cmd.Flags().GetString("code-base-path")
	lang, _ := cmd.Flags().GetString("lang")
	lcp, _ := cmd.Flags().GetStringSlice("lcp-blocks")
	delayedAfter, _ := cmd.Flags().GetDuration("delayed-after")

	p, err := parser.ForFile(file)
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()
	pg, err := p.Parse(f, filepath.Base(file))
	if err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	dir, err := content.NewDirSource(filepath.Dir(file), log)
	if err != nil {
		return err
	}
	defer dir.Close()

	lib := decor.New(cbp, log, decor.WithFragmentLoader(content.Fragments{Source: dir}))
	loader := pipeline.NewLoader(pipeline.Settings{
		CodeBasePath: cbp,
		LCPBlocks:    lcp,
		Lang:         lang,
		DelayedAfter: delayedAfter,
		RUMWeight:    1,
	}, lib, log)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	pl := loader.NewPageLoad(pg, fragment)
	defer pl.Close()
	if err := loader.LoadPage(ctx, pl); err != nil {
		return err
	}
	if waitDelayed {
		if err := pl.Delayed().Wait(ctx); err != nil {
			return fmt.Errorf("delayed phase: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := pg.Render(&buf); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if out == "" {
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("page written", "file", out)
	return nil
}
