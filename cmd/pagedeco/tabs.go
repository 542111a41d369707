package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pagedeco/internal/autoblock"
	"github.com/dgallion1/pagedeco/internal/parser"
	"github.com/dgallion1/pagedeco/internal/router"
)

var tabsCmd = &cobra.Command{
	Use:   "tabs FILE",
	Short: "List the tab ids a page load would give the document's sections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
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
		main := pg.Main()
		if main == nil {
			return fmt.Errorf("%s has no main element", file)
		}

		res := autoblock.NewBuilder(router.New(""), nil, newLogger(cmd)).BuildAutoBlocks(main)
		if res.Tabs == nil {
			if res.Hero {
				return fmt.Errorf("%s gets a hero block and no tab navigation: %w", file, res.Err)
			}
			return fmt.Errorf("%s gets no tab navigation: %w", file, res.Err)
		}
		defer res.Tabs.Close()
		w := cmd.OutOrStdout()
		for _, s := range res.Tabs.Sections() {
			fmt.Fprintf(w, "#%s\t%s\n", s.ID, s.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tabsCmd)
}
