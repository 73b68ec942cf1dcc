package main

import (
	"errors"
	"fmt"
	"os"

	"casesearch/config"
	"casesearch/internal/app"
	"casesearch/internal/domain/models"
	"casesearch/internal/lib/logger/sl"
	"casesearch/internal/services/cui"
	"casesearch/internal/services/notify"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var (
		start   string
		end     string
		page    int
		details bool
	)

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Run one search and print the results",
		Long: `Run one search against the case-summary API and print the page.

With no text and no date range every case is listed. --from and --to select
the date-range endpoint, which takes precedence over text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad(configPath)
			log := setupLogger(cfg.Env, os.Stderr)

			text := ""
			if len(args) == 1 {
				text = args[0]
			}

			application, err := app.New(log, cfg, notify.NewLog(log))
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Stop(); err != nil {
					log.Error("Failed to close case cache", sl.Err(err))
				}
			}()

			ctx := cmd.Context()
			ctrl := application.NewController(application.Client)

			f := application.NewForm(func(text string, dr *models.DateRange) {
				ctrl.SearchPage(ctx, text, dr, page)
			})
			defer f.Close()

			f.SetText(text)
			f.ToggleDateRange(start != "" || end != "")
			f.SetDateRange(start, end)

			switch {
			case f.DateRangeEnabled() && f.DateRange() == nil:
				return errors.New("--from and --to must both be YYYY-MM-DD with --from on or before --to")
			case text == "" && !f.DateRangeEnabled():
				ctrl.SearchPage(ctx, "", nil, page)
			default:
				f.Submit()
			}

			state := ctrl.Snapshot()
			if !state.Searched {
				return errors.New("search failed, see log for details")
			}

			out := color.Output
			if label := f.DateRangeLabel(); label != "" {
				fmt.Fprintln(out, label)
			}
			cui.WriteResults(out, state.View(), -1, state.SearchTerm, cfg.Search.HighlightLanguage)

			if !details {
				return nil
			}

			ids := make([]string, 0, len(state.Results))
			for _, c := range state.Results {
				ids = append(ids, c.ID)
			}
			workers := max(1, cfg.Cache.PrefetchWorkers)
			for _, c := range application.Client.GetCasesByIDs(ctx, ids, workers) {
				if c == nil {
					continue
				}
				fmt.Fprintln(out)
				cui.WriteCase(out, c, state.SearchTerm, cfg.Search.HighlightLanguage)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&start, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&page, "page", "p", models.DefaultPage, "page to fetch")
	cmd.Flags().BoolVar(&details, "details", false, "fetch and print every listed case in full")

	return cmd
}
