package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mbolis/geo-survey/client"
	"github.com/mbolis/geo-survey/mapview"
	"github.com/spf13/cobra"
)

// queryFlags are the record filters shared by map and data export.
type queryFlags struct {
	questionnaire int
	from, to      string
	limit         int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.questionnaire, "questionnaire", 0, "only records of this questionnaire")
	cmd.Flags().StringVar(&f.from, "from", "", "only records submitted on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "only records submitted on or before this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of records (backend default when 0)")
}

func (f *queryFlags) query() (q client.DataQuery, err error) {
	q.QuestionnaireID = f.questionnaire
	q.Limit = f.limit
	if f.from != "" {
		q.StartDate, err = time.Parse(time.DateOnly, f.from)
		if err != nil {
			return q, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if f.to != "" {
		q.EndDate, err = time.Parse(time.DateOnly, f.to)
		if err != nil {
			return q, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return
}

func (c *cli) newMapCmd() *cobra.Command {
	var filters queryFlags

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Show the submitted records that have a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.requireUser(cmd.Context())
			if err != nil {
				return err
			}
			q, err := filters.query()
			if err != nil {
				return err
			}

			m, err := mapview.Load(cmd.Context(), c.api, q)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "center %s zoom %d, %d markers\n", m.Center, m.Zoom, len(m.Markers))
			for _, mk := range m.Markers {
				fmt.Fprintf(c.out, "#%d %s %s", mk.ID, mk.Position, mk.SubmittedAt.Format(time.DateTime))
				if mk.Submitter != "" {
					fmt.Fprintf(c.out, " by %s", mk.Submitter)
				}
				fmt.Fprintln(c.out)

				for _, v := range mk.Attributes {
					fmt.Fprintf(c.out, "    %s: %v\n", v.Label, v.Value)
				}
				if mk.AdditionalInfo != "" {
					fmt.Fprintf(c.out, "    (%s)\n", strings.TrimSpace(mk.AdditionalInfo))
				}
			}
			return nil
		},
	}

	filters.register(cmd)
	return cmd
}

func (c *cli) newDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Work with submitted records",
	}
	cmd.AddCommand(c.newDataExportCmd())
	return cmd
}

func (c *cli) newDataExportCmd() *cobra.Command {
	var filters queryFlags

	cmd := &cobra.Command{
		Use:   "export <out.xlsx>",
		Short: "Export records to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.requireUser(cmd.Context())
			if err != nil {
				return err
			}
			q, err := filters.query()
			if err != nil {
				return err
			}

			objs, err := c.api.ListData(cmd.Context(), q)
			if err != nil {
				return err
			}

			out, err := os.Create(args[0])
			if err != nil {
				return err
			}
			err = mapview.ExportXLSX(out, objs)
			if closeErr := out.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return fmt.Errorf("writing %s: %w", args[0], err)
			}

			fmt.Fprintf(c.out, "Exported %d records to %s\n", len(objs), args[0])
			return nil
		},
	}

	filters.register(cmd)
	return cmd
}
