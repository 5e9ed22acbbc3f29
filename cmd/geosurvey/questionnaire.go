package main

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/mbolis/geo-survey/form"
	"github.com/mbolis/geo-survey/geo"
	"github.com/mbolis/geo-survey/mappicker"
	"github.com/mbolis/geo-survey/model"
	"github.com/spf13/cobra"
)

func (c *cli) newQuestionnaireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "questionnaire",
		Aliases: []string{"q"},
		Short:   "Author, list and fill questionnaires",
	}
	cmd.AddCommand(
		c.newQuestionnaireCreateCmd(),
		c.newQuestionnaireListCmd(),
		c.newQuestionnaireFillCmd(),
	)
	return cmd
}

func (c *cli) newQuestionnaireCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <file.json>",
		Short: "Create a questionnaire from a JSON definition",
		Long: `Create a questionnaire from a JSON file shaped like:

  {
    "title": "Street trees",
    "description": "Census of the trees in the neighbourhood",
    "password": "optional",
    "elements": [
      {"label": "Species", "field_type": "text"},
      {"label": "Where", "field_type": "map_coordinates"}
    ]
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.requireUser(cmd.Context())
			if err != nil {
				return err
			}

			b, err := readBuilder(args[0])
			if err != nil {
				return err
			}

			created, err := b.Create(cmd.Context(), c.api)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "Created questionnaire %d: %s\n", created.ID, created.Title)
			for i, el := range created.Elements {
				fmt.Fprintf(c.out, "  %d. %s (%s)\n", i+1, el.Label, el.FieldType.Name())
			}
			return nil
		},
	}
}

func readBuilder(path string) (*form.Builder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var def model.QuestionnaireCreate
	err = json.Unmarshal(raw, &def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	b := form.NewBuilder()
	b.Title = def.Title
	b.Description = def.Description
	if def.Password != nil {
		b.Password = *def.Password
	}
	if len(def.Elements) > 0 {
		b.Elements = b.Elements[:0]
		for _, el := range def.Elements {
			b.Add(el.Label, el.FieldType)
		}
	}
	return b, nil
}

func (c *cli) newQuestionnaireListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your questionnaires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.requireUser(cmd.Context())
			if err != nil {
				return err
			}

			qs, err := c.api.ListQuestionnaires(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tQUESTIONS\tPROTECTED")
			for _, q := range qs {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%t\n", q.ID, q.Title, len(q.Elements), q.Protected())
			}
			return tw.Flush()
		},
	}
}

func (c *cli) newQuestionnaireFillCmd() *cobra.Command {
	var answers []string
	var point, password string

	cmd := &cobra.Command{
		Use:   "fill <id>",
		Short: "Answer a questionnaire",
		Long: `Answer a questionnaire. No login is needed.

Every --answer is "label=value". --point "lat,lng" answers the map questions.

Example: geosurvey questionnaire fill 3 --answer Species=oak --answer Height=12 --point 45.07,7.68`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid questionnaire id %q", args[0])
			}

			filler := form.NewFiller(c.api, id)
			filler.SetPassword(password)
			err = filler.Load(cmd.Context())
			if err != nil {
				_, msg := filler.Status()
				return errors.New(msg)
			}

			err = fillDraft(filler, answers, point)
			if err != nil {
				return err
			}

			obj, err := filler.Submit(cmd.Context())
			if err != nil {
				_, msg := filler.Status()
				return errors.New(msg)
			}

			_, msg := filler.Status()
			fmt.Fprintf(c.out, "%s (record %d)\n", msg, obj.ID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&answers, "answer", nil, "answer as label=value (repeatable)")
	cmd.Flags().StringVar(&point, "point", "", "location as lat,lng for map questions")
	cmd.Flags().StringVar(&password, "password", "", "questionnaire password")
	return cmd
}

// fillDraft matches answers to the loaded schema by label. Map questions
// go through a picker the way a click on the map would.
func fillDraft(filler *form.Filler, answers []string, point string) error {
	byLabel := map[string]string{}
	for _, a := range answers {
		label, value, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("invalid answer %q: expected label=value", a)
		}
		byLabel[strings.TrimSpace(label)] = value
	}

	var clicked *geo.Point
	if point != "" {
		p, err := parsePoint(point)
		if err != nil {
			return err
		}
		clicked = &p
	}

	// a label may repeat, so answers are only consumed once every element saw them
	answered := map[string]bool{}
	for _, el := range filler.Schema.Elements {
		if el.FieldType == model.MapCoordinates {
			if clicked == nil {
				continue
			}
			fieldID := el.ID
			picker := mappicker.New(nil, func(p geo.Point) { filler.Set(fieldID, p) })
			picker.Click(*clicked)
			continue
		}

		value, ok := byLabel[el.Label]
		if !ok {
			continue
		}
		answered[el.Label] = true

		if el.FieldType == model.Number {
			n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return fmt.Errorf("%s: %q is not a number", el.Label, value)
			}
			filler.Set(el.ID, n)
			continue
		}
		filler.Set(el.ID, value)
	}

	for label := range answered {
		delete(byLabel, label)
	}
	if len(byLabel) > 0 {
		return fmt.Errorf("no question labelled %q", slices.Sorted(maps.Keys(byLabel))[0])
	}
	return nil
}

func parsePoint(s string) (geo.Point, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("invalid point %q: expected lat,lng", s)
	}
	var p geo.Point
	var err error
	p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err == nil {
		p.Lng, err = strconv.ParseFloat(strings.TrimSpace(lng), 64)
	}
	if err != nil || !p.Valid() {
		return geo.Point{}, fmt.Errorf("invalid point %q: expected lat,lng", s)
	}
	return p, nil
}
