package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"weatherdash/internal/dashboard"
	"weatherdash/internal/models"
	"weatherdash/internal/normalizer"
	"weatherdash/internal/scheduler"
)

const (
	defaultListLimit = 20
	dateLayout       = "2006-01-02"
	timeLayout       = "2006-01-02 15:04"
)

var errUsage = errors.New("invalid usage, run weatherctl -h")

type cli struct {
	svc    *dashboard.Service
	out    io.Writer
	asJSON bool
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "fetch":
		return c.fetch(ctx, rest)
	case "places":
		return c.places(ctx, rest)
	case "favorites":
		return c.favorites(ctx, rest)
	case "rules":
		return c.rules(ctx, rest)
	case "history":
		return c.history(ctx, rest)
	case "alerts":
		return c.alerts(ctx, rest)
	case "purge":
		return c.purge(ctx, rest)
	case "moon":
		return c.moon(rest)
	case "suggest":
		return c.suggest(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func (c *cli) fetch(ctx context.Context, args []string) error {
	city := strings.TrimSpace(strings.Join(args, " "))
	if city == "" {
		return fmt.Errorf("fetch needs a city: %w", errUsage)
	}

	view, err := c.svc.Refresh(ctx, city)
	if err != nil && (view == nil || !view.Unsaved) {
		return err
	}
	if c.asJSON {
		if jerr := c.printJSON(view); jerr != nil {
			return jerr
		}
		return err
	}

	rec := view.Record
	fmt.Fprintf(c.out, "%s, %s  %s\n", rec.City, rec.Country, rec.Timestamp.Format(timeLayout))
	fmt.Fprintf(c.out, "  %s %.0f°F (feels like %.0f°F)  %s\n",
		models.ConditionIcon(rec.Description), rec.Temperature, rec.FeelsLike, rec.Description)
	fmt.Fprintf(c.out, "  High %.0f°F  Low %.0f°F  Humidity %d%%\n", rec.TempHigh, rec.TempLow, rec.Humidity)
	fmt.Fprintf(c.out, "  Wind %.1f mph %s  Pressure %.2f inHg  Visibility %.1f mi\n",
		rec.WindSpeed, normalizer.WindDirection(rec.WindDirection), normalizer.PressureInHg(rec.Pressure), rec.Visibility)
	if rec.Sunrise != "" {
		fmt.Fprintf(c.out, "  Sunrise %s  Sunset %s  Day length %s\n", rec.Sunrise, rec.Sunset, rec.DayLength)
	}
	fmt.Fprintf(c.out, "  Moon: %s %s (%.0f%% illuminated)\n", view.Moon.Emoji, view.Moon.Name, view.Moon.Illumination*100)

	if len(view.Forecast) > 0 {
		fmt.Fprintln(c.out, "\nForecast:")
		tw := c.table()
		for _, day := range view.Forecast {
			fmt.Fprintf(tw, "  %s\t%s\t%d°/%d°\t%s\n", day.Day, day.Icon, day.High, day.Low, day.Description)
		}
		tw.Flush()
	}

	for _, ev := range view.Alerts {
		fmt.Fprintf(c.out, "\n[%s] %s\n", ev.Severity, ev.Message)
	}
	if view.Unsaved {
		fmt.Fprintf(c.out, "\nNot saved: %s\n", view.Warning)
	}
	return err
}

func (c *cli) places(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("places", flag.ContinueOnError)
	limit := fs.Int("limit", 5, "maximum number of matches")
	if err := fs.Parse(args); err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("places needs a query: %w", errUsage)
	}

	places, err := c.svc.Lookup(ctx, query, *limit)
	if err != nil {
		return err
	}
	if c.asJSON {
		return c.printJSON(places)
	}

	tw := c.table()
	for _, p := range places {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f, %.4f\n", p.Name, p.State, p.Country, p.Lat, p.Lon)
	}
	return tw.Flush()
}

func (c *cli) favorites(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		favorites, err := c.svc.ListFavorites(ctx)
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.printJSON(favorites)
		}
		if len(favorites) == 0 {
			fmt.Fprintln(c.out, "No favorite cities")
			return nil
		}
		tw := c.table()
		for _, f := range favorites {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.City, f.Country, f.AddedDate.Format(timeLayout))
		}
		return tw.Flush()

	case "add", "remove":
		if len(args) < 2 {
			return fmt.Errorf("favorites %s needs a city: %w", args[0], errUsage)
		}
		city, country := args[1], ""
		if len(args) > 2 {
			country = args[2]
		}

		if args[0] == "add" {
			added, err := c.svc.AddFavorite(ctx, city, country)
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintf(c.out, "Added %s to favorites\n", city)
			} else {
				fmt.Fprintf(c.out, "%s is already a favorite\n", city)
			}
			return nil
		}

		removed, err := c.svc.RemoveFavorite(ctx, city, country)
		if err != nil {
			return err
		}
		if removed {
			fmt.Fprintf(c.out, "Removed %s from favorites\n", city)
		} else {
			fmt.Fprintf(c.out, "%s is not a favorite\n", city)
		}
		return nil

	case "clear":
		n, err := c.svc.ClearFavorites(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Removed %d favorite(s)\n", n)
		return nil

	default:
		return fmt.Errorf("unknown favorites action %q: %w", args[0], errUsage)
	}
}

func (c *cli) rules(ctx context.Context, args []string) error {
	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "list":
		fs := flag.NewFlagSet("rules list", flag.ContinueOnError)
		city := fs.String("city", "", "only rules for this city")
		if err := fs.Parse(args); err != nil {
			return err
		}

		rules, err := c.svc.ListRules(ctx, *city)
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.printJSON(rules)
		}
		if len(rules) == 0 {
			fmt.Fprintln(c.out, "No alert rules")
			return nil
		}
		tw := c.table()
		fmt.Fprintln(tw, "ID\tCITY\tTYPE\tCONDITION\tACTIVE\tLAST TRIGGERED")
		for _, r := range rules {
			last := "-"
			if r.LastTriggered != nil {
				last = r.LastTriggered.Format(timeLayout)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", r.ID, r.City, r.AlertType, describeCondition(r), r.IsActive, last)
		}
		return tw.Flush()

	case "add":
		fs := flag.NewFlagSet("rules add", flag.ContinueOnError)
		city := fs.String("city", "", "city the rule watches")
		country := fs.String("country", "", "country code")
		alertType := fs.String("type", "", "TEMPERATURE_HIGH, TEMPERATURE_LOW, RAIN, SNOW, STORM, WIND_SPEED or HUMIDITY")
		threshold := fs.String("threshold", "", "threshold value for numeric rule types")
		condition := fs.String("condition", "", "comparison operator, defaults to >=")
		if err := fs.Parse(args); err != nil {
			return err
		}

		rule := &models.AlertRule{
			City:      *city,
			Country:   *country,
			AlertType: models.ParseAlertType(*alertType),
			Condition: models.Condition(*condition),
		}
		if *threshold != "" {
			v, err := strconv.ParseFloat(*threshold, 64)
			if err != nil {
				return fmt.Errorf("%w: threshold %q is not a number", models.ErrInvalidRule, *threshold)
			}
			rule.Threshold = &v
		}

		if err := c.svc.AddRule(ctx, rule); err != nil {
			return err
		}
		if c.asJSON {
			return c.printJSON(rule)
		}
		fmt.Fprintf(c.out, "Created rule %d: %s %s for %s\n", rule.ID, rule.AlertType, describeCondition(*rule), rule.City)
		return nil

	case "remove":
		if len(args) == 0 {
			return fmt.Errorf("rules remove needs an id: %w", errUsage)
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("rule id must be a positive integer: %w", errUsage)
		}
		if err := c.svc.RemoveRule(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Removed rule %d\n", id)
		return nil

	default:
		return fmt.Errorf("unknown rules action %q: %w", action, errUsage)
	}
}

func (c *cli) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	city := fs.String("city", "", "only observations for this city")
	limit := fs.Int("limit", defaultListLimit, "maximum number of rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := c.svc.History(ctx, *city, *limit)
	if err != nil {
		return err
	}
	if c.asJSON {
		return c.printJSON(records)
	}

	tw := c.table()
	fmt.Fprintln(tw, "TIME\tCITY\tTEMP\tHUMIDITY\tWIND\tCONDITIONS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%.1f°F\t%d%%\t%.1f mph\t%s\n",
			r.Timestamp.Format(timeLayout), r.City, r.Temperature, r.Humidity, r.WindSpeed, r.Description)
	}
	return tw.Flush()
}

func (c *cli) alerts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("alerts", flag.ContinueOnError)
	city := fs.String("city", "", "only alerts for this city")
	limit := fs.Int("limit", defaultListLimit, "maximum number of rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events, err := c.svc.AlertHistory(ctx, *city, *limit)
	if err != nil {
		return err
	}
	if c.asJSON {
		return c.printJSON(events)
	}
	if len(events) == 0 {
		fmt.Fprintln(c.out, "No alerts")
		return nil
	}

	tw := c.table()
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ev.TriggeredDate.Format(timeLayout), ev.City, ev.Severity, ev.Message)
	}
	return tw.Flush()
}

func (c *cli) purge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	days := fs.Int("days", 30, "delete alerts older than this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *days <= 0 {
		return fmt.Errorf("days must be positive: %w", errUsage)
	}

	sweep := scheduler.New(c.svc, "", time.Duration(*days)*24*time.Hour)
	n, err := sweep.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Purged %d alert(s) older than %d day(s)\n", n, *days)
	return nil
}

func (c *cli) moon(args []string) error {
	fs := flag.NewFlagSet("moon", flag.ContinueOnError)
	date := fs.String("date", "", "date as YYYY-MM-DD, defaults to now")
	if err := fs.Parse(args); err != nil {
		return err
	}

	at := time.Now()
	if *date != "" {
		t, err := time.Parse(dateLayout, *date)
		if err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD: %w", errUsage)
		}
		at = t
	}

	info := c.svc.Moon(at)
	if c.asJSON {
		return c.printJSON(info)
	}
	fmt.Fprintf(c.out, "%s %s, %.0f%% illuminated\n", info.Emoji, info.Name, info.Illumination*100)
	fmt.Fprintf(c.out, "Next full moon: %s\n", info.NextFullMoon.Format(dateLayout))
	fmt.Fprintf(c.out, "Next new moon:  %s\n", info.NextNewMoon.Format(dateLayout))
	return nil
}

// suggest runs for one city, or for every favorite when no city is given
func (c *cli) suggest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("suggest", flag.ContinueOnError)
	city := fs.String("city", "", "city to analyze")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cities := []string{*city}
	if *city == "" {
		favorites, err := c.svc.ListFavorites(ctx)
		if err != nil {
			return err
		}
		if len(favorites) == 0 {
			return fmt.Errorf("suggest needs -city or at least one favorite: %w", errUsage)
		}
		cities = cities[:0]
		for _, f := range favorites {
			cities = append(cities, f.City)
		}
	}

	var all []models.RuleSuggestion
	for _, name := range cities {
		suggestions, err := c.svc.SuggestRules(ctx, name)
		if err != nil {
			return err
		}
		all = append(all, suggestions...)
	}

	if c.asJSON {
		if all == nil {
			all = []models.RuleSuggestion{}
		}
		return c.printJSON(all)
	}
	if len(all) == 0 {
		fmt.Fprintln(c.out, "No suggestions, history looks normal")
		return nil
	}
	for _, s := range all {
		fmt.Fprintf(c.out, "%s: %s %s (confidence %.0f%%)\n  %s\n",
			s.Rule.City, s.Rule.AlertType, describeCondition(s.Rule), s.Confidence*100, s.Description)
	}
	return nil
}

func describeCondition(r models.AlertRule) string {
	if r.Threshold == nil {
		return "-"
	}
	cond := r.Condition
	if cond == "" {
		cond = models.ConditionGTE
	}
	return fmt.Sprintf("%s %s", cond, strconv.FormatFloat(*r.Threshold, 'f', -1, 64))
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
