package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mavwarf/planner/internal/categories"
	"github.com/Mavwarf/planner/internal/config"
	"github.com/Mavwarf/planner/internal/event"
	"github.com/Mavwarf/planner/internal/ics"
	"github.com/Mavwarf/planner/internal/logger"
	"github.com/Mavwarf/planner/internal/paths"
	"github.com/Mavwarf/planner/internal/store"
	"github.com/Mavwarf/planner/internal/tmpl"
)

// app is the state shared by the event commands.
type app struct {
	cfg config.Config
	log *logrus.Logger
	st  *store.Store
}

func loadConfig(g globals) config.Config {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		fatal(err)
	}
	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	return cfg
}

// openApp opens the events file in active mode; the CLI is the process
// that originates structural changes.
func openApp(g globals) *app {
	cfg := loadConfig(g)
	log := logger.New(cfg.LogLevel, os.Stderr)
	st, err := store.New(cfg.Path(paths.EventsFileName), cfg.AutoSave, store.Active, log)
	if err != nil {
		fatal(err)
	}
	return &app{cfg: cfg, log: log, st: st}
}

func (a *app) close() { a.st.Close() }

// commit persists a change. With auto_save on the store already wrote
// it; otherwise the change would be lost when the process exits.
func (a *app) commit() {
	if a.cfg.AutoSave {
		return
	}
	if err := a.st.Save(); err != nil {
		fatal(err)
	}
}

func (a *app) categories() *categories.List {
	l, err := categories.Load(a.cfg.Path(paths.CategoriesFileName))
	if err != nil {
		fatal(err)
	}
	return l
}

func (a *app) index(arg string) int {
	i, err := parseIndex(arg, a.st.Len())
	if err != nil {
		fatal(err)
	}
	return i
}

func addCmd(args []string, g globals) {
	f, err := parseEventFlags(args)
	if err != nil {
		fatal(err)
	}
	a := openApp(g)
	defer a.close()

	e, err := f.build(a.categories(), os.Stdin, time.Now())
	if err != nil {
		fatal(err)
	}
	i := a.st.Add(e)
	a.commit()
	saved, _ := a.st.Get(i)
	fmt.Printf("Added %d: %s (%s) %s\n", i+1, saved.Title, saved.ID, fmtWhen(saved))
}

func editCmd(args []string, g globals) {
	if len(args) < 1 {
		fatalf("usage: planner edit <n> <event flags>")
	}
	f, err := parseEventFlags(args[1:])
	if err != nil {
		fatal(err)
	}
	a := openApp(g)
	defer a.close()
	i := a.index(args[0])

	e, _ := a.st.Get(i)
	if f.jsonPath != "" {
		replacement, err := readEventJSON(f.jsonPath, os.Stdin)
		if err != nil {
			fatal(err)
		}
		replacement.ID = e.ID
		replacement.CreatedAt = e.CreatedAt
		replacement.UpdatedAt = time.Now()
		e = replacement
	}
	if err := f.apply(&e, a.categories(), time.Now()); err != nil {
		fatal(err)
	}
	if _, ok := a.st.Replace(i, e); !ok {
		fatalf("event %d changed while editing", i+1)
	}
	a.commit()
	fmt.Printf("Updated %d: %s\n", i+1, e.Title)
}

func removeCmd(args []string, g globals) {
	if len(args) != 1 {
		fatalf("usage: planner remove <n>")
	}
	a := openApp(g)
	defer a.close()
	removed, ok := a.st.Remove(a.index(args[0]))
	if !ok {
		fatalf("event %s not removed", args[0])
	}
	a.commit()
	fmt.Printf("Removed %s: %s\n", removed.ID, removed.Title)
}

func listCmd(args []string, g globals) {
	var category string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--category":
			if i+1 >= len(args) {
				fatalf("--category requires a name")
			}
			category = args[i+1]
			i++
		default:
			fatalf("unknown option %q", args[i])
		}
	}

	a := openApp(g)
	defer a.close()
	if a.st.Len() == 0 {
		fmt.Println("No events. Add one with 'planner add --title ... --start ...'.")
		return
	}
	width := termWidth()
	fmt.Println(bold(eventHeader(width)))
	a.st.Each(func(i int, e event.Event) {
		if category != "" && !e.Matches(category, event.FieldCategory) {
			return
		}
		fmt.Println(eventRow(i+1, e, width))
	})
}

func eventHeader(width int) string {
	return truncate(fmt.Sprintf("%s %s %s %s", padR("#", 4), padR("When", 20), padR("Repeats", 10), "Title / Reminders"), width)
}

func showCmd(args []string, g globals) {
	if len(args) != 1 {
		fatalf("usage: planner show <n>")
	}
	a := openApp(g)
	defer a.close()
	i := a.index(args[0])
	e, _ := a.st.Get(i)
	printEvent(os.Stdout, i+1, e)
}

func printEvent(w io.Writer, pos int, e event.Event) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %s %s\n", padR(name+":", 13), value)
		}
	}
	fmt.Fprintf(w, "%s %s\n", bold(fmt.Sprintf("%d. %s", pos, e.Title)), dim(e.ID))
	field("Description", e.Description)
	field("Location", e.Location)
	if e.IsAllDay {
		field("When", e.StartTime.Format("Mon 2006-01-02")+" (all day)")
	} else {
		field("Start", e.StartTime.Format("Mon 2006-01-02 15:04"))
		field("End", e.EndTime.Format("Mon 2006-01-02 15:04"))
	}
	if e.IsRecurring {
		field("Repeats", e.Recurrence.String())
	}
	for i, n := range e.NotificationSettings {
		state := "pending"
		if n.HasNotified {
			state = "sent"
		}
		field(fmt.Sprintf("Reminder %d", i+1), fmt.Sprintf("%s before via %s (%s)", tmpl.ShortMinutes(n.NotifyBefore), n.Method, state))
	}
	for _, at := range e.Attendees {
		v := at.Name
		if at.Email != "" {
			v = strings.TrimSpace(v + " <" + at.Email + ">")
		}
		field("Attendee", v)
	}
	field("Categories", strings.Join(e.Categories, ", "))
	field("Created", e.CreatedAt.Format("2006-01-02 15:04"))
	field("Updated", e.UpdatedAt.Format("2006-01-02 15:04"))
}

func searchCmd(args []string, g globals) {
	var query []string
	field := event.FieldAny
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--in":
			if i+1 >= len(args) {
				fatalf("--in requires a field")
			}
			f, err := event.ParseField(args[i+1])
			if err != nil {
				fatal(err)
			}
			field = f
			i++
		default:
			query = append(query, args[i])
		}
	}
	if len(query) == 0 {
		fatalf("usage: planner search <query> [--in title|description|location|category]")
	}

	a := openApp(g)
	defer a.close()
	hits := a.st.Search(strings.Join(query, " "), field)
	if len(hits) == 0 {
		fmt.Println("No matching events.")
		return
	}
	width := termWidth()
	for _, h := range hits {
		fmt.Println(eventRow(h.Index+1, h.Event, width))
	}
}

func upcomingCmd(args []string, g globals) {
	hours := 24
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fatalf("hours must be a positive integer")
		}
		hours = n
	}

	a := openApp(g)
	defer a.close()
	now := time.Now()
	entries := event.Upcoming(a.st.Events(), now, time.Duration(hours)*time.Hour)
	if len(entries) == 0 {
		fmt.Printf("No reminders in the next %d hours.\n", hours)
		return
	}
	for _, u := range entries {
		n := u.Event.NotificationSettings[u.Setting]
		fmt.Printf("%s  %s %s  %s\n",
			yellow(u.At.Format("Mon 15:04")),
			cyan(padR(strconv.Itoa(u.Index+1), 3)),
			u.Event.Title,
			dim(fmt.Sprintf("(%s before, %s)", tmpl.ShortMinutes(n.NotifyBefore), strings.ToLower(string(u.Method)))))
	}
}

func clearCmd(args []string, g globals) {
	yes := len(args) == 1 && (args[0] == "--yes" || args[0] == "-y")
	a := openApp(g)
	defer a.close()
	n := a.st.Len()
	if !yes {
		fatalf("refusing to remove %d events without --yes", n)
	}
	a.st.Clear()
	a.commit()
	fmt.Printf("Removed %d events.\n", n)
}

func saveCmd(g globals) {
	a := openApp(g)
	defer a.close()
	if err := a.st.Save(); err != nil {
		fatal(err)
	}
	fmt.Printf("Saved %d events to %s\n", a.st.Len(), a.st.Path())
}

func categoriesCmd(args []string, g globals) {
	a := openApp(g)
	defer a.close()
	path := a.cfg.Path(paths.CategoriesFileName)
	cats := a.categories()

	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		used := map[string]int{}
		a.st.Each(func(_ int, e event.Event) {
			for _, c := range e.Categories {
				used[strings.ToLower(c)]++
			}
		})
		for _, name := range cats.Names() {
			fmt.Printf("  %s %s\n", padR(name, 16), dim(fmt.Sprintf("%d events", used[strings.ToLower(name)])))
		}
	case "add":
		if len(args) != 2 {
			fatalf("usage: planner categories add <name>")
		}
		if !cats.Add(args[1]) {
			fatalf("category %q already exists", args[1])
		}
		if err := cats.Save(path); err != nil {
			fatal(err)
		}
		fmt.Printf("Added category %s\n", strings.TrimSpace(args[1]))
	case "remove", "rm":
		if len(args) != 2 {
			fatalf("usage: planner categories remove <name>")
		}
		name, ok := cats.Canonical(args[1])
		if !ok {
			fatalf("no category %q", args[1])
		}
		cats.Remove(name)
		if err := cats.Save(path); err != nil {
			fatal(err)
		}
		// Strip the label from events that carry it.
		changed, err := a.st.Update(func(_ int, e *event.Event) bool {
			return e.RemoveCategory(name)
		})
		if err != nil {
			fatal(err)
		}
		a.commit()
		msg := "Removed category " + name
		if changed {
			msg += " (and from its events)"
		}
		fmt.Println(msg)
	default:
		fatalf("unknown categories command %q (want list, add or remove)", sub)
	}
}

func exportCmd(args []string, g globals) {
	a := openApp(g)
	defer a.close()

	w := io.Writer(os.Stdout)
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			fatal(err)
		}
		defer f.Close()
		w = f
	}
	if err := ics.Export(w, a.st.Events(), time.Now()); err != nil {
		fatal(err)
	}
	if len(args) > 0 && args[0] != "-" {
		fmt.Fprintf(os.Stderr, "Exported %d events to %s\n", a.st.Len(), args[0])
	}
}
