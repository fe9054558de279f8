package main

import (
	"fmt"
	"os"
	"runtime"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// globals are the options accepted before any command.
type globals struct {
	configPath string
	dataDir    string
}

func main() {
	args := os.Args[1:]
	var g globals

	// Parse flags
	filtered := args[:0]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-c":
			if i+1 >= len(args) {
				fatalf("--config requires a file path")
			}
			g.configPath = args[i+1]
			i++
		case "--data", "-d":
			if i+1 >= len(args) {
				fatalf("--data requires a directory")
			}
			g.dataDir = args[i+1]
			i++
		default:
			filtered = append(filtered, args[i])
		}
	}

	if len(filtered) < 1 {
		printUsage()
		os.Exit(1)
	}

	cmd, rest := filtered[0], filtered[1:]
	switch cmd {
	case "help", "-h", "--help":
		printUsage()
	case "version", "-V", "--version":
		printVersion()
	case "daemon":
		daemonCmd(g)
	case "service":
		serviceCmd(rest, g)
	case "history":
		historyCmd(rest, g)
	case "silent":
		silentCmd(rest, g)
	case "add":
		addCmd(rest, g)
	case "edit":
		editCmd(rest, g)
	case "remove", "rm":
		removeCmd(rest, g)
	case "list", "ls":
		listCmd(rest, g)
	case "show":
		showCmd(rest, g)
	case "search":
		searchCmd(rest, g)
	case "upcoming":
		upcomingCmd(rest, g)
	case "clear":
		clearCmd(rest, g)
	case "save":
		saveCmd(g)
	case "categories":
		categoriesCmd(rest, g)
	case "export":
		exportCmd(rest, g)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		fmt.Fprintf(os.Stderr, "Run 'planner help' for usage.\n")
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", a...)
	os.Exit(1)
}

func printVersion() {
	fmt.Printf("planner %s (%s) %s/%s\n", version, buildDate, runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Printf("planner %s - Personal schedule with recurring reminders\n", version)
	fmt.Println(`
Usage:
  planner [options] <command> [args]

Options:
  --config, -c <path>    Path to planner-config.json / .yaml
  --data, -d <dir>       Data directory (events, categories, history)

Events:
  add <event flags>          Add an event
  edit <n> <event flags>     Change event n (flags as for add)
  remove <n>                 Remove event n
  list [--category <name>]   List events, numbered for edit/remove
  show <n>                   Show every field of event n
  search <query> [--in <field>]
                             Search title, description, location or category
  upcoming [hours]           Reminders due in the next hours (default 24)
  clear --yes                Remove every event
  save                       Rewrite the events file in canonical form
  export [file]              Write events as iCalendar (.ics), default stdout

Categories:
  categories [list]          List categories
  categories add <name>      Add a category
  categories remove <name>   Remove a category

Reminders:
  daemon                     Run the reminder scheduler in the foreground
  service start|stop|restart|status
                             Manage the scheduler in the background
  history [days]             Show fired reminders (default 7 days)
  history clean [days]       Drop entries older than days (all if omitted)
  history clear              Drop every entry
  silent [duration|off]      Mute toast and sound, e.g. silent 2h;
                             without arguments show the state

Other:
  version, -V                Show version and build date
  help, -h, --help           Show this help message

Event flags:
  --title <text>             Title (required for add unless --json)
  --start <date> [time]      Start, e.g. 2024-05-01 09:30 or 01.05.2024
  --end <date> [time]        End (default start + 1h)
  --duration <d>             Length instead of --end, e.g. 45m or 2h
  --all-day                  All-day event
  --timed                    Clear all-day (edit)
  --description <text>       Description
  --location <text>          Location
  --notify <min>[:<method>]  Reminder minutes before start; method push,
                             email or sms (repeatable, replaces defaults)
  --every <freq>             Repeat hourly, daily, weekly, monthly, yearly
  --interval <n>             Every n periods (default 1)
  --at <HH:MM>               Time of day the repetition fires
  --on <weekday>             Weekday for weekly repetition
  --day <1-31>               Day of month for monthly/yearly repetition
  --month <1-12>             Month for yearly repetition
  --until <date>             Last day of the repetition
  --once                     Drop the repetition (edit)
  --category <name>          Category (repeatable)
  --attendee "Name <email>"  Attendee (repeatable)
  --json <file|->            Read the whole event as JSON

Config resolution:
  1. --config <path>                             (explicit)
  2. planner-config.{json,yaml} next to binary   (portable)
  3. ~/.config/planner/planner-config.{json,yaml} (user default)

Examples:
  planner add --title "Dentist" --start 2024-05-01 09:30 --notify 60
  planner add --title "Gym" --start 2024-01-01 07:00 --every weekly --on mon
  planner edit 2 --location "Room 4"
  planner search review --in title
  planner service start`)
}
