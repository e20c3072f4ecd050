package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "config":
		err = cmdConfig()
	case "units":
		err = withApp(cmdUnits)
	case "import":
		err = withApp(func(a *app) error { return cmdImport(a, args) })
	case "progress":
		err = withApp(func(a *app) error { return cmdProgress(a, args) })
	case "quiz":
		err = withApp(func(a *app) error { return cmdQuiz(a, args) })
	case "grammar":
		err = withApp(func(a *app) error { return cmdGrammar(a, args) })
	case "match":
		err = withApp(func(a *app) error { return cmdMatch(a, args) })
	case "exam":
		err = withApp(func(a *app) error { return cmdExam(a, args) })
	case "profile":
		err = withApp(func(a *app) error { return cmdProfile(a, args) })
	case "qa":
		err = withApp(func(a *app) error { return cmdQA(a, args) })
	case "register":
		err = withApp(func(a *app) error { return cmdRegister(a, args) })
	case "login":
		err = withApp(func(a *app) error { return cmdLogin(a, args) })
	case "logout":
		err = withApp(cmdLogout)
	case "sync":
		err = withApp(func(a *app) error { return cmdSync(a, args) })
	case "resume":
		err = withApp(cmdResume)
	case "mcp":
		err = withApp(cmdMCP)
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("palabras %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Palabras - Spanish vocabulary and grammar trainer

Usage:
  palabras <command> [arguments]

Setup Commands:
  init                          Create ~/.palabras and a default config
  config                        Show current configuration
  import <xlsx> <unit> [title]  Convert a workbook into a unit file

Practice Commands:
  units                         List units and their groups
  progress [unit]               Show mastery and unlock state
  quiz <unit> <group> <level>   Timed quiz (easy, medium, hard)
  grammar <unit> <exercise>     Grammar exercise quiz
  match <unit> <group>          Matching game for small groups
  exam <unit>                   Unit exam
  resume                        Continue where you left off

Profile Commands:
  profile list                  List profiles
  profile new <nickname>        Create and select a profile
  profile use <id>              Select a profile
  profile delete <id>           Delete a profile

Sync Commands:
  register <email>              Create an account on the sync server
  login <email>                 Log in and pull remote progress
  logout                        Forget the stored token
  sync pull                     Replace local progress with the remote copy
  sync push                     Upload local progress now

QA Commands:
  qa unlock-all                 Unlock every unit
  qa reset                      Clear the active profile
  qa fill                       Set every score to 100
  qa prepare-exam               Set every score to 80

Integration Commands:
  mcp                           Start MCP server on stdio

Other:
  help                          Show this help message
  version                       Show version information

Quiz and exam accept --untimed to disable the countdown.`)
}

// renderProgressBar creates a visual progress bar for a percentage
func renderProgressBar(percent, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}

// splitFlags separates --flags from positional arguments
func splitFlags(args []string) (positional []string, flags map[string]bool) {
	flags = make(map[string]bool)
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			flags[strings.TrimPrefix(a, "--")] = true
			continue
		}
		positional = append(positional, a)
	}
	return positional, flags
}
