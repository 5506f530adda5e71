package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cli := NewCLIWithDefaults()
	defer cli.Close()

	if err := run(cli, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cli.Close()
		os.Exit(1)
	}
}

var errUnknownCommand = errors.New("unknown command")

func run(cli *CLI, cmd string, args []string) error {
	switch cmd {
	case "keygen":
		return cli.Keygen(args)
	case "recover":
		return cli.Recover(args)
	case "whoami":
		return cli.Whoami()
	case "register":
		return cli.Register(args)
	case "preferences":
		return cli.Preferences(args)
	case "intent":
		return cli.Intent(args)
	case "match":
		return cli.Match(args)
	case "reveal":
		return cli.Reveal(args)
	case "activate":
		return cli.SetActive(args, true)
	case "deactivate":
		return cli.SetActive(args, false)
	case "verify":
		return cli.Verify(args)
	case "award":
		return cli.Adjust(args, false)
	case "deduct":
		return cli.Adjust(args, true)
	case "pause":
		return cli.Pause(true)
	case "unpause":
		return cli.Pause(false)
	case "transfer":
		return cli.Transfer(args)
	case "profile":
		return cli.Profile(args)
	case "show-intent":
		return cli.ShowIntent(args)
	case "show-match":
		return cli.ShowMatch(args)
	case "stats":
		return cli.Stats()
	case "revealed":
		return cli.Revealed(args)
	case "reveals":
		return cli.Reveals(args)
	case "eligible":
		return cli.Eligible(args)
	case "events":
		return cli.Events(args)
	case "capability":
		return cli.Capability()
	case "help", "-h", "--help":
		printUsageTo(cli.output)
		return nil
	default:
		printUsageTo(os.Stderr)
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}
