package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/term"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
)

var (
	// mockable
	isTerminalFunc = term.IsTerminal
	readLineFunc   = readStdinLine

	errHelp        = errors.New("help provided")
	errAborted     = errors.New("aborted")
	errNotTerminal = errors.New("stdin is not a terminal: pass -yes to confirm")

	commands = []string{"migrate", "issue", "revoke", "autosend", "token"}

	// suggestions below this similarity ratio are not shown
	minSuggestionRatio = 0.6
)

type commandLine struct {
	conf   *core.Config
	db     *sqlx.DB
	svc    *certificate.Service
	policy *certificate.Policy
	task   *certificate.IssueTask
	out    io.Writer
}

func readStdinLine() (string, error) {
	return bufio.NewReader(os.Stdin).ReadString('\n')
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                          - run database migrations (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  issue                                           - run the issue task once")
	fmt.Fprintln(cli.out, "  revoke -issue ID [-yes]                         - revoke a certificate issue")
	fmt.Fprintln(cli.out, "  autosend -activity ID -enable=true|false [-yes] - switch automatic sending")
	fmt.Fprintln(cli.out, "  token -user ID [-name NAME] [-email EMAIL] [-roles ROLE,...] - generate an API token")
}

// suggest returns the known commands that look like cmd, best match first.
func suggest(cmd string) []string {
	type match struct {
		name  string
		ratio float64
	}
	var matches []match
	for _, name := range commands {
		ratio := difflib.NewMatcher(strings.Split(cmd, ""), strings.Split(name, "")).Ratio()
		if ratio >= minSuggestionRatio {
			matches = append(matches, match{name: name, ratio: ratio})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].ratio > matches[j].ratio })

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.name)
	}
	return names
}

// confirm asks question on the terminal, unless yes is set.
func (cli *commandLine) confirm(question string, yes bool) error {
	if yes {
		return nil
	}
	if !isTerminalFunc(int(os.Stdin.Fd())) {
		return errNotTerminal
	}
	fmt.Fprintf(cli.out, "%s [y/N] ", question)
	answer, err := readLineFunc()
	if err != nil && err != io.EOF {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	revokeCmd := flag.NewFlagSet("revoke", flag.ContinueOnError)
	revokeCmd.SetOutput(cli.out)
	revokeIssue := revokeCmd.String("issue", "", "The ID of the certificate issue to revoke.")
	revokeYes := revokeCmd.Bool("yes", false, "Do not ask for confirmation.")

	autoSendCmd := flag.NewFlagSet("autosend", flag.ContinueOnError)
	autoSendCmd.SetOutput(cli.out)
	autoSendActivity := autoSendCmd.String("activity", "", "The ID of the certificate activity.")
	autoSendEnable := autoSendCmd.Bool("enable", true, "Enable or disable automatic sending.")
	autoSendYes := autoSendCmd.Bool("yes", false, "Do not ask for confirmation.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenUser := tokenCmd.String("user", "", "The ID of the LMS user the token is for.")
	tokenName := tokenCmd.String("name", "", "The name of the user.")
	tokenEmail := tokenCmd.String("email", "", "The email of the user.")
	tokenRoles := tokenCmd.String("roles", "", "Comma separated roles granted by the token.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "issue":
		return cli.issue()
	case "revoke":
		if err := revokeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *revokeIssue == "" {
			revokeCmd.Usage()
			return errHelp
		}
		if err := cli.confirm(fmt.Sprintf("Revoke certificate issue %s?", *revokeIssue), *revokeYes); err != nil {
			return err
		}
		return cli.revoke(*revokeIssue)
	case "autosend":
		if err := autoSendCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *autoSendActivity == "" {
			autoSendCmd.Usage()
			return errHelp
		}
		verb := "Disable"
		if *autoSendEnable {
			verb = "Enable"
		}
		if err := cli.confirm(fmt.Sprintf("%s automatic sending of activity %s?", verb, *autoSendActivity), *autoSendYes); err != nil {
			return err
		}
		return cli.setAutoSend(*autoSendActivity, *autoSendEnable)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUser == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(core.Actor{ID: *tokenUser, Name: *tokenName, Email: *tokenEmail}, splitRoles(*tokenRoles))
	default:
		if names := suggest(args[1]); len(names) > 0 {
			fmt.Fprintf(cli.out, "unknown command %q, did you mean %q?\n", args[1], names[0])
		} else {
			cli.printUsage()
		}
		return errHelp
	}
}

func splitRoles(s string) []string {
	var roles []string
	for _, role := range strings.Split(s, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
