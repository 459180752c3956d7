package main

import (
	"context"
	"fmt"
	"time"

	echoapi "github.com/trezcool/coursecertificate/apps/api/echo"
	"github.com/trezcool/coursecertificate/core"
)

func (cli *commandLine) issue() error {
	report, err := cli.task.Run(context.Background(), time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "activities: %d\nissued: %d\nalready issued: %d\nskipped: %d\nfailed: %d\n",
		report.Activities, report.Issued, report.AlreadyIssued, report.Skipped, report.Failed)
	return nil
}

func (cli *commandLine) revoke(issueID string) error {
	if err := cli.policy.RevokeIssue(context.Background(), issueID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "certificate issue %s revoked\n", issueID)
	return nil
}

func (cli *commandLine) setAutoSend(activityID string, on bool) error {
	act, err := cli.svc.SetAutoSend(context.Background(), activityID, on)
	if err != nil {
		return err
	}
	state := "disabled"
	if act.AutoSend {
		state = "enabled"
	}
	fmt.Fprintf(cli.out, "automatic sending %s for %q\n", state, act.Name)
	return nil
}

func (cli *commandLine) token(actor core.Actor, roles []string) error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, actor, roles...))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
