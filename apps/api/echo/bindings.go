package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

type (
	// autoSendData sets auto-send on or off; AutoSend left out flips the current value.
	autoSendData struct {
		AutoSend *bool `json:"automaticsend"`
		Confirm  bool  `json:"confirm"`
	}

	confirmData struct {
		Confirm bool `json:"confirm"`
	}

	// Confirmation is the prompt shown before a destructive action is carried out.
	Confirmation struct {
		Title   string `json:"title"`
		Message string `json:"message"`
		Confirm string `json:"confirm"`
		Cancel  string `json:"cancel"`
	}
)

func newConfirmation(message string) Confirmation {
	return Confirmation{
		Title:   "Confirmation",
		Message: message,
		Confirm: "Confirm",
		Cancel:  "Cancel",
	}
}

var includeRevokedParam = "include_revoked"

type IssueQuery struct {
	IncludeRevoked bool
}

func (q *IssueQuery) Bind(ctx echo.Context) {
	val := ctx.QueryParam(includeRevokedParam)
	if val == "" {
		return
	}
	if include, err := strconv.ParseBool(val); err == nil {
		q.IncludeRevoked = include
	}
}
