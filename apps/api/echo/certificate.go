package echoapi

import (
	"bytes"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/core/event"
	"github.com/trezcool/coursecertificate/services/completion"
)

var (
	enableAutoSendText  = "Learners who complete this activity will receive their certificate automatically. Enable automatic sending?"
	disableAutoSendText = "Certificates will no longer be issued automatically. Disable automatic sending?"
	revokeIssueText     = "Are you sure you want to revoke this certificate issue from this user?"

	autoSendFragment = "automaticsend_alert"
)

type certificateApi struct {
	svc       *certificate.Service
	form      *certificate.Form
	policy    *certificate.Policy
	tracker   certificate.CompletionTracker
	bus       *event.Bus
	fragments *template.Template
}

func registerCertificateAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *certificateApi) {
	manage := roleMiddleware(RoleManage)

	cg := g.Group("/courses/:course/certificates", jwt, manage)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/form", api.newForm)

	// detail endpoints
	dg := g.Group("/certificates/:id", jwt)
	dg.GET("", api.retrieve, manage)
	dg.PUT("", api.update, manage)
	dg.DELETE("", api.destroy, manage)
	dg.GET("/form", api.editForm, manage)
	dg.GET("/issues", api.issues, manage)
	dg.POST("/automaticsend", api.setAutoSend, manage)
	dg.POST("/view", api.view)

	g.DELETE("/issues/:id", api.revokeIssue, jwt, manage)
	g.POST("/events", api.postEvent, jwt, roleMiddleware(RoleEvents))
}

// Handlers

func (api *certificateApi) query(ctx echo.Context) error {
	acts, err := api.svc.Query(ctx.Request().Context(), certificate.QueryFilter{CourseID: ctx.Param("course")})
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	if acts == nil {
		acts = []certificate.Activity{}
	}
	return ctx.JSON(http.StatusOK, acts)
}

func (api *certificateApi) newForm(ctx echo.Context) error {
	tctx, err := templateContext(ctx, ctx.Param("course"))
	if err != nil {
		return err
	}
	spec, err := api.form.Definition(ctx.Request().Context(), tctx, nil)
	if err != nil {
		return errors.Wrap(err, "building form")
	}
	return ctx.JSON(http.StatusOK, spec)
}

func (api *certificateApi) create(ctx echo.Context) error {
	courseID := ctx.Param("course")
	var data certificate.FormData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FormData")
	}

	tctx, err := templateContext(ctx, courseID)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if data, err = api.form.Submit(reqCtx, tctx, nil, data); err != nil {
		return err
	}

	act, err := api.svc.Create(reqCtx, data.NewActivity(courseID))
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return ctx.JSON(http.StatusCreated, act)
}

func (api *certificateApi) getActivity(ctx echo.Context) (certificate.Activity, error) {
	act, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	return act, errors.Wrap(err, "getting activity")
}

func (api *certificateApi) retrieve(ctx echo.Context) error {
	act, err := api.getActivity(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *certificateApi) editForm(ctx echo.Context) error {
	act, err := api.getActivity(ctx)
	if err != nil {
		return err
	}
	tctx, err := templateContext(ctx, act.CourseID)
	if err != nil {
		return err
	}
	spec, err := api.form.Definition(ctx.Request().Context(), tctx, &act)
	if err != nil {
		return errors.Wrap(err, "building form")
	}
	return ctx.JSON(http.StatusOK, spec)
}

func (api *certificateApi) update(ctx echo.Context) error {
	act, err := api.getActivity(ctx)
	if err != nil {
		return err
	}
	var data certificate.FormData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FormData")
	}

	tctx, err := templateContext(ctx, act.CourseID)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if data, err = api.form.Submit(reqCtx, tctx, &act, data); err != nil {
		return err
	}

	act, err = api.svc.Update(reqCtx, act.ID, data.UpdateActivity())
	if err != nil {
		return errors.Wrap(err, "updating activity")
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *certificateApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *certificateApi) issues(ctx echo.Context) error {
	act, err := api.getActivity(ctx)
	if err != nil {
		return err
	}
	var q IssueQuery
	q.Bind(ctx)

	issues, err := api.svc.Issues(ctx.Request().Context(), act, q.IncludeRevoked)
	if err != nil {
		return errors.Wrap(err, "querying issues")
	}
	return ctx.JSON(http.StatusOK, issues)
}

// view records that the requester viewed the activity and returns their certificate state.
func (api *certificateApi) view(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	act, err := api.getActivity(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if act.CompletionView {
		if err = api.tracker.MarkViewed(reqCtx, act.CourseID, act.ID, claims.Subject); err != nil {
			return core.NewExternalServiceError("marking activity viewed", err)
		}
	}
	completions, err := api.tracker.Completions(reqCtx, act.CourseID, act.ID)
	if err != nil {
		return core.NewExternalServiceError("listing completions", err)
	}
	state, err := api.policy.State(reqCtx, act, claims.Subject, completions)
	if err != nil {
		return errors.Wrap(err, "getting certificate state")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"state": state})
}

func (api *certificateApi) setAutoSend(ctx echo.Context) error {
	act, err := api.getActivity(ctx)
	if err != nil {
		return err
	}
	var data autoSendData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to autoSendData")
	}

	on := !act.AutoSend
	if data.AutoSend != nil {
		on = *data.AutoSend
	}
	if !data.Confirm {
		msg := disableAutoSendText
		if on {
			msg = enableAutoSendText
		}
		return ctx.JSON(http.StatusPreconditionRequired, echo.Map{"confirmation": newConfirmation(msg)})
	}

	if data.AutoSend == nil {
		act, err = api.svc.ToggleAutoSend(ctx.Request().Context(), act.ID)
	} else {
		act, err = api.svc.SetAutoSend(ctx.Request().Context(), act.ID, on)
	}
	if err != nil {
		return errors.Wrap(err, "setting auto-send")
	}

	var buf bytes.Buffer
	if err = api.fragments.ExecuteTemplate(&buf, autoSendFragment, act); err != nil {
		return errors.Wrap(err, "rendering "+autoSendFragment)
	}
	return ctx.HTML(http.StatusOK, buf.String())
}

func (api *certificateApi) revokeIssue(ctx echo.Context) error {
	var data confirmData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to confirmData")
	}
	if !data.Confirm {
		return ctx.JSON(http.StatusPreconditionRequired, echo.Map{"confirmation": newConfirmation(revokeIssueText)})
	}

	if err := api.policy.RevokeIssue(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "revoking issue")
	}
	// the issues report must be reloaded as a whole
	return ctx.JSON(http.StatusOK, echo.Map{"success": true, "reload": true})
}

// postEvent feeds the bus with a completion event pushed by the LMS.
func (api *certificateApi) postEvent(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading event")
	}
	ev, err := completionsvc.Decode(payload)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.Cause(err).Error())
	}

	failed := api.bus.Publish(ctx.Request().Context(), ev)
	return ctx.JSON(http.StatusAccepted, echo.Map{"event": ev.EventName(), "failed": failed})
}
