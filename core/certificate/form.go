package certificate

import (
	"context"
	"fmt"
	"html"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coursecertificate/core"
)

// field types
const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldSelect   = "select"
	FieldStatic   = "static"
	FieldHidden   = "hidden"
	FieldDate     = "date"
	FieldCheckbox = "checkbox"
)

const (
	maxNameLength = 255

	noTemplatesWarning         = "There are no available templates. Please create one in the certificate template management page."
	noTemplatesWarningWithLink = `There are no available templates. Please go to the <a href="%s">certificate template management page</a> and create one.`
	selectTemplateWarning      = "Once this activity issues at least one certificate, this field will be locked and will no longer be editable."
)

type (
	FormOption struct {
		Value interface{} `json:"value"`
		Label string      `json:"label"`
	}

	// FormCondition applies to a field while the value of Field compares to Value with Op ("eq" or "noteq").
	FormCondition struct {
		Field string      `json:"field"`
		Op    string      `json:"op"`
		Value interface{} `json:"value"`
	}

	FormField struct {
		Name      string       `json:"name"`
		Type      string       `json:"type"`
		Label     string       `json:"label,omitempty"`
		Group     string       `json:"group,omitempty"`
		Options   []FormOption `json:"options,omitempty"`
		Required  bool         `json:"required,omitempty"`
		MaxLength int          `json:"maxlength,omitempty"`
		// Disabled fields are read-only; Locked ones are disabled but still submitted.
		Disabled   bool           `json:"disabled,omitempty"`
		Locked     bool           `json:"locked,omitempty"`
		Hidden     bool           `json:"hidden,omitempty"`
		HTML       string         `json:"html,omitempty"`
		Link       string         `json:"link,omitempty"`
		HiddenIf   *FormCondition `json:"hidden_if,omitempty"`
		DisabledIf *FormCondition `json:"disabled_if,omitempty"`
	}

	// FormSpec describes the configuration form of an Activity.
	FormSpec struct {
		Fields   []FormField `json:"fields"`
		Defaults FormData    `json:"defaults"`
	}

	// FormData is the submitted configuration form.
	FormData struct {
		Name           string         `json:"name" validate:"required,notblank,max=255"`
		Intro          string         `json:"intro"`
		TemplateID     string         `json:"template"`
		ExpiryDateType ExpiryDateType `json:"expirydatetype" validate:"oneof=0 1"`
		Expires        int64          `json:"expires"`
		AutoSend       bool           `json:"automaticsend"`
		CompletionView bool           `json:"completionview"`
		HasIssues      bool           `json:"hasissues"`
	}
)

// NewActivity maps postprocessed data to a NewActivity of courseID.
func (d FormData) NewActivity(courseID string) NewActivity {
	return NewActivity{
		CourseID:       courseID,
		Name:           d.Name,
		Intro:          d.Intro,
		TemplateID:     d.TemplateID,
		Expires:        d.Expires,
		AutoSend:       d.AutoSend,
		CompletionView: d.CompletionView,
	}
}

// UpdateActivity maps postprocessed data to an UpdateActivity.
func (d FormData) UpdateActivity() UpdateActivity {
	return UpdateActivity{
		Name:           d.Name,
		Intro:          d.Intro,
		TemplateID:     d.TemplateID,
		Expires:        d.Expires,
		AutoSend:       d.AutoSend,
		CompletionView: d.CompletionView,
	}
}

// Form builds and validates the configuration form of an Activity.
type Form struct {
	svc                *Service
	certSvc            CertificateService
	validate           *validator.Validate
	translator         ut.Translator
	manageTemplatesURL string
}

func NewForm(
	svc *Service,
	certSvc CertificateService,
	validate *validator.Validate,
	translator ut.Translator,
	manageTemplatesURL string,
) *Form {
	registerValidators(validate, translator)
	return &Form{
		svc:                svc,
		certSvc:            certSvc,
		validate:           validate,
		translator:         translator,
		manageTemplatesURL: manageTemplatesURL,
	}
}

func (f *Form) templates(ctx context.Context, tctx TemplateContext) ([]Template, error) {
	templates, err := f.certSvc.ListVisibleTemplates(ctx, tctx)
	if err != nil {
		return nil, core.NewConfigurationError("certificate templates", err)
	}
	return templates, nil
}

func (f *Form) hasIssues(ctx context.Context, act *Activity) (bool, error) {
	if act == nil {
		return false, nil
	}
	n, err := f.svc.IssuedCount(ctx, *act)
	if err != nil {
		return false, core.NewConfigurationError("certificate issues", err)
	}
	return n > 0, nil
}

// Definition builds the form of act, or of a new activity when act is nil.
// It fails with a *core.ConfigurationError when the certificate service cannot list the templates.
func (f *Form) Definition(ctx context.Context, tctx TemplateContext, act *Activity) (FormSpec, error) {
	templates, err := f.templates(ctx, tctx)
	if err != nil {
		return FormSpec{}, err
	}
	hasIssues, err := f.hasIssues(ctx, act)
	if err != nil {
		return FormSpec{}, err
	}

	var defaults FormData
	if act != nil {
		defaults = f.Preprocess(*act)
	}
	defaults.HasIssues = hasIssues

	options := make([]FormOption, 0, len(templates)+1)
	options = append(options, FormOption{Value: "", Label: "Choose a template"})
	for _, tmpl := range templates {
		options = append(options, FormOption{Value: tmpl.ID, Label: tmpl.Name})
	}

	var warning FormField
	if len(templates) == 0 {
		warning = FormField{Name: "notemplateswarning", Type: FieldStatic, HTML: noTemplatesWarning}
		if tctx.CanManageTemplates && f.manageTemplatesURL != "" {
			warning.HTML = fmt.Sprintf(noTemplatesWarningWithLink, html.EscapeString(f.manageTemplatesURL))
			warning.Link = f.manageTemplatesURL
		}
	} else {
		warning = FormField{Name: "selecttemplatewarning", Type: FieldStatic, HTML: selectTemplateWarning}
	}

	onDate := defaults.ExpiryDateType == ExpiryOnDate
	notOnDate := &FormCondition{Field: "expirydatetype", Op: "noteq", Value: int(ExpiryOnDate)}

	return FormSpec{
		Defaults: defaults,
		Fields: []FormField{
			{Name: "name", Type: FieldText, Label: "Name", Required: true, MaxLength: maxNameLength},
			{Name: "intro", Type: FieldTextarea, Label: "Description"},
			{
				Name:     "template",
				Type:     FieldSelect,
				Label:    "Template",
				Options:  options,
				Required: !hasIssues,
				Disabled: hasIssues,
				Locked:   hasIssues,
			},
			warning,
			{Name: "hasissues", Type: FieldHidden},
			{
				Name:  "expirydatetype",
				Type:  FieldSelect,
				Label: "Expiry date",
				Group: "expirydategroup",
				Options: []FormOption{
					{Value: int(ExpiryNever), Label: "Never"},
					{Value: int(ExpiryOnDate), Label: "Select date"},
				},
			},
			{
				Name:       "expires",
				Type:       FieldDate,
				Group:      "expirydategroup",
				Hidden:     !onDate,
				Disabled:   !onDate,
				HiddenIf:   notOnDate,
				DisabledIf: notOnDate,
			},
			{Name: "automaticsend", Type: FieldCheckbox, Label: "Automatically send certificates"},
			{Name: "completionview", Type: FieldCheckbox, Label: "Students must view this activity to complete it"},
		},
	}, nil
}

// Validate checks data, submitted for act (nil for a new activity).
// Field errors are returned as a *core.ValidationError.
func (f *Form) Validate(ctx context.Context, tctx TemplateContext, act *Activity, data FormData) error {
	// never trust the submitted lock
	hasIssues, err := f.hasIssues(ctx, act)
	if err != nil {
		return err
	}
	data.HasIssues = hasIssues

	var flds []core.FieldError
	if err := f.validate.Struct(data); err != nil {
		vErr, ok := core.TranslateValidationErrors(err, f.translator).(*core.ValidationError)
		if !ok {
			return err
		}
		flds = append(flds, vErr.Fields...)
	}

	if data.TemplateID != "" && !hasIssues {
		templates, err := f.templates(ctx, tctx)
		if err != nil {
			return err
		}
		var visible bool
		for _, tmpl := range templates {
			if tmpl.ID == data.TemplateID {
				visible = true
				break
			}
		}
		if !visible {
			flds = append(flds, core.FieldError{Field: "template", Error: templateNotVisibleText})
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Preprocess maps a stored Activity to form defaults.
func (f *Form) Preprocess(act Activity) FormData {
	return FormData{
		Name:           act.Name,
		Intro:          act.Intro,
		TemplateID:     act.TemplateID,
		ExpiryDateType: act.ExpiryDateType(),
		Expires:        act.Expires,
		AutoSend:       act.AutoSend,
		CompletionView: act.CompletionView,
	}
}

// Postprocess normalizes submitted data: no expiry date is kept when the expiry type is Never.
func (f *Form) Postprocess(data FormData) FormData {
	data.Name = core.CleanString(data.Name)
	if data.ExpiryDateType == ExpiryNever {
		data.Expires = 0
	}
	return data
}

// Submit validates then postprocesses data. For a locked template, the stored one is kept.
func (f *Form) Submit(ctx context.Context, tctx TemplateContext, act *Activity, data FormData) (FormData, error) {
	if err := f.Validate(ctx, tctx, act, data); err != nil {
		return FormData{}, err
	}
	data = f.Postprocess(data)
	if act != nil && data.TemplateID == "" {
		data.TemplateID = act.TemplateID
	}
	return data, nil
}
