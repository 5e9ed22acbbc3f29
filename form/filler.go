package form

import (
	"context"
	"errors"

	"github.com/mbolis/geo-survey/client"
	"github.com/mbolis/geo-survey/model"
)

type Status int

const (
	Idle Status = iota
	Loading
	Failed
	Submitted
)

const (
	ProtectedTitle   = "Protected questionnaire"
	protectedMessage = "This questionnaire is password protected or not accessible. " +
		"If a password is required, provide it to submit your answers."
	submittedMessage = "Your answers were submitted."
)

type FillerAPI interface {
	GetQuestionnaire(ctx context.Context, id int, password string) (model.Questionnaire, error)
	Submit(ctx context.Context, id int, payload model.DataObjectCreate, password string) (model.DataObject, error)
}

// Filler drives the page on which a volunteer answers one questionnaire.
// Status is exactly one of loading, failed or submitted at a time, or idle.
type Filler struct {
	api FillerAPI
	id  int

	Schema model.Questionnaire
	Draft  Draft

	loaded  bool
	status  Status
	message string
}

func NewFiller(api FillerAPI, questionnaireID int) *Filler {
	return &Filler{api: api, id: questionnaireID}
}

// Load fetches the schema, presenting the draft password if one was set.
// When access is refused, a placeholder schema that only asks for the
// password is installed and the error is still returned.
func (f *Filler) Load(ctx context.Context) error {
	f.status, f.message = Loading, ""

	q, err := f.api.GetQuestionnaire(ctx, f.id, f.Draft.Password)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			f.Schema = protectedPlaceholder(f.id)
			f.loaded = true
			f.fail(protectedMessage)
			return err
		}
		f.fail(message(err))
		return err
	}

	f.Schema = q
	f.loaded = true
	f.status = Idle
	return nil
}

func (f *Filler) Set(fieldID int, v any) {
	f.Draft.Set(fieldID, v)
}

func (f *Filler) SetPassword(password string) {
	f.Draft.Password = password
}

// Submit sends the draft. The draft is cleared on success and kept on any
// failure so no input is lost.
func (f *Filler) Submit(ctx context.Context) (model.DataObject, error) {
	f.status, f.message = Idle, ""

	if !f.loaded {
		err := &ValidationError{Message: "the questionnaire is not loaded"}
		f.fail(err.Message)
		return model.DataObject{}, err
	}

	payload, err := BuildPayload(f.Schema, f.Draft)
	if err != nil {
		f.fail(message(err))
		return model.DataObject{}, err
	}

	var password string
	if f.Schema.Protected() {
		password = f.Draft.Password
	}

	f.status = Loading
	obj, err := f.api.Submit(ctx, f.id, payload, password)
	if err != nil {
		f.fail(message(err))
		return model.DataObject{}, err
	}

	f.Draft.Reset()
	f.status, f.message = Submitted, submittedMessage
	return obj, nil
}

// Status returns the page state and the message to display inline.
func (f *Filler) Status() (Status, string) {
	return f.status, f.message
}

func (f *Filler) fail(msg string) {
	f.status, f.message = Failed, msg
}

func protectedPlaceholder(id int) model.Questionnaire {
	password := "protected"
	return model.Questionnaire{
		ID:          id,
		Title:       ProtectedTitle,
		Description: "This questionnaire needs a password. Provide it to submit your answers.",
		Password:    &password,
	}
}

func message(err error) string {
	var apiErr *client.APIError
	var valErr *ValidationError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Detail
	case errors.As(err, &valErr):
		return valErr.Message
	}
	return err.Error()
}
