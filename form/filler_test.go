package form

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/mbolis/geo-survey/client"
	"github.com/mbolis/geo-survey/geo"
	"github.com/mbolis/geo-survey/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFillerAPI struct {
	mock.Mock
}

func (m *MockFillerAPI) GetQuestionnaire(ctx context.Context, id int, password string) (model.Questionnaire, error) {
	args := m.Called(ctx, id, password)
	return args.Get(0).(model.Questionnaire), args.Error(1)
}

func (m *MockFillerAPI) Submit(ctx context.Context, id int, payload model.DataObjectCreate, password string) (model.DataObject, error) {
	args := m.Called(ctx, id, payload, password)
	return args.Get(0).(model.DataObject), args.Error(1)
}

func treeSurvey(password *string) model.Questionnaire {
	return schema(password,
		field(1, "Species", model.Text),
		field(2, "Where", model.MapCoordinates),
	)
}

func TestFillerSubmitClearsDraft(t *testing.T) {
	api := &MockFillerAPI{}
	api.On("GetQuestionnaire", mock.Anything, 1, "").Return(treeSurvey(nil), nil)
	api.On("Submit", mock.Anything, 1, mock.Anything, "").Return(model.DataObject{ID: 10}, nil)

	f := NewFiller(api, 1)
	require.NoError(t, f.Load(context.Background()))
	f.Set(1, "Oak")
	f.Set(2, geo.Point{Lat: 45, Lng: 5})

	obj, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, obj.ID)
	assert.Empty(t, f.Draft.Values)

	status, msg := f.Status()
	assert.Equal(t, Submitted, status)
	assert.Equal(t, submittedMessage, msg)

	payload := api.Calls[1].Arguments.Get(2).(model.DataObjectCreate)
	assert.Equal(t, model.Values{{"Species", "Oak"}}, payload.DataValues)
	assert.Equal(t, 45.0, *payload.Latitude)
}

func TestFillerSubmitFailureKeepsDraft(t *testing.T) {
	api := &MockFillerAPI{}
	api.On("GetQuestionnaire", mock.Anything, 1, "").Return(treeSurvey(nil), nil)
	api.On("Submit", mock.Anything, 1, mock.Anything, "").
		Return(model.DataObject{}, &client.NetworkError{Method: "POST", URL: "x", Err: errors.New("offline")})

	f := NewFiller(api, 1)
	require.NoError(t, f.Load(context.Background()))
	f.Set(1, "Oak")

	_, err := f.Submit(context.Background())
	assert.Error(t, err)
	assert.Equal(t, map[int]any{1: "Oak"}, f.Draft.Values)

	status, _ := f.Status()
	assert.Equal(t, Failed, status)
}

func TestFillerMissingPasswordSendsNothing(t *testing.T) {
	secret := "pw"
	api := &MockFillerAPI{}
	api.On("GetQuestionnaire", mock.Anything, 1, "").Return(treeSurvey(&secret), nil)

	f := NewFiller(api, 1)
	require.NoError(t, f.Load(context.Background()))
	f.Set(1, "Oak")

	_, err := f.Submit(context.Background())
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	api.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, map[int]any{1: "Oak"}, f.Draft.Values)
}

func TestFillerProtectedPlaceholder(t *testing.T) {
	api := &MockFillerAPI{}
	api.On("GetQuestionnaire", mock.Anything, 3, "").
		Return(model.Questionnaire{}, &client.APIError{Status: http.StatusUnauthorized, Detail: "Password required to view this questionnaire"})
	api.On("Submit", mock.Anything, 3, mock.Anything, "letmein").Return(model.DataObject{ID: 1}, nil)

	f := NewFiller(api, 3)
	err := f.Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, ProtectedTitle, f.Schema.Title)
	assert.True(t, f.Schema.Protected())

	status, msg := f.Status()
	assert.Equal(t, Failed, status)
	assert.Equal(t, protectedMessage, msg)

	f.SetPassword("letmein")
	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestFillerLoadUsesDraftPassword(t *testing.T) {
	secret := "pw"
	api := &MockFillerAPI{}
	api.On("GetQuestionnaire", mock.Anything, 1, "pw").Return(treeSurvey(&secret), nil)

	f := NewFiller(api, 1)
	f.SetPassword("pw")
	require.NoError(t, f.Load(context.Background()))
	assert.Len(t, f.Schema.Elements, 2)
}

func TestFillerSubmitBeforeLoad(t *testing.T) {
	api := &MockFillerAPI{}
	f := NewFiller(api, 1)
	_, err := f.Submit(context.Background())
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestFillerLoadFailure(t *testing.T) {
	api := &MockFillerAPI{}
	api.On("GetQuestionnaire", mock.Anything, 404, "").
		Return(model.Questionnaire{}, &client.APIError{Status: http.StatusNotFound, Detail: "Questionnaire not found"})

	f := NewFiller(api, 404)
	assert.Error(t, f.Load(context.Background()))
	status, msg := f.Status()
	assert.Equal(t, Failed, status)
	assert.Equal(t, "Questionnaire not found", msg)
}
