package form

import (
	"context"
	"testing"

	"github.com/mbolis/geo-survey/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCreator struct {
	mock.Mock
}

func (m *MockCreator) CreateQuestionnaire(ctx context.Context, q model.QuestionnaireCreate) (model.Questionnaire, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(model.Questionnaire), args.Error(1)
}

func TestBuilderKeepsOneElement(t *testing.T) {
	b := NewBuilder()
	require.Len(t, b.Elements, 1)
	assert.False(t, b.Remove(0))

	b.Add("Where", model.MapCoordinates)
	assert.True(t, b.Remove(0))
	assert.Equal(t, []Element{{"Where", model.MapCoordinates}}, b.Elements)
}

func TestBuilderValidate(t *testing.T) {
	tests := []struct {
		name      string
		builder   Builder
		wantField string
	}{
		{"missing title", Builder{Title: "  ", Elements: []Element{{"A", model.Text}}}, "title"},
		{"blank label", Builder{Title: "T", Elements: []Element{{"A", model.Text}, {" ", model.Text}}}, "elements[1]"},
		{"bad type", Builder{Title: "T", Elements: []Element{{"A", "select"}}}, "elements[0]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var valErr *ValidationError
			require.ErrorAs(t, tc.builder.Validate(), &valErr)
			assert.Equal(t, tc.wantField, valErr.Field)
		})
	}
}

func TestBuilderCreate(t *testing.T) {
	b := NewBuilder()
	b.Title = "Trees"
	b.Password = "pw"
	b.Elements[0].Label = "Species"
	b.Add("Where", model.MapCoordinates)

	password := "pw"
	want := model.QuestionnaireCreate{
		Title:    "Trees",
		Password: &password,
		Elements: []model.FieldCreate{
			{Label: "Species", FieldType: model.Text},
			{Label: "Where", FieldType: model.MapCoordinates},
		},
	}

	api := &MockCreator{}
	api.On("CreateQuestionnaire", mock.Anything, want).Return(model.Questionnaire{ID: 5, Title: "Trees"}, nil)

	created, err := b.Create(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, 5, created.ID)
	assert.Equal(t, *NewBuilder(), *b)
	api.AssertExpectations(t)
}

func TestBuilderCreateInvalidSendsNothing(t *testing.T) {
	api := &MockCreator{}
	b := NewBuilder()

	_, err := b.Create(context.Background(), api)
	assert.Error(t, err)
	api.AssertNotCalled(t, "CreateQuestionnaire", mock.Anything, mock.Anything)
}

func TestBuilderRequestWithoutPassword(t *testing.T) {
	b := NewBuilder()
	b.Title = "Open"
	b.Elements[0].Label = "Q"
	assert.Nil(t, b.Request().Password)
}
