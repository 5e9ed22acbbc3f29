package form

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbolis/geo-survey/model"
)

type Element struct {
	Label     string
	FieldType model.FieldType
}

// Builder is the editable state of a questionnaire being authored. It always
// holds at least one element.
type Builder struct {
	Title       string
	Description string
	Password    string
	Elements    []Element
}

type QuestionnaireCreator interface {
	CreateQuestionnaire(ctx context.Context, q model.QuestionnaireCreate) (model.Questionnaire, error)
}

func NewBuilder() *Builder {
	b := &Builder{}
	b.Reset()
	return b
}

func (b *Builder) Reset() {
	*b = Builder{Elements: []Element{{FieldType: model.Text}}}
}

func (b *Builder) Add(label string, t model.FieldType) {
	b.Elements = append(b.Elements, Element{label, t})
}

// Remove deletes the element at i, unless it is the last one left.
func (b *Builder) Remove(i int) bool {
	if len(b.Elements) <= 1 || i < 0 || i >= len(b.Elements) {
		return false
	}
	b.Elements = append(b.Elements[:i], b.Elements[i+1:]...)
	return true
}

func (b *Builder) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return &ValidationError{Field: "title", Message: "the questionnaire title is required"}
	}
	for i, el := range b.Elements {
		if strings.TrimSpace(el.Label) == "" {
			return &ValidationError{Field: fmt.Sprintf("elements[%d]", i), Message: "every question needs a label"}
		}
		if !el.FieldType.Valid() {
			return &ValidationError{Field: fmt.Sprintf("elements[%d]", i), Message: fmt.Sprintf("unknown field type %q", el.FieldType)}
		}
	}
	return nil
}

func (b *Builder) Request() model.QuestionnaireCreate {
	req := model.QuestionnaireCreate{
		Title:       b.Title,
		Description: b.Description,
		Elements:    make([]model.FieldCreate, len(b.Elements)),
	}
	if b.Password != "" {
		password := b.Password
		req.Password = &password
	}
	for i, el := range b.Elements {
		req.Elements[i] = model.FieldCreate{Label: el.Label, FieldType: el.FieldType}
	}
	return req
}

// Create validates the draft, sends it and resets the builder on success.
// Nothing is sent when validation fails.
func (b *Builder) Create(ctx context.Context, api QuestionnaireCreator) (model.Questionnaire, error) {
	err := b.Validate()
	if err != nil {
		return model.Questionnaire{}, err
	}

	created, err := api.CreateQuestionnaire(ctx, b.Request())
	if err != nil {
		return model.Questionnaire{}, err
	}

	b.Reset()
	return created, nil
}
