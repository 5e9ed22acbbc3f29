package model

import (
	"time"

	"github.com/mbolis/geo-survey/geo"
)

type User struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// UserFavorites is the user along with the records they marked as favorite.
type UserFavorites struct {
	User
	FavoriteDataObjects []DataObject `json:"favorite_data_objects"`
}

type UserCreate struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type Questionnaire struct {
	ID          int        `json:"id" db:"id"`
	OwnerID     int        `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Password    *string    `json:"password" db:"password"`
	Elements    []FieldDef `json:"elements" db:"-"`
}

// Protected reports whether filling the questionnaire requires a password.
func (q Questionnaire) Protected() bool {
	return q.Password != nil && *q.Password != ""
}

type QuestionnaireCreate struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Password    *string       `json:"password"`
	Elements    []FieldCreate `json:"elements"`
}

type FieldDef struct {
	ID              int       `json:"id" db:"id"`
	QuestionnaireID int       `json:"questionnaire_id" db:"questionnaire_id"`
	Label           string    `json:"label" db:"label"`
	FieldType       FieldType `json:"field_type" db:"field_type"`
}

type FieldCreate struct {
	Label     string    `json:"label"`
	FieldType FieldType `json:"field_type"`
}

// DataObjectCreate is the body of a questionnaire submission.
type DataObjectCreate struct {
	SubmitterName  *string  `json:"submitter_name,omitempty"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	DataValues     Values   `json:"data_values"`
	AdditionalInfo *string  `json:"additional_info,omitempty"`
}

type DataObject struct {
	ID              int       `json:"id" db:"id"`
	QuestionnaireID int       `json:"questionnaire_id" db:"questionnaire_id"`
	SubmitterName   *string   `json:"submitter_name" db:"submitter_name"`
	SubmissionDate  time.Time `json:"submission_date" db:"submission_date"`
	Latitude        *float64  `json:"latitude" db:"latitude"`
	Longitude       *float64  `json:"longitude" db:"longitude"`
	DataValues      Values    `json:"data_values" db:"data_values"`
	AdditionalInfo  *string   `json:"additional_info" db:"additional_info"`
}

// Point returns the record's coordinates, if it has both.
func (d DataObject) Point() (geo.Point, bool) {
	if d.Latitude == nil || d.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *d.Latitude, Lng: *d.Longitude}, true
}

type DataObjectUpdate struct {
	AdditionalInfo *string `json:"additional_info"`
}

type MergeRequest struct {
	DataObjectIDs         []int    `json:"data_object_ids"`
	TargetQuestionnaireID int      `json:"target_questionnaire_id"`
	NewSubmitterName      *string  `json:"new_submitter_name,omitempty"`
	NewAdditionalInfo     *string  `json:"new_additional_info,omitempty"`
	NewLatitude           *float64 `json:"new_latitude,omitempty"`
	NewLongitude          *float64 `json:"new_longitude,omitempty"`
}
