package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ajg/form"
	"github.com/mbolis/geo-survey/model"
)

// PasswordHeader carries a questionnaire's access password.
const PasswordHeader = "X-Questionnaire-Password"

type credentials struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// Token exchanges a user name and password for an access token.
func (c *Client) Token(ctx context.Context, name, password string) (token model.Token, err error) {
	body, err := form.EncodeToString(credentials{name, password})
	if err != nil {
		return
	}
	err = c.do(ctx, "/auth/token", Request{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": {ContentTypeForm}},
		Body:   body,
	}, &token)
	return
}

// Me fetches the user the given token belongs to.
func (c *Client) Me(ctx context.Context, token string) (user model.User, err error) {
	err = c.do(ctx, "/users/me", Request{
		Header: http.Header{"Authorization": {"Bearer " + token}},
	}, &user)
	return
}

func (c *Client) CreateUser(ctx context.Context, u model.UserCreate) (user model.User, err error) {
	err = c.do(ctx, "/users/", Request{Method: http.MethodPost, Body: u}, &user)
	return
}

// AddFavorite marks one of the caller's records as favorite.
func (c *Client) AddFavorite(ctx context.Context, dataObjectID int) (user model.UserFavorites, err error) {
	err = c.do(ctx, "/users/me/favorites/"+strconv.Itoa(dataObjectID), Request{Method: http.MethodPost}, &user)
	return
}

func (c *Client) ListFavorites(ctx context.Context) (objs []model.DataObject, err error) {
	err = c.do(ctx, "/users/me/favorites/", Request{}, &objs)
	return
}

func (c *Client) RemoveFavorite(ctx context.Context, dataObjectID int) error {
	return c.do(ctx, "/users/me/favorites/"+strconv.Itoa(dataObjectID), Request{Method: http.MethodDelete}, nil)
}

func (c *Client) CreateQuestionnaire(ctx context.Context, q model.QuestionnaireCreate) (created model.Questionnaire, err error) {
	err = c.do(ctx, "/questionnaires/", Request{Method: http.MethodPost, Body: q}, &created)
	return
}

func (c *Client) ListQuestionnaires(ctx context.Context) (qs []model.Questionnaire, err error) {
	err = c.do(ctx, "/questionnaires/", Request{}, &qs)
	return
}

// GetQuestionnaire fetches a questionnaire schema. password may be empty.
func (c *Client) GetQuestionnaire(ctx context.Context, id int, password string) (q model.Questionnaire, err error) {
	err = c.do(ctx, "/questionnaires/"+strconv.Itoa(id), Request{
		Header: passwordHeader(password),
	}, &q)
	return
}

func (c *Client) DeleteQuestionnaire(ctx context.Context, id int) error {
	return c.do(ctx, "/questionnaires/"+strconv.Itoa(id), Request{Method: http.MethodDelete}, nil)
}

// Submit posts a submission payload. password may be empty.
func (c *Client) Submit(ctx context.Context, id int, payload model.DataObjectCreate, password string) (obj model.DataObject, err error) {
	err = c.do(ctx, "/questionnaires/"+strconv.Itoa(id)+"/submit", Request{
		Method: http.MethodPost,
		Header: passwordHeader(password),
		Body:   payload,
	}, &obj)
	return
}

type DataQuery struct {
	Skip            int
	Limit           int
	QuestionnaireID int
	StartDate       time.Time
	EndDate         time.Time
}

func (q DataQuery) Values() url.Values {
	v := url.Values{}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.QuestionnaireID > 0 {
		v.Set("questionnaire_id", strconv.Itoa(q.QuestionnaireID))
	}
	if !q.StartDate.IsZero() {
		v.Set("start_date", q.StartDate.Format(time.DateOnly))
	}
	if !q.EndDate.IsZero() {
		v.Set("end_date", q.EndDate.Format(time.DateOnly))
	}
	return v
}

func (c *Client) ListData(ctx context.Context, q DataQuery) (objs []model.DataObject, err error) {
	endpoint := "/data/"
	if v := q.Values(); len(v) > 0 {
		endpoint += "?" + v.Encode()
	}
	err = c.do(ctx, endpoint, Request{}, &objs)
	return
}

func (c *Client) GetData(ctx context.Context, id int) (obj model.DataObject, err error) {
	err = c.do(ctx, "/data/"+strconv.Itoa(id), Request{}, &obj)
	return
}

func (c *Client) UpdateData(ctx context.Context, id int, update model.DataObjectUpdate) (obj model.DataObject, err error) {
	err = c.do(ctx, "/data/"+strconv.Itoa(id), Request{Method: http.MethodPut, Body: update}, &obj)
	return
}

func (c *Client) MergeData(ctx context.Context, req model.MergeRequest) (obj model.DataObject, err error) {
	err = c.do(ctx, "/data/merge/", Request{Method: http.MethodPost, Body: req}, &obj)
	return
}

func (c *Client) NearbyData(ctx context.Context, sourceID int, distanceM float64) (objs []model.DataObject, err error) {
	v := url.Values{
		"source_data_object_id": {strconv.Itoa(sourceID)},
		"distance_m":            {strconv.FormatFloat(distanceM, 'f', -1, 64)},
	}
	err = c.do(ctx, "/data/nearby_suggestions/?"+v.Encode(), Request{}, &objs)
	return
}

func passwordHeader(password string) http.Header {
	if password == "" {
		return nil
	}
	return http.Header{PasswordHeader: {password}}
}
