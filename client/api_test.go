package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbolis/geo-survey/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/token", r.URL.Path)
		assert.Equal(t, ContentTypeForm, r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "p&ss word", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token": "tok", "token_type": "Bearer"}`)
	}))
	defer srv.Close()

	token, err := New(srv.URL).Token(context.Background(), "alice", "p&ss word")
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)
}

func TestSubmitSendsPasswordHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/questionnaires/7/submit", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(PasswordHeader))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"data_values": {"Nom": "Alice"}, "latitude": 48.8, "longitude": 2.3}`, string(b))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 1, "questionnaire_id": 7, "data_values": {"Nom": "Alice"}, "latitude": 48.8, "longitude": 2.3, "submission_date": "2024-05-01T10:00:00Z"}`)
	}))
	defer srv.Close()

	lat, lng := 48.8, 2.3
	var values model.Values
	values.Set("Nom", "Alice")
	obj, err := New(srv.URL).Submit(context.Background(), 7, model.DataObjectCreate{
		DataValues: values,
		Latitude:   &lat,
		Longitude:  &lng,
	}, "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, obj.ID)
	p, ok := obj.Point()
	assert.True(t, ok)
	assert.Equal(t, 48.8, p.Lat)
}

func TestDataQueryValues(t *testing.T) {
	q := DataQuery{
		Limit:           10,
		QuestionnaireID: 3,
		StartDate:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "limit=10&questionnaire_id=3&start_date=2024-01-02", q.Values().Encode())
	assert.Empty(t, DataQuery{}.Values())
}
