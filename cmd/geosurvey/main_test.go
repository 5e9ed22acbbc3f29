package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mbolis/geo-survey/app"
	"github.com/mbolis/geo-survey/client"
	"github.com/mbolis/geo-survey/config"
	"github.com/mbolis/geo-survey/database"
	"github.com/mbolis/geo-survey/form"
	"github.com/mbolis/geo-survey/geo"
	"github.com/mbolis/geo-survey/httpx"
	"github.com/mbolis/geo-survey/model"
	"github.com/mbolis/geo-survey/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newBackend(t *testing.T) *httptest.Server {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{TokenSecret: "test-secret", TokenTTL: time.Hour}
	srv := httptest.NewServer(routes.Wire(app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, apiURL, tokenFile string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--api-url", apiURL, "--token-file", tokenFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

const treesJSON = `{
	"title": "Trees",
	"password": "pw",
	"elements": [
		{"label": "Species", "field_type": "text"},
		{"label": "Height", "field_type": "number"},
		{"label": "Where", "field_type": "map_coordinates"}
	]
}`

func TestSurveyRoundTrip(t *testing.T) {
	srv := newBackend(t)
	dir := t.TempDir()
	ownerTokens := filepath.Join(dir, "owner-token")
	volunteerTokens := filepath.Join(dir, "volunteer-token")

	_, err := client.New(srv.URL).CreateUser(context.Background(), model.UserCreate{Name: "alice", Password: "s3cret"})
	require.NoError(t, err)

	out, err := run(t, srv.URL, ownerTokens, "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
	assert.Contains(t, out, "Please log in")

	_, err = run(t, srv.URL, ownerTokens, "login", "--name", "alice", "--password", "wrong")
	assert.Error(t, err)

	out, err = run(t, srv.URL, ownerTokens, "login", "--name", "alice", "--password", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as alice\n", out)
	assert.FileExists(t, ownerTokens)

	out, err = run(t, srv.URL, ownerTokens, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "alice (id 1)\n", out)

	def := filepath.Join(dir, "trees.json")
	require.NoError(t, os.WriteFile(def, []byte(treesJSON), 0o600))
	out, err = run(t, srv.URL, ownerTokens, "questionnaire", "create", def)
	require.NoError(t, err)
	assert.Equal(t, "Created questionnaire 1: Trees\n"+
		"  1. Species (Short text)\n"+
		"  2. Height (Number)\n"+
		"  3. Where (Point on map)\n", out)

	out, err = run(t, srv.URL, ownerTokens, "questionnaire", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Trees")
	assert.Contains(t, out, "true")

	_, err = run(t, srv.URL, volunteerTokens, "questionnaire", "fill", "1", "--answer", "Species=oak")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password protected")

	_, err = run(t, srv.URL, volunteerTokens, "questionnaire", "fill", "1", "--password", "pw", "--answer", "Colour=red")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no question labelled "Colour"`)

	out, err = run(t, srv.URL, volunteerTokens, "questionnaire", "fill", "1",
		"--password", "pw",
		"--answer", "Species=oak",
		"--answer", "Height=12",
		"--point", "45.07,7.68",
	)
	require.NoError(t, err)
	assert.Equal(t, "Your answers were submitted. (record 1)\n", out)

	out, err = run(t, srv.URL, ownerTokens, "map")
	require.NoError(t, err)
	assert.Contains(t, out, "1 markers")
	assert.Contains(t, out, "#1 45.070000,7.680000")
	assert.Contains(t, out, "Species: oak")
	assert.Contains(t, out, "Height: 12")

	xlsx := filepath.Join(dir, "records.xlsx")
	out, err = run(t, srv.URL, ownerTokens, "data", "export", xlsx)
	require.NoError(t, err)
	assert.Equal(t, "Exported 1 records to "+xlsx+"\n", out)

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Species", "Height"}, rows[0][len(rows[0])-2:])

	out, err = run(t, srv.URL, ownerTokens, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Please log in")
	assert.NoFileExists(t, ownerTokens)

	_, err = run(t, srv.URL, ownerTokens, "questionnaire", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestFillDraftRepeatedLabels(t *testing.T) {
	filler := form.NewFiller(nil, 1)
	filler.Schema = model.Questionnaire{ID: 1, Elements: []model.FieldDef{
		{ID: 10, Label: "Note", FieldType: model.Text},
		{ID: 11, Label: "Count", FieldType: model.Number},
		{ID: 12, Label: "Note", FieldType: model.Text},
		{ID: 13, Label: "Where", FieldType: model.MapCoordinates},
	}}

	err := fillDraft(filler, []string{"Note=mossy", "Count= 3 "}, "45.07,7.68")
	require.NoError(t, err)
	assert.Equal(t, map[int]any{
		10: "mossy",
		11: 3.0,
		12: "mossy",
		13: geo.Point{Lat: 45.07, Lng: 7.68},
	}, filler.Draft.Values)

	err = fillDraft(filler, []string{"Note=mossy", "Colour=red"}, "")
	assert.EqualError(t, err, `no question labelled "Colour"`)
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in   string
		want geo.Point
		ok   bool
	}{
		{"45.07,7.68", geo.Point{Lat: 45.07, Lng: 7.68}, true},
		{" -12.5 , 130 ", geo.Point{Lat: -12.5, Lng: 130}, true},
		{"45.07", geo.Point{}, false},
		{"north,east", geo.Point{}, false},
		{"NaN,1", geo.Point{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoint(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
