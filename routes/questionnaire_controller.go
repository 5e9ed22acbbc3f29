package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/geo-survey/app"
	"github.com/mbolis/geo-survey/httpx"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/model"
	"github.com/mbolis/geo-survey/routes/middlewares"
)

// PasswordHeader carries the password of a protected questionnaire.
const PasswordHeader = "X-Questionnaire-Password"

func CreateQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.CurrentUser(r.Context())

		create := model.QuestionnaireCreate{}
		err := render.DecodeJSON(r.Body, &create)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}
		if strings.TrimSpace(create.Title) == "" {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "questionnaire.validate", "title is required")
			return
		}
		for i, e := range create.Elements {
			if strings.TrimSpace(e.Label) == "" {
				httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "questionnaire.validate", "elements[%d]: label is required", i)
				return
			}
			if !e.FieldType.Valid() {
				httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "questionnaire.validate", "elements[%d]: unknown field type %q", i, e.FieldType)
				return
			}
		}
		if create.Password != nil && *create.Password == "" {
			create.Password = nil
		}

		tx, err := app.BeginTxx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var questionnaireId int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO questionnaire (owner_id, title, description, password) VALUES (?, ?, ?, ?)
			RETURNING id`,
			user.ID,
			create.Title,
			create.Description,
			create.Password,
		).Scan(&questionnaireId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_questionnaire", err)
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO question_element (questionnaire_id, position, label, field_type)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_questionnaire.elements.prepare", err)
			return
		}
		defer stmt.Close()

		for i, e := range create.Elements {
			_, err := stmt.ExecContext(r.Context(), questionnaireId, i, e.Label, e.FieldType)
			if err != nil {
				httpx.LogInternalError(w, r, "db.insert_questionnaire.elements.insert", err)
				return
			}
		}

		questionnaire, err := getQuestionnaire(r.Context(), tx, questionnaireId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_questionnaire.reload", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_questionnaire.commit", err)
			return
		}

		log.Infof("questionnaire %d created by %s", questionnaireId, user.Name)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, questionnaire)
	}
}

// ListQuestionnaires answers with the questionnaires owned by the caller.
func ListQuestionnaires(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.CurrentUser(r.Context())

		skip, limit, ok := pagination(w, r)
		if !ok {
			return
		}

		questionnaires := []model.Questionnaire{}
		err := app.SelectContext(r.Context(), &questionnaires, `
			SELECT id, owner_id, title, description, password
			FROM questionnaire
			WHERE owner_id = ?
			ORDER BY id
			LIMIT ? OFFSET ?`,
			user.ID,
			limit,
			skip,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questionnaires", err)
			return
		}

		err = loadElements(r.Context(), app.DB, questionnaires)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questionnaires.elements", err)
			return
		}

		render.JSON(w, r, questionnaires)
	}
}

// GetQuestionnaire is public, but protected questionnaires need the password
// header unless the caller owns them.
func GetQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionnaireId, ok := urlID(w, r)
		if !ok {
			return
		}

		questionnaire, err := getQuestionnaire(r.Context(), app.DB, questionnaireId)
		if errors.Is(err, errNotFound) {
			httpx.LogNotFound(w, r, "get_questionnaire", "Questionnaire", questionnaireId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questionnaire", err)
			return
		}

		user, ok := middlewares.CurrentUser(r.Context())
		isOwner := ok && user.ID == questionnaire.OwnerID
		if !isOwner && !checkPassword(w, r, questionnaire,
			"Password required to view this questionnaire",
			"Invalid password for this questionnaire",
		) {
			return
		}

		render.JSON(w, r, questionnaire)
	}
}

func DeleteQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionnaireId, ok := urlID(w, r)
		if !ok {
			return
		}
		user, _ := middlewares.CurrentUser(r.Context())

		tx, err := app.BeginTxx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var ownerId int
		err = tx.GetContext(r.Context(), &ownerId, `SELECT owner_id FROM questionnaire WHERE id = ?`, questionnaireId)
		if err != nil {
			httpx.LogNotFound(w, r, "delete_questionnaire", "Questionnaire", questionnaireId)
			return
		}
		if ownerId != user.ID {
			httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "delete_questionnaire.owner", "Not authorized to delete this questionnaire")
			return
		}

		for _, stmt := range []string{
			`DELETE FROM data_object WHERE questionnaire_id = ?`,
			`DELETE FROM question_element WHERE questionnaire_id = ?`,
			`DELETE FROM questionnaire WHERE id = ?`,
		} {
			_, err = tx.ExecContext(r.Context(), stmt, questionnaireId)
			if err != nil {
				httpx.LogInternalError(w, r, "db.delete_questionnaire", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_questionnaire.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// SubmitQuestionnaire stores one filled-in form as a data object.
func SubmitQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionnaireId, ok := urlID(w, r)
		if !ok {
			return
		}

		submission := model.DataObjectCreate{}
		err := render.DecodeJSON(r.Body, &submission)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}
		if submission.DataValues == nil {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "submission.validate", "data_values is required")
			return
		}

		tx, err := app.BeginTxx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var questionnaire model.Questionnaire
		err = tx.GetContext(r.Context(), &questionnaire, `
			SELECT id, owner_id, title, description, password
			FROM questionnaire
			WHERE id = ?`,
			questionnaireId,
		)
		if err != nil {
			httpx.LogNotFound(w, r, "submit_questionnaire", "Questionnaire", questionnaireId)
			return
		}
		if !checkPassword(w, r, questionnaire,
			"Password required for this questionnaire submission",
			"Incorrect password for questionnaire submission",
		) {
			return
		}

		dataObjectId, err := insertDataObject(r.Context(), tx, questionnaireId, submission)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_data_object", err)
			return
		}
		dataObject, err := getDataObject(r.Context(), tx, dataObjectId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_data_object.reload", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_data_object.commit", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, dataObject)
	}
}

// checkPassword answers 401 when a protected questionnaire is requested
// without password, and 403 when the password is wrong.
func checkPassword(w http.ResponseWriter, r *http.Request, q model.Questionnaire, missing, wrong string) bool {
	if !q.Protected() {
		return true
	}

	password := r.Header.Get(PasswordHeader)
	if password == "" {
		httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "questionnaire.password", missing)
		return false
	}
	if password != *q.Password {
		httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "questionnaire.password", wrong)
		return false
	}
	return true
}

func urlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
		return 0, false
	}
	return id, true
}

// pagination reads skip and limit, defaulting to the first 100 rows.
func pagination(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	skip, ok = queryInt(w, r, "skip", 0)
	if !ok {
		return
	}
	limit, ok = queryInt(w, r, "limit", 100)
	return
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.query."+name, "%s must be a non-negative integer", name)
		return 0, false
	}
	return n, true
}
