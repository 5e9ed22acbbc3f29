package routes

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/mbolis/geo-survey/app"
	"github.com/mbolis/geo-survey/geo"
	"github.com/mbolis/geo-survey/httpx"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/model"
	"github.com/mbolis/geo-survey/routes/middlewares"
)

const defaultNearbyDistance = 500.0

// ListData answers with the records of the caller's questionnaires.
// end_date is inclusive: it covers the whole day.
func ListData(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.CurrentUser(r.Context())

		skip, limit, ok := pagination(w, r)
		if !ok {
			return
		}

		query := strings.Builder{}
		query.WriteString(`
			SELECT ` + dataObjectColumns + `
			FROM data_object d
			INNER JOIN questionnaire q ON (q.id = d.questionnaire_id)
			WHERE q.owner_id = ?`)
		args := []any{user.ID}

		params := r.URL.Query()
		if v := params.Get("questionnaire_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.query.questionnaire_id", "questionnaire_id must be an integer")
				return
			}
			query.WriteString(" AND d.questionnaire_id = ?")
			args = append(args, id)
		}
		if v := params.Get("start_date"); v != "" {
			start, err := time.Parse(time.DateOnly, v)
			if err != nil {
				httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.query.start_date", "start_date must be YYYY-MM-DD")
				return
			}
			query.WriteString(" AND d.submission_date >= ?")
			args = append(args, start.UTC())
		}
		if v := params.Get("end_date"); v != "" {
			end, err := time.Parse(time.DateOnly, v)
			if err != nil {
				httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.query.end_date", "end_date must be YYYY-MM-DD")
				return
			}
			query.WriteString(" AND d.submission_date < ?")
			args = append(args, end.UTC().AddDate(0, 0, 1))
		}
		query.WriteString(" ORDER BY d.id LIMIT ? OFFSET ?")
		args = append(args, limit, skip)

		objs := []model.DataObject{}
		err := app.SelectContext(r.Context(), &objs, query.String(), args...)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_data_objects", err)
			return
		}

		render.JSON(w, r, objs)
	}
}

func GetData(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataObjectId, ok := urlID(w, r)
		if !ok {
			return
		}
		user, _ := middlewares.CurrentUser(r.Context())

		obj, err := getDataObject(r.Context(), app.DB, dataObjectId)
		if err != nil {
			httpx.LogNotFound(w, r, "get_data_object", "DataObject", dataObjectId)
			return
		}

		var ownerId int
		err = app.GetContext(r.Context(), &ownerId, `SELECT owner_id FROM questionnaire WHERE id = ?`, obj.QuestionnaireID)
		if err != nil || ownerId != user.ID {
			httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "get_data_object.owner", "Not authorized to access this data object")
			return
		}

		render.JSON(w, r, obj)
	}
}

// UpdateData only ever changes additional_info.
func UpdateData(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataObjectId, ok := urlID(w, r)
		if !ok {
			return
		}
		user, _ := middlewares.CurrentUser(r.Context())

		update := model.DataObjectUpdate{}
		err := render.DecodeJSON(r.Body, &update)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}

		tx, err := app.BeginTxx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		obj, err := getOwnedDataObject(r.Context(), tx, dataObjectId, user.ID)
		if errors.Is(err, errNotFound) {
			httpx.LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, "update_data_object", "DataObject not found or not authorized to update")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_data_object.get", err)
			return
		}

		if update.AdditionalInfo != nil {
			_, err = tx.ExecContext(r.Context(), `UPDATE data_object SET additional_info = ? WHERE id = ?`, update.AdditionalInfo, dataObjectId)
			if err != nil {
				httpx.LogInternalError(w, r, "db.update_data_object", err)
				return
			}
			obj.AdditionalInfo = update.AdditionalInfo
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_data_object.commit", err)
			return
		}

		render.JSON(w, r, obj)
	}
}

// MergeData combines several records into a new one stored under the target
// questionnaire. The sources are left untouched.
func MergeData(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.CurrentUser(r.Context())

		req := model.MergeRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}
		if len(req.DataObjectIDs) < 2 {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "merge.validate", "At least two DataObjects are required for merging")
			return
		}

		tx, err := app.BeginTxx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var ownerId int
		err = tx.GetContext(r.Context(), &ownerId, `SELECT owner_id FROM questionnaire WHERE id = ?`, req.TargetQuestionnaireID)
		if err != nil || ownerId != user.ID {
			httpx.LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, "merge.target", "Target questionnaire not found or not authorized")
			return
		}

		sources := make([]model.DataObject, 0, len(req.DataObjectIDs))
		for _, id := range req.DataObjectIDs {
			obj, err := getOwnedDataObject(r.Context(), tx, id, user.ID)
			if errors.Is(err, errNotFound) {
				httpx.LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, "merge.source", "DataObject %d not found or not authorized", id)
				return
			}
			if err != nil {
				httpx.LogInternalError(w, r, "db.merge.source", err)
				return
			}
			sources = append(sources, obj)
		}

		merged := mergeDataObjects(req, sources, user.Name)

		dataObjectId, err := insertDataObject(r.Context(), tx, req.TargetQuestionnaireID, merged)
		if err != nil {
			httpx.LogInternalError(w, r, "db.merge.insert", err)
			return
		}
		obj, err := getDataObject(r.Context(), tx, dataObjectId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.merge.reload", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.merge.commit", err)
			return
		}

		log.WithFields(log.Fields{
			"sources": req.DataObjectIDs,
			"merged":  dataObjectId,
			"user":    user.Name,
		}).Info("data objects merged")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, obj)
	}
}

// NearbyData suggests the caller's records lying within distance_m meters
// of the source record, nearest first.
func NearbyData(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.CurrentUser(r.Context())

		params := r.URL.Query()
		sourceId, err := strconv.Atoi(params.Get("source_data_object_id"))
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.query.source_data_object_id", "source_data_object_id must be an integer")
			return
		}
		distance := defaultNearbyDistance
		if v := params.Get("distance_m"); v != "" {
			distance, err = strconv.ParseFloat(v, 64)
			if err != nil || distance < 0 {
				httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.query.distance_m", "distance_m must be a non-negative number")
				return
			}
		}
		skip, limit, ok := pagination(w, r)
		if !ok {
			return
		}

		source, err := getOwnedDataObject(r.Context(), app.DB, sourceId, user.ID)
		if errors.Is(err, errNotFound) {
			httpx.LogNotFound(w, r, "nearby.source", "Source DataObject", sourceId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.nearby.source", err)
			return
		}
		origin, ok := source.Point()
		if !ok {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "nearby.source", "Source DataObject has no coordinates")
			return
		}

		candidates := []model.DataObject{}
		err = app.SelectContext(r.Context(), &candidates, `
			SELECT `+dataObjectColumns+`
			FROM data_object d
			INNER JOIN questionnaire q ON (q.id = d.questionnaire_id)
			WHERE q.owner_id = ?
				AND d.id <> ?
				AND d.latitude IS NOT NULL
				AND d.longitude IS NOT NULL
			ORDER BY d.id`,
			user.ID,
			sourceId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.nearby.candidates", err)
			return
		}

		render.JSON(w, r, nearby(origin, candidates, distance, skip, limit))
	}
}

func nearby(origin geo.Point, candidates []model.DataObject, distance float64, skip, limit int) []model.DataObject {
	type hit struct {
		obj model.DataObject
		d   float64
	}
	var hits []hit
	for _, c := range candidates {
		p, ok := c.Point()
		if !ok {
			continue
		}
		if d := geo.Distance(origin, p); d <= distance {
			hits = append(hits, hit{c, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].d < hits[j].d })

	out := []model.DataObject{}
	for i := skip; i < len(hits) && len(out) < limit; i++ {
		out = append(out, hits[i].obj)
	}
	return out
}
