package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/mbolis/geo-survey/app"
	"github.com/mbolis/geo-survey/httpx"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/model"
	"github.com/mbolis/geo-survey/routes/middlewares"
)

// CreateUser registers a new active user.
func CreateUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		create := model.UserCreate{}
		err := render.DecodeJSON(r.Body, &create)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}
		create.Name = strings.TrimSpace(create.Name)
		if create.Name == "" || create.Password == "" {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "user.validate", "name and password are required")
			return
		}

		var exists bool
		err = app.GetContext(r.Context(), &exists, `SELECT EXISTS (SELECT 1 FROM user WHERE name = ?)`, create.Name)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_user", err)
			return
		}
		if exists {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "user.exists", "Username already registered")
			return
		}

		hash, err := httpx.HashPassword(create.Password)
		if err != nil {
			httpx.LogInternalError(w, r, "user.hash_password", err)
			return
		}

		user := model.User{Name: create.Name, IsActive: true}
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO user (name, password_hash, is_active) VALUES (?, ?, ?)
			RETURNING id`,
			user.Name,
			hash,
			user.IsActive,
		).Scan(&user.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_user", err)
			return
		}

		log.Infof("user %s registered", user.Name)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, user)
	}
}

func Me(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.CurrentUser(r.Context())
		render.JSON(w, r, user)
	}
}

// AddFavorite marks one of the user's own records as favorite and answers
// with the updated favorites. Adding twice is harmless.
func AddFavorite(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataObjectId, ok := urlID(w, r)
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

		_, err = getOwnedDataObject(r.Context(), tx, dataObjectId, user.ID)
		if errors.Is(err, errNotFound) {
			httpx.LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, "add_favorite", "DataObject not found or not accessible to user")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.add_favorite.get", err)
			return
		}

		_, err = tx.ExecContext(r.Context(), `INSERT OR IGNORE INTO favorite (user_id, data_object_id) VALUES (?, ?)`, user.ID, dataObjectId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.add_favorite", err)
			return
		}

		favorites, err := listFavorites(r.Context(), tx, user.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.list_favorites", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.add_favorite.commit", err)
			return
		}

		render.JSON(w, r, model.UserFavorites{User: user, FavoriteDataObjects: favorites})
	}
}

func ListFavorites(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.CurrentUser(r.Context())

		favorites, err := listFavorites(r.Context(), app.DB, user.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.list_favorites", err)
			return
		}
		render.JSON(w, r, favorites)
	}
}

func RemoveFavorite(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataObjectId, ok := urlID(w, r)
		if !ok {
			return
		}
		user, _ := middlewares.CurrentUser(r.Context())

		res, err := app.ExecContext(r.Context(), `DELETE FROM favorite WHERE user_id = ? AND data_object_id = ?`, user.ID, dataObjectId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.remove_favorite", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.remove_favorite.rows_affected", err)
			return
		}
		if n == 0 {
			httpx.LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, "remove_favorite", "DataObject not found or not in user's favorites")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func Ping(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"ping": "pong"})
}
