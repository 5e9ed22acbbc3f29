package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/geo-survey/app"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	middleware.DefaultLogger = middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Logger, NoColor: true})

	auth := middlewares.Authenticated(app)
	optionalAuth := middlewares.OptionalAuth(app)

	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer, middlewares.Cors)

	root.Get("/ping", Ping)

	root.Route("/auth", func(r chi.Router) {
		r.Post("/token", Login(app))
		r.Post("/refresh", Refresh(app))
	})

	root.Route("/users", func(r chi.Router) {
		r.Post("/", CreateUser(app))
		r.With(auth).Get("/me", Me(app))
		r.With(auth).Get("/me/favorites/", ListFavorites(app))
		r.With(auth).Post(`/me/favorites/{id:^\d+$}`, AddFavorite(app))
		r.With(auth).Delete(`/me/favorites/{id:^\d+$}`, RemoveFavorite(app))
	})

	root.Route("/questionnaires", func(r chi.Router) {
		r.With(auth).Post("/", CreateQuestionnaire(app))
		r.With(auth).Get("/", ListQuestionnaires(app))
		r.With(optionalAuth).Get(`/{id:^\d+$}`, GetQuestionnaire(app))
		r.With(auth).Delete(`/{id:^\d+$}`, DeleteQuestionnaire(app))
		r.Post(`/{id:^\d+$}/submit`, SubmitQuestionnaire(app))
	})

	root.Route("/data", func(r chi.Router) {
		r.Use(auth)

		r.Get("/", ListData(app))
		r.Post("/merge/", MergeData(app))
		r.Get("/nearby_suggestions/", NearbyData(app))
		r.Get(`/{id:^\d+$}`, GetData(app))
		r.Put(`/{id:^\d+$}`, UpdateData(app))
	})

	return root
}
