package app

import (
	"github.com/go-chi/oauth"
	"github.com/jmoiron/sqlx"
	"github.com/mbolis/geo-survey/config"
)

// App bundles what every HTTP handler needs.
type App struct {
	*sqlx.DB
	*oauth.BearerServer
	config.Config
}
