package firebase

import (
	firebase "firebase.google.com/go/v4"

	"github.com/mdayat/jobtrack/internal/services"
)

const DefaultAppName = "[DEFAULT]"

// App wraps the Admin SDK app built for a web app config.
type App struct {
	name string
	cfg  services.Config
	fb   *firebase.App
}

func (a *App) Name() string {
	return a.name
}

func (a *App) Options() services.Config {
	return a.cfg
}

func (a *App) Firebase() *firebase.App {
	return a.fb
}
