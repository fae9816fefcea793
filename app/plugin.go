package app

// Plugin bundles component registration, resources and systems.
type Plugin interface {
	Build(app *App) error
}

type PluginFunc func(app *App) error

func (f PluginFunc) Build(app *App) error {
	return f(app)
}
