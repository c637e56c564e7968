package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// AboutInfo represents the about information from the API
type AboutInfo struct {
	Version          string `json:"version"`
	Renderer         string `json:"renderer"`
	NotesPosition    string `json:"notesPosition"`
	CacheMaxMB       int    `json:"cacheMaxMB"`
	RenderThreads    int    `json:"renderThreads"`
	DatabaseType     string `json:"databaseType"`
	DatabaseHost     string `json:"databaseHost"`
	DatabasePort     string `json:"databasePort"`
	DatabaseName     string `json:"databaseName"`
	PresentationPath string `json:"presentationPath"`
}

// AboutPage displays information about the application
type AboutPage struct {
	app.Compo
	aboutInfo AboutInfo
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (a *AboutPage) OnMount(ctx app.Context) {
	a.loading = true
	a.fetchAboutInfo(ctx)
}

// fetchAboutInfo fetches the about information from the API
func (a *AboutPage) fetchAboutInfo(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/about"))

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]
				jsonStr := app.Window().Get("JSON").Call("stringify", jsonData).String()

				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &a.aboutInfo); err != nil {
						a.error = fmt.Sprintf("Failed to parse response: %v", err)
					}
					a.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				a.error = "Network error"
				a.loading = false
			})
			return nil
		}))
	})
}

// Render renders the about page
func (a *AboutPage) Render() app.UI {
	if a.loading {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About goPresent"),
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	if a.error != "" {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About goPresent"),
			app.Div().Class("error").Body(app.Text("Error: "+a.error)),
		)
	}

	return app.Div().Class("about-page").Body(
		app.H2().Text("About goPresent"),
		app.Div().Class("about-content").Body(
			app.Div().Class("about-section").Body(
				app.H3().Text("Application Information"),
				app.Div().Class("info-grid").Body(
					a.renderInfoItem("Version", a.aboutInfo.Version),
					a.renderInfoItem("Database", a.getDatabaseDisplay()),
					a.renderInfoItem("PDF Renderer", a.getRendererDisplay()),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Rendering Configuration"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("PDF Renderer: "),
						app.Text(a.getRendererDisplay()),
					),
					app.P().Body(
						app.Strong().Text("Render Threads: "),
						app.Text(fmt.Sprintf("%d", a.aboutInfo.RenderThreads)),
					),
					app.P().Body(
						app.Strong().Text("Page Cache Limit: "),
						app.Text(a.getCacheDisplay()),
					),
					app.P().Body(
						app.Strong().Text("Notes Position: "),
						app.Text(a.getNotesDisplay()),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Database Configuration"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Database Type: "),
						app.Text(a.getDatabaseDisplay()),
					),
					app.P().Body(
						app.Strong().Text("Host: "),
						app.Text(a.aboutInfo.DatabaseHost),
					),
					app.P().Body(
						app.Strong().Text("Port: "),
						app.Text(a.aboutInfo.DatabasePort),
					),
					app.P().Body(
						app.Strong().Text("Database Name: "),
						app.Text(a.aboutInfo.DatabaseName),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Presentation Storage"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Presentation Folder: "),
						app.Text(a.aboutInfo.PresentationPath),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("About goPresent"),
				app.P().Text("goPresent is a PDF presentation viewer built with Go and WebAssembly."),
				app.P().Text("It caches rendered slides in memory and prefetches around the current slide so navigation stays fast even for large decks."),
			),
		),
	)
}

// renderInfoItem creates an info item display
func (a *AboutPage) renderInfoItem(label, value string) app.UI {
	return app.Div().Class("info-item").Body(
		app.Div().Class("info-label").Body(app.Text(label)),
		app.Div().Class("info-value").Body(app.Text(value)),
	)
}

// getDatabaseDisplay returns a user-friendly database display name
func (a *AboutPage) getDatabaseDisplay() string {
	switch a.aboutInfo.DatabaseType {
	case "postgres":
		return "PostgreSQL"
	case "cockroachdb":
		return "CockroachDB"
	case "sqlite":
		return "SQLite"
	default:
		return a.aboutInfo.DatabaseType
	}
}

// getRendererDisplay returns a user-friendly renderer name
func (a *AboutPage) getRendererDisplay() string {
	switch a.aboutInfo.Renderer {
	case "", "fitz":
		return "MuPDF (fitz)"
	case "pdfium":
		return "PDFium"
	default:
		return a.aboutInfo.Renderer
	}
}

// getCacheDisplay returns the cache limit as a user-friendly string
func (a *AboutPage) getCacheDisplay() string {
	if a.aboutInfo.CacheMaxMB < 0 {
		return "Unlimited"
	}
	return fmt.Sprintf("%d MB", a.aboutInfo.CacheMaxMB)
}

// getNotesDisplay returns the notes position as a user-friendly string
func (a *AboutPage) getNotesDisplay() string {
	switch a.aboutInfo.NotesPosition {
	case "", "none":
		return "None"
	case "left":
		return "Left half of each page"
	case "right":
		return "Right half of each page"
	default:
		return a.aboutInfo.NotesPosition
	}
}
