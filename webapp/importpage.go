package webapp

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// ImportPage allows users to trigger the import process manually
type ImportPage struct {
	app.Compo
	running bool
	result  string
	jobID   string
	error   string
}

// Render renders the import page
func (i *ImportPage) Render() app.UI {
	buttonText := "Run Import Now"
	if i.running {
		buttonText = "Starting..."
	}

	return app.Div().
		Class("import-page").
		Body(
			app.H2().Text("Manual Import"),
			app.P().Text("Click the button below to run the presentation import now. This will scan the presentation folder and import any new PDF files."),

			app.Div().Class("import-controls").Body(
				app.Button().
					Class("btn-primary").
					Disabled(i.running).
					OnClick(i.onImportClick).
					Body(app.Text(buttonText)),
			),

			i.renderStatus(),
		)
}

// renderStatus renders the status section
func (i *ImportPage) renderStatus() app.UI {
	if i.running {
		return app.Div().Class("loading").Body(
			app.Text("Starting import..."),
		)
	}

	if i.error != "" {
		return app.Div().Class("error").Body(
			app.Text("Error: " + i.error),
		)
	}

	if i.result != "" {
		return app.Div().Class("success").Body(
			app.P().Text(i.result),
			app.If(i.jobID != "", func() app.UI {
				return app.P().Body(
					app.Text("Track progress on the "),
					app.A().Href("/jobs").Text("Jobs page"),
					app.Text(". Job ID: "+i.jobID),
				)
			}),
		)
	}

	return app.Div()
}

// onImportClick handles the import button click
func (i *ImportPage) onImportClick(ctx app.Context, e app.Event) {
	i.running = true
	i.result = ""
	i.jobID = ""
	i.error = ""

	i.runImport(ctx)
}

// runImport calls the API to trigger the import
func (i *ImportPage) runImport(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/import"), map[string]interface{}{
			"method": "POST",
		})

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]

				ctx.Dispatch(func(ctx app.Context) {
					i.running = false
					if status >= 200 && status < 300 {
						i.result = "Import started."
						if jsonData.Truthy() {
							if msg := jsonData.Get("message"); msg.Truthy() {
								i.result = msg.String()
							}
							if jobID := jsonData.Get("jobId"); jobID.Truthy() {
								i.jobID = jobID.String()
							}
						}
					} else {
						i.error = fmt.Sprintf("Import failed with status: %d", status)
					}
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			ctx.Dispatch(func(ctx app.Context) {
				i.running = false
				i.error = "Network error: Could not connect to server"
			})
			return nil
		}))
	})
}
