package webapp

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// CleanPage allows users to clean the database by removing orphaned entries
type CleanPage struct {
	app.Compo
	running bool
	result  string
	jobID   string
	error   string
}

// Render renders the clean page
func (c *CleanPage) Render() app.UI {
	buttonText := "Clean Database Now"
	if c.running {
		buttonText = "Starting..."
	}

	return app.Div().
		Class("clean-page").
		Body(
			app.H2().Text("Database Cleanup"),
			app.P().Text("This tool will scan all presentations in the database and verify that their PDF files still exist on disk. Any database entries for missing files will be removed."),
			app.P().Text("It will also find PDF files in the presentation folder that are not in the database and import them."),

			app.Div().Class("warning").Body(
				app.P().Text("⚠️ Warning: This operation will permanently delete database entries for missing files. Make sure you have a backup if needed."),
			),

			app.Div().Class("clean-controls").Body(
				app.Button().
					Class("btn-danger").
					Disabled(c.running).
					OnClick(c.onCleanClick).
					Body(app.Text(buttonText)),
			),

			c.renderStatus(),
		)
}

// renderStatus renders the status section
func (c *CleanPage) renderStatus() app.UI {
	if c.running {
		return app.Div().Class("loading").Body(
			app.Text("Starting cleanup..."),
		)
	}

	if c.error != "" {
		return app.Div().Class("error").Body(
			app.Text("Error: " + c.error),
		)
	}

	if c.result != "" {
		return app.Div().Class("success").Body(
			app.P().Text(c.result),
			app.If(c.jobID != "", func() app.UI {
				return app.P().Body(
					app.Text("Track progress on the "),
					app.A().Href("/jobs").Text("Jobs page"),
					app.Text(". Job ID: "+c.jobID),
				)
			}),
		)
	}

	return app.Div()
}

// onCleanClick handles the clean button click
func (c *CleanPage) onCleanClick(ctx app.Context, e app.Event) {
	c.running = true
	c.result = ""
	c.jobID = ""
	c.error = ""

	c.runClean(ctx)
}

// runClean calls the API to trigger database cleaning
func (c *CleanPage) runClean(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/clean"), map[string]interface{}{
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
					c.running = false
					if status >= 200 && status < 300 {
						c.result = "Cleanup started."
						if jsonData.Truthy() {
							if msg := jsonData.Get("message"); msg.Truthy() {
								c.result = msg.String()
							}
							if jobID := jsonData.Get("jobId"); jobID.Truthy() {
								c.jobID = jobID.String()
							}
						}
					} else {
						c.error = fmt.Sprintf("Cleanup failed with status: %d", status)
					}
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			ctx.Dispatch(func(ctx app.Context) {
				c.running = false
				c.error = "Network error: Could not connect to server"
			})
			return nil
		}))
	})
}
