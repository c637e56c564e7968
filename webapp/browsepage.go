package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// BrowsePage lists every imported presentation
type BrowsePage struct {
	app.Compo
	presentations []Presentation
	loading       bool
	error         string
}

// OnMount is called when the component is mounted
func (b *BrowsePage) OnMount(ctx app.Context) {
	b.loading = true
	b.fetchPresentations(ctx)
}

// fetchPresentations fetches all presentations from the API
func (b *BrowsePage) fetchPresentations(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/presentations"))

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

				var presentations []Presentation
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &presentations); err != nil {
						b.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						b.presentations = presentations
					}
					b.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				b.error = "Network error"
				b.loading = false
			})
			return nil
		}))
	})
}

// onDelete removes a presentation from the database
func (b *BrowsePage) onDelete(ulid string) func(ctx app.Context, e app.Event) {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()

		ctx.Async(func() {
			url := BuildAPIURL("/api/presentation/" + ulid)
			res := app.Window().Call("fetch", url, map[string]interface{}{
				"method": "DELETE",
			})

			res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				ctx.Dispatch(func(ctx app.Context) {
					b.loading = true
					b.fetchPresentations(ctx)
				})
				return nil
			}))
		})
	}
}

// Render renders the browse page
func (b *BrowsePage) Render() app.UI {
	var content app.UI

	if b.loading {
		content = app.Div().Class("loading").Body(app.Text("Loading..."))
	} else if b.error != "" {
		content = app.Div().Class("error").Body(app.Text("Error: " + b.error))
	} else if len(b.presentations) == 0 {
		content = app.Div().Class("no-results").Body(app.Text("No presentations found."))
	} else {
		content = app.Table().Class("presentation-table").Body(
			app.THead().Body(
				app.Tr().Body(
					app.Th().Text("Name"),
					app.Th().Text("Slides"),
					app.Th().Text("Imported"),
					app.Th().Text("Path"),
					app.Th().Text(""),
				),
			),
			app.TBody().Body(
				app.Range(b.presentations).Slice(func(i int) app.UI {
					return b.renderRow(b.presentations[i])
				}),
			),
		)
	}

	return app.Div().
		Class("browse-page").
		Body(
			app.H2().Text("All Presentations"),
			app.P().Class("page-info").Text(
				fmt.Sprintf("%d presentations in the database", len(b.presentations)),
			),
			content,
		)
}

// renderRow renders one presentation table row
func (b *BrowsePage) renderRow(p Presentation) app.UI {
	return app.Tr().Body(
		app.Td().Body(
			app.A().
				Href("/present?id="+p.ULID).
				Class("presentation-link").
				Body(app.Text(p.Name)),
		),
		app.Td().Text(fmt.Sprintf("%d", p.PageCount)),
		app.Td().Text(p.ImportTime),
		app.Td().Class("presentation-path").Text(p.Path),
		app.Td().Body(
			app.Button().
				Class("btn-danger btn-small").
				OnClick(b.onDelete(p.ULID)).
				Body(app.Text("Delete")),
		),
	)
}
