package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// HomePage displays the most recently imported presentations
type HomePage struct {
	app.Compo
	presentations []Presentation
	loading       bool
	error         string
}

// OnMount is called when the component is mounted
func (h *HomePage) OnMount(ctx app.Context) {
	h.loading = true
	h.fetchPresentations(ctx)
}

// fetchPresentations fetches the latest presentations
func (h *HomePage) fetchPresentations(ctx app.Context) {
	ctx.Async(func() {
		url := BuildAPIURL("/api/presentations/latest?limit=20")
		res := app.Window().Call("fetch", url)

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
						h.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						h.presentations = presentations
					}
					h.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				h.error = "Network error"
				h.loading = false
			})
			return nil
		}))
	})
}

// Render renders the home page
func (h *HomePage) Render() app.UI {
	var content app.UI

	if h.loading {
		content = app.Div().Class("loading").Body(app.Text("Loading..."))
	} else if h.error != "" {
		content = app.Div().Class("error").Body(app.Text("Error: " + h.error))
	} else if len(h.presentations) == 0 {
		content = app.Div().Class("no-results").Body(
			app.Text("No presentations found. Drop PDF files into the presentation folder and run an import."),
		)
	} else {
		content = app.Div().Class("presentation-grid").Body(
			app.Range(h.presentations).Slice(func(i int) app.UI {
				return &PresentationCard{Presentation: h.presentations[i]}
			}),
		)
	}

	return app.Div().
		Class("home-page").
		Body(
			app.H2().Text("Latest Presentations"),
			content,
		)
}

// PresentationCard displays a single presentation card
type PresentationCard struct {
	app.Compo
	Presentation Presentation
}

// Render renders the presentation card
func (p *PresentationCard) Render() app.UI {
	presentURL := "/present?id=" + p.Presentation.ULID
	thumbURL := BuildAPIURL(fmt.Sprintf("/api/presentation/%s/thumb/0", p.Presentation.ULID))

	progress := ""
	if p.Presentation.CurrentPage > 0 {
		progress = fmt.Sprintf("Resumes at slide %d of %d", p.Presentation.CurrentPage+1, p.Presentation.PageCount)
	} else {
		progress = fmt.Sprintf("%d slides", p.Presentation.PageCount)
	}

	return app.Div().
		Class("presentation-card").
		Body(
			app.A().Href(presentURL).Class("presentation-thumb-link").Body(
				app.Img().
					Class("presentation-thumb").
					Src(thumbURL).
					Alt(p.Presentation.Name),
			),
			app.Div().Class("presentation-info").Body(
				app.H3().Text(p.Presentation.Name),
				app.P().
					Class("presentation-pages").
					Text(progress),
				app.P().
					Class("presentation-date").
					Text("Imported: "+p.Presentation.ImportTime),
				app.Div().Class("presentation-actions").Body(
					app.A().
						Href(presentURL).
						Class("presentation-link").
						Body(app.Text("▶ Present")),
					app.A().
						Href(BuildAPIURL("/presentation/download/"+p.Presentation.ULID)).
						Class("presentation-link").
						Target("_blank").
						Body(app.Text("Download PDF")),
				),
			),
		)
}
