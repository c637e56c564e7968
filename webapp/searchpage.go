package webapp

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// SearchPage provides full-text search over slide notes
type SearchPage struct {
	app.Compo
	searchTerm string
	results    []NoteResult
	loading    bool
	error      string
	searched   bool
}

// OnMount is called when the component is mounted
func (s *SearchPage) OnMount(ctx app.Context) {
	// Check if there's a search term in the URL
	urlPath := ctx.Page().URL()
	if urlObj, err := url.Parse(urlPath.String()); err == nil {
		if term := urlObj.Query().Get("term"); term != "" {
			s.searchTerm = term
			s.performSearch(ctx)
		}
	}
}

// Render renders the search page
func (s *SearchPage) Render() app.UI {
	var content app.UI

	if s.loading {
		content = app.Div().Class("loading").Body(app.Text("Searching..."))
	} else if s.error != "" {
		content = app.Div().Class("error").Body(app.Text("Error: " + s.error))
	} else if s.searched && len(s.results) == 0 {
		content = app.Div().Class("no-results").Body(app.Text("No results found for: " + s.searchTerm))
	} else if s.searched && len(s.results) > 0 {
		content = app.Div().Class("search-results").Body(
			app.H3().Text(fmt.Sprintf("Found %d matching slides", len(s.results))),
			app.Div().Class("result-list").Body(
				app.Range(s.results).Slice(func(i int) app.UI {
					return &SearchResultItem{Result: s.results[i]}
				}),
			),
		)
	}

	return app.Div().
		Class("search-page").
		Body(
			app.H2().Text("Search Slide Notes"),
			app.Div().Class("search-form").Body(
				app.Input().
					Type("text").
					Class("search-input").
					Placeholder("Enter search term...").
					Value(s.searchTerm).
					OnInput(func(ctx app.Context, e app.Event) {
						s.searchTerm = ctx.JSSrc().Get("value").String()
					}).
					OnKeyDown(func(ctx app.Context, e app.Event) {
						if e.Get("key").String() == "Enter" {
							s.performSearch(ctx)
						}
					}),
				app.Button().
					Class("search-button").
					Text("Search").
					OnClick(func(ctx app.Context, e app.Event) {
						s.performSearch(ctx)
					}),
			),
			content,
		)
}

// performSearch executes the search
func (s *SearchPage) performSearch(ctx app.Context) {
	if s.searchTerm == "" {
		s.error = "Please enter a search term"
		return
	}

	s.loading = true
	s.error = ""
	s.searched = false

	ctx.Async(func() {
		encodedTerm := url.QueryEscape(s.searchTerm)
		searchURL := BuildAPIURL(fmt.Sprintf("/api/search?term=%s", encodedTerm))

		res := app.Window().Call("fetch", searchURL)

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			if response.Get("status").Int() == 204 {
				ctx.Dispatch(func(ctx app.Context) {
					s.results = nil
					s.loading = false
					s.searched = true
				})
				return nil
			}

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]
				jsonStr := app.Window().Get("JSON").Call("stringify", jsonData).String()

				var results []NoteResult
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &results); err != nil {
						s.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						s.results = results
						s.searched = true
					}
					s.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				s.error = "Network error"
				s.loading = false
			})
			return nil
		}))
	})
}

// SearchResultItem displays a single matching slide
type SearchResultItem struct {
	app.Compo
	Result NoteResult
}

// Render renders the search result item
func (s *SearchResultItem) Render() app.UI {
	presentURL := fmt.Sprintf("/present?id=%s&page=%d", s.Result.PresentationULID, s.Result.Page)
	thumbURL := BuildAPIURL(fmt.Sprintf("/api/presentation/%s/thumb/%d",
		s.Result.PresentationULID, s.Result.Page))

	excerpt := s.Result.Text
	if len(excerpt) > 240 {
		excerpt = excerpt[:240] + "…"
	}

	return app.Div().
		Class("search-result-item").
		Body(
			app.A().Href(presentURL).Class("result-thumb-link").Body(
				app.Img().Class("result-thumb").Src(thumbURL).Alt(s.Result.PresentationName),
			),
			app.Div().Class("result-info").Body(
				app.H4().Body(
					app.A().Href(presentURL).Text(s.Result.PresentationName),
				),
				app.P().Class("result-page").Text(fmt.Sprintf("Slide %d", s.Result.Page+1)),
				app.P().Class("result-excerpt").Text(excerpt),
			),
		)
}
