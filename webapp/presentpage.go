package webapp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// slideNote mirrors the note payload from the API
type slideNote struct {
	Page int    `json:"Page"`
	Text string `json:"Text"`
}

// PresentPage shows a presentation full screen with keyboard navigation.
// The deck is selected with the ?id= query parameter
type PresentPage struct {
	app.Compo
	ulid          string
	name          string
	page          int
	requestedPage int
	pageCount     int
	noteText      string
	showNotes     bool
	loading       bool
	error         string
	keydownFn     app.Func
	resizeFn      app.Func
	frameWidth    int
	frameHeight   int
}

// OnMount is called when the component is mounted
func (p *PresentPage) OnMount(ctx app.Context) {
	p.loading = true

	p.requestedPage = -1
	urlPath := ctx.Page().URL()
	if urlObj, err := url.Parse(urlPath.String()); err == nil {
		p.ulid = urlObj.Query().Get("id")
		if pageStr := urlObj.Query().Get("page"); pageStr != "" {
			if page, err := strconv.Atoi(pageStr); err == nil {
				p.requestedPage = page
			}
		}
	}
	if p.ulid == "" {
		p.loading = false
		p.error = "No presentation selected"
		return
	}

	// Window-level listeners go through the JS value. The app.Func handles
	// are kept so OnDismount can unregister and release them
	p.keydownFn = app.FuncOf(func(this app.Value, args []app.Value) any {
		if len(args) == 0 {
			return nil
		}
		key := args[0].Get("key").String()
		ctx.Dispatch(func(ctx app.Context) {
			p.handleKey(ctx, key)
		})
		return nil
	})
	p.resizeFn = app.FuncOf(func(this app.Value, args []app.Value) any {
		ctx.Dispatch(func(ctx app.Context) {
			p.reportFrame(ctx)
		})
		return nil
	})
	app.Window().Call("addEventListener", "keydown", p.keydownFn)
	app.Window().Call("addEventListener", "resize", p.resizeFn)

	p.reportFrame(ctx)
	p.fetchPresentation(ctx)
}

// OnDismount is called when the component is unmounted
func (p *PresentPage) OnDismount() {
	if p.keydownFn != nil {
		app.Window().Call("removeEventListener", "keydown", p.keydownFn)
		p.keydownFn.Release()
		p.keydownFn = nil
	}
	if p.resizeFn != nil {
		app.Window().Call("removeEventListener", "resize", p.resizeFn)
		p.resizeFn.Release()
		p.resizeFn = nil
	}
}

// reportFrame tells the backend the current display size so slides are
// rendered and cached at the right resolution
func (p *PresentPage) reportFrame(ctx app.Context) {
	width, height := app.Window().Size()
	if width == p.frameWidth && height == p.frameHeight {
		return
	}
	p.frameWidth = width
	p.frameHeight = height

	ctx.Async(func() {
		frameURL := BuildAPIURL(fmt.Sprintf("/api/presentation/%s/frame?width=%d&height=%d",
			p.ulid, width, height))
		app.Window().Call("fetch", frameURL, map[string]interface{}{
			"method": "POST",
		})
	})
}

// fetchPresentation loads the deck metadata and resumes at the stored page
func (p *PresentPage) fetchPresentation(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/presentation/"+p.ulid))

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			status := response.Get("status").Int()
			if status == 404 {
				ctx.Dispatch(func(ctx app.Context) {
					p.error = "Presentation not found"
					p.loading = false
				})
				return nil
			}

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]
				jsonStr := app.Window().Get("JSON").Call("stringify", jsonData).String()

				var presentation Presentation
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &presentation); err != nil {
						p.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						p.name = presentation.Name
						p.pageCount = presentation.PageCount
						p.page = presentation.CurrentPage
						if p.requestedPage >= 0 && p.requestedPage < p.pageCount {
							// A search result linked straight to a slide
							p.page = p.requestedPage
						}
						if p.page < 0 || p.page >= p.pageCount {
							p.page = 0
						}
						p.fetchNote(ctx)
					}
					p.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				p.error = "Network error"
				p.loading = false
			})
			return nil
		}))
	})
}

// fetchNote loads the speaker note text for the current page
func (p *PresentPage) fetchNote(ctx app.Context) {
	page := p.page
	ctx.Async(func() {
		noteURL := BuildAPIURL(fmt.Sprintf("/api/presentation/%s/notes/%d", p.ulid, page))
		res := app.Window().Call("fetch", noteURL)

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			if response.Get("status").Int() != 200 {
				ctx.Dispatch(func(ctx app.Context) {
					if p.page == page {
						p.noteText = ""
					}
				})
				return nil
			}

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]
				jsonStr := app.Window().Get("JSON").Call("stringify", jsonData).String()

				var note slideNote
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &note); err == nil && p.page == page {
						p.noteText = note.Text
					}
				})

				return nil
			}))

			return nil
		}))
	})
}

// gotoPage navigates to a slide and tells the backend so the render cache
// can prefetch around the new position
func (p *PresentPage) gotoPage(ctx app.Context, page int) {
	if page < 0 || page >= p.pageCount || page == p.page {
		return
	}
	p.page = page
	p.noteText = ""
	p.fetchNote(ctx)

	ctx.Async(func() {
		gotoURL := BuildAPIURL(fmt.Sprintf("/api/presentation/%s/goto/%d", p.ulid, page))
		app.Window().Call("fetch", gotoURL, map[string]interface{}{
			"method": "POST",
		})
	})
}

// pageForKey maps a navigation key to the slide it selects. The second
// return is false for keys that do not navigate
func pageForKey(key string, current, count int) (int, bool) {
	switch key {
	case "ArrowRight", "ArrowDown", "PageDown", " ", "Enter":
		return current + 1, true
	case "ArrowLeft", "ArrowUp", "PageUp", "Backspace":
		return current - 1, true
	case "Home":
		return 0, true
	case "End":
		return count - 1, true
	}
	return 0, false
}

// handleKey handles presentation keyboard navigation
func (p *PresentPage) handleKey(ctx app.Context, key string) {
	if page, ok := pageForKey(key, p.page, p.pageCount); ok {
		p.gotoPage(ctx, page)
		return
	}
	switch key {
	case "n":
		p.showNotes = !p.showNotes
		ctx.Update()
	case "Escape":
		ctx.Navigate("/")
	}
}

// Render renders the presentation view
func (p *PresentPage) Render() app.UI {
	if p.loading {
		return app.Div().Class("present-page").Body(
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	if p.error != "" {
		return app.Div().Class("present-page").Body(
			app.Div().Class("error").Body(app.Text("Error: "+p.error)),
			app.A().Href("/").Class("present-back-link").Body(app.Text("Back to presentations")),
		)
	}

	slideURL := BuildAPIURL(fmt.Sprintf("/api/presentation/%s/page/%d", p.ulid, p.page))

	return app.Div().
		Class("present-page").
		TabIndex(0).
		Body(
			app.Div().Class("present-slide").Body(
				app.Img().
					Class("present-slide-image").
					Src(slideURL).
					Alt(fmt.Sprintf("%s slide %d", p.name, p.page+1)),
				// Invisible click zones for prev/next
				app.Div().
					Class("present-click-zone present-click-prev").
					OnClick(func(ctx app.Context, e app.Event) {
						p.gotoPage(ctx, p.page-1)
					}),
				app.Div().
					Class("present-click-zone present-click-next").
					OnClick(func(ctx app.Context, e app.Event) {
						p.gotoPage(ctx, p.page+1)
					}),
			),
			app.If(p.showNotes && p.noteText != "",
				func() app.UI {
					return app.Div().Class("present-notes").Body(
						app.Text(p.noteText),
					)
				},
			),
			app.Div().Class("present-statusbar").Body(
				app.A().Href("/").Class("present-back-link").Body(app.Text("✕")),
				app.Span().Class("present-title").Text(p.name),
				app.Span().Class("present-counter").Text(
					fmt.Sprintf("%d / %d", p.page+1, p.pageCount),
				),
			),
		)
}
