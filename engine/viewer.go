package engine

import (
	"github.com/drummonds/goPresent/database"
	"github.com/drummonds/goPresent/engine/pagecache"
	"github.com/drummonds/goPresent/engine/pdfrender"
)

// defaultFrameWidth/Height are used until the frontend reports its real
// viewport via the frame endpoint.
const (
	defaultFrameWidth  = 1280.0
	defaultFrameHeight = 720.0
)

// viewerSession is one open presentation together with its page cache.
// Sessions are created lazily on the first page request and live until the
// presentation is deleted or the server shuts down.
type viewerSession struct {
	presentation database.Presentation
	doc          pdfrender.Document
	cache        *pagecache.Cache
}

// slidePart maps the configured notes position to the half of the page that
// carries the slide content. Decks built with beamer's second-screen notes
// put the slide on the half opposite the notes.
func slidePart(notesPosition string) pdfrender.PagePart {
	switch notesPosition {
	case "left":
		return pdfrender.RightHalf
	case "right":
		return pdfrender.LeftHalf
	default:
		return pdfrender.FullPage
	}
}

// notesPart is the other half: where the speaker notes live.
func notesPart(notesPosition string) pdfrender.PagePart {
	switch notesPosition {
	case "left":
		return pdfrender.LeftHalf
	case "right":
		return pdfrender.RightHalf
	default:
		return pdfrender.FullPage
	}
}

// session returns the viewer session for a presentation, opening the PDF and
// starting its cache on first use.
func (serverHandler *ServerHandler) session(ulidStr string) (*viewerSession, error) {
	serverHandler.sessionMu.Lock()
	defer serverHandler.sessionMu.Unlock()

	if serverHandler.sessions == nil {
		serverHandler.sessions = make(map[string]*viewerSession)
	}
	if session, ok := serverHandler.sessions[ulidStr]; ok {
		return session, nil
	}

	presentation, _, err := database.FetchPresentation(ulidStr, serverHandler.DB)
	if err != nil {
		return nil, err
	}
	doc, err := pdfrender.Open(presentation.Path, serverHandler.ServerConfig.Renderer)
	if err != nil {
		Logger.Error("Unable to open presentation file", "path", presentation.Path, "error", err)
		return nil, err
	}

	cache := pagecache.New(doc, slidePart(serverHandler.ServerConfig.NotesPosition), pagecache.Config{
		MaxMemory: serverHandler.ServerConfig.CacheMaxBytes(),
		MaxPages:  serverHandler.ServerConfig.CacheMaxPages,
		Workers:   serverHandler.ServerConfig.RenderThreads,
	}, nil)
	cache.UpdateFrame(defaultFrameWidth, defaultFrameHeight)
	cache.PageNumberChanged(presentation.CurrentPage)

	session := &viewerSession{presentation: presentation, doc: doc, cache: cache}
	serverHandler.sessions[ulidStr] = session
	Logger.Info("Opened presentation for viewing", "name", presentation.Name, "pages", doc.NumPages())
	return session, nil
}

// closeSession shuts down the cache and document of one presentation, if it
// is open. Called when a presentation is deleted or replaced on disc.
func (serverHandler *ServerHandler) closeSession(ulidStr string) {
	serverHandler.sessionMu.Lock()
	session, ok := serverHandler.sessions[ulidStr]
	if ok {
		delete(serverHandler.sessions, ulidStr)
	}
	serverHandler.sessionMu.Unlock()
	if !ok {
		return
	}
	if err := session.cache.Close(); err != nil {
		Logger.Error("Error closing page cache", "ulid", ulidStr, "error", err)
	}
	if err := session.doc.Close(); err != nil {
		Logger.Error("Error closing presentation document", "ulid", ulidStr, "error", err)
	}
}

// CloseSessions closes every open viewer session. Used at shutdown.
func (serverHandler *ServerHandler) CloseSessions() {
	serverHandler.sessionMu.Lock()
	sessions := serverHandler.sessions
	serverHandler.sessions = nil
	serverHandler.sessionMu.Unlock()
	for ulidStr, session := range sessions {
		if err := session.cache.Close(); err != nil {
			Logger.Error("Error closing page cache", "ulid", ulidStr, "error", err)
		}
		session.doc.Close()
	}
}
