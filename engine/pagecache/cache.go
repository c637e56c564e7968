package pagecache

import (
	"errors"
	"image"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/drummonds/goPresent/engine/pdfrender"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// maxResolutionDeviation is the tolerance used when comparing a cached
// page's resolution with the currently required one.
const maxResolutionDeviation = 1e-9

// unlimited stands in for "no restriction" in the slide allowance
// arithmetic. Half of the int32 range keeps additions from overflowing.
const unlimited = math.MaxInt32 >> 1

// workerJoinTimeout bounds how long Close waits for render workers to exit.
const workerJoinTimeout = 10 * time.Second

// Config holds the cache limits and the worker pool size.
type Config struct {
	// MaxMemory is the cache budget in bytes. Negative means unlimited,
	// zero disables caching.
	MaxMemory int64
	// MaxPages is the maximum number of cached pages. Negative means
	// unlimited, zero disables caching.
	MaxPages int
	// Workers is the number of background render goroutines. Zero disables
	// prefetching; all rendering then happens on the caller's goroutine.
	Workers int
}

// PageReadyFunc is called with the decoded pixmap whenever a requested or
// prefetched page becomes available. It is invoked from the cache's own
// goroutine for prefetched pages and from the caller's goroutine for
// synchronous requests, so it must be safe for concurrent use and must not
// call back into the cache.
type PageReadyFunc func(page int, img image.Image)

// Cache renders pages to compressed images across a pool of workers and
// keeps a bounded set of them in memory. Cached pages form, as far as
// possible, one contiguous run around the current page, weighted ahead of
// it because presentations are mostly read forwards.
type Cache struct {
	mu sync.Mutex

	doc  pdfrender.Document
	part pdfrender.PagePart

	// renderer serves the synchronous request paths. syncMu serializes
	// access because renderers are not reentrant.
	renderer pdfrender.Renderer
	syncMu   sync.Mutex

	// entries maps page index to its cached image. A nil value marks a
	// page a worker is currently rendering. keys mirrors the map as a
	// sorted slice for predecessor/successor scans.
	entries map[int]*CompressedPage
	keys    []int

	// priority lists pages explicitly requested for rendering, consumed
	// front to back.
	priority []int

	// Boundaries of the simply connected region of cached pages around
	// the current page. After a boundary walk they point one past the
	// contiguous run, i.e. at the next page worth rendering.
	regionFirst int
	regionLast  int

	frameWidth  float64
	frameHeight float64

	maxMemory  int64
	maxPages   int
	usedMemory int64

	currentPage int

	workers   []*renderWorker
	busy      []bool
	busyCount int
	results   chan renderResult

	// kick coalesces scheduling triggers; capacity one, non-blocking send.
	kick chan struct{}

	onPageReady PageReadyFunc

	quit     chan struct{}
	loopDone chan struct{}
	workerWG sync.WaitGroup
	closed   bool
}

// New creates a cache for doc and starts its worker pool. Documents with
// flexible page sizes get no workers: prefetching to a fixed frame is
// useless when every page needs a different resolution. If the synchronous
// renderer cannot be created the cache still works in a degraded mode where
// requests return empty results.
func New(doc pdfrender.Document, part pdfrender.PagePart, cfg Config, onPageReady PageReadyFunc) *Cache {
	c := newCache(doc, part, cfg, onPageReady)
	c.start()
	return c
}

// newCache builds the cache without starting any goroutines. Split out so
// tests can drive scheduling deterministically.
func newCache(doc pdfrender.Document, part pdfrender.PagePart, cfg Config, onPageReady PageReadyFunc) *Cache {
	workerCount := cfg.Workers
	if workerCount < 0 || doc.FlexiblePageSizes() {
		workerCount = 0
	}

	c := &Cache{
		doc:         doc,
		part:        part,
		entries:     make(map[int]*CompressedPage),
		regionFirst: math.MaxInt32,
		regionLast:  -1,
		maxMemory:   cfg.MaxMemory,
		maxPages:    cfg.MaxPages,
		results:     make(chan renderResult, workerCount+1),
		kick:        make(chan struct{}, 1),
		onPageReady: onPageReady,
		quit:        make(chan struct{}),
		loopDone:    make(chan struct{}),
	}

	renderer, err := doc.NewRenderer(part)
	if err != nil {
		Logger.Error("creating renderer failed", "error", err)
	} else {
		c.renderer = renderer
	}

	for i := 0; i < workerCount; i++ {
		workerRenderer, err := doc.NewRenderer(part)
		if err != nil {
			Logger.Error("creating worker renderer failed", "worker", i, "error", err)
			continue
		}
		c.workers = append(c.workers, newRenderWorker(len(c.workers), workerRenderer, c.results))
	}
	c.busy = make([]bool, len(c.workers))
	return c
}

func (c *Cache) start() {
	for _, w := range c.workers {
		c.workerWG.Add(1)
		go w.run(&c.workerWG)
	}
	go c.run()
}

// run serializes worker results and scheduling passes on one goroutine.
func (c *Cache) run() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.quit:
			return
		case res := <-c.results:
			c.receiveData(res)
		case <-c.kick:
			c.startRendering()
		}
	}
}

// schedule requests a scheduling pass. Multiple requests before the pass
// runs collapse into one.
func (c *Cache) schedule() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// UpdateFrame sets the display size pages are rendered for. A changed size
// invalidates every cached bitmap, so the cache restarts clean; results of
// in-flight jobs for the old size are discarded when they arrive.
func (c *Cache) UpdateFrame(width, height float64) {
	c.mu.Lock()
	if c.frameWidth == width && c.frameHeight == height {
		c.mu.Unlock()
		return
	}
	c.frameWidth = width
	c.frameHeight = height
	c.clearLocked()
	c.mu.Unlock()
	c.schedule()
}

// PageNumberChanged informs the cache of the newly shown page and updates
// the connected region boundaries incrementally.
func (c *Cache) PageNumberChanged(page int) {
	c.mu.Lock()
	if page < 0 || page >= c.doc.NumPages() {
		c.mu.Unlock()
		return
	}
	c.currentPage = page

	if _, ok := c.entries[page]; !ok {
		// Page not cached yet: make sure it is first in the priority queue
		// and collapse the region onto it.
		if len(c.priority) > 0 && c.priority[0] != page {
			c.removePriorityLocked(page)
			c.priority = append([]int{page}, c.priority...)
		}
		c.regionFirst = page
		c.regionLast = page
		c.mu.Unlock()
		c.schedule()
		return
	}

	if c.regionFirst > page || c.regionLast < page {
		c.regionFirst = page - 1
		c.regionLast = page + 1
	}

	// Walk the boundaries outward while the map stays contiguous. Each
	// boundary ends one past the cached run, on the next page to render.
	for {
		if _, ok := c.entries[c.regionFirst]; !ok {
			break
		}
		c.regionFirst--
	}
	for {
		if _, ok := c.entries[c.regionLast]; !ok {
			break
		}
		c.regionLast++
	}

	c.mu.Unlock()
	c.schedule()
}

// RequestRenderPage enqueues a page for background rendering unless it is
// already queued or cached.
func (c *Cache) RequestRenderPage(page int) {
	c.mu.Lock()
	if page < 0 || page >= c.doc.NumPages() {
		c.mu.Unlock()
		return
	}
	if !c.inPriorityLocked(page) {
		if _, ok := c.entries[page]; !ok {
			c.priority = append(c.priority, page)
		}
	}
	c.mu.Unlock()
	c.schedule()
}

// RequestPage serves a page synchronously. On a cache hit the stored image
// is delivered; otherwise the page is rendered inline on the calling
// goroutine, never on the worker pool, so a caller blocked here can never
// deadlock against its own event handling. The page-ready callback fires in
// both cases.
func (c *Cache) RequestPage(page int, resolution float64, cachePage bool) {
	c.mu.Lock()
	entry, ok := c.entries[page]
	c.mu.Unlock()
	if ok && entry != nil && math.Abs(entry.resolution-resolution) < maxResolutionDeviation {
		if img, err := entry.Pixmap(); err == nil {
			c.notifyPageReady(page, img)
			return
		}
	}

	if page < 0 || page >= c.doc.NumPages() {
		return
	}

	img := c.renderInline(page, resolution)
	if img == nil {
		return
	}
	c.notifyPageReady(page, img)

	if cachePage {
		compressed, err := NewCompressedPage(img, page, resolution)
		if err != nil {
			Logger.Warn("compressing page failed", "page", page, "error", err)
		} else {
			c.mu.Lock()
			c.storePageLocked(compressed)
			c.mu.Unlock()
		}
	}
	c.schedule()
}

// Pixmap returns the decoded image for a page, rendering it on the calling
// goroutine on a cache miss. A resolution of zero or less means "for the
// current frame". Returns nil if the page cannot be rendered.
func (c *Cache) Pixmap(page int, resolution float64) image.Image {
	c.mu.Lock()
	if resolution <= 0 {
		resolution = c.resolutionLocked(page)
	}
	entry, ok := c.entries[page]
	c.mu.Unlock()
	if ok && entry != nil && math.Abs(entry.resolution-resolution) < maxResolutionDeviation {
		if img, err := entry.Pixmap(); err == nil {
			return img
		}
	}

	if page < 0 || page >= c.doc.NumPages() {
		return nil
	}

	img := c.renderInline(page, resolution)
	if img == nil {
		return nil
	}

	compressed, err := NewCompressedPage(img, page, resolution)
	if err != nil {
		Logger.Warn("compressing page failed", "page", page, "error", err)
	} else {
		// A single locked map update, so racing worker completions cannot
		// corrupt the cache.
		c.mu.Lock()
		c.storePageLocked(compressed)
		c.mu.Unlock()
	}
	return img
}

// renderInline rasterizes a page on the calling goroutine using the shared
// synchronous renderer.
func (c *Cache) renderInline(page int, resolution float64) image.Image {
	if c.renderer == nil || !c.renderer.IsValid() {
		Logger.Error("invalid renderer")
		return nil
	}
	c.syncMu.Lock()
	img, err := c.renderer.RenderPixmap(page, resolution)
	c.syncMu.Unlock()
	if err != nil || img == nil {
		Logger.Error("rendering page failed", "page", page, "resolution", resolution, "error", err)
		return nil
	}
	return img
}

// receiveData handles one worker result. Stale results, whose resolution no
// longer matches because the frame changed while they were in flight, are
// discarded here rather than cancelled at dispatch time.
func (c *Cache) receiveData(res renderResult) {
	c.mu.Lock()
	if res.worker < len(c.busy) && c.busy[res.worker] {
		c.busy[res.worker] = false
		c.busyCount--
	}

	var ready *CompressedPage
	switch {
	case res.image == nil:
		// Rendering failed. The pending marker stays so the page is not
		// retried automatically; an explicit request still re-attempts.
	case math.Abs(c.resolutionLocked(res.page)-res.image.resolution) > maxResolutionDeviation:
		if entry, ok := c.entries[res.page]; ok && entry == nil {
			c.dropEntryLocked(res.page)
		}
	default:
		c.storePageLocked(res.image)
		ready = res.image
	}
	c.mu.Unlock()

	if ready != nil && c.onPageReady != nil {
		if img, err := ready.Pixmap(); err == nil {
			c.onPageReady(res.page, img)
		}
	}

	c.startRendering()
}

// startRendering runs one scheduling pass: evict down to the configured
// limits, then hand the most valuable uncached pages to idle workers.
func (c *Cache) startRendering() {
	c.mu.Lock()
	defer c.mu.Unlock()

	allowed := c.limitCacheSizeLocked()
	if allowed <= 0 {
		return
	}
	numPages := c.doc.NumPages()
	for i, w := range c.workers {
		if allowed <= 0 {
			return
		}
		if c.busy[i] {
			continue
		}
		page := c.renderNextLocked()
		if page < 0 || page >= numPages {
			return
		}
		resolution := c.resolutionLocked(page)
		if resolution <= 0 {
			return
		}
		// Reserve the slot so eviction and selection see the page as taken.
		if _, ok := c.entries[page]; !ok {
			c.entries[page] = nil
			c.insertKeyLocked(page)
		}
		c.busy[i] = true
		c.busyCount++
		w.assign(renderJob{page: page, resolution: resolution})
		allowed--
	}
}

// limitCacheSize evicts pages until the cache fits its limits again and
// returns an estimate of how many more pages can be cached. Eviction takes
// from whichever end of the cached range lies proportionally furthest from
// the current page, shrinking the cache towards a connected block weighted
// ahead of the current page.
func (c *Cache) limitCacheSizeLocked() int {
	if c.maxMemory < 0 && c.maxPages < 0 {
		if len(c.entries) == c.doc.NumPages() {
			return 0
		}
		return unlimited
	}
	if c.maxMemory == 0 || c.maxPages == 0 {
		c.clearLocked()
		return 0
	}

	current := c.currentPage
	if c.regionFirst > c.regionLast {
		c.regionFirst = current
		c.regionLast = current
	}

	// Pages a busy worker has reserved hold no image yet, so they do not
	// count as cached slides.
	cached := len(c.entries) - c.busyCount
	if cached <= 0 {
		return unlimited
	}

	// Estimate how many more slides fit by linear extrapolation of the
	// average cached-slide size.
	allowed := unlimited
	if c.maxMemory > 0 {
		if c.usedMemory > 0 {
			allowed = int((c.maxMemory - c.usedMemory) * int64(cached) / c.usedMemory)
		} else {
			allowed = len(c.workers)
		}
	}
	if c.maxPages > 0 && allowed+len(c.entries) > c.maxPages {
		allowed = c.maxPages - len(c.entries)
	}
	if allowed >= len(c.workers) {
		return allowed
	}

	// head and tail walk inward from the ends of the cached range. Pending
	// slots, reserved by a busy worker, hold nothing reclaimable and must
	// never be evicted, so the cursors step past them without deleting.
	// size discounts skipped pending slots so the stop heuristics see only
	// what eviction can still reach.
	first := c.keys[0]
	last := c.keys[len(c.keys)-1]
	head, tail := first, last
	size := len(c.entries)

	for {
		// Stop once the cached pages form one connected block that contains
		// the current page, fits the limits, and lies mostly ahead of it.
		// Fewer than two entries would invite single-element thrashing.
		if ((c.maxPages < 0 || size <= c.maxPages) &&
			(c.maxMemory < 0 || c.usedMemory <= c.maxMemory) &&
			last > current && last-first <= size &&
			2*last+3*first > 5*current) ||
			size < 2 || head > tail {
			return 0
		}

		// More than 3/4 of the cached slides ahead of the current page:
		// evict from the tail, otherwise from the head.
		if last+3*first > 4*current {
			removed := c.entries[tail]
			if removed == nil {
				prev, ok := c.keyBelowLocked(tail)
				if !ok || prev < head {
					break
				}
				tail = prev
				last = tail
				size--
				continue
			}
			c.dropKeyOnlyLocked(tail)
			c.usedMemory -= removed.Size()
			cached--
			size--
			prev, ok := c.keyBelowLocked(tail)
			if !ok {
				break
			}
			tail = prev
			last = tail
		} else {
			removed := c.entries[head]
			if removed == nil {
				next, ok := c.keyAboveLocked(head)
				if !ok || next > tail {
					break
				}
				head = next
				first = head
				size--
				continue
			}
			c.dropKeyOnlyLocked(head)
			c.usedMemory -= removed.Size()
			cached--
			size--
			next, ok := c.keyAboveLocked(head)
			if !ok {
				break
			}
			head = next
			first = head
		}

		if c.usedMemory > 0 && cached > 0 {
			allowed = int((c.maxMemory - c.usedMemory) * int64(cached) / c.usedMemory)
			if allowed+size > c.maxPages {
				allowed = c.maxPages - size
			}
		} else {
			allowed = c.maxPages - size
		}

		if allowed >= len(c.workers) || cached <= 0 {
			break
		}
	}

	// Shrink the connected region to the surviving boundaries.
	if first > c.regionFirst+1 {
		c.regionFirst = first - 1
	}
	if last+1 < c.regionLast {
		c.regionLast = last + 1
	}

	return allowed
}

// renderNext picks the page to render next: explicitly requested pages
// first, then the connected region is grown at whichever boundary is
// proportionally closer to the current page, with a forward bias.
func (c *Cache) renderNextLocked() int {
	for len(c.priority) > 0 {
		page := c.priority[0]
		c.priority = c.priority[1:]
		if _, ok := c.entries[page]; !ok {
			return page
		}
	}

	current := c.currentPage
	if c.regionFirst > c.regionLast {
		c.regionFirst = current
		c.regionLast = current
	}

	for {
		if c.regionLast+3*c.regionFirst > 4*current && c.regionFirst >= 0 {
			if _, ok := c.entries[c.regionFirst]; !ok {
				page := c.regionFirst
				c.regionFirst--
				return page
			}
			c.regionFirst--
		} else {
			if _, ok := c.entries[c.regionLast]; !ok {
				page := c.regionLast
				c.regionLast++
				return page
			}
			c.regionLast++
		}
	}
}

// resolutionLocked derives the rendering resolution for a page from its
// natural size and the current frame: scale to fit, bound by whichever
// dimension hits the frame first. Returns a value <= 0 for invalid pages.
func (c *Cache) resolutionLocked(page int) float64 {
	width, height := c.doc.PageSize(page)
	if width <= 0 || height <= 0 {
		return -1
	}
	width = c.part.EffectiveWidth(width)
	if width*c.frameHeight > height*c.frameWidth {
		// Page is too wide; the x direction binds.
		return c.frameWidth / width
	}
	return c.frameHeight / height
}

// Clear drops every cached page.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()
}

func (c *Cache) clearLocked() {
	c.entries = make(map[int]*CompressedPage)
	c.keys = c.keys[:0]
	c.usedMemory = 0
	c.regionFirst = c.currentPage
	c.regionLast = c.currentPage
}

// SetMaxMemory sets the cache budget in bytes. Negative means unlimited.
func (c *Cache) SetMaxMemory(bytes int64) {
	c.mu.Lock()
	c.maxMemory = bytes
	c.mu.Unlock()
	c.schedule()
}

// SetMaxNumber sets the maximum number of cached pages. Negative means
// unlimited.
func (c *Cache) SetMaxNumber(pages int) {
	c.mu.Lock()
	c.maxPages = pages
	c.mu.Unlock()
	c.schedule()
}

// UsedMemory returns the total compressed size of all cached pages.
func (c *Cache) UsedMemory() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usedMemory
}

// Stats returns the number of cache entries, the used memory in bytes and
// the connected region boundaries.
func (c *Cache) Stats() (entries int, usedMemory int64, regionFirst, regionLast int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.usedMemory, c.regionFirst, c.regionLast
}

// Close stops the scheduler, asks every worker to finish its current job
// and exit, and waits for them with a bound. A worker that fails to exit in
// time is reported as an error; leaked render threads must not be ignored
// silently.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.quit)
	<-c.loopDone

	for _, w := range c.workers {
		w.stop()
	}
	done := make(chan struct{})
	go func() {
		c.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(workerJoinTimeout):
		return errors.New("pagecache: render workers did not exit in time")
	}

	for _, w := range c.workers {
		w.renderer.Close()
	}
	if c.renderer != nil {
		c.renderer.Close()
	}
	c.Clear()
	return nil
}

func (c *Cache) notifyPageReady(page int, img image.Image) {
	if c.onPageReady != nil {
		c.onPageReady(page, img)
	}
}

// storePageLocked inserts or replaces a cache entry and keeps the memory
// counter in step.
func (c *Cache) storePageLocked(p *CompressedPage) {
	if old := c.entries[p.page]; old != nil {
		c.usedMemory -= old.Size()
	}
	c.entries[p.page] = p
	c.insertKeyLocked(p.page)
	c.usedMemory += p.Size()
}

// dropEntryLocked removes an entry, adjusting the memory counter if it held
// an image.
func (c *Cache) dropEntryLocked(page int) {
	entry, ok := c.entries[page]
	if !ok {
		return
	}
	if entry != nil {
		c.usedMemory -= entry.Size()
	}
	c.dropKeyOnlyLocked(page)
}

// dropKeyOnlyLocked removes the map entry and sorted key without touching
// the memory counter; the eviction loop accounts separately.
func (c *Cache) dropKeyOnlyLocked(page int) {
	delete(c.entries, page)
	i := sort.SearchInts(c.keys, page)
	if i < len(c.keys) && c.keys[i] == page {
		c.keys = append(c.keys[:i], c.keys[i+1:]...)
	}
}

// keyBelowLocked returns the largest cached page index below page.
func (c *Cache) keyBelowLocked(page int) (int, bool) {
	i := sort.SearchInts(c.keys, page)
	if i == 0 {
		return 0, false
	}
	return c.keys[i-1], true
}

// keyAboveLocked returns the smallest cached page index above page.
func (c *Cache) keyAboveLocked(page int) (int, bool) {
	i := sort.SearchInts(c.keys, page+1)
	if i >= len(c.keys) {
		return 0, false
	}
	return c.keys[i], true
}

func (c *Cache) insertKeyLocked(page int) {
	i := sort.SearchInts(c.keys, page)
	if i < len(c.keys) && c.keys[i] == page {
		return
	}
	c.keys = append(c.keys, 0)
	copy(c.keys[i+1:], c.keys[i:])
	c.keys[i] = page
}

func (c *Cache) inPriorityLocked(page int) bool {
	for _, p := range c.priority {
		if p == page {
			return true
		}
	}
	return false
}

func (c *Cache) removePriorityLocked(page int) {
	for i, p := range c.priority {
		if p == page {
			c.priority = append(c.priority[:i], c.priority[i+1:]...)
			return
		}
	}
}
