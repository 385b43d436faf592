package result

// Result is a single search hit.
type Result struct {
	documentID string
	score      float64
	source     map[string]any
	index      string
}

// New creates a search result.
func New(documentID string, score float64, source map[string]any, index string) Result {
	return Result{documentID: documentID, score: score, source: source, index: index}
}

// DocumentID returns the document identifier.
func (r *Result) DocumentID() string { return r.documentID }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Source returns the stored document.
func (r *Result) Source() map[string]any { return r.source }

// Index returns the physical index the hit came from.
func (r *Result) Index() string { return r.index }

// Page is one page of search results.
type Page struct {
	results    []Result
	total      int64
	page       int
	size       int
	totalPages int
	tookMs     int64
}

// NewPage assembles a page and derives TotalPages = ceil(total/size).
func NewPage(results []Result, total int64, page, size int, tookMs int64) Page {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return Page{
		results:    results,
		total:      total,
		page:       page,
		size:       size,
		totalPages: totalPages,
		tookMs:     tookMs,
	}
}

// Results returns the hits in rank order.
func (p *Page) Results() []Result { return p.results }

// Total returns the number of matching documents.
func (p *Page) Total() int64 { return p.total }

// Page returns the 0-based page number.
func (p *Page) Page() int { return p.page }

// Size returns the page size.
func (p *Page) Size() int { return p.size }

// TotalPages returns ceil(total/size).
func (p *Page) TotalPages() int { return p.totalPages }

// TookMs returns the time the search took, in milliseconds.
func (p *Page) TookMs() int64 { return p.tookMs }
