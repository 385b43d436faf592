package request

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docgate/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength      = 4096
	DefaultSize         = 10
	MaxSize             = 100
	MaxFilters          = 32
	MaxSorts            = 8
	DefaultDocumentType = "document"
)

// DefaultFields are searched when the request names none.
var DefaultFields = []string{"title", "content"}

// Request is a validated search query.
type Request struct {
	query        string
	fields       []string
	documentType string
	page         int
	size         int
	sort         []string
	filters      map[string]any
}

// New validates and normalizes search parameters.
// Defaults: documentType=document, page=0, size=10. Size is clamped to MaxSize.
// Filter values must be strings, booleans or numbers.
func New(
	query string,
	fields []string,
	documentType string,
	page, size int,
	sort []string,
	filters map[string]any,
) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, invalid("query too long (max %d chars)", MaxQueryLength)
	}
	if documentType == "" {
		documentType = DefaultDocumentType
	}
	if err := domain.ValidateName("documentType", documentType); err != nil {
		return Request{}, err
	}
	if page < 0 {
		return Request{}, invalid("page must not be negative")
	}
	if size < 0 {
		return Request{}, invalid("size must not be negative")
	}
	if size == 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	cleanFields := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		if err := domain.ValidateName("field", f); err != nil {
			return Request{}, err
		}
		cleanFields = append(cleanFields, f)
	}

	if len(sort) > MaxSorts {
		return Request{}, invalid("too many sort fields (max %d)", MaxSorts)
	}
	for _, s := range sort {
		field, _, _ := strings.Cut(s, ":")
		if strings.TrimSpace(field) == "" {
			return Request{}, invalid("sort field is required in %q", s)
		}
		if err := domain.ValidateName("sort field", strings.TrimSpace(field)); err != nil {
			return Request{}, err
		}
	}

	if len(filters) > MaxFilters {
		return Request{}, invalid("too many filters (max %d)", MaxFilters)
	}
	for k, v := range filters {
		if k == "" {
			return Request{}, invalid("filter key is required")
		}
		if err := domain.ValidateName("filter key", k); err != nil {
			return Request{}, err
		}
		if !isScalar(v) {
			return Request{}, invalid("filter %q must be a string, boolean or number", k)
		}
	}

	return Request{
		query:        strings.TrimSpace(query),
		fields:       cleanFields,
		documentType: documentType,
		page:         page,
		size:         size,
		sort:         slices.Clone(sort),
		filters:      maps.Clone(filters),
	}, nil
}

// Query returns the full-text query; empty means match all.
func (r *Request) Query() string { return r.query }

// Fields returns the fields to match the query against.
func (r *Request) Fields() []string {
	if len(r.fields) == 0 {
		return DefaultFields
	}
	return r.fields
}

// DocumentType returns the document type searched.
func (r *Request) DocumentType() string { return r.documentType }

// Page returns the 0-based page.
func (r *Request) Page() int { return r.page }

// Size returns the page size.
func (r *Request) Size() int { return r.size }

// From returns the offset of the first hit.
func (r *Request) From() int { return r.page * r.size }

// Sort returns the sort specs, "field" or "field:asc|desc".
func (r *Request) Sort() []string { return r.sort }

// Filters returns the equality filters.
func (r *Request) Filters() map[string]any { return r.filters }

// CacheKey returns a deterministic key for the request under tenant.
// Filters are ordered by key so insertion order does not matter. Every part
// is length-prefixed, so distinct requests never share a key.
func (r *Request) CacheKey(tenant string) string {
	var b strings.Builder
	writePart(&b, tenant)
	writePart(&b, r.documentType)
	writePart(&b, r.query)
	writeList(&b, r.fields)
	writePart(&b, strconv.Itoa(r.page))
	writePart(&b, strconv.Itoa(r.size))
	writeList(&b, r.sort)
	keys := slices.Sorted(maps.Keys(r.filters))
	b.WriteString(strconv.Itoa(len(keys)))
	b.WriteByte('#')
	for _, k := range keys {
		writePart(&b, k)
		writePart(&b, FormatValue(r.filters[k]))
	}
	return b.String()
}

// writePart appends s as "<len>:<s>".
func writePart(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// writeList appends the item count followed by each item.
func writeList(b *strings.Builder, items []string) {
	b.WriteString(strconv.Itoa(len(items)))
	b.WriteByte('#')
	for _, it := range items {
		writePart(b, it)
	}
}

// FormatValue renders a filter value the way it is matched and keyed.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	default:
		return false
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrInvalidRequest)
}
