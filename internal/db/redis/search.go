package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docgate/internal/db"
	"github.com/kailas-cloud/docgate/internal/domain/search/query"
)

// Search runs spec against alias via FT.SEARCH with scores.
func (s *Store) Search(ctx context.Context, alias string, spec query.Spec) (*db.SearchResult, error) {
	if alias == "" {
		return nil, fmt.Errorf("alias is required")
	}
	if spec.Size <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}

	args := []string{
		alias, s.buildQuery(spec.Query),
		"WITHSCORES",
		"LIMIT", strconv.Itoa(spec.From), strconv.Itoa(spec.Size),
	}
	args = append(args, sortArgs(spec.Sort)...)
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, db.ErrAliasNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return s.parseResult(raw)
}

// sortArgs renders the first sort key; RediSearch orders by a single field.
// Relevance order is the FT.SEARCH default and needs no SORTBY.
func sortArgs(sorts []query.Sort) []string {
	if len(sorts) == 0 || sorts[0].Field == query.ScoreField {
		return nil
	}
	dir := "ASC"
	if sorts[0].Desc {
		dir = "DESC"
	}
	return []string{"SORTBY", sorts[0].Field, dir}
}

// --- Result parsing ---

func (s *Store) parseResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/3)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		entry, err := s.parseEntry(raw[i], raw[i+1], raw[i+2])
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("hit %d: %w", (i-1)/3, err)}
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func (s *Store) parseEntry(keyMsg, scoreMsg, fieldsMsg rueidis.RedisMessage) (db.SearchEntry, error) {
	key, err := keyMsg.ToString()
	if err != nil {
		return db.SearchEntry{}, fmt.Errorf("parse key: %w", err)
	}
	scoreStr, err := scoreMsg.ToString()
	if err != nil {
		return db.SearchEntry{}, fmt.Errorf("parse score: %w", err)
	}
	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return db.SearchEntry{}, fmt.Errorf("parse score: %w", err)
	}
	fields, err := fieldsMsg.ToArray()
	if err != nil {
		return db.SearchEntry{}, fmt.Errorf("parse fields: %w", err)
	}
	src, err := decodeSource([]byte(parseFieldPairs(fields)["$"]))
	if err != nil {
		return db.SearchEntry{}, fmt.Errorf("%s: %w", key, err)
	}

	physical, id := s.splitKey(key)
	return db.SearchEntry{ID: id, Index: physical, Score: score, Source: src}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildQuery translates the query tree into RediSearch DIALECT 2 syntax.
func (s *Store) buildQuery(q query.Query) string {
	switch q := q.(type) {
	case query.Match:
		return s.buildMatch(q)
	case query.Term:
		return s.buildTerm(q)
	case query.Bool:
		return s.buildBool(q)
	default:
		return "*"
	}
}

func (s *Store) buildBool(q query.Bool) string {
	var parts []string
	for _, c := range q.Must {
		if p := s.buildQuery(c); p != "*" {
			parts = append(parts, p)
		}
	}

	should := make([]string, 0, len(q.Should))
	for _, c := range q.Should {
		p := s.buildQuery(c)
		if p == "*" {
			// one clause matches everything, so the group does too
			should = nil
			break
		}
		should = append(should, "("+p+")")
	}
	if len(should) > 0 {
		parts = append(parts, "("+strings.Join(should, " | ")+")")
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// buildMatch ORs the words of the text, like a match query would.
func (s *Store) buildMatch(q query.Match) string {
	words := strings.Fields(q.Text)
	if len(words) == 0 {
		return "*"
	}
	if s.fieldType(q.Field) == db.IndexFieldTag {
		return buildTagFilter(q.Field, q.Text)
	}
	for i, w := range words {
		words[i] = escapeQuery(w)
	}
	return fmt.Sprintf("@%s:(%s)", escapeField(q.Field), strings.Join(words, "|"))
}

func (s *Store) buildTerm(q query.Term) string {
	switch v := q.Value.(type) {
	case string:
		if s.fieldType(q.Field) == db.IndexFieldText {
			return fmt.Sprintf(`@%s:("%s")`, escapeField(q.Field), escapeQuery(v))
		}
		return buildTagFilter(q.Field, v)
	case bool:
		return buildTagFilter(q.Field, strconv.FormatBool(v))
	default:
		if f, ok := toFloat(v); ok {
			n := strconv.FormatFloat(f, 'f', -1, 64)
			return fmt.Sprintf("@%s:[%s %s]", escapeField(q.Field), n, n)
		}
		return buildTagFilter(q.Field, fmt.Sprint(v))
	}
}

func (s *Store) fieldType(name string) db.IndexFieldType {
	switch {
	case name == "title" || name == "content":
		return db.IndexFieldText
	case slices.Contains(s.numerics, name):
		return db.IndexFieldNumeric
	default:
		return db.IndexFieldTag
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func buildTagFilter(key, value string) string {
	escaped := tagEscaper.Replace(value)
	return fmt.Sprintf("@%s:{%s}", escapeField(key), escaped)
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	"\\", "\\\\",
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

// escapeField escapes every byte of an attribute name outside [a-zA-Z0-9_].
func escapeField(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		isWord := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
		if !isWord {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
)
