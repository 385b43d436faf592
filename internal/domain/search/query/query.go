// Package query is a small, engine-neutral boolean query tree.
//
// Engines translate it into their own syntax; nothing here knows about
// bleve or RediSearch.
package query

// Query is a node of the query tree.
type Query interface {
	isQuery()
}

// MatchAll matches every document.
type MatchAll struct{}

// Match is a full-text match of Text against Field.
type Match struct {
	Field string
	Text  string
}

// Term is an exact equality on Field. Value is a string, bool or number.
type Term struct {
	Field string
	Value any
}

// Bool combines clauses. Every Must clause has to match, and at least
// MinShould of the Should clauses.
type Bool struct {
	Must      []Query
	Should    []Query
	MinShould int
}

func (MatchAll) isQuery() {}
func (Match) isQuery()    {}
func (Term) isQuery()     {}
func (Bool) isQuery()     {}

// ScoreField sorts by relevance.
const ScoreField = "_score"

// Sort orders hits by Field.
type Sort struct {
	Field string
	Desc  bool
}

// Spec is a query plus paging and ordering.
type Spec struct {
	Query Query
	From  int
	Size  int
	Sort  []Sort
}

// And combines clauses conjunctively. A single clause is returned as is.
func And(clauses ...Query) Query {
	switch len(clauses) {
	case 0:
		return MatchAll{}
	case 1:
		return clauses[0]
	default:
		return Bool{Must: clauses}
	}
}

// Or matches when at least one clause matches. A single clause is returned as is.
func Or(clauses ...Query) Query {
	switch len(clauses) {
	case 0:
		return MatchAll{}
	case 1:
		return clauses[0]
	default:
		return Bool{Should: clauses, MinShould: 1}
	}
}
