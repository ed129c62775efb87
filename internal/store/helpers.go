package store

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

func sqlxIn(query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("expanding in-clause: %w", err)
	}
	return q, a, nil
}

// pairClause builds an `(author = ? and permlink = ?) or ...` predicate for a
// list of (author, permlink) tuples.
func pairClause(pairs [][2]string) (string, []interface{}) {
	clauses := make([]string, 0, len(pairs))
	args := make([]interface{}, 0, len(pairs)*2)
	for _, p := range pairs {
		clauses = append(clauses, "(author = ? and permlink = ?)")
		args = append(args, p[0], p[1])
	}
	return strings.Join(clauses, " or "), args
}
