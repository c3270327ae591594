package store

import (
	"strings"

	"github.com/dukerupert/tasklist/internal/model"
)

// Filter is an owner-scoped task filter. The owner clause is always
// present; the zero Filter matches nothing and is rejected by the store.
type Filter struct {
	ownerID string
	status  model.TaskStatus
	search  string
}

// BuildFilter scopes a task query to ownerID. Status, when set, must be a
// known status. Search is a case-insensitive substring match on title only.
func BuildFilter(ownerID string, q model.TaskQuery) (Filter, error) {
	if ownerID == "" {
		return Filter{}, ErrMissingOwner
	}
	if q.Status != "" && !q.Status.Valid() {
		return Filter{}, ErrInvalidStatus
	}
	return Filter{
		ownerID: ownerID,
		status:  q.Status,
		search:  strings.TrimSpace(q.Search),
	}, nil
}

// where returns the WHERE clause body and its arguments, owner first.
func (f Filter) where() (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{f.ownerID}

	if f.status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.status))
	}
	if f.search != "" {
		clauses = append(clauses, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.search))+"%")
	}

	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
