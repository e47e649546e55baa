package igdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Query builds an apicalypse request body, e.g.
//
//	fields name,slug; where updated_at > 1700000000; sort updated_at asc; limit 500; offset 0;
type Query struct {
	fields []string
	where  []string
	sort   string
	limit  *int
	offset *int
}

func NewQuery() *Query {
	return &Query{}
}

func (q *Query) Fields(fields ...string) *Query {
	q.fields = append(q.fields, fields...)
	return q
}

// Where adds a condition. Conditions are joined with "&".
func (q *Query) Where(format string, args ...interface{}) *Query {
	q.where = append(q.where, fmt.Sprintf(format, args...))
	return q
}

func (q *Query) Sort(field string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.sort = field + " " + dir
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = &n
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = &n
	return q
}

func (q *Query) String() string {
	var b strings.Builder
	fields := "*"
	if len(q.fields) > 0 {
		fields = strings.Join(q.fields, ",")
	}
	b.WriteString("fields " + fields + ";")
	if len(q.where) > 0 {
		b.WriteString(" where " + strings.Join(q.where, " & ") + ";")
	}
	if q.sort != "" {
		b.WriteString(" sort " + q.sort + ";")
	}
	if q.limit != nil {
		b.WriteString(" limit " + strconv.Itoa(*q.limit) + ";")
	}
	if q.offset != nil {
		b.WriteString(" offset " + strconv.Itoa(*q.offset) + ";")
	}
	return b.String()
}
