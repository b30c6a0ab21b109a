package store

import (
	"fmt"
	"strings"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// listQuery is a bounded, parameterized SELECT with its matching COUNT.
type listQuery struct {
	Count     string
	CountArgs []interface{}
	List      string
	ListArgs  []interface{}
}

// whereBuilder accumulates AND-ed predicates with positional placeholders.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (b *whereBuilder) add(format string, arg interface{}) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf(format, len(b.args)))
}

func (b *whereBuilder) String() string {
	if len(b.clauses) == 0 {
		return "WHERE 1=1"
	}
	return "WHERE " + strings.Join(b.clauses, " AND ")
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	return page, perPage
}

func paginate(table, columns, where, orderBy string, args []interface{}, page, perPage int) listQuery {
	page, perPage = normalizePage(page, perPage)
	offset := (page - 1) * perPage

	countArgs := append([]interface{}(nil), args...)
	listArgs := append(append([]interface{}(nil), args...), perPage, offset)
	n := len(args)

	return listQuery{
		Count:     fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, where),
		CountArgs: countArgs,
		List: fmt.Sprintf("SELECT %s FROM %s %s ORDER BY %s LIMIT $%d OFFSET $%d",
			columns, table, where, orderBy, n+1, n+2),
		ListArgs: listArgs,
	}
}

func buildRequestQuery(f RequestFilters) listQuery {
	var w whereBuilder
	if f.APIID != nil {
		w.add("api_id = $%d", *f.APIID)
	}
	if f.SubscriptionID != nil {
		w.add("subscription_id = $%d", *f.SubscriptionID)
	}
	if f.UserID != nil {
		w.add("user_id = $%d", *f.UserID)
	}
	if f.Version != nil {
		w.add("api_version = $%d", *f.Version)
	}
	if f.HTTPStatus != nil {
		w.add("http_status = $%d", *f.HTTPStatus)
	}
	if f.From != nil {
		w.add("request_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("request_at <= $%d", *f.To)
	}
	return paginate("api_requests", requestColumns, w.String(), "request_at DESC, id DESC", w.args, f.Page, f.PerPage)
}

func buildSubscriptionQuery(f SubscriptionFilters) listQuery {
	var w whereBuilder
	if f.UserID != nil {
		w.add("user_id = $%d", *f.UserID)
	}
	if f.APIID != nil {
		w.add("api_id = $%d", *f.APIID)
	}
	if f.SupplierID != nil {
		w.add("api_id IN (SELECT id FROM apis WHERE supplier_id = $%d)", *f.SupplierID)
	}
	if f.PlanName != nil {
		w.add("plan_name = $%d", *f.PlanName)
	}
	if f.Status != nil {
		w.add("status = $%d", string(*f.Status))
	}
	if f.Expired != nil {
		if *f.Expired {
			w.add("end_date < $%d", f.Now)
		} else {
			w.add("end_date >= $%d", f.Now)
		}
	}
	return paginate("api_subscriptions", subscriptionColumns, w.String(), "created_at DESC, id DESC", w.args, f.Page, f.PerPage)
}
