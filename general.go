package orm

import (
	"fmt"
	"io"
	"strings"

	"github.com/medatechnology/goutil/medaerror"
)

const (
	DEFAULT_PAGINATION_LIMIT     = 50
	DEFAULT_MAX_MULTIPLE_INSERTS = 100 // Maximum number of rows to insert in a single SQL statement
)

var (
	ErrSQLNoRows         medaerror.MedaError = medaerror.MedaError{Message: "select returns no rows"}
	ErrSQLMoreThanOneRow medaerror.MedaError = medaerror.MedaError{Message: "select returns more than 1 rows"}
	ErrInvalidTableName  medaerror.MedaError = medaerror.MedaError{Message: "invalid table name"}
	ErrEmptyRecords      medaerror.MedaError = medaerror.MedaError{Message: "records empty, nothing to insert"}
	ErrMixedTables       medaerror.MedaError = medaerror.MedaError{Message: "all records must be from the same table"}
	ErrTxClosed          medaerror.MedaError = medaerror.MedaError{Message: "transaction is nil or already closed"}

	// Tunable at runtime, for example to stay under a driver's bind-parameter limit.
	MAX_MULTIPLE_INSERTS int = DEFAULT_MAX_MULTIPLE_INSERTS
)

// Object listed in the engine catalog (sqlite_master or information_schema)
type SchemaStruct struct {
	ObjectType string `json:"type"           db:"type"`
	ObjectName string `json:"name"           db:"name"`
	TableName  string `json:"tbl_name"       db:"tbl_name"`
	RootPage   int    `json:"rootpage"       db:"rootpage"`
	SQLCommand string `json:"sql"            db:"sql"`
	Hidden     bool   `json:"hidden"         db:"hidden"`
}

// Make sure other table struct that you use implement this method
type TableStruct interface {
	TableName() string
}

// Result of a statement that does not return rows. Timing is in seconds.
type BasicSQLResult struct {
	Error        error
	Timing       float64
	RowsAffected int
	LastInsertID int
}

type ParametereizedSQL struct {
	Query  string        `json:"query"`
	Values []interface{} `json:"values,omitempty"`
}

// Condition describes a WHERE tree plus ordering and paging for a single table.
// Sample usage:
//
//	// Simple condition
//	condition := Condition{Field: "customer_id", Operator: "=", Value: 7}
//	// Output: WHERE customer_id = ?
//
//	// Unary operators take no value
//	condition := Condition{Field: "shipped_date", Operator: "IS NULL"}
//	// Output: WHERE shipped_date IS NULL
//
//	// Nested condition with OR logic
//	condition := Condition{
//	  Logic: "OR",
//	  Nested: []Condition{
//	    {Field: "coupon_code", Operator: "=", Value: "50OFF"},
//	    {Field: "coupon_code", Operator: "=", Value: "FREESHIPPING"},
//	  },
//	}
//	// Output: WHERE (coupon_code = ?) OR (coupon_code = ?)
type Condition struct {
	Field    string      `json:"field,omitempty"        db:"field"`
	Operator string      `json:"operator,omitempty"     db:"operator"`
	Value    interface{} `json:"value,omitempty"        db:"value"`
	Logic    string      `json:"logic,omitempty"        db:"logic"`    // "AND" or "OR"
	Nested   []Condition `json:"nested,omitempty"       db:"nested"`   // For nested conditions
	OrderBy  []string    `json:"order_by,omitempty"     db:"order_by"` // Fields to order by
	GroupBy  []string    `json:"group_by,omitempty"     db:"group_by"` // Fields to group by
	Limit    int         `json:"limit,omitempty"        db:"limit"`    // Limit for pagination
	Offset   int         `json:"offset,omitempty"       db:"offset"`   // Offset for pagination
}

// And returns a new Condition joining the given conditions with AND.
func (c *Condition) And(conditions ...Condition) *Condition {
	return &Condition{
		Logic:  "AND",
		Nested: conditions,
	}
}

// Or returns a new Condition joining the given conditions with OR.
func (c *Condition) Or(conditions ...Condition) *Condition {
	return &Condition{
		Logic:  "OR",
		Nested: conditions,
	}
}

func isUnaryOperator(op string) bool {
	switch strings.ToUpper(strings.TrimSpace(op)) {
	case "IS NULL", "IS NOT NULL":
		return true
	}
	return false
}

// ToWhereString converts a Condition into a WHERE clause with '?' placeholders
// and the matching values. Nested conditions are wrapped in parentheses and
// joined with Logic (AND when empty).
func (c *Condition) ToWhereString() (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if c.Field != "" {
		if isUnaryOperator(c.Operator) {
			clauses = append(clauses, fmt.Sprintf("%s %s", c.Field, strings.ToUpper(strings.TrimSpace(c.Operator))))
		} else {
			clauses = append(clauses, fmt.Sprintf("%s %s ?", c.Field, c.Operator))
			args = append(args, c.Value)
		}
	} else {
		for _, nested := range c.Nested {
			subClause, subArgs := nested.ToWhereString()
			if subClause == "" {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("(%s)", subClause))
			args = append(args, subArgs...)
		}
	}

	logic := strings.ToUpper(strings.TrimSpace(c.Logic))
	if logic == "" {
		logic = "AND"
	}
	return strings.Join(clauses, fmt.Sprintf(" %s ", logic)), args
}

// ToSelectString generates a complete SELECT for tableName with WHERE, GROUP BY,
// ORDER BY and LIMIT/OFFSET taken from the condition.
// Usage:
//
//	query, values, err := condition.ToSelectString("orders")
func (c *Condition) ToSelectString(tableName string) (string, []interface{}, error) {
	if err := ValidateTableName(tableName); err != nil {
		return "", nil, err
	}
	whereClause, values := c.ToWhereString()

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(tableName)
	if strings.TrimSpace(whereClause) != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereClause)
	}
	if len(c.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(c.GroupBy, ", "))
	}
	if len(c.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(c.OrderBy, ", "))
	}

	// if offset has value but limit is not, then use default limit
	limit := c.Limit
	if c.Offset > 0 && limit < 1 {
		limit = DEFAULT_PAGINATION_LIMIT
	}
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
		if c.Offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", c.Offset)
		}
	}
	return sb.String(), values, nil
}

// WriteDebug prints one line per schema object, optionally with its DDL.
//
//	Object [table] : orders[orders] - CREATE TABLE orders (...)
func (s SchemaStruct) WriteDebug(w io.Writer, sql bool) {
	rawSql := " - " + s.SQLCommand
	if !sql || s.SQLCommand == "" {
		rawSql = ""
	}
	fmt.Fprintf(w, "Object [%s] : %s[%s]%s\n", s.ObjectType, s.TableName, s.ObjectName, rawSql)
}
