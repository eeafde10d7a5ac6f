package orm

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func SQLAndValuesToParameterized(q string, p ...interface{}) ParametereizedSQL {
	return ParametereizedSQL{
		Query:  q,
		Values: p,
	}
}

// ValidateTableName rejects anything that is not a plain (optionally
// schema-qualified) identifier, since table names are interpolated into SQL.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

// Rebind rewrites '?' placeholders for the dialect. PostgreSQL gets $1, $2...;
// question marks inside quoted strings or identifiers are left alone.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	paramIndex := 1
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(query); i++ {
		ch := query[i]

		if ch == '\'' || ch == '"' {
			if !inQuote {
				inQuote = true
				quoteChar = ch
			} else if ch == quoteChar {
				// doubled quote is an escaped quote, stay inside
				if i+1 < len(query) && query[i+1] == ch {
					sb.WriteByte(ch)
					sb.WriteByte(ch)
					i++
					continue
				}
				inQuote = false
			}
		}

		if ch == '?' && !inQuote {
			fmt.Fprintf(&sb, "$%d", paramIndex)
			paramIndex++
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// OnlyOne enforces the exactly-one-row contract of SelectOnlyOne*.
func OnlyOne(records DBRecords) (DBRecord, error) {
	switch len(records) {
	case 0:
		return DBRecord{}, ErrSQLNoRows
	case 1:
		return records[0], nil
	}
	return DBRecord{}, ErrSQLMoreThanOneRow
}

// NormalizeTime is the single timestamp representation written to storage:
// UTC, truncated to microseconds (PostgreSQL's resolution).
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// TotalTimeElapsedInSecond sums the Timing of every result
func TotalTimeElapsedInSecond(reses []BasicSQLResult) float64 {
	sum := 0.0
	for i := range reses {
		sum += reses[i].Timing
	}
	return sum
}

// TotalRowsAffected sums RowsAffected of every result
func TotalRowsAffected(reses []BasicSQLResult) int {
	sum := 0
	for i := range reses {
		sum += reses[i].RowsAffected
	}
	return sum
}

func SecondToMs(s float64) float64 {
	return s * 1000
}

func SecondToMsString(s float64) string {
	return fmt.Sprintf("%.5f", SecondToMs(s))
}

// ConvertSQLCommands splits the lines of a .sql script into individual
// statements, dropping '--' comments and blank lines.
func ConvertSQLCommands(lines []string) []string {
	var commands []string
	var currentCommand strings.Builder

	for _, line := range lines {
		if commentIndex := strings.Index(line, "--"); commentIndex != -1 {
			line = line[:commentIndex]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		currentCommand.WriteString(line)
		currentCommand.WriteString(" ")

		if strings.Contains(line, ";") {
			parts := strings.Split(currentCommand.String(), ";")
			for _, part := range parts[:len(parts)-1] {
				if command := strings.TrimSpace(part); command != "" {
					commands = append(commands, command)
				}
			}
			currentCommand.Reset()
			currentCommand.WriteString(parts[len(parts)-1])
		}
	}

	if command := strings.TrimSpace(currentCommand.String()); command != "" {
		commands = append(commands, command)
	}
	return commands
}

// SplitSQLScript is ConvertSQLCommands over a whole script
func SplitSQLScript(script string) []string {
	return ConvertSQLCommands(strings.Split(script, "\n"))
}
