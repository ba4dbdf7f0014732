package ddl

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Ident is a quoted, lower-cased SQL identifier ready to be spliced into a
// statement.
type Ident string

func (i Ident) String() string { return string(i) }

// Normalize returns the name an identifier takes once quoted: raw lower-cased.
// Two names that normalize equally refer to the same table or column.
func Normalize(raw string) string {
	return cases.Lower(language.Und).String(raw)
}

// Quote lower-cases raw and wraps it in double quotes. Embedded double quotes
// are doubled so the result is always a single identifier token.
func Quote(raw string) Ident {
	return Ident(`"` + strings.ReplaceAll(Normalize(raw), `"`, `""`) + `"`)
}
