package sqlxrepos

import (
	"database/sql"
	"strings"
	"unicode"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/storage/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// translate() arguments for accent-insensitive name searches, built from core.FoldAccents
// over the lowercase Latin-1 Supplement and Latin Extended-A letters.
var accentFrom, accentTo = accentTable(0xC0, 0x17F)

func accentTable(lo, hi rune) (string, string) {
	var from, to strings.Builder
	for r := lo; r <= hi; r++ {
		if !unicode.IsLower(r) {
			continue
		}
		folded := core.FoldAccents(string(r))
		if len(folded) == 1 && folded != string(r) {
			from.WriteRune(r)
			to.WriteString(folded)
		}
	}
	return from.String(), to.String()
}

// pq error codes with a dedicated kind
var codeKinds = map[pq.ErrorCode]core.Kind{
	"23505": core.KindConflict,   // unique_violation
	"23503": core.KindReference,  // foreign_key_violation
	"23514": core.KindValidation, // check_violation
	"23502": core.KindValidation, // not_null_violation
	"22001": core.KindValidation, // string_data_right_truncation
	"22P02": core.KindValidation, // invalid_text_representation
	"22007": core.KindValidation, // invalid_datetime_format
	"42703": core.KindSchema,     // undefined_column
	"42P01": core.KindSchema,     // undefined_table
}

// translate classifies a store error. sql.ErrNoRows becomes notFound (a generic NotFound when nil);
// anything unrecognised is a KindStore error carrying the store message verbatim.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		if notFound != nil {
			return notFound
		}
		return core.WrapError(core.KindNotFound, err)
	}
	if core.KindOf(err) != core.KindUnknown {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := codeKinds[pqErr.Code]; ok {
			return &core.Error{Kind: kind, Message: pqErr.Error(), Err: err}
		}
	}
	if cerr := database.TranslateError(err); core.KindOf(cerr) != core.KindUnknown {
		return cerr
	}
	return core.WrapError(core.KindStore, err)
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// likeContains builds a LIKE pattern matching s anywhere.
func likeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// foldedNameLike matches column against term, ignoring case and accents.
func foldedNameLike(column, term string) sq.Sqlizer {
	return sq.Expr("translate(lower("+column+"), ?, ?) LIKE ?", accentFrom, accentTo, likeContains(core.FoldAccents(term)))
}
