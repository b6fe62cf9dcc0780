package sqlxrepos

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/student"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound error
		want     core.Kind
		wantErr  error
	}{
		{name: "no rows, sentinel", err: sql.ErrNoRows, notFound: student.ErrNotFound, want: core.KindNotFound, wantErr: student.ErrNotFound},
		{name: "no rows, generic", err: errors.Wrap(sql.ErrNoRows, "scanning"), want: core.KindNotFound, wantErr: sql.ErrNoRows},
		{name: "unique", err: &pq.Error{Code: "23505"}, want: core.KindConflict},
		{name: "foreign key", err: &pq.Error{Code: "23503"}, want: core.KindReference},
		{name: "check", err: &pq.Error{Code: "23514"}, want: core.KindValidation},
		{name: "too long", err: &pq.Error{Code: "22001"}, want: core.KindValidation},
		{name: "undefined column", err: &pq.Error{Code: "42703"}, want: core.KindSchema},
		{name: "undefined table", err: &pq.Error{Code: "42P01"}, want: core.KindSchema},
		{name: "admin shutdown", err: &pq.Error{Code: "08006"}, want: core.KindTransientConnect},
		{name: "other pq", err: &pq.Error{Code: "40001", Message: "could not serialize access"}, want: core.KindStore},
		{name: "other", err: errors.New("boom"), want: core.KindStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, tt.notFound)
			assert.Equal(t, tt.want, core.KindOf(got))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(got, tt.wantErr), "translate() = %v, want %v", got, tt.wantErr)
			}
		})
	}
	assert.Nil(t, translate(nil, nil))

	// store messages are surfaced verbatim
	pqErr := &pq.Error{Code: "40001", Message: "could not serialize access"}
	assert.Equal(t, pqErr.Error(), translate(pqErr, nil).Error())
}

func TestLikeContains(t *testing.T) {
	assert.Equal(t, "%ana%", likeContains("ana"))
	assert.Equal(t, `%100\%\_a\\b%`, likeContains(`100%_a\b`))
}

func TestFoldedNameLike(t *testing.T) {
	sql, args, err := foldedNameLike("nome", "JOÃO").ToSql()
	assert.NoError(t, err)
	assert.Equal(t, "translate(lower(nome), ?, ?) LIKE ?", sql)
	assert.Equal(t, []interface{}{accentFrom, accentTo, "%joao%"}, args)
}

func TestAccentTable(t *testing.T) {
	assert.Equal(t, len([]rune(accentFrom)), len(accentTo))
	for _, r := range "áàâãäéêíóôõúüçñýÿăęłőš" {
		folded := core.FoldAccents(string(r))
		if folded == string(r) {
			assert.NotContains(t, accentFrom, string(r), "%q does not fold", r)
			continue
		}
		i := strings.IndexRune(accentFrom, r)
		if assert.GreaterOrEqual(t, i, 0, "%q missing from accentFrom", r) {
			pos := len([]rune(accentFrom[:i]))
			assert.Equal(t, folded, string(accentTo[pos]), "%q", r)
		}
	}
}
