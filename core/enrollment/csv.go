package enrollment

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/amigodopovo/academia/core"
)

// ImportRow is one data line of an import file. Line is the 1-based data row number.
type ImportRow struct {
	Line      int
	Name      string
	Activity  string
	Phone     string
	Email     string
	Address   string
	BirthDate string
	Class     string
	Notes     string
}

// header names, accent folded and lowered
const (
	colName      = "nome"
	colActivity  = "atividade"
	colPhone     = "telefone"
	colEmail     = "email"
	colAddress   = "endereco"
	colBirthDate = "datanascimento"
	colClass     = "turma"
	colNotes     = "observacoes"
)

// ParseCSV reads a comma separated, UTF-8 file whose first line is a header.
// Nome and Atividade columns are required; unknown columns are ignored.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err == io.EOF {
		return nil, core.NewValidationError(errors.New("missing header row"))
	}
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading header"))
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		key := strings.NewReplacer(" ", "", "_", "").Replace(core.FoldAccents(core.CleanString(h)))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	for _, required := range []string{colName, colActivity} {
		if _, ok := idx[required]; !ok {
			return nil, core.NewValidationError(
				errors.Errorf("missing %q column", required),
				core.FieldError{Field: required, Error: "column is required"},
			)
		}
	}

	var rows []ImportRow
	for line := 1; ; line++ {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.NewValidationError(errors.Wrapf(err, "reading row %d", line))
		}
		get := func(col string) string {
			if i, ok := idx[col]; ok && i < len(rec) {
				return core.CleanString(rec[i])
			}
			return ""
		}
		rows = append(rows, ImportRow{
			Line:      line,
			Name:      get(colName),
			Activity:  get(colActivity),
			Phone:     get(colPhone),
			Email:     get(colEmail),
			Address:   get(colAddress),
			BirthDate: get(colBirthDate),
			Class:     get(colClass),
			Notes:     get(colNotes),
		})
	}
	return rows, nil
}
