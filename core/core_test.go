package core

import (
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	notFound := NewError(KindNotFound, "student not found")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain", err: sql.ErrNoRows, want: KindUnknown},
		{name: "sentinel", err: notFound, want: KindNotFound},
		{name: "wrapped sentinel", err: errors.Wrap(notFound, "loading student"), want: KindNotFound},
		{name: "with message", err: errors.WithMessage(notFound, "id 7"), want: KindNotFound},
		{name: "validation", err: NewValidationError(nil, FieldError{Field: "name", Error: "name is required"}), want: KindValidation},
		{name: "validation wrapping sentinel", err: NewValidationError(notFound), want: KindValidation},
		{name: "classified cause", err: WrapError(KindStore, sql.ErrConnDone), want: KindStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(KindStore, nil))

	err := WrapError(KindStore, sql.ErrConnDone)
	assert.Equal(t, sql.ErrConnDone.Error(), err.Error())
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.True(t, IsKind(err, KindStore))
	assert.Equal(t, "StoreError", KindOf(err).String())
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "", (&ValidationError{}).Error())
	assert.Equal(t, "name: name is required",
		NewValidationError(nil, FieldError{Field: "name", Error: "name is required"}).Error())
	assert.Equal(t, "boom", NewValidationError(errors.New("boom")).Error())
}

func TestFoldAccents(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "", want: ""},
		{in: "JOÃO", want: "joao"},
		{in: "Conceição", want: "conceicao"},
		{in: "Ballet Clássico", want: "ballet classico"},
		{in: "plain", want: "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FoldAccents(tt.in); got != tt.want {
				t.Errorf("FoldAccents() = %q, want %q", got, tt.want)
			}
		})
	}
	assert.True(t, ContainsFold("João da Silva", "JOAO"))
	assert.True(t, ContainsFold("Maria Conceição", "ceic"))
	assert.False(t, ContainsFold("Maria", "joão"))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Ana", CleanString("  Ana \n"))
	assert.Equal(t, "ana@x.org", CleanString(" ANA@X.org ", true))
	assert.Equal(t, "11987654321", RemoveSpaces(" 11 98765\t4321 "))
}

func TestValidator_Struct(t *testing.T) {
	type payload struct {
		Name   string `json:"name" validate:"required,notblank"`
		Status string `json:"status" validate:"omitempty,attendance_status"`
		Kind   string `json:"record_kind" validate:"omitempty,record_kind"`
	}
	v := NewValidator()

	tests := []struct {
		name      string
		in        payload
		wantField string
		wantMsg   string
	}{
		{name: "valid", in: payload{Name: "Ana", Status: "P", Kind: "AUTO"}},
		{name: "missing name", in: payload{}, wantField: "name", wantMsg: "name is required"},
		{name: "blank name", in: payload{Name: "   "}, wantField: "name", wantMsg: "name must not be blank"},
		{name: "bad status", in: payload{Name: "Ana", Status: "X"}, wantField: "status",
			wantMsg: "status must be one of P (present), F (absent) or J (justified)"},
		{name: "bad kind", in: payload{Name: "Ana", Kind: "manual"}, wantField: "record_kind",
			wantMsg: "record_kind must be one of MANUAL, IMPORTED or AUTO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "want *ValidationError, got %T", err)
			require.NotEmpty(t, vErr.Fields)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			assert.Equal(t, tt.wantMsg, vErr.Fields[0].Error)
			assert.True(t, IsKind(err, KindValidation))
		})
	}
}

func TestValidator_Var(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Var("status", "J", "attendance_status"))

	err := v.Var("status", "X", "attendance_status")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Contains(t, err.Error(), "status must be one of P")
}

func TestOperator_roles(t *testing.T) {
	tests := []struct {
		role      string
		wantValid bool
		wantAdmin bool
	}{
		{role: RoleAdminMaster, wantValid: true, wantAdmin: true},
		{role: RoleAdmin, wantValid: true, wantAdmin: true},
		{role: RoleUser, wantValid: true},
		{role: "root"},
		{role: ""},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			op := Operator{Name: "secretaria", Role: tt.role}
			assert.Equal(t, tt.wantValid, op.ValidRole())
			assert.Equal(t, tt.wantAdmin, op.IsAdmin())
		})
	}
}
