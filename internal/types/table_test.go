package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	return NewTable([]Record{
		RecordOf("Name", "Mobile"),
		RecordOf("Asha", "9818202888"),
		RecordOf("Ravi", nil),
	})
}

func TestRecordGetSet(t *testing.T) {
	rec := RecordOf("a")

	assert.Equal(t, "a", rec.Get(0).String())
	assert.Equal(t, KindEmpty, rec.Get(5).Kind())
	assert.Equal(t, KindEmpty, rec.Get(-1).Kind())

	rec.Set(3, NewText("d"))
	require.Len(t, rec, 4)
	assert.Equal(t, KindEmpty, rec[1].Kind())
	assert.Equal(t, "d", rec[3].String())
}

func TestRecordClone(t *testing.T) {
	rec := RecordOf("a", "b")
	cp := rec.Clone()
	cp[0] = NewText("z")

	assert.Equal(t, "a", rec[0].String())
	assert.Equal(t, []string{"z", "b"}, cp.Strings())
}

func TestRecordBlank(t *testing.T) {
	assert.True(t, RecordOf(nil, " ").IsBlank())
	assert.False(t, RecordOf(nil, "x").IsBlank())
}

func TestRecordFromStrings(t *testing.T) {
	rec := RecordFromStrings([]string{"A", "", "919818202888"})
	assert.Equal(t, KindText, rec[0].Kind())
	assert.Equal(t, KindEmpty, rec[1].Kind())
	assert.Equal(t, "919818202888", rec[2].String())
}

func TestTableHeaderAndRows(t *testing.T) {
	tbl := sampleTable()
	assert.Nil(t, tbl.Header())
	assert.Nil(t, tbl.DataRows())

	tbl.HeaderRow = 0
	assert.Equal(t, []string{"Name", "Mobile"}, tbl.Header().Strings())
	assert.Len(t, tbl.DataRows(), 2)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 2, tbl.Width())
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name     string
		header   int
		selected []int
		wantErr  error
	}{
		{"no header", NoHeader, nil, nil},
		{"valid selection", 0, []int{0, 1}, nil},
		{"header past end", 3, nil, ErrHeaderOutOfRange},
		{"negative header", -2, nil, ErrHeaderOutOfRange},
		{"column past header", 0, []int{2}, ErrColumnOutOfRange},
		{"negative column", 0, []int{-1}, ErrColumnOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := sampleTable()
			tbl.HeaderRow = tt.header
			tbl.Selected = tt.selected

			err := tbl.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
