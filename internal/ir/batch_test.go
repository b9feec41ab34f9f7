package ir

import "testing"

func TestBatchAppendRowAndRows(t *testing.T) {
	b := NewBatch([]string{"id", "name"})
	if b.Rows() != 0 {
		t.Fatalf("fresh batch Rows() = %d, want 0", b.Rows())
	}

	b.AppendRow(NewInt(1), NewText("alice"))
	b.AppendRow(NewInt(2), NewText("bob"))
	if b.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2", b.Rows())
	}

	row := b.Row(1)
	if !row[0].Equal(NewInt(2)) || !row[1].Equal(NewText("bob")) {
		t.Errorf("Row(1) = %v, want [2 bob]", row)
	}
}

func TestBatchAppendRowPadsMissingTrailingValues(t *testing.T) {
	b := NewBatch([]string{"id", "name"})
	b.AppendRow(NewInt(1))
	if !b.Data["name"][0].IsNull() {
		t.Error("a column with no supplied value should be padded with Null()")
	}
}

func TestBatchConcat(t *testing.T) {
	a := NewBatch([]string{"id"})
	a.AppendRow(NewInt(1))
	b := NewBatch([]string{"id"})
	b.AppendRow(NewInt(2))
	b.AppendRow(NewInt(3))

	a.Concat(b)
	if a.Rows() != 3 {
		t.Fatalf("Rows() after Concat = %d, want 3", a.Rows())
	}
	want := []int64{1, 2, 3}
	for i, w := range want {
		if a.Data["id"][i].Int() != w {
			t.Errorf("row %d = %d, want %d", i, a.Data["id"][i].Int(), w)
		}
	}
}

func TestBatchEmptyColumnsHaveZeroRows(t *testing.T) {
	b := NewBatch(nil)
	if b.Rows() != 0 {
		t.Errorf("Rows() on a columnless batch = %d, want 0", b.Rows())
	}
}
