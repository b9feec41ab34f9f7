package ir

// Batch is a columnar result produced by the executor: one Values slice
// per requested column, all of equal length (the row count), plus the
// column name order. An empty Batch (Rows()==0) is a valid result for an
// empty scan.
type Batch struct {
	Columns []string
	Data    map[string][]Value
}

func NewBatch(columns []string) *Batch {
	data := make(map[string][]Value, len(columns))
	for _, c := range columns {
		data[c] = nil
	}
	return &Batch{Columns: columns, Data: data}
}

// Rows reports the batch's row count, taken from its first column (all
// columns in a Batch are equal length, mirroring the Segment invariant.
func (b *Batch) Rows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return len(b.Data[b.Columns[0]])
}

// AppendRow appends one value per column, in Columns order.
func (b *Batch) AppendRow(values ...Value) {
	for i, c := range b.Columns {
		if i < len(values) {
			b.Data[c] = append(b.Data[c], values[i])
		} else {
			b.Data[c] = append(b.Data[c], Null())
		}
	}
}

// Row reconstructs row i as a slice ordered like Columns.
func (b *Batch) Row(i int) []Value {
	row := make([]Value, len(b.Columns))
	for j, c := range b.Columns {
		row[j] = b.Data[c][i]
	}
	return row
}

// Concat appends another batch with the same column set onto this one,
// used to merge per-shard batches in scatter-gather.
func (b *Batch) Concat(other *Batch) {
	for _, c := range b.Columns {
		b.Data[c] = append(b.Data[c], other.Data[c]...)
	}
}
