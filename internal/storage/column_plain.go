package storage

import "github.com/launix-de/lumadb/internal/ir"

// plainColumn is the fallback encoding: every value stored verbatim.
// Used whenever no more specific encoding's precondition holds (mixed
// types, high-cardinality non-numeric data), mirroring memcp's
// StorageSCMER "catch all, generalize later" storage in storage-scmer.go.
type plainColumn struct {
	values   []ir.Value
	nulls    []bool
	hasNull  bool
	distinct map[uint64]struct{}
}

func newPlainColumn() *plainColumn { return &plainColumn{} }

func (c *plainColumn) String() string     { return "Plain" }
func (c *plainColumn) Encoding() Encoding { return EncodingPlain }
func (c *plainColumn) GetValue(i uint) ir.Value { return c.values[i] }
func (c *plainColumn) RowCount() uint     { return uint(len(c.values)) }
func (c *plainColumn) NullBitmap() []bool {
	if !c.hasNull {
		return nil
	}
	return c.nulls
}
func (c *plainColumn) DistinctCount() uint { return uint(len(c.distinct)) }

func (c *plainColumn) prepare() { c.distinct = make(map[uint64]struct{}) }
func (c *plainColumn) scan(i uint, v ir.Value) {
	if v.IsNull() {
		c.hasNull = true
		return
	}
	c.distinct[hashValue(v)] = struct{}{}
}
func (c *plainColumn) proposeCompression() ColumnStorage { return nil }
func (c *plainColumn) init(count uint) {
	c.values = make([]ir.Value, count)
	if c.hasNull {
		c.nulls = make([]bool, count)
	}
}
func (c *plainColumn) build(i uint, v ir.Value) {
	c.values[i] = v
	if c.hasNull {
		c.nulls[i] = v.IsNull()
	}
}
func (c *plainColumn) finish() {}
