package translator

import (
	"testing"

	"github.com/launix-de/lumadb/internal/ir"
)

func TestTranslateSelectBasic(t *testing.T) {
	plan, err := Translate("SELECT id, name FROM users WHERE age > 18")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("len(plan) = %d, want 1", len(plan))
	}
	scan := plan[0]
	if scan.Kind != ir.OpScan {
		t.Fatalf("plan[0].Kind = %v, want OpScan", scan.Kind)
	}
	if scan.Table != "users" {
		t.Errorf("Table = %q, want %q", scan.Table, "users")
	}
	if len(scan.Columns) != 2 || scan.Columns[0] != "id" || scan.Columns[1] != "name" {
		t.Errorf("Columns = %v, want [id name]", scan.Columns)
	}
	if scan.Filter == nil {
		t.Fatal("expected a WHERE filter")
	}
	if scan.Filter.Kind != ir.ExprCall || scan.Filter.Fn != ">" {
		t.Errorf("Filter = %+v, want a > comparison", scan.Filter)
	}
}

func TestTranslateSelectStarHasNoColumns(t *testing.T) {
	plan, err := Translate("SELECT * FROM users")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(plan[0].Columns) != 0 {
		t.Errorf("SELECT * should produce an empty column list, got %v", plan[0].Columns)
	}
}

func TestTranslateSelectOrderByAndLimit(t *testing.T) {
	plan, err := Translate("SELECT id FROM users ORDER BY id DESC LIMIT 10 OFFSET 5")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("len(plan) = %d, want 3 (scan, sort, limit)", len(plan))
	}
	if plan[1].Kind != ir.OpSort || len(plan[1].SortKeys) != 1 || !plan[1].SortKeys[0].Desc {
		t.Errorf("plan[1] = %+v, want a single DESC sort key on id", plan[1])
	}
	if plan[2].Kind != ir.OpLimit || plan[2].Limit != 10 || plan[2].Offset != 5 {
		t.Errorf("plan[2] = %+v, want Limit=10 Offset=5", plan[2])
	}
}

func TestTranslateInsert(t *testing.T) {
	plan, err := Translate("INSERT INTO users (id, name) VALUES (1, 'alice')")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	dml := plan[0]
	if dml.Kind != ir.OpDML || dml.DML.Kind != ir.DMLInsert {
		t.Fatalf("plan[0] = %+v, want an insert DML", dml)
	}
	if dml.DML.Table != "users" {
		t.Errorf("Table = %q, want %q", dml.DML.Table, "users")
	}
	if len(dml.DML.Columns) != 2 || len(dml.DML.Values) != 2 {
		t.Fatalf("Columns/Values = %v/%v, want 2 each", dml.DML.Columns, dml.DML.Values)
	}
	if !dml.DML.Values[0].Equal(ir.NewInt(1)) {
		t.Errorf("Values[0] = %v, want 1", dml.DML.Values[0])
	}
	if !dml.DML.Values[1].Equal(ir.NewText("alice")) {
		t.Errorf("Values[1] = %v, want alice", dml.DML.Values[1])
	}
}

func TestTranslateUpdateWithWhere(t *testing.T) {
	plan, err := Translate("UPDATE users SET name='bob' WHERE id=1")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	dml := plan[0].DML
	if dml.Kind != ir.DMLUpdate {
		t.Fatalf("DML.Kind = %v, want DMLUpdate", dml.Kind)
	}
	if dml.Filter == nil {
		t.Fatal("expected a WHERE filter")
	}
}

func TestTranslateDelete(t *testing.T) {
	plan, err := Translate("DELETE FROM users WHERE id = 5")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if plan[0].DML.Kind != ir.DMLDelete {
		t.Errorf("DML.Kind = %v, want DMLDelete", plan[0].DML.Kind)
	}
}

func TestTranslateCreateTableAndIndex(t *testing.T) {
	plan, err := Translate("CREATE TABLE t (id INT, name TEXT)")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	ddl := plan[0].DDL
	if ddl.Kind != ir.DDLCreateTable || len(ddl.Columns) != 2 {
		t.Fatalf("DDL = %+v, want a 2-column CREATE TABLE", ddl)
	}
	if ddl.Columns[0].Name != "id" || ddl.Columns[0].Type != "INT" {
		t.Errorf("Columns[0] = %+v, want {id INT}", ddl.Columns[0])
	}

	plan, err = Translate("CREATE INDEX idx1 ON t (id)")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	ddl = plan[0].DDL
	if ddl.Kind != ir.DDLCreateIndex || ddl.IndexName != "idx1" || ddl.Table != "t" {
		t.Errorf("DDL = %+v, want a CREATE INDEX on t", ddl)
	}
}

func TestTranslateDropTable(t *testing.T) {
	plan, err := Translate("DROP TABLE t")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if plan[0].DDL.Kind != ir.DDLDropTable || plan[0].DDL.Table != "t" {
		t.Errorf("DDL = %+v, want a DROP TABLE t", plan[0].DDL)
	}
}

func TestTranslateErrors(t *testing.T) {
	cases := []string{
		"",
		"SELECT id users", // missing FROM
		"SELECT id FROM users WHERE id ~ 1", // unsupported operator
		"FROBNICATE users",
		"INSERT INTO users VALUES (1)", // missing column list
	}
	for _, stmt := range cases {
		if _, err := Translate(stmt); err == nil {
			t.Errorf("Translate(%q) should return an error", stmt)
		}
	}
}

func TestTranslateAndChainFilter(t *testing.T) {
	plan, err := Translate("SELECT id FROM t WHERE a = 1 AND b = 2")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	f := plan[0].Filter
	if f == nil || f.Fn != "and" || len(f.Args) != 2 {
		t.Fatalf("Filter = %+v, want a 2-arg 'and' call", f)
	}
}
