/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package translator turns the SQL-ish text carried by the Postgres,
// MySQL and Cassandra (CQL) wire protocols into an ir.QueryPlan. It
// understands one statement at a time: SELECT, INSERT, UPDATE, DELETE,
// CREATE TABLE, DROP TABLE and CREATE INDEX, with a WHERE clause limited
// to an AND-chain of "column op literal" comparisons. Anything wider
// (subqueries, joins, expressions in WHERE) fails with a Translator
// error rather than guessing — memcp's own SQL-facing layer
// (the never-built luma-cassandra/src/translator.rs in the Rust
// precursor) leaves the same ground uncovered, and there is no
// requirement to commit to a full SQL grammar for this gateway.
package translator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
)

// Translate parses one SQL/CQL statement into a one-step-at-a-time
// QueryPlan: a Scan/DML/DDL head, optionally followed by Sort and Limit
// stages for SELECT. A SELECT's column list goes into the Scan itself;
// no Project stage is emitted.
func Translate(stmt string) (ir.QueryPlan, error) {
	toks := tokenize(stmt)
	if len(toks) == 0 {
		return nil, lumaerr.Translator("empty statement")
	}
	p := &parser{toks: toks}
	switch strings.ToUpper(toks[0]) {
	case "SELECT":
		return p.parseSelect()
	case "INSERT":
		return p.parseInsert()
	case "UPDATE":
		return p.parseUpdate()
	case "DELETE":
		return p.parseDelete()
	case "CREATE":
		return p.parseCreate()
	case "DROP":
		return p.parseDrop()
	default:
		return nil, lumaerr.Translator(fmt.Sprintf("unsupported statement: %s", toks[0]))
	}
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) peekUpper() string { return strings.ToUpper(p.peek()) }

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(kw string) error {
	if p.peekUpper() != kw {
		return lumaerr.Translator(fmt.Sprintf("expected %s, got %q", kw, p.peek()))
	}
	p.pos++
	return nil
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

// parseSelect handles: SELECT <cols|*> FROM <table> [WHERE <cond>]
// [ORDER BY <col> [ASC|DESC]] [LIMIT <n> [OFFSET <n>]]
func (p *parser) parseSelect() (ir.QueryPlan, error) {
	p.next() // SELECT
	var cols []string
	for !p.done() && p.peekUpper() != "FROM" {
		c := strings.TrimSuffix(p.next(), ",")
		if c != "*" {
			cols = append(cols, c)
		}
		if p.peek() == "," {
			p.next()
		}
	}
	if err := p.expect("FROM"); err != nil {
		return nil, err
	}
	table := p.next()

	var filter *ir.Expr
	if p.peekUpper() == "WHERE" {
		p.next()
		e, err := p.parseAndChain()
		if err != nil {
			return nil, err
		}
		filter = &e
	}

	plan := ir.QueryPlan{ir.NewScan(table, cols, filter)}

	if p.peekUpper() == "ORDER" {
		p.next()
		if err := p.expect("BY"); err != nil {
			return nil, err
		}
		var keys []ir.SortKey
		for {
			col := p.next()
			desc := false
			switch p.peekUpper() {
			case "DESC":
				desc = true
				p.next()
			case "ASC":
				p.next()
			}
			keys = append(keys, ir.SortKey{Column: col, Desc: desc})
			if p.peek() == "," {
				p.next()
				continue
			}
			break
		}
		plan = append(plan, ir.NewSort(keys))
	}

	if p.peekUpper() == "LIMIT" {
		p.next()
		n, err := strconv.Atoi(p.next())
		if err != nil {
			return nil, lumaerr.Translator("LIMIT requires an integer")
		}
		offset := 0
		if p.peekUpper() == "OFFSET" {
			p.next()
			offset, err = strconv.Atoi(p.next())
			if err != nil {
				return nil, lumaerr.Translator("OFFSET requires an integer")
			}
		}
		plan = append(plan, ir.NewLimit(n, offset))
	}

	return plan, nil
}

// parseAndChain parses "cond [AND cond]*", each cond "col op literal".
func (p *parser) parseAndChain() (ir.Expr, error) {
	lhs, err := p.parseComparison()
	if err != nil {
		return ir.Expr{}, err
	}
	for p.peekUpper() == "AND" {
		p.next()
		rhs, err := p.parseComparison()
		if err != nil {
			return ir.Expr{}, err
		}
		lhs = ir.Call("and", lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseComparison() (ir.Expr, error) {
	col := p.next()
	var op, litTok string
	if i := strings.IndexAny(col, "<>=!"); i > 0 {
		// compact "col<op>lit" token, e.g. WHERE id=1
		op = col[i : i+1]
		if two := col[i:]; len(two) >= 2 && (two[:2] == "<=" || two[:2] == ">=" || two[:2] == "<>" || two[:2] == "!=") {
			op = two[:2]
		}
		col, litTok = col[:i], col[i+len(op):]
	} else {
		op = p.next()
	}
	switch op {
	case "=", "<>", "!=", "<", "<=", ">", ">=":
	default:
		return ir.Expr{}, lumaerr.Translator(fmt.Sprintf("unsupported operator %q", op))
	}
	if op == "!=" {
		op = "<>"
	}
	if litTok == "" {
		litTok = p.next()
	}
	lit, err := parseLiteral(litTok)
	if err != nil {
		return ir.Expr{}, err
	}
	return ir.Call(op, ir.Col(col), ir.Lit(lit)), nil
}

func parseLiteral(tok string) (ir.Value, error) {
	if len(tok) >= 2 && tok[0] == '\'' && tok[len(tok)-1] == '\'' {
		return ir.NewText(tok[1 : len(tok)-1]), nil
	}
	if strings.EqualFold(tok, "NULL") {
		return ir.Null(), nil
	}
	if strings.EqualFold(tok, "TRUE") {
		return ir.NewBool(true), nil
	}
	if strings.EqualFold(tok, "FALSE") {
		return ir.NewBool(false), nil
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return ir.NewInt(i), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return ir.NewFloat(f), nil
	}
	return ir.Value{}, lumaerr.Translator(fmt.Sprintf("unrecognized literal %q", tok))
}

// parseInsert handles: INSERT INTO <table> (<cols>) VALUES (<literals>)
func (p *parser) parseInsert() (ir.QueryPlan, error) {
	p.next() // INSERT
	if err := p.expect("INTO"); err != nil {
		return nil, err
	}
	table := p.next()
	if p.peek() != "(" {
		return nil, lumaerr.Translator("INSERT requires an explicit column list")
	}
	p.next()
	var cols []string
	for p.peek() != ")" {
		cols = append(cols, strings.TrimSuffix(p.next(), ","))
		if p.peek() == "," {
			p.next()
		}
	}
	p.next() // ")"
	if err := p.expect("VALUES"); err != nil {
		return nil, err
	}
	if p.peek() != "(" {
		return nil, lumaerr.Translator("expected ( after VALUES")
	}
	p.next()
	var values []ir.Value
	for p.peek() != ")" {
		lit, err := parseLiteral(strings.TrimSuffix(p.next(), ","))
		if err != nil {
			return nil, err
		}
		values = append(values, lit)
		if p.peek() == "," {
			p.next()
		}
	}
	p.next() // ")"
	return ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLInsert, Table: table, Columns: cols, Values: values})}, nil
}

// parseUpdate handles: UPDATE <table> SET col=lit[, col=lit]* [WHERE cond]
func (p *parser) parseUpdate() (ir.QueryPlan, error) {
	p.next() // UPDATE
	table := p.next()
	if err := p.expect("SET"); err != nil {
		return nil, err
	}
	var cols []string
	var values []ir.Value
	for {
		assign := p.next()
		col, lit, ok := strings.Cut(assign, "=")
		if !ok {
			return nil, lumaerr.Translator("expected col=value in SET clause")
		}
		v, err := parseLiteral(strings.TrimSuffix(lit, ","))
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		values = append(values, v)
		if p.peek() == "," {
			p.next()
			continue
		}
		break
	}
	var filter *ir.Expr
	if p.peekUpper() == "WHERE" {
		p.next()
		e, err := p.parseAndChain()
		if err != nil {
			return nil, err
		}
		filter = &e
	}
	return ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLUpdate, Table: table, Columns: cols, Values: values, Filter: filter})}, nil
}

// parseDelete handles: DELETE FROM <table> [WHERE cond]
func (p *parser) parseDelete() (ir.QueryPlan, error) {
	p.next() // DELETE
	if err := p.expect("FROM"); err != nil {
		return nil, err
	}
	table := p.next()
	var filter *ir.Expr
	if p.peekUpper() == "WHERE" {
		p.next()
		e, err := p.parseAndChain()
		if err != nil {
			return nil, err
		}
		filter = &e
	}
	return ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLDelete, Table: table, Filter: filter})}, nil
}

// parseCreate handles: CREATE TABLE <table> (<col> <type>, ...) and
// CREATE INDEX <name> ON <table> (<cols>).
func (p *parser) parseCreate() (ir.QueryPlan, error) {
	p.next() // CREATE
	switch p.peekUpper() {
	case "TABLE":
		p.next()
		table := p.next()
		if p.peek() != "(" {
			return nil, lumaerr.Translator("expected ( after CREATE TABLE name")
		}
		p.next()
		var cols []ir.ColumnDef
		for p.peek() != ")" {
			name := p.next()
			typ := strings.TrimSuffix(p.next(), ",")
			cols = append(cols, ir.ColumnDef{Name: name, Type: typ})
			if p.peek() == "," {
				p.next()
			}
		}
		p.next() // ")"
		return ir.QueryPlan{ir.NewDDL(ir.DDL{Kind: ir.DDLCreateTable, Table: table, Columns: cols})}, nil
	case "INDEX":
		p.next()
		name := p.next()
		if err := p.expect("ON"); err != nil {
			return nil, err
		}
		table := p.next()
		if p.peek() != "(" {
			return nil, lumaerr.Translator("expected ( after CREATE INDEX table")
		}
		p.next()
		var cols []string
		for p.peek() != ")" {
			cols = append(cols, strings.TrimSuffix(p.next(), ","))
			if p.peek() == "," {
				p.next()
			}
		}
		p.next() // ")"
		return ir.QueryPlan{ir.NewDDL(ir.DDL{Kind: ir.DDLCreateIndex, Table: table, IndexName: name, IndexCols: cols})}, nil
	default:
		return nil, lumaerr.Translator("expected TABLE or INDEX after CREATE")
	}
}

// parseDrop handles: DROP TABLE <table>
func (p *parser) parseDrop() (ir.QueryPlan, error) {
	p.next() // DROP
	if err := p.expect("TABLE"); err != nil {
		return nil, err
	}
	table := p.next()
	return ir.QueryPlan{ir.NewDDL(ir.DDL{Kind: ir.DDLDropTable, Table: table})}, nil
}

// tokenize splits on whitespace and punctuation, keeping quoted string
// literals intact and parenthesis/comma as their own tokens.
func tokenize(s string) []string {
	var toks []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			toks = append(toks, buf.String())
			buf.Reset()
		}
	}
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			buf.WriteByte(c)
			inQuote = !inQuote
		case inQuote:
			buf.WriteByte(c)
		case c == '(' || c == ')' || c == ',':
			flush()
			toks = append(toks, string(c))
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return toks
}
