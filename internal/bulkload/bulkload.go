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

// Package bulkload imports CSV and JSON-lines files directly into a
// table through the shared executor.Engine, bypassing every wire
// protocol. Grounded on memcp's storage/csv.go (LoadCSV) and
// storage/json.go (LoadJSON): both stream a file line by line over a
// buffered channel and Insert in batches rather than loading the whole
// file into memory first; this keeps that shape but drives
// ir.DML/executor.Engine.Exec instead of memcp's table.Insert.
package bulkload

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/launix-de/lumadb/internal/executor"
	"github.com/launix-de/lumadb/internal/ir"
)

// ImportFile dispatches on path's extension: ".csv"/".tsv" import as
// delimited text with a header row, anything else (".json", ".jsonl",
// no extension) imports as one JSON object per line, matching the
// memcp's own LoadJSON format without its "#table"/"#delete"/"#update"
// control lines — those exist to let one file hold many tables and a
// mutation log, which a single --import-table invocation doesn't need.
func ImportFile(engine *executor.Engine, path, table string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("bulkload: opening %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return importCSV(engine, f, table, ',')
	case ".tsv":
		return importCSV(engine, f, table, '\t')
	default:
		return importJSONLines(engine, f, table)
	}
}

const batchSize = 4096

func importCSV(engine *executor.Engine, f *os.File, table string, delimiter rune) error {
	r := csv.NewReader(f)
	r.Comma = delimiter
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("bulkload: %s: missing header row: %w", table, err)
	}

	var rows [][]ir.Value
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if err := insertBatch(engine, table, header, rows); err != nil {
			return err
		}
		rows = rows[:0]
		return nil
	}

	for {
		record, err := r.Read()
		if err != nil {
			break // io.EOF or the first malformed line: stop reading and insert the rows read so far
		}
		row := make([]ir.Value, len(header))
		for i := range header {
			if i < len(record) {
				row[i] = parseCSVLiteral(record[i])
			} else {
				row[i] = ir.Null()
			}
		}
		rows = append(rows, row)
		if len(rows) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// parseCSVLiteral mirrors memcp's scm.Simplify(arr[i]) call in
// LoadCSV: a plain-text cell is typed by sniffing it (int, float, else
// text) rather than carrying a schema alongside the file.
func parseCSVLiteral(s string) ir.Value {
	if s == "" {
		return ir.Null()
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.NewInt(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return ir.NewFloat(f)
	}
	return ir.NewText(s)
}

func importJSONLines(engine *executor.Engine, f *os.File, table string) error {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var batch []map[string]interface{}
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		for _, doc := range batch {
			cols := make([]string, 0, len(doc))
			vals := make([]ir.Value, 0, len(doc))
			for k, v := range doc {
				cols = append(cols, k)
				vals = append(vals, jsonToIR(v))
			}
			plan := ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLInsert, Table: table, Columns: cols, Values: vals})}
			if _, err := engine.Exec(plan); err != nil {
				return fmt.Errorf("bulkload: %s: %w", table, err)
			}
		}
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return fmt.Errorf("bulkload: %s: malformed JSON line: %w", table, err)
		}
		batch = append(batch, doc)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("bulkload: %s: %w", table, err)
	}
	return flush()
}

func jsonToIR(v interface{}) ir.Value {
	switch t := v.(type) {
	case nil:
		return ir.Null()
	case bool:
		return ir.NewBool(t)
	case float64:
		return ir.NewFloat(t)
	case string:
		return ir.NewText(t)
	default:
		// arrays/objects: round-trip through JSON text rather than
		// recursively building an ir.List/ir.Map, since the gateway's
		// JSON-column type already carries raw JSON text end to end.
		b, err := json.Marshal(t)
		if err != nil {
			return ir.Null()
		}
		return ir.NewJSON(string(b))
	}
}

func insertBatch(engine *executor.Engine, table string, columns []string, rows [][]ir.Value) error {
	for _, row := range rows {
		plan := ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLInsert, Table: table, Columns: columns, Values: row})}
		if _, err := engine.Exec(plan); err != nil {
			return fmt.Errorf("bulkload: %s: %w", table, err)
		}
	}
	return nil
}
