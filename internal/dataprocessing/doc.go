// Package dataprocessing reads Google Ads export tables and parses the
// loosely formatted values they contain.
//
// # Tables
//
// Exports arrive as delimited text (";" for the report downloads, "," for the
// rolling reach script) in UTF-8 with or without a BOM, or UTF-16 when saved
// from a spreadsheet. Workbook exports (.xlsx) are read from their first
// populated sheet. Every format is normalized into a Table:
//
//	t, err := dataprocessing.ReadTableFile("campaign metrics.csv", dataprocessing.ReadOptions{Delimiter: ';'})
//	if err != nil {
//	    return err
//	}
//	for i := 0; i < t.Len(); i++ {
//	    cost := dataprocessing.ParseCost(t.Value(i, "Cost"))
//	}
//
// # Values
//
// The parsers never return errors. A malformed value maps to zero, which is
// how the exports encode "no data" ("--", blank cells, "nan").
package dataprocessing
