// Package importer reads product lists prepared in spreadsheets.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/alextreichler/flowershop/internal/models"
)

var ErrNoSheet = errors.New("workbook has no sheets")

// RowError describes a spreadsheet row that could not be imported.
// Row is 1-based as shown in spreadsheet software.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result is the outcome of reading a product sheet.
type Result struct {
	Products []models.Product `json:"-"`
	Skipped  []RowError       `json:"skipped"`
}

// ReadProducts parses the first sheet of an xlsx workbook. The first row is a
// header; the columns are name, description, price and discount. Blank rows
// are ignored and invalid rows are reported in Skipped. Imported products are
// available.
func ReadProducts(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	res := &Result{Products: []models.Product{}, Skipped: []RowError{}}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if blank(row) {
			continue
		}

		p, reason := parseRow(row)
		if reason != "" {
			res.Skipped = append(res.Skipped, RowError{Row: i + 1, Reason: reason})
			continue
		}
		res.Products = append(res.Products, p)
	}
	return res, nil
}

func parseRow(row []string) (models.Product, string) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	p := models.Product{
		Name:        cell(0),
		Description: cell(1),
		Available:   true,
	}
	if p.Name == "" {
		return p, "name is required"
	}

	price, err := parseNumber(cell(2))
	if err != nil || price <= 0 {
		return p, "price must be a positive number"
	}
	p.Price = price

	if d := cell(3); d != "" {
		discount, err := parseNumber(strings.TrimSuffix(d, "%"))
		if err != nil || discount < 0 || discount > 100 {
			return p, "discount must be between 0 and 100"
		}
		p.Discount = discount
	}
	return p, ""
}

// parseNumber accepts integers and decimals written with either separator,
// rounding to whole units.
func parseNumber(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return int(f - 0.5), nil
	}
	return int(f + 0.5), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
