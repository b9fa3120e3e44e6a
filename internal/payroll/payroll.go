// Package payroll derives the weekly pay figure from upload counts.
package payroll

import (
	"strconv"
	"time"
)

// Rates per uploaded item, in euro.
const (
	DocumentRate   = 2000
	InspectionRate = 3000
)

// Window is the period payroll looks back over.
const Window = 7 * 24 * time.Hour

// Breakdown holds the counted uploads for one staff member.
type Breakdown struct {
	Documents   int
	Inspections int
}

// DocumentTotal is the pay earned from regular documents.
func (b Breakdown) DocumentTotal() int {
	return b.Documents * DocumentRate
}

// InspectionTotal is the pay earned from inspections.
func (b Breakdown) InspectionTotal() int {
	return b.Inspections * InspectionRate
}

// Total is the full weekly pay.
func (b Breakdown) Total() int {
	return b.DocumentTotal() + b.InspectionTotal()
}

// FormatEUR renders an amount with Italian thousands separators, e.g. 12000
// becomes "€12.000".
func FormatEUR(amount int) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.Itoa(amount)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}
	if neg {
		return "-€" + string(out)
	}
	return "€" + string(out)
}
