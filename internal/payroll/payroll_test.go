package payroll

import "testing"

func TestBreakdownTotals(t *testing.T) {
	b := Breakdown{Documents: 3, Inspections: 2}
	if b.DocumentTotal() != 6000 {
		t.Errorf("DocumentTotal = %d, want 6000", b.DocumentTotal())
	}
	if b.InspectionTotal() != 6000 {
		t.Errorf("InspectionTotal = %d, want 6000", b.InspectionTotal())
	}
	if b.Total() != 12000 {
		t.Errorf("Total = %d, want 12000", b.Total())
	}
}

func TestZeroBreakdown(t *testing.T) {
	var b Breakdown
	if b.Total() != 0 {
		t.Errorf("empty breakdown should total 0, got %d", b.Total())
	}
}

func TestFormatEUR(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "€0"},
		{999, "€999"},
		{2000, "€2.000"},
		{12000, "€12.000"},
		{1234567, "€1.234.567"},
	}
	for _, c := range cases {
		if got := FormatEUR(c.in); got != c.want {
			t.Errorf("FormatEUR(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
