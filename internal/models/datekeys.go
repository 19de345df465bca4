package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the day-resolution format used by date fields and the date
// segments of composite range keys.
const DateLayout = "2006-01-02"

// ShiftDate moves a DateLayout-formatted date by the given number of days.
// Values that do not parse are returned unchanged.
func ShiftDate(date string, days int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(DateLayout)
}

// SectorDateKey is the "sector:date" composite range key used by
// sector-scoped daily rows.
type SectorDateKey struct {
	Sector string
	Date   string
}

// ParseSectorDateKey splits a "sector:date" key.
func ParseSectorDateKey(s string) (SectorDateKey, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return SectorDateKey{}, fmt.Errorf("malformed sector-date key %q", s)
	}
	return SectorDateKey{Sector: s[:i], Date: s[i+1:]}, nil
}

// String formats the key back to its stored form.
func (k SectorDateKey) String() string {
	return k.Sector + ":" + k.Date
}

// Shift returns a copy with the date segment moved by days.
func (k SectorDateKey) Shift(days int) SectorDateKey {
	k.Date = ShiftDate(k.Date, days)
	return k
}

// SectorTypeDateKey is the "sector:type:date" composite range key.
type SectorTypeDateKey struct {
	Sector string
	Type   string
	Date   string
}

// ParseSectorTypeDateKey splits a "sector:type:date" key.
func ParseSectorTypeDateKey(s string) (SectorTypeDateKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return SectorTypeDateKey{}, fmt.Errorf("malformed sector-type-date key %q", s)
	}
	return SectorTypeDateKey{Sector: parts[0], Type: parts[1], Date: parts[2]}, nil
}

// String formats the key back to its stored form.
func (k SectorTypeDateKey) String() string {
	return k.Sector + ":" + k.Type + ":" + k.Date
}

// Shift returns a copy with the date segment moved by days.
func (k SectorTypeDateKey) Shift(days int) SectorTypeDateKey {
	k.Date = ShiftDate(k.Date, days)
	return k
}

// DateEmployeeKey is the "date#seq#employeeA#employeeB" composite range key
// used by pairwise evaluation rows.
type DateEmployeeKey struct {
	Date      string
	Seq       string
	EmployeeA string
	EmployeeB string
}

// ParseDateEmployeeKey splits a "date#seq#employeeA#employeeB" key.
func ParseDateEmployeeKey(s string) (DateEmployeeKey, error) {
	parts := strings.Split(s, "#")
	if len(parts) != 4 {
		return DateEmployeeKey{}, fmt.Errorf("malformed date-employee key %q", s)
	}
	return DateEmployeeKey{Date: parts[0], Seq: parts[1], EmployeeA: parts[2], EmployeeB: parts[3]}, nil
}

// String formats the key back to its stored form.
func (k DateEmployeeKey) String() string {
	return strings.Join([]string{k.Date, k.Seq, k.EmployeeA, k.EmployeeB}, "#")
}

// Shift returns a copy with the date segment moved by days.
func (k DateEmployeeKey) Shift(days int) DateEmployeeKey {
	k.Date = ShiftDate(k.Date, days)
	return k
}
