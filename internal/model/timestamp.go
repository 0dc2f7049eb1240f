package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBTimestampFormat is the layout timestamps are written with into the snapshot.
const DBTimestampFormat = "2006-01-02 15:04:05.999Z07:00"

// Accepted layouts when reading, tried in order.
// Layouts without a zone are interpreted as UTC.
var timestampLayouts = []string{
	DBTimestampFormat,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ErrNullTimestamp is returned when a required timestamp column holds NULL.
var ErrNullTimestamp = errors.New("required timestamp is NULL")

// ParseTimestamp parses a stored timestamp, keeping its UTC offset.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// FormatTimestamp renders t the way the snapshot stores it.
func FormatTimestamp(t time.Time) string {
	return t.Format(DBTimestampFormat)
}

// Timestamp is a required, zoned instant read from a text column.
type Timestamp struct {
	time.Time
}

// Scan implements sql.Scanner.
func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return ErrNullTimestamp
	case time.Time:
		ts.Time = v
		return nil
	case string:
		t, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		ts.Time = t
		return nil
	case []byte:
		t, err := ParseTimestamp(string(v))
		if err != nil {
			return err
		}
		ts.Time = t
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", src)
	}
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	return FormatTimestamp(ts.Time), nil
}

// NullTimestamp is an optional zoned instant. NULL passes through as Valid == false.
type NullTimestamp struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (nt *NullTimestamp) Scan(src any) error {
	if src == nil {
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	}
	var ts Timestamp
	if err := ts.Scan(src); err != nil {
		return err
	}
	nt.Time, nt.Valid = ts.Time, true
	return nil
}

// Value implements driver.Valuer.
func (nt NullTimestamp) Value() (driver.Value, error) {
	if !nt.Valid {
		return nil, nil
	}
	return FormatTimestamp(nt.Time), nil
}

// GormDataType stores timestamps as text, matching the snapshot schema.
func (Timestamp) GormDataType() string { return "text" }

// GormDataType stores timestamps as text, matching the snapshot schema.
func (NullTimestamp) GormDataType() string { return "text" }
