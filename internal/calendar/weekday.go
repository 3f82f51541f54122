package calendar

import "fmt"

// Weekday is the symbolic day used by recurring availability windows.
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

var weekdayOrder = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Weekdays returns the seven symbols in Monday-first order.
func Weekdays() []Weekday {
	out := make([]Weekday, len(weekdayOrder))
	copy(out, weekdayOrder)
	return out
}

// ParseWeekday validates a weekday symbol.
func ParseWeekday(s string) (Weekday, error) {
	w := Weekday(s)
	if w.Index() < 0 {
		return "", fmt.Errorf("unknown weekday %q", s)
	}
	return w, nil
}

// Index is the Monday-first position of w, or -1 when w is not a known symbol.
func (w Weekday) Index() int {
	for i, d := range weekdayOrder {
		if d == w {
			return i
		}
	}
	return -1
}

func (w Weekday) Valid() bool {
	return w.Index() >= 0
}

func (w Weekday) String() string {
	return string(w)
}
