package compare

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Format selects how a delta is displayed.
type Format int

const (
	// Number renders grouped digits: "+1,234".
	Number Format = iota
	// Percent renders one decimal place rounded half-up, without grouping:
	// "+1.5%", "+1234.5%".
	Percent
)

func (f Format) String() string {
	if f == Percent {
		return "percent"
	}
	return "number"
}

// EqualMark is shown instead of a zero delta.
const EqualMark = "-"

var printer = message.NewPrinter(language.English)

// FormatDelta renders a signed delta. Positive values get an explicit "+",
// negative values keep their "-", and zero renders as EqualMark.
func FormatDelta(delta float64, f Format) string {
	if delta == 0 {
		return EqualMark
	}
	sign := "+"
	if delta < 0 {
		sign = "-"
	}
	return sign + FormatValue(math.Abs(delta), f)
}

// FormatValue renders an unsigned display value.
func FormatValue(v float64, f Format) string {
	if f == Percent {
		v = math.Floor(v*10+0.5) / 10
		return printer.Sprintf("%v", number.Decimal(v,
			number.MinFractionDigits(1), number.MaxFractionDigits(1), number.NoSeparator())) + "%"
	}
	return printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(3)))
}
