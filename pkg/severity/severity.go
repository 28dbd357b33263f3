package severity

import (
	"math"
	"strconv"
	"strings"
)

type Tier int

const (
	VeryLow Tier = iota + 1
	Low
	Medium
	High
	Critical
)

// Tiers is the display order used by tables and charts
var Tiers = []Tier{Critical, High, Medium, Low, VeryLow}

var palette = map[Tier]string{
	Critical: "#f50707",
	High:     "#fc9014",
	Medium:   "#f2e307",
	Low:      "#08a7fc",
	VeryLow:  "#07f223",
}

func (t Tier) String() string {
	switch t {
	case Critical:
		return "Critical"
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	case VeryLow:
		return "Very Low"
	}
	return "Unknown"
}

// Rank is the sortable weight of the tier, 5 for Critical down to 1
func (t Tier) Rank() int {
	return int(t)
}

// Colour returns the hex colour of the tier in the fixed chart palette
func Colour(t Tier) string {
	if c, ok := palette[t]; ok {
		return c
	}
	return "#999999"
}

// ParseScore reads the leading number of a risk score such as "82.45%".
// Anything unparsable yields 0.
func ParseScore(s string) float64 {
	s = strings.TrimSpace(s)
	n := numericPrefix(s)
	if n == 0 {
		return 0
	}

	f, err := strconv.ParseFloat(s[:n], 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// numericPrefix returns the length of the longest prefix of s that looks like
// a decimal float: optional sign, digits, optional fraction, optional exponent.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}

	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func ClassifyScore(score float64) Tier {
	switch {
	case score >= 80:
		return Critical
	case score >= 60:
		return High
	case score >= 40:
		return Medium
	case score >= 20:
		return Low
	}
	return VeryLow
}

// Classify maps a percentage formatted risk score to its tier
func Classify(s string) Tier {
	return ClassifyScore(ParseScore(s))
}

// Rank is shorthand for Classify(s).Rank()
func Rank(s string) int {
	return Classify(s).Rank()
}

// CVSSRating is the qualitative NVD rating of a CVSS v3 base score
func CVSSRating(score float64) string {
	switch {
	case score >= 9:
		return "CRITICAL"
	case score >= 7:
		return "HIGH"
	case score >= 4:
		return "MEDIUM"
	case score > 0:
		return "LOW"
	}
	return "NONE"
}
