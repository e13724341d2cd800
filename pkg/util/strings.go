package util

import (
    "regexp"
    "strconv"
    "strings"
)

// symbolPattern admits exchange tickers such as BTCUSDT, BRK.B or EUR-USD.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,31}$`)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// NormalizeSymbol upper-cases and trims an instrument symbol.
func NormalizeSymbol(s string) string {
    return strings.ToUpper(strings.TrimSpace(s))
}

// ValidSymbol reports whether a normalized symbol is safe to use as a file name
// component: letters, digits, dot, dash and underscore, no "..".
func ValidSymbol(s string) bool {
    return symbolPattern.MatchString(s) && !strings.Contains(s, "..")
}
