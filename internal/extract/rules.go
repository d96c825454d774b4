package extract

import (
	"regexp"
	"strings"
)

// Rule is one named way of finding a field value in text. Rules for a field
// are evaluated in order and the first one that finds a value wins.
type Rule struct {
	Name string
	Find func(text string) (string, bool)
}

// FirstMatch returns the value and rule name of the first rule that matches.
func FirstMatch(rules []Rule, text string) (value, rule string, ok bool) {
	for _, r := range rules {
		if v, found := r.Find(text); found {
			return v, r.Name, true
		}
	}
	return "", "", false
}

// regexRule returns the trimmed first capture group of re.
func regexRule(name string, re *regexp.Regexp) Rule {
	return regexGroupRule(name, re, 1)
}

func regexGroupRule(name string, re *regexp.Regexp, group int) Rule {
	return Rule{Name: name, Find: func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil || group >= len(m) {
			return "", false
		}
		v := strings.TrimSpace(m[group])
		return v, v != ""
	}}
}
