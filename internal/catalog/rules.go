package catalog

import (
	"strings"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
)

// Rule maps an artifact title substring to an update class.
type Rule struct {
	Pattern string
	Class   api.Class
}

// classRules is matched in order against lowercased artifact titles; the first
// match wins, so specific-component rules must come before generic ones. An
// unmatched title falls through to ClassOptional.
var classRules = []Rule{
	{Pattern: "servicing stack", Class: api.ClassSSU},
	{Pattern: "adobe flash", Class: api.ClassAdobe},
	{Pattern: "cumulative update for .net", Class: api.ClassDotNetCumulative},
	{Pattern: ".net framework", Class: api.ClassDotNet},
	{Pattern: "safe os dynamic update", Class: api.ClassDynamic},
	{Pattern: "dynamic update", Class: api.ClassDynamic},
	{Pattern: "cumulative update for windows", Class: api.ClassLCU},
	{Pattern: "cumulative update for microsoft server operating system", Class: api.ClassLCU},
}

// Classify returns the update class for an artifact title.
func Classify(title string) api.Class {
	lowered := strings.ToLower(title)

	for _, rule := range classRules {
		if strings.Contains(lowered, rule.Pattern) {
			return rule.Class
		}
	}

	return api.ClassOptional
}
