// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/wb-seller-tracker/tools/dashgen/rules"
)

// Result collects validation findings. Errors fail generation; warnings
// are printed.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// histogram and summary series share the family name.
var seriesSuffixes = []string{"_bucket", "_sum", "_count"}

func knownMetric(name string, known map[string]bool) bool {
	if known[name] {
		return true
	}
	for _, s := range seriesSuffixes {
		if base, ok := strings.CutSuffix(name, s); ok && known[base] {
			return true
		}
	}
	return false
}

// Expr parses expr and checks the metric names it selects. where names
// the expression's location in messages.
func Expr(where, expr string, known map[string]bool) Result {
	var res Result
	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: invalid PromQL %q: %v", where, expr, err))
		return res
	}
	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !knownMetric(vs.Name, known) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: unknown metric %q", where, vs.Name))
		}
		return nil
	})
	return res
}

type target struct {
	panel string
	expr  string
}

// collectTargets walks the JSON form of a dashboard and returns every
// query expression with the title of the panel holding it.
func collectTargets(v any, panel string, out *[]target, titles map[string]int) {
	switch x := v.(type) {
	case map[string]any:
		if t, ok := x["title"].(string); ok && x["type"] != nil {
			panel = t
			if x["type"] != "row" {
				titles[t]++
			}
		}
		if e, ok := x["expr"].(string); ok {
			*out = append(*out, target{panel: panel, expr: e})
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectTargets(x[k], panel, out, titles)
		}
	case []any:
		for _, e := range x {
			collectTargets(e, panel, out, titles)
		}
	}
}

// Dashboard validates every query of a built dashboard. Panels without a
// query and duplicate panel titles are reported as warnings.
func Dashboard(dash any, known map[string]bool) Result {
	var res Result

	raw, err := json.Marshal(dash)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("encoding dashboard: %v", err))
		return res
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("decoding dashboard: %v", err))
		return res
	}

	var targets []target
	titles := make(map[string]int)
	collectTargets(doc, "", &targets, titles)

	if len(targets) == 0 {
		res.Warnings = append(res.Warnings, "dashboard has no queries")
	}
	for _, t := range targets {
		res.merge(Expr("panel "+t.panel, t.expr, known))
	}

	names := make([]string, 0, len(titles))
	for name := range titles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if titles[name] > 1 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("duplicate panel title %q", name))
		}
	}
	return res
}

// Rules validates the expressions of a rule CR. Recorded series must also
// be listed in known so dashboards can use them.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var res Result
	for _, g := range cr.Spec.Groups {
		for _, r := range g.Rules {
			name := r.Alert
			if r.Record != "" {
				name = r.Record
				if !known[r.Record] {
					res.Errors = append(res.Errors, fmt.Sprintf("%s: recorded series %q is not in the known metrics", g.Name, r.Record))
				}
			}
			if name == "" {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: rule without record or alert name", g.Name))
			}
			res.merge(Expr(g.Name+"/"+name, r.Expr, known))
		}
	}
	return res
}
