package kql

import (
	"strings"

	"k8s.io/klog/v2"
)

// innerQueryName binds a let-carrying source that has no alias of its own.
const innerQueryName = "inner_qry"

// Compile assembles the KQL text of q: let statements, the source, the filter,
// the planned column stages and the row limit, one pipe stage per line.
func Compile(q *Query) (string, error) {
	if q == nil || q.Source == nil {
		return "", badRequest("query has no source")
	}
	var lines []string
	for _, let := range q.Lets {
		lines = append(lines, let.String())
	}

	source, lets, err := sourceLine(q.Source)
	if err != nil {
		return "", err
	}
	for _, let := range lets {
		lines = append(lines, let.String())
	}
	lines = append(lines, source)

	if where := strings.TrimSpace(RewritePredicate(q.Where)); where != "" {
		lines = append(lines, "| where "+where)
	}

	stages, err := PlanStages(q)
	if err != nil {
		return "", err
	}
	lines = append(lines, stages.Lines()...)

	if limit := strings.TrimSpace(q.Limit); limit != "" {
		lines = append(lines, "| take "+limit)
	}

	out := strings.Join(lines, "\n")
	klog.V(4).InfoS("Compiled KQL", "query", out)
	return out, nil
}

// sourceLine returns the source line of the pipeline and the let statements it needs.
func sourceLine(src Source) (string, []LetBinding, error) {
	switch s := src.(type) {
	case TableRef:
		if strings.TrimSpace(s.Name) == "" {
			return "", nil, badRequest("table name is empty")
		}
		return tableName(s.Schema, s.Name), nil, nil
	case BindingRef:
		return Identifier([]string{s.Name}), nil, nil
	case TextSource:
		lets, body, err := SplitLets(s.Text)
		if err != nil {
			return "", nil, err
		}
		body = ConvertSchema(body)
		if len(lets) == 0 && s.Alias == "" {
			return body, nil, nil
		}
		name := innerQueryName
		if s.Alias != "" {
			name = Identifier([]string{s.Alias})
		}
		lets = append(lets, LetBinding{Name: name, Expr: "(" + body + ")"})
		return name, lets, nil
	default:
		return "", nil, badRequest("unsupported source %T", src)
	}
}
