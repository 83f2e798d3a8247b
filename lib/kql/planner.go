package kql

import (
	"strings"
)

// Stages are the column handling pipe stages of one query level.
type Stages struct {
	Extend     []string
	Aggregates []string
	By         []string
	Summarize  bool
	Having     string
	Project    []string
	OrderBy    []string
}

// Lines renders the non-empty stages in pipeline order.
func (s *Stages) Lines() []string {
	if s == nil {
		return nil
	}
	var lines []string
	if len(s.Extend) > 0 {
		lines = append(lines, "| extend "+strings.Join(s.Extend, ", "))
	}
	if s.Summarize {
		line := "| summarize"
		if len(s.Aggregates) > 0 {
			line += " " + strings.Join(s.Aggregates, ", ")
		}
		if len(s.By) > 0 {
			line += " by " + strings.Join(s.By, ", ")
		}
		lines = append(lines, line)
	}
	if s.Having != "" {
		lines = append(lines, "| where "+s.Having)
	}
	if len(s.Project) > 0 {
		lines = append(lines, "| project "+strings.Join(s.Project, ", "))
	}
	if len(s.OrderBy) > 0 {
		lines = append(lines, "| order by "+strings.Join(s.OrderBy, ", "))
	}
	return lines
}

type plannedColumn struct {
	ref      ColumnReference
	label    string
	expr     string
	agg      *AggregateCall
	extended bool
}

type planner struct {
	q       *Query
	stages  *Stages
	columns []plannedColumn
}

// PlanStages decides which of extend, summarize, project and order by the query needs.
func PlanStages(q *Query) (*Stages, error) {
	p := &planner{q: q, stages: &Stages{}}
	if err := p.planColumns(); err != nil {
		return nil, err
	}
	if err := p.planGroupBy(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.Having) != "" {
		if !p.stages.Summarize {
			return nil, badRequest("HAVING requires GROUP BY or an aggregate")
		}
		p.stages.Having = strings.TrimSpace(RewritePredicate(q.Having))
	}
	if err := p.planOrderBy(); err != nil {
		return nil, err
	}
	return p.stages, nil
}

// aggregateOf classifies e through the typed path for calls and by pattern for free SQL text.
func aggregateOf(e Expression) (*AggregateCall, bool) {
	switch v := Unalias(e).(type) {
	case FunctionCall:
		return AggregateFromCall(v)
	case Literal:
		if v.Rendered {
			return nil, false
		}
		return MatchAggregate(v.SQL)
	default:
		return nil, false
	}
}

func isStar(e Expression) bool {
	l, ok := e.(Literal)
	return ok && strings.TrimSpace(l.SQL) == "*"
}

// countInference reports whether a free-text COUNT(*) column belongs to summarize.
// A filter, grouping, another aggregate or a non-table source all signal aggregation.
func (p *planner) countInference(aggregates int) bool {
	if strings.TrimSpace(p.q.Where) != "" || len(p.q.GroupBy) > 0 || aggregates > 1 {
		return true
	}
	_, table := p.q.Source.(TableRef)
	return !table
}

func (p *planner) planColumns() error {
	aggregates := 0
	for _, col := range p.q.Columns {
		if _, ok := aggregateOf(col); ok {
			aggregates++
		}
	}

	star := false
	for _, col := range p.q.Columns {
		if isStar(Unalias(col)) {
			star = true
			continue
		}
		ref := ExtractColumn(col)
		inner := Unalias(col)
		pc := plannedColumn{ref: ref}

		if agg, ok := aggregateOf(inner); ok {
			pc.agg = agg
			pc.label = Escape(ref.Label(), true)
			pc.expr = agg.KQL()
			assignment := pc.label + " = " + pc.expr
			_, literal := inner.(Literal)
			if literal && agg.Name == "count" && agg.Column == "" && !p.countInference(aggregates) {
				p.stages.Extend = append(p.stages.Extend, assignment)
				pc.extended = true
			} else {
				p.stages.Aggregates = append(p.stages.Aggregates, assignment)
				p.stages.Summarize = true
			}
			p.columns = append(p.columns, pc)
			p.stages.Project = append(p.stages.Project, pc.label)
			continue
		}

		pc.expr = KQLText(inner)
		pc.label = pc.expr
		if ref.Alias != "" && ref.Alias != ref.Name {
			pc.label = Escape(ref.Alias, true)
			pc.extended = true
			p.stages.Extend = append(p.stages.Extend, pc.label+" = "+pc.expr)
		}
		p.columns = append(p.columns, pc)
		p.stages.Project = append(p.stages.Project, pc.label)
	}

	for i, hidden := range p.q.HavingAggregates {
		agg, ok := aggregateOf(hidden.Expr)
		if !ok {
			return badRequest("HAVING term %d is not an aggregate", i+1)
		}
		p.stages.Aggregates = append(p.stages.Aggregates, Escape(hidden.Alias, true)+" = "+agg.KQL())
		p.stages.Summarize = true
	}

	if star {
		if p.q.Distinct {
			return notSupported("DISTINCT *")
		}
		p.stages.Project = nil
	}
	return nil
}

func (p *planner) planGroupBy() error {
	for _, g := range p.q.GroupBy {
		if _, ok := aggregateOf(g); ok {
			return badRequest("aggregate %s cannot be used in GROUP BY", Text(g))
		}
		p.stages.By = append(p.stages.By, p.resolve(g))
	}
	if len(p.stages.By) > 0 {
		p.stages.Summarize = true
	}
	if p.q.Distinct && len(p.stages.By) == 0 && len(p.stages.Aggregates) == 0 {
		for _, pc := range p.columns {
			p.stages.By = append(p.stages.By, pc.label)
		}
		p.stages.Summarize = len(p.stages.By) > 0
	}
	return nil
}

func (p *planner) planOrderBy() error {
	for _, item := range p.q.OrderBy {
		term, err := p.resolveOrder(item.Expr)
		if err != nil {
			return err
		}
		if item.Desc {
			term += " desc"
		} else {
			term += " asc"
		}
		p.stages.OrderBy = append(p.stages.OrderBy, term)
	}
	return nil
}

func (p *planner) resolveOrder(e Expression) (string, error) {
	if agg, ok := aggregateOf(e); ok {
		kql := agg.KQL()
		for _, pc := range p.columns {
			if pc.agg != nil && pc.expr == kql {
				return pc.label, nil
			}
		}
		for _, hidden := range p.q.HavingAggregates {
			if other, ok := aggregateOf(hidden.Expr); ok && other.KQL() == kql {
				return Escape(hidden.Alias, true), nil
			}
		}
		return "", notSupported("ORDER BY %s without selecting it", Text(e))
	}
	return p.resolve(e), nil
}

// resolve maps a grouping or ordering term onto the column label it names after extend.
func (p *planner) resolve(e Expression) string {
	e = Unalias(e)
	if ref, ok := e.(ColumnRef); ok {
		for _, pc := range p.columns {
			if pc.ref.Alias != "" && strings.EqualFold(pc.ref.Alias, ref.Name) {
				return pc.label
			}
		}
	}
	text := KQLText(e)
	for _, pc := range p.columns {
		if pc.extended && pc.agg == nil && pc.expr == text {
			return pc.label
		}
	}
	return text
}
