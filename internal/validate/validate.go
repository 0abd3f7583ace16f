// Package validate audits nodes already in the database against the
// declared metadata, catching data written outside the mapper.
package validate

import (
	"context"
	"fmt"
	"sort"

	"graphorm/internal/metadata"
	"graphorm/internal/ogm"
	"graphorm/internal/query"
	"graphorm/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeMissingRequired    = "missing_required_property"
	codeValidatorFailed    = "validator_failed"
	codeTransformFailed    = "transform_failed"
	codeDuplicateUnique    = "duplicate_unique_value"
	codeUndeclaredProperty = "undeclared_property"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Kind     string
	ID       int64
	Key      string
}

type Report struct {
	Issues []Issue
	// Checked is the number of nodes read per kind.
	Checked map[string]int
}

// Errors counts issues of error severity.
func (r *Report) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Run reads every node of every declared kind and reports stored values the
// mapper would reject.
func Run(ctx context.Context, db store.Database, reg *metadata.Registry) (*Report, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}

	report := &Report{Issues: make([]Issue, 0), Checked: make(map[string]int)}
	for _, desc := range reg.Entities() {
		if !query.ValidIdentifier(desc.Label) {
			continue
		}
		nodes, err := listNodes(ctx, db, desc.Label)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", desc.Name, err)
		}
		report.Checked[desc.Name] = len(nodes)

		for _, n := range nodes {
			report.Issues = append(report.Issues, validateProperties(desc, n)...)
			report.Issues = append(report.Issues, validateTransforms(desc, n)...)
			report.Issues = append(report.Issues, undeclaredProperties(desc, n)...)
		}
		report.Issues = append(report.Issues, duplicateUniqueValues(desc, nodes)...)
	}

	return report, nil
}

func listNodes(ctx context.Context, db store.Database, label string) ([]store.Node, error) {
	q, err := db.Dialect().Find(label, query.Match{})
	if err != nil {
		return nil, err
	}
	session, err := db.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	res, err := session.Run(ctx, q.Text, q.Params)
	if err != nil {
		return nil, err
	}
	nodes := make([]store.Node, 0, len(res.Records))
	for _, rec := range res.Records {
		n, err := rec.NodeOf(query.NodeColumn)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func validateProperties(desc *metadata.EntityDescriptor, n store.Node) []Issue {
	var issues []Issue
	for _, problem := range ogm.Check(desc, n.Props) {
		code := codeValidatorFailed
		if problem.Reason == ogm.ReasonRequired {
			code = codeMissingRequired
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     code,
			Message:  problem.Error(),
			Kind:     desc.Name,
			ID:       n.ID,
			Key:      problem.Key,
		})
	}
	return issues
}

func validateTransforms(desc *metadata.EntityDescriptor, n store.Node) []Issue {
	var issues []Issue
	for _, p := range desc.Properties() {
		v, ok := n.Props[p.Key]
		if !ok || v == nil || p.Transformer == nil || p.Transformer.From == nil {
			continue
		}
		if _, err := p.Transformer.From(v); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeTransformFailed,
				Message:  fmt.Sprintf("%s %s: %v", p.Key, ogm.ReasonTransform, err),
				Kind:     desc.Name,
				ID:       n.ID,
				Key:      p.Key,
			})
		}
	}
	return issues
}

func undeclaredProperties(desc *metadata.EntityDescriptor, n store.Node) []Issue {
	var issues []Issue
	for _, key := range query.SortedKeys(n.Props) {
		if _, ok := desc.Property(key); ok {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeUndeclaredProperty,
			Message:  fmt.Sprintf("undeclared property: %s", key),
			Kind:     desc.Name,
			ID:       n.ID,
			Key:      key,
		})
	}
	return issues
}

// duplicateUniqueValues reports every node after the first that shares a
// unique property value. Backends without EnsureSchema do not enforce it.
func duplicateUniqueValues(desc *metadata.EntityDescriptor, nodes []store.Node) []Issue {
	var issues []Issue
	for _, p := range desc.Properties() {
		if !p.Unique {
			continue
		}
		first := make(map[string]int64)
		sorted := append([]store.Node(nil), nodes...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
		for _, n := range sorted {
			v, ok := n.Props[p.Key]
			if !ok || v == nil {
				continue
			}
			key := fmt.Sprintf("%T:%v", v, v)
			if id, seen := first[key]; seen {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     codeDuplicateUnique,
					Message:  fmt.Sprintf("duplicate %s %v, first used by id %d", p.Key, v, id),
					Kind:     desc.Name,
					ID:       n.ID,
					Key:      p.Key,
				})
				continue
			}
			first[key] = n.ID
		}
	}
	return issues
}
