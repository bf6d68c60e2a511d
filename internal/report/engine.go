// Package report validates, stores and executes declarative report specs
// over the analytics tables.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sprintlens/internal/config"
	"sprintlens/internal/database"
	"sprintlens/internal/models"
)

// Store is the persistence surface the engine needs.
type Store interface {
	RunAggregation(ctx context.Context, q database.AggQuery) ([]string, [][]interface{}, error)
	CreateReport(ctx context.Context, r models.CustomReport) error
	GetReport(ctx context.Context, id string) (models.CustomReport, error)
	UpdateReport(ctx context.Context, r models.CustomReport) error
	DeleteReport(ctx context.Context, id string, ownerID int64) error
	ListReports(ctx context.Context, userID int64) ([]models.CustomReport, error)
}

// Spec is a declarative report definition: which scope to query, how to group
// it, which aggregates to compute and which rows to keep.
type Spec struct {
	Scope         string      `json:"scope"`
	Dimensions    []string    `json:"dimensions"`
	Metrics       []Metric    `json:"metrics"`
	Filter        *FilterNode `json:"filter,omitempty"`
	Visualization string      `json:"visualization,omitempty"`
}

// Metric is one aggregate column of a report.
type Metric struct {
	Func  string `json:"func"`  // SUM, AVG, MIN, MAX, COUNT
	Field string `json:"field"`
	Alias string `json:"alias,omitempty"`
}

// FilterNode is one node of the filter tree. Exactly one of And, Or or the
// leaf triple (Field, Op, Value) must be set.
type FilterNode struct {
	And   []FilterNode `json:"and,omitempty"`
	Or    []FilterNode `json:"or,omitempty"`
	Field string       `json:"field,omitempty"`
	Op    string       `json:"op,omitempty"`
	Value interface{}  `json:"value,omitempty"`
}

// Result is one report execution. Truncated flags that the row cap cut the
// result short.
type Result struct {
	Columns   []string
	Rows      [][]interface{}
	RowCount  int
	Truncated bool
}

// scopes is the field allow-list per queryable scope. Spec identifiers are
// checked against it before any SQL is assembled.
var scopes = map[string]map[string]bool{
	"time_entries": fields("user_id", "project_id", "task_id", "date",
		"hours", "billable", "hourly_rate", "absence_type"),
	"sprint_metrics": fields("sprint_id", "project_id", "committed_points",
		"planned_value", "earned_value", "actual_cost", "risk_level",
		"scope_added", "scope_removed"),
	"velocity_metrics": fields("project_id", "sprint_id", "committed",
		"completed", "avg_3", "avg_6", "trend"),
	"resource_allocations": fields("user_id", "project_id", "date",
		"capacity_hours", "assigned_hours", "in_progress_hours",
		"completed_hours", "blocked_hours"),
}

var aggFuncs = map[string]bool{
	"SUM": true, "AVG": true, "MIN": true, "MAX": true, "COUNT": true,
}

var visualizations = map[string]bool{
	"": true, "table": true, "bar": true, "line": true, "pie": true,
}

func fields(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Engine validates and runs report specs.
type Engine struct {
	store Store
	cfg   config.Config
}

// New returns an engine backed by store.
func New(store Store, cfg config.Config) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// Validate checks the spec against the closed operator set and the scope's
// field allow-list. Execution never reaches the store for an invalid spec.
func Validate(spec Spec) error {
	allowed, ok := scopes[spec.Scope]
	if !ok {
		return &models.ValidationError{Rule: "scope", Detail: fmt.Sprintf("unknown scope %q", spec.Scope)}
	}
	if len(spec.Metrics) == 0 {
		return &models.ValidationError{Rule: "metrics", Detail: "a report needs at least one metric"}
	}
	for _, d := range spec.Dimensions {
		if !allowed[d] {
			return &models.ValidationError{Rule: "dimension", Detail: fmt.Sprintf("field %q is not queryable in %s", d, spec.Scope)}
		}
	}
	for _, m := range spec.Metrics {
		if !aggFuncs[m.Func] {
			return &models.ValidationError{Rule: "metric-func", Detail: fmt.Sprintf("unknown aggregate %q", m.Func)}
		}
		if !allowed[m.Field] {
			return &models.ValidationError{Rule: "metric-field", Detail: fmt.Sprintf("field %q is not queryable in %s", m.Field, spec.Scope)}
		}
	}
	if !visualizations[spec.Visualization] {
		return &models.ValidationError{Rule: "visualization", Detail: fmt.Sprintf("unknown visualization %q", spec.Visualization)}
	}
	if spec.Filter != nil {
		if err := validateFilter(*spec.Filter, allowed); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs a validated spec: filter, group, aggregate, stable sort. Rows
// past the configured cap are dropped and flagged via Truncated.
func (e *Engine) Execute(ctx context.Context, spec Spec) (Result, error) {
	if err := Validate(spec); err != nil {
		return Result{}, err
	}

	q := database.AggQuery{
		Table:      spec.Scope,
		Dimensions: spec.Dimensions,
		// One row past the cap detects truncation.
		Limit: e.cfg.ReportMaxRows + 1,
	}
	for _, m := range spec.Metrics {
		q.Aggregates = append(q.Aggregates, database.Aggregate{
			Func:  m.Func,
			Field: m.Field,
			Alias: m.alias(),
		})
	}
	if spec.Filter != nil {
		where, args, err := compileFilter(*spec.Filter)
		if err != nil {
			return Result{}, err
		}
		q.Where, q.Args = where, args
	}

	cols, rows, err := e.store.RunAggregation(ctx, q)
	if err != nil {
		return Result{}, err
	}
	res := Result{Columns: cols, Rows: rows}
	if len(res.Rows) > e.cfg.ReportMaxRows {
		res.Rows = res.Rows[:e.cfg.ReportMaxRows]
		res.Truncated = true
	}
	res.RowCount = len(res.Rows)
	return res, nil
}

// Save validates and stores a new report spec owned by ownerID.
func (e *Engine) Save(ctx context.Context, ownerID int64, name string, spec Spec, shared bool) (models.CustomReport, error) {
	if name == "" {
		return models.CustomReport{}, &models.ValidationError{Rule: "name", Detail: "a report needs a name"}
	}
	if err := Validate(spec); err != nil {
		return models.CustomReport{}, err
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return models.CustomReport{}, err
	}
	r := models.CustomReport{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Name:          name,
		Spec:          string(raw),
		Visualization: spec.Visualization,
		Shared:        shared,
	}
	if err := e.store.CreateReport(ctx, r); err != nil {
		return models.CustomReport{}, err
	}
	return r, nil
}

// Update replaces a stored report's spec. Only the owner may edit.
func (e *Engine) Update(ctx context.Context, id string, ownerID int64, name string, spec Spec, shared bool) error {
	if err := Validate(spec); err != nil {
		return err
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	return e.store.UpdateReport(ctx, models.CustomReport{
		ID:            id,
		OwnerID:       ownerID,
		Name:          name,
		Spec:          string(raw),
		Visualization: spec.Visualization,
		Shared:        shared,
	})
}

// Delete removes a stored report. Only the owner may delete.
func (e *Engine) Delete(ctx context.Context, id string, ownerID int64) error {
	return e.store.DeleteReport(ctx, id, ownerID)
}

// List returns the user's own reports plus the shared ones.
func (e *Engine) List(ctx context.Context, userID int64) ([]models.CustomReport, error) {
	return e.store.ListReports(ctx, userID)
}

// ExecuteStored runs a stored report from an immutable snapshot of its spec;
// concurrent edits never affect an execution already underway.
func (e *Engine) ExecuteStored(ctx context.Context, id string) (Result, error) {
	r, err := e.store.GetReport(ctx, id)
	if err != nil {
		return Result{}, err
	}
	var spec Spec
	if err := json.Unmarshal([]byte(r.Spec), &spec); err != nil {
		return Result{}, fmt.Errorf("report %s has a corrupt spec: %w", id, err)
	}
	return e.Execute(ctx, spec)
}

func (m Metric) alias() string {
	if m.Alias != "" {
		return m.Alias
	}
	return strings.ToLower(m.Func) + "_" + m.Field
}

var leafOps = map[string]string{
	"eq": "=", "neq": "!=", "gt": ">", "gte": ">=", "lt": "<", "lte": "<=",
}

func validateFilter(n FilterNode, allowed map[string]bool) error {
	branches := 0
	if len(n.And) > 0 {
		branches++
	}
	if len(n.Or) > 0 {
		branches++
	}
	if n.Field != "" {
		branches++
	}
	if branches != 1 {
		return &models.ValidationError{Rule: "filter", Detail: "a filter node is either and, or, or a single predicate"}
	}
	for _, c := range append(n.And, n.Or...) {
		if err := validateFilter(c, allowed); err != nil {
			return err
		}
	}
	if n.Field == "" {
		return nil
	}
	if !allowed[n.Field] {
		return &models.ValidationError{Rule: "filter-field", Detail: fmt.Sprintf("field %q is not filterable", n.Field)}
	}
	if _, ok := leafOps[n.Op]; !ok && n.Op != "in" && n.Op != "contains" {
		return &models.ValidationError{Rule: "filter-op", Detail: fmt.Sprintf("unknown operator %q", n.Op)}
	}
	if n.Op == "in" {
		values, ok := n.Value.([]interface{})
		if !ok || len(values) == 0 {
			return &models.ValidationError{Rule: "filter-op", Detail: "in requires a non-empty list value"}
		}
	}
	return nil
}

// compileFilter renders the tree as a parenthesized WHERE clause. Field names
// were validated against the allow-list; values travel as bound arguments.
func compileFilter(n FilterNode) (string, []interface{}, error) {
	switch {
	case len(n.And) > 0:
		return compileBranch(n.And, " AND ")
	case len(n.Or) > 0:
		return compileBranch(n.Or, " OR ")
	}

	switch n.Op {
	case "in":
		values := n.Value.([]interface{})
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return fmt.Sprintf("%s IN (%s)", n.Field, marks), values, nil
	case "contains":
		return n.Field + " LIKE ?", []interface{}{fmt.Sprintf("%%%v%%", n.Value)}, nil
	default:
		op, ok := leafOps[n.Op]
		if !ok {
			return "", nil, &models.ValidationError{Rule: "filter-op", Detail: fmt.Sprintf("unknown operator %q", n.Op)}
		}
		return fmt.Sprintf("%s %s ?", n.Field, op), []interface{}{n.Value}, nil
	}
}

func compileBranch(children []FilterNode, sep string) (string, []interface{}, error) {
	var parts []string
	var args []interface{}
	for _, c := range children {
		where, cargs, err := compileFilter(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, where)
		args = append(args, cargs...)
	}
	return "(" + strings.Join(parts, sep) + ")", args, nil
}
