// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package selection

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// ExprFilter is a compiled CEL predicate over a scored candidate. The
// expression sees two variables:
//
//	item  map with id, title, year, rating, votes, popularity, genres,
//	      keywords, cast, director, collection, kind and score
//	user  the user the selection is for
//
// Examples:
//
//	item.year >= 1990 && !("anime" in item.keywords)
//	item.votes > 1000 || item.score > 0.8
//	user != "kids" || "family" in item.genres
//
// A compiled filter is safe for concurrent use.
type ExprFilter struct {
	source string
	prg    cel.Program
}

// NewExprFilter compiles expr. An empty expression yields a nil filter that
// accepts everything.
func NewExprFilter(expr string) (*ExprFilter, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("user", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter expression must return bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter program: %w", err)
	}
	return &ExprFilter{source: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *ExprFilter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match evaluates the predicate for sc. A nil filter matches everything.
func (f *ExprFilter) Match(user string, sc *recommend.ScoredCandidate) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{
		"item": itemVars(sc),
		"user": user,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter expression: %w", err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("filter expression returned %T, want bool", out.Value())
	}
	return ok, nil
}

func itemVars(sc *recommend.ScoredCandidate) map[string]any {
	c := &sc.Candidate
	return map[string]any{
		"id":         c.TitleID,
		"title":      c.Title,
		"year":       int64(c.Year),
		"rating":     c.Rating,
		"votes":      c.VoteCount,
		"popularity": c.Popularity,
		"genres":     nonNil(c.Genres),
		"keywords":   nonNil(c.Keywords),
		"cast":       nonNil(c.TopCast),
		"director":   c.Director,
		"collection": c.CollectionID,
		"kind":       string(c.Kind),
		"score":      sc.Result.Composite,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
