// Package boolean evaluates boolean term queries over an inverted index.
//
// Expressions are whitespace separated operands and the operators "!"
// (NOT), "&" (AND) and "|" (OR). There is no precedence grammar: the
// engine eliminates every "!" first, then every "&", then every "|",
// always taking the leftmost remaining operator. A "!" may also be written
// directly before its operand, as in "!a".
package boolean

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/errors"
)

const (
	OpNot = "!"
	OpAnd = "&"
	OpOr  = "|"
)

// Engine is safe for concurrent use; it only reads the index.
type Engine struct {
	idx        *index.Index
	normalizer corpus.TextNormalizer
	logger     *slog.Logger
}

func New(idx *index.Index) *Engine {
	return &Engine{
		idx:    idx,
		logger: slog.Default().With("component", "boolean-engine"),
	}
}

// WithNormalizer returns a copy of e that maps every operand through n
// before the lookup, so operands match a corpus normalized with n. An
// operand that normalizes to several terms matches documents holding all
// of them; one that normalizes to nothing matches no document.
func (e *Engine) WithNormalizer(n corpus.TextNormalizer) *Engine {
	cp := *e
	cp.normalizer = n
	return &cp
}

func (e *Engine) lookup(operand string) []int {
	if e.normalizer == nil {
		return e.idx.Postings(operand)
	}
	terms := e.normalizer.Normalize(operand)
	if len(terms) == 0 {
		return []int{}
	}
	ids := e.idx.Postings(terms[0])
	for _, t := range terms[1:] {
		ids = Intersect(ids, e.idx.Postings(t))
	}
	return ids
}

// item is either an operator or an evaluated operand. pos is the token's
// index in the original expression.
type item struct {
	op  string
	ids []int
	pos int
}

func (it item) isOperand() bool { return it.op == "" }

// Evaluate returns the ascending list of matching document ids. Unknown
// terms match nothing; an empty expression yields an empty list.
func (e *Engine) Evaluate(expr string) ([]int, error) {
	fields := tokenize(expr)
	items := make([]item, len(fields))
	for i, f := range fields {
		switch f {
		case OpNot, OpAnd, OpOr:
			items[i] = item{op: f, pos: i}
		default:
			items[i] = item{ids: e.lookup(f), pos: i}
		}
	}

	var err error
	if items, err = e.notPass(items); err != nil {
		return nil, err
	}
	if items, err = binaryPass(items, OpAnd, Intersect); err != nil {
		return nil, err
	}
	if items, err = binaryPass(items, OpOr, Union); err != nil {
		return nil, err
	}

	switch len(items) {
	case 0:
		return []int{}, nil
	case 1:
		result := items[0].ids
		sort.Ints(result)
		return result, nil
	default:
		return nil, &apperrors.QuerySyntaxError{
			Position: items[1].pos,
			Reason:   "is an operand with no operator joining it to the previous one",
		}
	}
}

// tokenize splits expr on whitespace and peels leading "!" characters off
// operand tokens, so "!a" reads as "! a". Positions refer to this token list.
func tokenize(expr string) []string {
	var tokens []string
	for _, f := range strings.Fields(expr) {
		for len(f) > 1 && f[0] == '!' {
			tokens = append(tokens, OpNot)
			f = f[1:]
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func (e *Engine) notPass(items []item) ([]item, error) {
	for {
		i := indexOfOp(items, OpNot)
		if i < 0 {
			return items, nil
		}
		if i+1 >= len(items) || !items[i+1].isOperand() {
			return nil, syntaxError(items[i], "has no right operand")
		}
		items[i+1].ids = Complement(items[i+1].ids, e.idx.Universe())
		items = append(items[:i], items[i+1:]...)
	}
}

func binaryPass(items []item, op string, combine func(left, right []int) []int) ([]item, error) {
	for {
		i := indexOfOp(items, op)
		if i < 0 {
			return items, nil
		}
		if i == 0 || !items[i-1].isOperand() {
			return nil, syntaxError(items[i], "has no left operand")
		}
		if i+1 >= len(items) || !items[i+1].isOperand() {
			return nil, syntaxError(items[i], "has no right operand")
		}
		merged := item{ids: combine(items[i-1].ids, items[i+1].ids), pos: items[i-1].pos}
		rest := append([]item{merged}, items[i+2:]...)
		items = append(items[:i-1], rest...)
	}
}

func indexOfOp(items []item, op string) int {
	for i, it := range items {
		if it.op == op {
			return i
		}
	}
	return -1
}

func syntaxError(it item, reason string) error {
	return &apperrors.QuerySyntaxError{Operator: it.op, Position: it.pos, Reason: reason}
}

// Complement returns {1..universe} minus ids, ascending.
func Complement(ids []int, universe int) []int {
	exclude := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		exclude[id] = struct{}{}
	}
	out := make([]int, 0, universe)
	for id := 1; id <= universe; id++ {
		if _, ok := exclude[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Intersect keeps the elements of left that also occur in right, in left's
// order. Duplicates in left are preserved.
func Intersect(left, right []int) []int {
	in := make(map[int]struct{}, len(right))
	for _, id := range right {
		in[id] = struct{}{}
	}
	out := make([]int, 0, len(left))
	for _, id := range left {
		if _, ok := in[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Union returns the deduplicated set union of left and right in no
// particular order.
func Union(left, right []int) []int {
	seen := make(map[int]struct{}, len(left)+len(right))
	out := make([]int, 0, len(left)+len(right))
	for _, ids := range [][]int{left, right} {
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

// Result is the outcome of one query in a batch.
type Result struct {
	Query string
	Docs  []int
	Err   error
}

// EvaluateAll runs every query concurrently. A failing query records its
// error in its own Result and does not affect the others.
func (e *Engine) EvaluateAll(ctx context.Context, queries []string, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs, err := e.Evaluate(q)
			if err != nil {
				e.logger.Warn("boolean query failed", "query", q, "error", err)
			}
			results[i] = Result{Query: q, Docs: docs, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
