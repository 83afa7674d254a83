// Package taxonomy classifies compiler diagnostics into a fixed category set
// and summarizes them for escalation routing. See SPEC_FULL.md §4.A.
package taxonomy

import (
	"encoding/json"
	"strings"

	"github.com/itchyny/gojq"

	swerr "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Category is the closed classification set for a parsed compiler error.
type Category string

const (
	CategorySyntax           Category = "syntax"
	CategoryTypeMismatch     Category = "type_mismatch"
	CategoryBorrowChecker    Category = "borrow_checker"
	CategoryLifetime         Category = "lifetime"
	CategoryTraitBound       Category = "trait_bound"
	CategoryImportResolution Category = "import_resolution"
	CategoryMacro            Category = "macro"
	CategoryLinker           Category = "linker"
	CategoryTest             Category = "test"
	CategoryOther            Category = "other"
)

// allCategories lists the closed set in a stable order for summaries.
var allCategories = []Category{
	CategorySyntax, CategoryTypeMismatch, CategoryBorrowChecker, CategoryLifetime,
	CategoryTraitBound, CategoryImportResolution, CategoryMacro, CategoryLinker,
	CategoryTest, CategoryOther,
}

// Span locates a diagnostic in source.
type Span struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// rawRecord is the wire shape of one compiler diagnostic line.
type rawRecord struct {
	Severity   string          `json:"severity"`
	Code       string          `json:"code,omitempty"`
	Message    string          `json:"message"`
	Span       *Span           `json:"span,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
	Labels     []string        `json:"labels,omitempty"`
	Extra      json.RawMessage `json:"-"`
}

// ParsedError is one classified diagnostic.
type ParsedError struct {
	Category   Category
	Code       string
	Message    string
	File       string
	Line       int
	Column     int
	Suggestion string
	Labels     []string
}

// ParseError wraps a malformed diagnostic-JSON line; per spec.md §4.A this is
// the only failure mode of Parse.
type ParseError struct {
	Line int
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return swerr.FailedTo("parse diagnostic record", e.Err).Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// codeTable is the fixed diagnostic-code → category lookup, checked before
// any substring heuristic. Entries are illustrative of a Rust-style
// front end; an unknown code always falls through to substring matching
// rather than erroring, per spec.md §4.A.
var codeTable = map[string]Category{
	"E0308": CategoryTypeMismatch,
	"E0382": CategoryBorrowChecker,
	"E0499": CategoryBorrowChecker,
	"E0502": CategoryBorrowChecker,
	"E0106": CategoryLifetime,
	"E0621": CategoryLifetime,
	"E0623": CategoryLifetime,
	"E0277": CategoryTraitBound,
	"E0599": CategoryTraitBound,
	"E0432": CategoryImportResolution,
	"E0433": CategoryImportResolution,
	"E0583": CategoryImportResolution,
	"E0658": CategoryMacro,
	"E0659": CategoryMacro,
	"E0425": CategorySyntax,
	"E0001": CategorySyntax,
}

// substringRules is evaluated top to bottom; the first match wins. Order
// matters: lifetime/borrow terms are checked before the more generic
// type-mismatch and import terms so e.g. "lifetime 'a does not live long
// enough" isn't misclassified as a plain type error.
var substringRules = []struct {
	category Category
	terms    []string
}{
	{CategoryLifetime, []string{"lifetime", "does not live long enough", "borrowed value does not live"}},
	{CategoryBorrowChecker, []string{"cannot borrow", "already borrowed", "use of moved value", "moved value", "cannot move out of"}},
	{CategoryTraitBound, []string{"trait bound", "is not satisfied", "the trait", "not implemented for"}},
	{CategoryTypeMismatch, []string{"mismatched types", "expected type", "type mismatch", "incompatible types"}},
	{CategoryImportResolution, []string{"unresolved import", "no module named", "cannot find module", "failed to resolve"}},
	{CategoryMacro, []string{"macro expansion", "in this macro invocation", "proc-macro"}},
	{CategoryLinker, []string{"linker", "undefined reference", "undefined symbol", "ld returned"}},
	{CategoryTest, []string{"test failed", "assertion failed", "panicked at", "FAILED"}},
	{CategorySyntax, []string{"unexpected token", "syntax error", "expected one of"}},
}

// Parse classifies a stream of diagnostic JSON records, keeping only those
// with severity == "error". Malformed JSON fails the whole batch with a
// ParseError carrying the offending line; unknown codes never fail, they
// fall back to substring classification or Other.
func Parse(lines []string) ([]ParsedError, error) {
	out := make([]ParsedError, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec rawRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, &ParseError{Line: i, Raw: line, Err: err}
		}
		if !strings.EqualFold(rec.Severity, "error") {
			continue
		}
		pe := classify(rec)
		if pe.Suggestion == "" {
			// Rust-style front ends nest help text in a "children" array the
			// fixed rawRecord doesn't model; recover it rather than losing
			// the suggestion.
			if hint, ok := ExtraField(line, childSuggestionQuery); ok {
				pe.Suggestion = hint
			}
		}
		out = append(out, pe)
	}
	return out, nil
}

// childSuggestionQuery pulls the first sub-diagnostic's message out of a
// record's vendor-specific "children" array.
const childSuggestionQuery = `.children[0].message`

func classify(rec rawRecord) ParsedError {
	pe := ParsedError{
		Code:       rec.Code,
		Message:    rec.Message,
		Suggestion: rec.Suggestion,
		Labels:     rec.Labels,
	}
	if rec.Span != nil {
		pe.File, pe.Line, pe.Column = rec.Span.File, rec.Span.Line, rec.Span.Column
	}
	if rec.Code != "" {
		if cat, ok := codeTable[rec.Code]; ok {
			pe.Category = cat
			return pe
		}
	}
	msg := strings.ToLower(rec.Message)
	for _, rule := range substringRules {
		for _, term := range rule.terms {
			if strings.Contains(msg, strings.ToLower(term)) {
				pe.Category = rule.category
				return pe
			}
		}
	}
	pe.Category = CategoryOther
	return pe
}

// ExtraField pulls a nested/vendor-specific field out of a raw diagnostic
// line that the fixed rawRecord struct doesn't model (e.g. front ends that
// attach a "children" array of sub-diagnostics). It is best-effort: a query
// error or missing field returns "", false rather than failing Parse.
func ExtraField(rawLine string, jqExpr string) (string, bool) {
	query, err := gojq.Parse(jqExpr)
	if err != nil {
		return "", false
	}
	var doc any
	if err := json.Unmarshal([]byte(rawLine), &doc); err != nil {
		return "", false
	}
	iter := query.Run(doc)
	v, ok := iter.Next()
	if !ok {
		return "", false
	}
	if err, isErr := v.(error); isErr {
		_ = err
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case nil:
		return "", false
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// ErrorSummary aggregates classified errors for escalation/telemetry use.
type ErrorSummary struct {
	Counts          map[Category]int
	MostCommon      Category
	Total           int
	RecommendedTier string
}

// tierByCategory gives a coarse routing hint: categories that usually need
// architectural context route toward Cloud, recurring borrow/lifetime
// issues route toward Integrator, everything else stays at Worker. The
// escalation engine (pkg/escalation) makes the authoritative decision; this
// is advisory only.
var tierByCategory = map[Category]string{
	CategoryLifetime:      "integrator",
	CategoryBorrowChecker:  "integrator",
	CategoryTraitBound:     "integrator",
	CategoryImportResolution: "worker",
	CategoryTypeMismatch:   "worker",
	CategorySyntax:         "worker",
	CategoryMacro:          "cloud",
	CategoryLinker:         "cloud",
	CategoryTest:           "worker",
	CategoryOther:          "worker",
}

// Summarize produces per-category counts, the most common category (ties
// broken by the fixed category order above, keeping the function
// deterministic), and a recommended tier label.
func Summarize(errs []ParsedError) ErrorSummary {
	counts := make(map[Category]int, len(allCategories))
	for _, c := range allCategories {
		counts[c] = 0
	}
	for _, e := range errs {
		counts[e.Category]++
	}

	most := CategoryOther
	bestCount := -1
	for _, c := range allCategories {
		if counts[c] > bestCount {
			bestCount = counts[c]
			most = c
		}
	}

	return ErrorSummary{
		Counts:          counts,
		MostCommon:      most,
		Total:           len(errs),
		RecommendedTier: tierByCategory[most],
	}
}
