package codeintel

import (
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var goErrCheckRe = regexp.MustCompile(`\berr\s*[!=]=\s*nil\b`)

// matcher inspects a single node.
type matcher func(n *tree_sitter.Node, src []byte) bool

// grammar pairs a tree-sitter language with the node matchers used to
// classify samples written in it.
type grammar struct {
	lang          *tree_sitter.Language
	errorHandling matcher
	documented    matcher
}

// TreeSitterAnalyzer analyzes samples with tree-sitter grammars for Go,
// TypeScript/JavaScript, Python and Rust. Other languages go to the lexical
// fallback. A parser is created per call, so one analyzer may be shared
// across goroutines.
type TreeSitterAnalyzer struct {
	grammars map[Language]grammar
	fallback Analyzer
}

// NewTreeSitterAnalyzer registers every bundled grammar.
func NewTreeSitterAnalyzer() *TreeSitterAnalyzer {
	ts := grammar{
		errorHandling: kinds("try_statement", "throw_statement", "catch_clause"),
		documented:    anyOf(kinds("type_annotation", "interface_declaration", "type_alias_declaration"), docComment("/**")),
	}
	tsx := ts
	ts.lang = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	tsx.lang = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())

	return &TreeSitterAnalyzer{
		grammars: map[Language]grammar{
			LangGo: {
				lang:          tree_sitter.NewLanguage(tree_sitter_go.Language()),
				errorHandling: goErrorHandling,
				documented:    anyOf(kinds("type_declaration"), docComment("//")),
			},
			LangTypeScript: ts,
			LangTSX:        tsx,
			LangPython: {
				lang:          tree_sitter.NewLanguage(tree_sitter_python.Language()),
				errorHandling: kinds("try_statement", "raise_statement"),
				documented:    anyOf(kinds("typed_parameter", "typed_default_parameter"), pyDocstring, docComment("#")),
			},
			LangRust: {
				lang:          tree_sitter.NewLanguage(tree_sitter_rust.Language()),
				errorHandling: anyOf(kinds("try_expression"), rsResultType),
				documented:    anyOf(kinds("struct_item", "enum_item", "trait_item"), docComment("///")),
			},
		},
		fallback: LexicalAnalyzer{},
	}
}

// Analyze implements Analyzer.
func (a *TreeSitterAnalyzer) Analyze(tag, source string) Report {
	lang := DetectLanguage(tag)
	g, ok := a.grammars[lang]
	if !ok {
		return a.fallback.Analyze(tag, source)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(g.lang); err != nil {
		return a.fallback.Analyze(tag, source)
	}

	src := []byte(source)
	tree := parser.Parse(src, nil)
	if tree == nil {
		return a.fallback.Analyze(tag, source)
	}
	defer tree.Close()

	root := tree.RootNode()
	r := Report{Language: lang, Parsed: true, SyntaxError: root.HasError()}

	cursor := root.Walk()
	defer cursor.Close()
	walk(cursor, src, g, &r)
	return r
}

// walk visits every node depth first, stopping early once both facts hold.
func walk(cursor *tree_sitter.TreeCursor, src []byte, g grammar, r *Report) {
	if r.ErrorHandling && r.Documented {
		return
	}
	node := cursor.Node()
	if !r.ErrorHandling && g.errorHandling(node, src) {
		r.ErrorHandling = true
	}
	if !r.Documented && g.documented(node, src) {
		r.Documented = true
	}

	if cursor.GotoFirstChild() {
		walk(cursor, src, g, r)
		for cursor.GotoNextSibling() {
			walk(cursor, src, g, r)
		}
		cursor.GotoParent()
	}
}

func kinds(names ...string) matcher {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(n *tree_sitter.Node, _ []byte) bool {
		return set[n.Kind()]
	}
}

func anyOf(ms ...matcher) matcher {
	return func(n *tree_sitter.Node, src []byte) bool {
		for _, m := range ms {
			if m(n, src) {
				return true
			}
		}
		return false
	}
}

// docComment matches a comment node that starts with prefix and is followed
// by a sibling declaration.
func docComment(prefix string) matcher {
	return func(n *tree_sitter.Node, src []byte) bool {
		if !strings.Contains(n.Kind(), "comment") {
			return false
		}
		if !strings.HasPrefix(strings.TrimSpace(n.Utf8Text(src)), prefix) {
			return false
		}
		return n.NextNamedSibling() != nil
	}
}

func goErrorHandling(n *tree_sitter.Node, src []byte) bool {
	if n.Kind() != "if_statement" {
		return false
	}
	cond := n.ChildByFieldName("condition")
	return cond != nil && goErrCheckRe.MatchString(cond.Utf8Text(src))
}

func pyDocstring(n *tree_sitter.Node, _ []byte) bool {
	if n.Kind() != "function_definition" && n.Kind() != "class_definition" {
		return false
	}
	body := n.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return false
	}
	s := first.NamedChild(0)
	return s != nil && s.Kind() == "string"
}

func rsResultType(n *tree_sitter.Node, src []byte) bool {
	if n.Kind() != "generic_type" {
		return false
	}
	t := n.ChildByFieldName("type")
	return t != nil && t.Utf8Text(src) == "Result"
}
