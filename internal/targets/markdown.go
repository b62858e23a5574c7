package targets

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownLoader collects http(s) link destinations, image sources and
// autolinks. Code blocks are skipped.
type markdownLoader struct{}

func (markdownLoader) Extensions() []string { return []string{".md", ".markdown"} }

func (markdownLoader) Extract(content []byte) ([]string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Linkify))
	doc := md.Parser().Parse(text.NewReader(content))

	var urls []string
	inCode := false
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if n.Kind() == ast.KindCodeBlock || n.Kind() == ast.KindFencedCodeBlock {
			inCode = entering
			return ast.WalkContinue, nil
		}
		if inCode || !entering {
			return ast.WalkContinue, nil
		}

		var u string
		switch node := n.(type) {
		case *ast.Link:
			u = string(node.Destination)
		case *ast.Image:
			u = string(node.Destination)
		case *ast.AutoLink:
			u = string(node.URL(content))
		}
		if isHTTPURL(u) {
			urls = append(urls, u)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return urls, nil
}
