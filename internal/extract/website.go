package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gomtr72/question-generator/internal/domain"
)

const maxPageBytes = 8 << 20

// Website fetches a page and keeps its title, paragraphs and headings.
type Website struct {
	client *http.Client
}

// NewWebsite creates a website extractor. nil client selects http.DefaultClient.
func NewWebsite(client *http.Client) *Website {
	if client == nil {
		client = http.DefaultClient
	}
	return &Website{client: client}
}

// Extract downloads src.Content and returns "Title: ..." followed by one paragraph per p/h1-h6 element.
func (w *Website) Extract(ctx context.Context, src domain.Source) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(src.Content), http.NoBody)
	if err != nil {
		return "", domain.NewContentError(domain.ContentWebsite, "invalid url", err)
	}
	req.Header.Set("User-Agent", "questiongen/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", domain.NewContentError(domain.ContentWebsite, "fetch failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewContentError(domain.ContentWebsite,
			fmt.Sprintf("fetch returned status %d", resp.StatusCode), nil)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", domain.NewContentError(domain.ContentWebsite, "parse html", err)
	}
	return PageText(doc), nil
}

var contentAtoms = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
}

// PageText renders the title and the text of p/h1-h6 elements in document order,
// blocks separated by a blank line. Whitespace inside a block is collapsed.
func PageText(doc *html.Node) string {
	var blocks []string
	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Title && title == "":
				title = collapse(nodeText(n))
			case contentAtoms[n.DataAtom]:
				if t := collapse(nodeText(n)); t != "" {
					blocks = append(blocks, t)
				}
				return
			case n.DataAtom == atom.Script || n.DataAtom == atom.Style:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title != "" {
		blocks = append([]string{"Title: " + title}, blocks...)
	}
	return strings.Join(blocks, "\n\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
