package extract

import (
	"strings"
	"testing"
	"time"
)

const textPage = `<html>
<head>
	<title>  Example   Site  </title>
	<meta name="description" content="A   site about examples.">
	<script>var tracking = true;</script>
	<style>.hidden { display: none }</style>
</head>
<body>
	<nav><a href="/">Home</a></nav>
	<h1>Welcome to the example</h1>
	<h2>Tiny</h2>
	<h3>Deeper section heading</h3>
	<p>This paragraph is comfortably longer than fifty characters and should be kept as content.</p>
	<p>Short one.</p>
	<p>We use cookies to improve your experience, please accept them to continue browsing this site.</p>
	<footer>Copyright</footer>
</body>
</html>`

func TestTextExtractsCleanedContent(t *testing.T) {
	now := time.Now()
	record, err := Text(parseDoc(t, textPage), "https://example.com/", now)
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}

	if record.Title != "Example Site" {
		t.Fatalf("expected collapsed title, got %q", record.Title)
	}
	if record.MetaDescription != "A site about examples." {
		t.Fatalf("expected collapsed meta description, got %q", record.MetaDescription)
	}

	// "Tiny" is below the heading length floor; the other two survive.
	if len(record.Headings) != 2 {
		t.Fatalf("expected 2 headings, got %v", record.Headings)
	}
	if record.Headings[0].Level != "h1" || record.Headings[1].Level != "h3" {
		t.Fatalf("unexpected heading levels: %v", record.Headings)
	}

	// The short paragraph and the cookie banner are dropped.
	if len(record.Paragraphs) != 1 {
		t.Fatalf("expected 1 paragraph, got %v", record.Paragraphs)
	}
	if !strings.Contains(record.Paragraphs[0], "comfortably longer") {
		t.Fatalf("unexpected paragraph %q", record.Paragraphs[0])
	}
	if record.WordCount != len(strings.Fields(record.Paragraphs[0])) {
		t.Fatalf("word count %d does not match paragraph words", record.WordCount)
	}
	if !record.CrawledAt.Equal(now) {
		t.Fatalf("expected crawl timestamp %s, got %s", now, record.CrawledAt)
	}
}

func TestTextRequiresDocument(t *testing.T) {
	if _, err := Text(nil, "https://example.com/", time.Now()); err == nil {
		t.Fatal("expected error for nil document")
	}
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	got := CleanText("  a \n\t b   c ")
	if got != "a b c" {
		t.Fatalf("expected %q, got %q", "a b c", got)
	}
}
