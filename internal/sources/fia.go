// Package sources provides clients for external F1 data: the FIA
// document site, the Jolpica API and race control message feeds.
package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/pitwall-ai/pitwall/internal/textutil"
)

// Document types produced by the scraper.
const (
	DocTypeRegulation       = "regulation"
	DocTypeStewardsDecision = "stewards_decision"
)

// FIA site endpoints. The documents page is JS-rendered, which is why
// listing goes through a headless browser instead of a plain GET.
const (
	fiaBaseURL         = "https://www.fia.com"
	fiaRegulationsPath = "/regulation/category/110"
	fiaDecisionsPath   = "/documents/championships/fia-formula-one-world-championship-14"
)

// FIADocument represents a scraped FIA document.
type FIADocument struct {
	Title       string
	URL         string
	DocType     string
	EventName   string
	Season      int
	LocalPath   string
	TextContent string
}

// decisionKeywords mark PDF links worth indexing from the decisions
// page; everything else there is timetables and entry lists.
var decisionKeywords = []string{
	"infringement", "decision", "offence", "penalty",
	"collision", "unsafe", "track", "speeding",
}

// raceSlugs map URL fragments to event names.
var raceSlugs = []string{
	"bahrain", "saudi", "australia", "japan", "china", "miami",
	"monaco", "spain", "canada", "austria", "britain", "hungary",
	"belgium", "netherlands", "italy", "azerbaijan", "singapore",
	"usa", "mexico", "brazil", "vegas", "qatar", "abu_dhabi",
}

// FIAScraper discovers, downloads and extracts FIA PDF documents.
type FIAScraper struct {
	dataDir    string
	httpClient *http.Client
	logger     *slog.Logger
}

// FIAOption configures the scraper.
type FIAOption func(*FIAScraper)

// WithFIAHTTPClient overrides the download client.
func WithFIAHTTPClient(client *http.Client) FIAOption {
	return func(s *FIAScraper) { s.httpClient = client }
}

// WithFIALogger sets the logger.
func WithFIALogger(logger *slog.Logger) FIAOption {
	return func(s *FIAScraper) { s.logger = logger }
}

// NewFIAScraper creates a scraper that stores downloads under dataDir.
func NewFIAScraper(dataDir string, opts ...FIAOption) (*FIAScraper, error) {
	s := &FIAScraper{
		dataDir:    dataDir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, sub := range []string{"regulations", "stewards"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return s, nil
}

// ScrapeRegulations lists sporting regulation PDFs for a season.
func (s *FIAScraper) ScrapeRegulations(ctx context.Context, season int) ([]FIADocument, error) {
	page, err := s.renderPage(ctx, fiaBaseURL+fiaRegulationsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch regulations page: %w", err)
	}

	year := strconv.Itoa(season)
	var documents []FIADocument
	for _, link := range extractPDFLinks(page) {
		if !strings.Contains(link.href, year) && !strings.Contains(link.title, year) {
			continue
		}
		if !containsAny(strings.ToLower(link.title)+" "+strings.ToLower(link.href),
			"sporting", "regulation", "f1", "formula") {
			continue
		}
		documents = append(documents, FIADocument{
			Title:   link.title,
			URL:     absoluteURL(link.href),
			DocType: DocTypeRegulation,
			Season:  season,
		})
	}
	s.logger.Info("scraped regulations", "season", season, "documents", len(documents))
	return documents, nil
}

// ScrapeStewardsDecisions lists stewards decision PDFs for a season,
// optionally narrowed to one race.
func (s *FIAScraper) ScrapeStewardsDecisions(ctx context.Context, season int, raceName string) ([]FIADocument, error) {
	page, err := s.renderPage(ctx, fiaBaseURL+fiaDecisionsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch decisions page: %w", err)
	}

	year := strconv.Itoa(season)
	var documents []FIADocument
	for _, link := range extractPDFLinks(page) {
		hrefLower := strings.ToLower(link.href)
		titleLower := strings.ToLower(link.title)

		if !strings.Contains(hrefLower, year) && !strings.Contains(titleLower, year) {
			continue
		}
		if !containsAny(hrefLower+" "+titleLower, decisionKeywords...) {
			continue
		}

		eventName := eventFromSlug(hrefLower, titleLower)
		if raceName != "" && eventName != "" && !looseMatch(raceName, eventName) {
			continue
		}

		documents = append(documents, FIADocument{
			Title:     link.title,
			URL:       absoluteURL(link.href),
			DocType:   DocTypeStewardsDecision,
			EventName: eventName,
			Season:    season,
		})
	}
	s.logger.Info("scraped stewards decisions",
		"season", season, "race", raceName, "documents", len(documents))
	return documents, nil
}

// Download fetches the document PDF unless a local copy already exists.
// Returns true when a download happened.
func (s *FIAScraper) Download(ctx context.Context, doc *FIADocument) (bool, error) {
	subdir := "stewards"
	if doc.DocType == DocTypeRegulation {
		subdir = "regulations"
	}

	filename := path(doc.URL)
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename = strings.ReplaceAll(truncate(doc.Title, 50), " ", "_") + ".pdf"
	}
	doc.LocalPath = filepath.Join(s.dataDir, subdir, filename)

	if _, err := os.Stat(doc.LocalPath); err == nil {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.URL, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("download %s: %w", doc.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("download %s: unexpected status %d", doc.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read body: %w", err)
	}
	if err := os.WriteFile(doc.LocalPath, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", doc.LocalPath, err)
	}
	return true, nil
}

// ExtractText pulls plain text out of the downloaded PDF into
// doc.TextContent.
func (s *FIAScraper) ExtractText(doc *FIADocument) error {
	if doc.LocalPath == "" {
		return fmt.Errorf("document %q has no local copy", doc.Title)
	}

	f, reader, err := pdf.Open(doc.LocalPath)
	if err != nil {
		return fmt.Errorf("open pdf %s: %w", doc.LocalPath, err)
	}
	defer f.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return fmt.Errorf("extract text from %s: %w", doc.LocalPath, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return fmt.Errorf("read text from %s: %w", doc.LocalPath, err)
	}

	doc.TextContent = textutil.Normalize(buf.String())
	return nil
}

// renderPage loads a JS-rendered page in headless Chrome and returns
// the final DOM serialized as HTML.
func (s *FIAScraper) renderPage(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 90*time.Second)
	defer cancelTimeout()

	var content string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &content),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	return content, nil
}

// pdfLink is an anchor pointing at a PDF.
type pdfLink struct {
	title string
	href  string
}

// extractPDFLinks walks the parsed DOM collecting anchors whose href
// ends in .pdf. The anchor text becomes the title, falling back to the
// file name.
func extractPDFLinks(page string) []pdfLink {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var links []pdfLink
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !strings.HasSuffix(strings.ToLower(attr.Val), ".pdf") {
					continue
				}
				title := strings.TrimSpace(nodeText(n))
				if title == "" {
					title = path(attr.Val)
				}
				links = append(links, pdfLink{title: title, href: attr.Val})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return links
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

func eventFromSlug(hrefLower, titleLower string) string {
	for _, slug := range raceSlugs {
		spaced := strings.ReplaceAll(slug, "_", " ")
		if strings.Contains(hrefLower, slug) || strings.Contains(titleLower, spaced) {
			return titleCase(spaced)
		}
	}
	return ""
}

// looseMatch reports whether either name contains the other, so
// "Australia" matches "Australian Grand Prix".
func looseMatch(a, b string) bool {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(al, bl) || strings.Contains(bl, al)
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func absoluteURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	base, _ := url.Parse(fiaBaseURL)
	return base.ResolveReference(u).String()
}

func path(rawURL string) string {
	if idx := strings.LastIndex(rawURL, "/"); idx >= 0 {
		return rawURL[idx+1:]
	}
	return rawURL
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
