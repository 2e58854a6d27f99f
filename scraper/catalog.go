// scraper/catalog.go
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/gewnthar/charttiles/config"
	"github.com/gewnthar/charttiles/models"
)

// The VFR digital-products page groups its chart links in tab divs.
var vfrTabIDs = []string{"sectional", "terminalArea"}

// Catalog discovers the chart editions currently published on the FAA
// listing pages and normalizes them into EditionDescriptors. Filenames
// that do not match a category's identity pattern are dropped here, so
// downstream components only ever see pre-filtered candidates.
type Catalog struct {
	client *http.Client
	vfrURL string
	ifrURL string
	logger logrus.FieldLogger
}

func NewCatalog(cfg config.CatalogConfig, timeout time.Duration, logger logrus.FieldLogger) *Catalog {
	return &Catalog{
		client: &http.Client{Timeout: timeout},
		vfrURL: cfg.VFRChartsURL,
		ifrURL: cfg.IFRChartsURL,
		logger: logger,
	}
}

// Discover fetches and parses the listing page for the given category.
func (c *Catalog) Discover(ctx context.Context, category models.ChartCategory) ([]models.EditionDescriptor, error) {
	switch category {
	case models.CategorySectional:
		return c.discoverVFR(ctx, category)
	case models.CategoryIFRLow, models.CategoryIFRHigh:
		return c.discoverIFR(ctx, category)
	default:
		return nil, fmt.Errorf("unknown chart category: %s", category)
	}
}

// discoverVFR walks the sectional and terminal-area tab divs on the VFR
// page and collects every zip link whose filename matches the VFR chart
// pattern.
func (c *Catalog) discoverVFR(ctx context.Context, category models.ChartCategory) ([]models.EditionDescriptor, error) {
	doc, err := c.fetchDocument(ctx, c.vfrURL)
	if err != nil {
		return nil, err
	}

	var editions []models.EditionDescriptor
	for _, tabID := range vfrTabIDs {
		doc.Find("div#" + tabID).Find("a[href]").Each(func(i int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if !strings.HasSuffix(href, ".zip") {
				return
			}
			absolute := makeAbsoluteURL(c.vfrURL, href)
			filename := absolute[strings.LastIndex(absolute, "/")+1:]
			ed, err := ParseVFRZipName(category, filename, absolute)
			if err != nil {
				c.logger.WithField("filename", filename).Debugf("Catalog: skipping link: %v", err)
				return
			}
			editions = append(editions, ed)
		})
	}

	c.logger.WithField("category", category).Infof("Catalog: found %d candidate editions", len(editions))
	return editions, nil
}

// discoverIFR walks the tables on the IFR page. Each row carries the
// chart code in its first cell and, in the second, the published date
// plus a set of download links of which only the GEO-TIFF zip matters.
func (c *Catalog) discoverIFR(ctx context.Context, category models.ChartCategory) ([]models.EditionDescriptor, error) {
	doc, err := c.fetchDocument(ctx, c.ifrURL)
	if err != nil {
		return nil, err
	}

	var editions []models.EditionDescriptor
	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		chartCode := strings.TrimSpace(cells.Eq(0).Text())
		detail := cells.Eq(1)

		detail.Find("a[href]").EachWithBreak(func(j int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			linkText := strings.ToLower(strings.TrimSpace(link.Text()))
			if !strings.Contains(linkText, "geo-tiff") || !strings.HasSuffix(href, ".zip") {
				return true
			}
			ed, err := ParseIFREntry(category, chartCode, detail.Text(), makeAbsoluteURL(c.ifrURL, href))
			if err != nil {
				c.logger.WithField("chart_code", chartCode).Debugf("Catalog: skipping row: %v", err)
				return false
			}
			editions = append(editions, ed)
			return false
		})
	})

	c.logger.WithField("category", category).Infof("Catalog: found %d candidate editions", len(editions))
	return editions, nil
}

func (c *Catalog) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", pageURL, err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get URL %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get URL %s: status code %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}
	return doc, nil
}

// makeAbsoluteURL resolves relative FAA links against the listing page.
func makeAbsoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return "https://www.faa.gov" + href
	}
	return strings.TrimRight(baseURL, "/") + "/" + href
}
