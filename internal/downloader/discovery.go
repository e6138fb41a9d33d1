package downloader

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/spimexhq/oilpulse/internal/domain/models"
	"github.com/spimexhq/oilpulse/internal/logger"
)

const (
	listingPath   = "/markets/oil_products/trades/results/"
	linkSelector  = "a.accordeon-inner__item-title.link.xls"
	pathPrefix    = "/upload/reports/oil_xls/"
	fileExtension = ".xls"

	// fileDatePrefix precedes the 8-digit trading date token in both bulletin
	// hrefs and local file names.
	fileDatePrefix = "oil_xls_"
	dateTokenLen   = 8
	dateTokenForm  = "20060102"
)

// Discoverer walks the paginated bulletin listing and extracts document links
// whose embedded trading date falls inside a requested range.
type Discoverer struct {
	client   *Client
	baseURL  string
	maxPages int
}

// NewDiscoverer builds a Discoverer over the given fetch client.
func NewDiscoverer(client *Client, baseURL string, maxPages int) *Discoverer {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Discoverer{
		client:   client,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxPages: maxPages,
	}
}

// Discover walks listing pages in order and returns every in-range bulletin link.
//
// Pages are visited strictly sequentially: the stop conditions depend on page
// order. A page fetch failure or a page yielding zero in-range links both mean
// "past the end of relevant history" and stop the walk without error.
func (d *Discoverer) Discover(ctx context.Context, start, end time.Time) []models.BulletinLink {
	var all []models.BulletinLink

	page := 1
	for ; page <= d.maxPages; page++ {
		url := fmt.Sprintf("%s%s?page=page-%d", d.baseURL, listingPath, page)
		logger.L().Debug().Int("page", page).Msg("loading listing page")

		body, err := d.client.Fetch(ctx, url)
		if err != nil {
			logger.L().Warn().Int("page", page).Err(err).Msg("listing page unavailable, stopping")
			break
		}

		links, err := d.parsePageLinks(body, start, end)
		if err != nil {
			logger.L().Error().Int("page", page).Err(err).Msg("listing page unparseable, stopping")
			break
		}
		if len(links) == 0 {
			logger.L().Info().Int("page", page).Msg("no in-range links on page, stopping")
			break
		}

		all = append(all, links...)
		logger.L().Info().Int("page", page).Int("links", len(links)).Msg("listing page done")
	}

	logger.L().Info().Int("total", len(all)).Int("pages", page-1).Msg("discovery finished")
	return all
}

// parsePageLinks extracts in-range bulletin links from one listing page body.
func (d *Discoverer) parsePageLinks(html []byte, start, end time.Time) ([]models.BulletinLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var links []models.BulletinLink
	doc.Find(linkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		clean := stripQuery(href)
		if !isBulletinHref(clean) {
			return
		}

		reportDate, err := dateFromHref(clean)
		if err != nil {
			logger.L().Warn().Str("href", href).Err(err).Msg("dropping link with bad date token")
			return
		}
		if reportDate.Before(start) || reportDate.After(end) {
			logger.L().Debug().Str("href", clean).Msg("link outside requested date range")
			return
		}

		links = append(links, models.BulletinLink{
			URL:        d.absoluteURL(clean),
			ReportDate: reportDate,
		})
	})

	return links, nil
}

func stripQuery(href string) string {
	if i := strings.Index(href, "?"); i >= 0 {
		return href[:i]
	}
	return href
}

func isBulletinHref(href string) bool {
	return strings.Contains(href, pathPrefix) && strings.HasSuffix(href, fileExtension)
}

// dateFromHref pulls the 8-digit trading date token that follows the
// "oil_xls_" marker inside a bulletin reference.
func dateFromHref(href string) (time.Time, error) {
	i := strings.Index(href, fileDatePrefix)
	if i < 0 {
		return time.Time{}, fmt.Errorf("no date token in %q", href)
	}
	rest := href[i+len(fileDatePrefix):]
	if len(rest) < dateTokenLen {
		return time.Time{}, fmt.Errorf("truncated date token in %q", href)
	}
	d, err := time.Parse(dateTokenForm, rest[:dateTokenLen])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date token in %q: %w", href, err)
	}
	return d, nil
}

func (d *Discoverer) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return d.baseURL + href
}
