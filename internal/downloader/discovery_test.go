package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func listingHTML(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"accordeon-inner\">")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a class="accordeon-inner__item-title link xls" href=%q>Бюллетень</a>`, h)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func TestParsePageLinks(t *testing.T) {
	d := NewDiscoverer(nil, "https://spimex.com/", 5)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)

	html := `<html><body>
		<a class="accordeon-inner__item-title link xls" href="/upload/reports/oil_xls/oil_xls_20230110162000.xls?utm_source=site">in range</a>
		<a class="accordeon-inner__item-title link xls" href="/upload/reports/oil_xls/oil_xls_20211231162000.xls">before range</a>
		<a class="accordeon-inner__item-title link xls" href="/upload/reports/oil_xls/oil_xls_2023x110.xls">bad date token</a>
		<a class="accordeon-inner__item-title link xls" href="/upload/other/oil_xls_20230111162000.xls">wrong path</a>
		<a class="accordeon-inner__item-title link xls" href="/upload/reports/oil_xls/oil_xls_20230111162000.pdf">wrong extension</a>
		<a class="link" href="/upload/reports/oil_xls/oil_xls_20230112162000.xls">wrong class</a>
	</body></html>`

	links, err := d.parsePageLinks([]byte(html), start, end)
	if err != nil {
		t.Fatalf("parsePageLinks: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d: %+v", len(links), links)
	}
	if links[0].URL != "https://spimex.com/upload/reports/oil_xls/oil_xls_20230110162000.xls" {
		t.Fatalf("unexpected url %q", links[0].URL)
	}
	want := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	if !links[0].ReportDate.Equal(want) {
		t.Fatalf("expected date %v, got %v", want, links[0].ReportDate)
	}
}

func TestDiscover_StopsOnPageWithoutLinks(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		if r.URL.Query().Get("page") == "page-1" {
			_, _ = w.Write([]byte(listingHTML("/upload/reports/oil_xls/oil_xls_20230110162000.xls")))
			return
		}
		_, _ = w.Write([]byte(listingHTML()))
	}))
	defer srv.Close()

	d := NewDiscoverer(testClient(1), srv.URL, 65)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)

	links := d.Discover(context.Background(), start, end)
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if got := pages.Load(); got != 2 {
		t.Fatalf("expected discovery to stop after 2 pages, got %d", got)
	}
}

func TestDiscover_RespectsMaxPages(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		_, _ = w.Write([]byte(listingHTML("/upload/reports/oil_xls/oil_xls_20230110162000.xls")))
	}))
	defer srv.Close()

	d := NewDiscoverer(testClient(1), srv.URL, 3)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)

	links := d.Discover(context.Background(), start, end)
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	if got := pages.Load(); got != 3 {
		t.Fatalf("expected 3 pages fetched, got %d", got)
	}
}

func TestDiscover_StopsOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDiscoverer(testClient(1), srv.URL, 65)
	links := d.Discover(context.Background(), time.Time{}, time.Now())
	if len(links) != 0 {
		t.Fatalf("expected no links, got %d", len(links))
	}
}

func TestDateFromHref(t *testing.T) {
	cases := []struct {
		name    string
		href    string
		want    time.Time
		wantErr bool
	}{
		{
			name: "full publication timestamp",
			href: "/upload/reports/oil_xls/oil_xls_20230110162000.xls",
			want: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "bare date token",
			href: "/upload/reports/oil_xls/oil_xls_20230110.xls",
			want: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		{name: "no marker", href: "/upload/reports/oil_xls/bulletin.xls", wantErr: true},
		{name: "truncated token", href: "/upload/reports/oil_xls/oil_xls_2023.xls", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dateFromHref(tc.href)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("dateFromHref: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
