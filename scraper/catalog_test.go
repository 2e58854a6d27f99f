// scraper/catalog_test.go
package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/charttiles/config"
	"github.com/gewnthar/charttiles/models"
)

const vfrPageHTML = `<html><body>
<div id="sectional">
  <a href="https://aeronav.faa.gov/visual/SEA_20250711.zip">Seattle GEO-TIFF</a>
  <a href="https://aeronav.faa.gov/visual/PHX_20250711.zip">Phoenix GEO-TIFF</a>
  <a href="https://aeronav.faa.gov/visual/notes.pdf">Chart notes</a>
</div>
<div id="terminalArea">
  <a href="https://aeronav.faa.gov/visual/Seattle_TAC_20250711.zip">Seattle TAC GEO-TIFF</a>
</div>
<div id="planning">
  <a href="https://aeronav.faa.gov/visual/Planning_20250711.zip">Planning</a>
</div>
</body></html>`

const ifrPageHTML = `<html><body>
<table>
<tr><th>Chart</th><th>Current Edition</th></tr>
<tr>
  <td>ELUS1</td>
  <td>Jul 11 2025 <a href="https://aeronav.faa.gov/enroute/ELUS1.pdf">PDF</a>
      <a href="https://aeronav.faa.gov/enroute/ELUS1.zip">GEO-TIFF (ZIP)</a></td>
</tr>
<tr>
  <td>ELAK1</td>
  <td>Jul 11 2025 <a href="https://aeronav.faa.gov/enroute/ELAK1.zip">GEO-TIFF (ZIP)</a></td>
</tr>
<tr>
  <td>EHUS2</td>
  <td>Jul 11 2025 <a href="https://aeronav.faa.gov/enroute/EHUS2.zip">GEO-TIFF (ZIP)</a></td>
</tr>
</table>
</body></html>`

func newTestCatalog(t *testing.T, html string) *Catalog {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	t.Cleanup(server.Close)

	return NewCatalog(config.CatalogConfig{
		VFRChartsURL: server.URL + "/vfr/",
		IFRChartsURL: server.URL + "/ifr/",
	}, 5*time.Second, logrus.New())
}

func TestDiscoverSectional(t *testing.T) {
	catalog := newTestCatalog(t, vfrPageHTML)

	editions, err := catalog.Discover(context.Background(), models.CategorySectional)
	require.NoError(t, err)
	require.Len(t, editions, 3)

	codes := make([]string, 0, len(editions))
	for _, ed := range editions {
		codes = append(codes, ed.EditionCode)
		assert.Equal(t, models.CategorySectional, ed.Category)
		assert.NotNil(t, ed.EffectiveDate)
	}
	// Sectional and terminal-area tabs are both scanned; the planning tab
	// and non-zip links are not.
	assert.ElementsMatch(t, []string{"SEA_20250711", "PHX_20250711", "Seattle_TAC_20250711"}, codes)
}

func TestDiscoverIFRLow(t *testing.T) {
	catalog := newTestCatalog(t, ifrPageHTML)

	editions, err := catalog.Discover(context.Background(), models.CategoryIFRLow)
	require.NoError(t, err)
	require.Len(t, editions, 1)

	assert.Equal(t, "ELUS1", editions[0].EditionCode)
	assert.Equal(t, "https://aeronav.faa.gov/enroute/ELUS1.zip", editions[0].SourceURL)
	require.NotNil(t, editions[0].EffectiveDate)
	assert.Equal(t, time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC), *editions[0].EffectiveDate)
}

func TestDiscoverIFRHigh(t *testing.T) {
	catalog := newTestCatalog(t, ifrPageHTML)

	editions, err := catalog.Discover(context.Background(), models.CategoryIFRHigh)
	require.NoError(t, err)
	require.Len(t, editions, 1)
	assert.Equal(t, "EHUS2", editions[0].EditionCode)
}

func TestDiscoverListingUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	catalog := NewCatalog(config.CatalogConfig{
		VFRChartsURL: server.URL,
		IFRChartsURL: server.URL,
	}, 5*time.Second, logrus.New())

	_, err := catalog.Discover(context.Background(), models.CategorySectional)
	assert.Error(t, err)
}

func TestDiscoverUnknownCategory(t *testing.T) {
	catalog := newTestCatalog(t, vfrPageHTML)
	_, err := catalog.Discover(context.Background(), models.ChartCategory("helicopter"))
	assert.Error(t, err)
}
