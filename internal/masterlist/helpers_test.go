package masterlist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"fundlens/internal/clientcache"
)

type fakeProvider struct {
	codes      map[string]string
	listErr    error
	details    map[string]map[string]any
	quotes     map[string]map[string]any
	quoteCalls atomic.Int64
}

func (p *fakeProvider) ListCodes() (map[string]string, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.codes, nil
}

func (p *fakeProvider) GetDetails(code string) (map[string]any, error) {
	if d, ok := p.details[code]; ok {
		return d, nil
	}
	return nil, errors.New("no details")
}

func (p *fakeProvider) GetQuote(code string) (map[string]any, error) {
	p.quoteCalls.Add(1)
	if q, ok := p.quotes[code]; ok {
		return q, nil
	}
	return nil, errors.New("no quote")
}

func (p *fakeProvider) GetHistoricalNav(code string) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func newTestCaches(t *testing.T) (*clientcache.Cache, *clientcache.Cache) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(clientcache.Schema)
	require.NoError(t, err)

	repo := clientcache.NewRepository(db)
	details := clientcache.NewCache("scheme_details", clientcache.TTLDetails, repo, zerolog.Nop())
	quotes := clientcache.NewCache("scheme_quotes", clientcache.TTLQuotes, repo, zerolog.Nop())
	return details, quotes
}

// freshDate renders now in the provider's dd-mm-yyyy wire format.
func freshDate(now time.Time) string {
	return now.Format("02-01-2006")
}
