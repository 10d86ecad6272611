package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/runnerr0/sitetime/internal/period"
)

// openTestStore creates a migrated in-memory SQLiteStore for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run(context.Background()))

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

// StoreContractSuite runs the same behavioral checks against every backend.
type StoreContractSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func TestSQLiteStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(t *testing.T) Store { return openTestStore(t) }})
}

func TestMemoryStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(*testing.T) Store { return NewMemoryStore() }})
}

var testKeys = period.Keys{Day: "2024-05-01", Week: "2024-W18", Month: "2024-05"}

func (s *StoreContractSuite) TestGetMissingReturnsZeroRecord() {
	rec, err := s.store.Get(s.ctx, "never-seen.com")
	s.Require().NoError(err)
	s.Equal("never-seen.com", rec.Domain)
	s.Empty(rec.Daily)
	s.Empty(rec.Weekly)
	s.Empty(rec.Monthly)
	s.Empty(rec.FaviconURL)
}

func (s *StoreContractSuite) TestSetGetRoundtrip() {
	rec := NewDomainRecord("example.com")
	rec.Add(testKeys, 1500)
	rec.FaviconURL = "https://example.com/favicon.ico"
	s.Require().NoError(s.store.Set(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "example.com")
	s.Require().NoError(err)
	s.Equal(int64(1500), got.Daily["2024-05-01"])
	s.Equal(int64(1500), got.Weekly["2024-W18"])
	s.Equal(int64(1500), got.Monthly["2024-05"])
	s.Equal("https://example.com/favicon.ico", got.FaviconURL)
}

func (s *StoreContractSuite) TestSetOverwritesBucketsAndFavicon() {
	rec := NewDomainRecord("example.com")
	rec.Add(testKeys, 1000)
	rec.FaviconURL = "https://example.com/a.ico"
	s.Require().NoError(s.store.Set(s.ctx, rec))

	rec.Add(testKeys, 250)
	rec.FaviconURL = "https://example.com/b.ico"
	s.Require().NoError(s.store.Set(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "example.com")
	s.Require().NoError(err)
	s.Equal(int64(1250), got.Daily["2024-05-01"])
	s.Equal("https://example.com/b.ico", got.FaviconURL)
}

func (s *StoreContractSuite) TestReturnedRecordIsACopy() {
	rec := NewDomainRecord("example.com")
	rec.Add(testKeys, 1000)
	s.Require().NoError(s.store.Set(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "example.com")
	s.Require().NoError(err)
	got.Daily["2024-05-01"] = 99

	again, err := s.store.Get(s.ctx, "example.com")
	s.Require().NoError(err)
	s.Equal(int64(1000), again.Daily["2024-05-01"])
}

func (s *StoreContractSuite) TestAllSortedByDomain() {
	for _, d := range []string{"zeta.io", "alpha.dev", "mid.org"} {
		rec := NewDomainRecord(d)
		rec.Add(testKeys, 10)
		s.Require().NoError(s.store.Set(s.ctx, rec))
	}

	all, err := s.store.All(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("alpha.dev", all[0].Domain)
	s.Equal("mid.org", all[1].Domain)
	s.Equal("zeta.io", all[2].Domain)
	s.Equal(int64(10), all[0].Weekly["2024-W18"])
}

func (s *StoreContractSuite) TestAllEmpty() {
	all, err := s.store.All(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *StoreContractSuite) TestDelete() {
	rec := NewDomainRecord("example.com")
	rec.Add(testKeys, 10)
	s.Require().NoError(s.store.Set(s.ctx, rec))

	s.Require().NoError(s.store.Delete(s.ctx, "example.com"))

	got, err := s.store.Get(s.ctx, "example.com")
	s.Require().NoError(err)
	s.Empty(got.Daily)

	err = s.store.Delete(s.ctx, "example.com")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreContractSuite) TestPurgeAll() {
	for _, d := range []string{"a.com", "b.com"} {
		rec := NewDomainRecord(d)
		rec.Add(testKeys, 10)
		s.Require().NoError(s.store.Set(s.ctx, rec))
	}

	s.Require().NoError(s.store.PurgeAll(s.ctx))

	all, err := s.store.All(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *StoreContractSuite) TestSetRejectsEmptyDomain() {
	s.Error(s.store.Set(s.ctx, NewDomainRecord("")))
}

// --- SQLite specifics ---

func TestSQLiteStore_DeleteRemovesBuckets(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := NewDomainRecord("example.com")
	rec.Add(testKeys, 10)
	require.NoError(t, store.Set(ctx, rec))
	require.NoError(t, store.Delete(ctx, "example.com"))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM buckets").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSQLiteStore_DatabaseSize(t *testing.T) {
	store := openTestStore(t)
	assert.Greater(t, store.DatabaseSize(context.Background()), int64(0))
}

// --- Record JSON shape ---

func TestDomainRecord_JSONShape(t *testing.T) {
	rec := NewDomainRecord("example.com")
	rec.Add(testKeys, 1000)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"daily":   {"2024-05-01": 1000},
		"weekly":  {"2024-W18": 1000},
		"monthly": {"2024-05": 1000},
		"faviconUrl": null
	}`, string(data))

	rec.FaviconURL = "https://example.com/favicon.ico"
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"faviconUrl":"https://example.com/favicon.ico"`)
}

func TestDomainRecord_UnmarshalFillsMissingMaps(t *testing.T) {
	rec := NewDomainRecord("example.com")
	require.NoError(t, json.Unmarshal([]byte(`{"daily":{"2024-05-01":5},"faviconUrl":null}`), rec))

	assert.Equal(t, "example.com", rec.Domain)
	assert.Equal(t, int64(5), rec.Total(period.Daily, "2024-05-01"))
	assert.NotNil(t, rec.Weekly)
	assert.NotNil(t, rec.Monthly)
	assert.Empty(t, rec.FaviconURL)
}

func TestDomainRecord_AddIsMonotonic(t *testing.T) {
	rec := &DomainRecord{Domain: "example.com"}
	rec.Add(testKeys, 100)
	rec.Add(testKeys, 50)

	assert.Equal(t, int64(150), rec.Total(period.Daily, testKeys.Day))
	assert.Equal(t, int64(150), rec.Total(period.Weekly, testKeys.Week))
	assert.Equal(t, int64(150), rec.Total(period.Monthly, testKeys.Month))
	assert.Equal(t, int64(0), rec.Total(period.Daily, "2024-05-02"))
}
