package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkgate/internal/entities"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var linkCols = []string{
	"id", "short_code", "original_url", "created_at", "expires_at", "expiry_policy",
	"clicks", "is_active", "description", "custom_options", "source_ip", "user_agent",
}

func linkRow(code, url string, opts string) *sqlmock.Rows {
	return sqlmock.NewRows(linkCols).AddRow(
		int64(1), code, url, time.Now(), nil, "never",
		int64(0), true, nil, []byte(opts), "203.0.113.9", "curl/8",
	)
}

func TestLinkCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO short_links")).
		WithArgs("Ab3dEf", "https://example.com", nil, "never", `{"isPrivate":true}`, "203.0.113.9", "curl/8").
		WillReturnRows(linkRow("Ab3dEf", "https://example.com", `{"isPrivate":true}`))

	link, err := repo.Create(context.Background(), CreateLinkParams{
		ShortCode:     "Ab3dEf",
		OriginalURL:   "https://example.com",
		ExpiryPolicy:  entities.ExpiryNever,
		CustomOptions: entities.CustomOptions{IsPrivate: true},
		SourceIP:      "203.0.113.9",
		UserAgent:     "curl/8",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ab3dEf", link.ShortCode)
	assert.True(t, link.CustomOptions.IsPrivate)
	assert.Nil(t, link.ExpiresAt)
	assert.True(t, link.IsActive)
}

func TestLinkCreateDuplicateCode(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO short_links")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), CreateLinkParams{ShortCode: "taken1", OriginalURL: "https://a.com"})
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestLinkFindByShortCodeNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM short_links WHERE short_code = $1")).
		WithArgs("nope12").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByShortCode(context.Background(), "nope12")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkFindByURLMatchesPolicyAndOptions(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("custom_options = $3::jsonb")).
		WithArgs("https://example.com", "7d", `{"password":"pw"}`).
		WillReturnRows(linkRow("Ab3dEf", "https://example.com", `{"password":"pw"}`))

	link, err := repo.FindByURL(context.Background(), "https://example.com", entities.ExpirySevenDays, entities.CustomOptions{Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "pw", link.CustomOptions.Password)
}

func TestLinkIncrementClicks(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	// A single atomic UPDATE, never read-modify-write.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE short_links SET clicks = clicks + 1 WHERE short_code = $1")).
		WithArgs("Ab3dEf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementClicks(context.Background(), "Ab3dEf"))
}

func TestLinkIncrementClicksMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE short_links SET clicks = clicks + 1")).
		WithArgs("gone12").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.IncrementClicks(context.Background(), "gone12"), ErrNotFound)
}

func TestLinkDeleteRemovesClickEvents(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM click_events")).WithArgs("Ab3dEf").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM short_links")).WithArgs("Ab3dEf").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), "Ab3dEf")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestLinkDeleteRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM click_events")).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), "Ab3dEf")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestLinkListAll(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	rows := sqlmock.NewRows(linkCols).
		AddRow(int64(2), "Bb2222", "https://b.com", time.Now(), nil, "never", int64(3), true, "docs", []byte(`{}`), "", "").
		AddRow(int64(1), "Aa1111", "https://a.com", time.Now(), time.Now(), "1d", int64(0), false, nil, []byte(`{}`), "", "")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).WillReturnRows(rows)

	links, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.NotNil(t, links[0].Description)
	assert.Equal(t, "docs", *links[0].Description)
	assert.NotNil(t, links[1].ExpiresAt)
	assert.Equal(t, entities.ExpiryOneDay, links[1].ExpiryPolicy)
}

func TestLinkToggleActiveNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET is_active = NOT is_active")).WillReturnError(sql.ErrNoRows)

	_, err := repo.ToggleActive(context.Background(), "nope12")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClickInsertBatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClickRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO click_events"))
	prep.ExpectExec().WithArgs("id-1", "Ab3dEf", sqlmock.AnyArg(), "direct", "desktop", "US").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("id-2", "Ab3dEf", sqlmock.AnyArg(), "t.co", "mobile", "unknown").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InsertClicks(context.Background(), []entities.ClickEvent{
		{ID: "id-1", ShortCode: "Ab3dEf", Timestamp: now, ReferrerDomain: "direct", DeviceClass: "desktop", Country: "US"},
		{ID: "id-2", ShortCode: "Ab3dEf", Timestamp: now, ReferrerDomain: "t.co", DeviceClass: "mobile", Country: "unknown"},
	})
	require.NoError(t, err)
}

func TestClickInsertEmptyIsNoop(t *testing.T) {
	db, _ := newMock(t)
	assert.NoError(t, NewClickRepository(db).InsertClicks(context.Background(), nil))
}

func TestStatsDailyClicksUsesLocation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStatsRepository(db)
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("to_char(clicked_at AT TIME ZONE $2")).
		WithArgs(sqlmock.AnyArg(), "America/New_York").
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).AddRow("2026-03-01", int64(4)).AddRow("2026-03-02", int64(1)))

	got, err := repo.DailyClicks(context.Background(), time.Now().AddDate(0, 0, -7), loc)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"2026-03-01": 4, "2026-03-02": 1}, got)
}

func TestStatsLinkClicksDecodesPrivacy(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStatsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE clicks > 0")).WillReturnRows(
		sqlmock.NewRows([]string{"short_code", "original_url", "clicks", "custom_options"}).
			AddRow("Aa1111", "https://a.com", int64(9), []byte(`{"isPrivate":true}`)).
			AddRow("Bb2222", "https://b.com", int64(2), []byte(`{}`)).
			AddRow("Cc3333", "https://c.com", int64(1), []byte(`{"password":"pw"}`)),
	)

	got, err := repo.LinkClicks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].IsPrivate)
	assert.False(t, got[1].IsPrivate)
	assert.False(t, got[1].Hidden())
	assert.True(t, got[2].IsProtected)
	assert.True(t, got[2].Hidden())
}

func TestStatsClickBreakdownRejectsUnknownDimension(t *testing.T) {
	db, _ := newMock(t)
	_, err := NewStatsRepository(db).ClickBreakdown(context.Background(), "user_agent", time.Time{})
	assert.Error(t, err)
}

func TestSettingsGetMissingRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM site_settings")).WillReturnError(sql.ErrNoRows)

	s, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.SiteModeNormal, s.Mode())
}

func TestSettingsSave(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs(false, true, "upgrading", nil, "").
		WillReturnRows(sqlmock.NewRows([]string{"is_private", "is_maintenance_mode", "maintenance_message", "estimated_completion", "site_password_hash", "updated_at"}).
			AddRow(false, true, "upgrading", nil, "", now))

	saved, err := repo.Save(context.Background(), entities.SiteSettings{IsMaintenanceMode: true, MaintenanceMessage: "upgrading"})
	require.NoError(t, err)
	assert.Equal(t, entities.SiteModeMaintenance, saved.Mode())
	assert.Equal(t, "upgrading", saved.MaintenanceMessage)
}
