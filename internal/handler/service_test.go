package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerhq/tabler/internal/repository"
)

// The handler tests drive full request flows against a mocked database.
// Expectations are matched in order, so they double as an assertion on the
// exact write sequence of each transaction: which rows get locked, which
// ledger entries flip or appear, and by how much each counter moves.

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var (
	tableCols   = []string{"id", "layout_id", "section_id", "current_section", "x_pos", "y_pos", "name", "capacity", "is_taken", "current_party_size", "assigned_at"}
	sectionCols = []string{"id", "layout_id", "name", "color", "priority_rank", "customers_served"}
	entryCols   = []string{"id", "table_id", "table_name", "section_id", "party_size", "timestamp", "is_active", "status"}
)

func tableRow(id string, home, current any, taken bool, size, capacity int, at any) *sqlmock.Rows {
	return sqlmock.NewRows(tableCols).
		AddRow(id, "l1", home, current, 1, 1, "Table "+id, capacity, taken, size, at)
}

func sectionRow(id string, served int) *sqlmock.Rows {
	return sqlmock.NewRows(sectionCols).AddRow(id, "l1", "Section "+id, "#94a3b8", 1, served)
}

func entryRow(id, tableID, sectionID string, size int, active bool, status string, ts time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(entryCols).AddRow(id, tableID, "Table "+tableID, sectionID, size, ts, active, status)
}

// jsonCtx builds an authenticated echo context for owner-1 with a JSON body
// and a single :id path parameter.
func jsonCtx(t *testing.T, method, target, body, id string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	c.Set("user_id", "owner-1")
	return c, rec
}

func TestMoveToAnotherTableKeepsAuditTrail(t *testing.T) {
	t.Setenv("SEATING_EVENTS_ENABLED", "false")
	db, mock := newMockDB(t)
	h := NewServiceHandler(repository.NewTableRepo(db), repository.NewSectionRepo(db), repository.NewServiceEntryRepo(db))

	seatedAt := time.Date(2026, 8, 28, 18, 0, 0, 0, time.UTC)

	// Ownership checks: source, target, then the requested section.
	mock.ExpectQuery(`FROM tables t`).WithArgs("t1", "owner-1").
		WillReturnRows(tableRow("t1", "secA", "secA", true, 4, 4, seatedAt))
	mock.ExpectQuery(`FROM tables t`).WithArgs("t2", "owner-1").
		WillReturnRows(tableRow("t2", "secB", "secB", false, 0, 6, nil))
	mock.ExpectQuery(`FROM sections s`).WithArgs("secB", "owner-1").
		WillReturnRows(sectionRow("secB", 10))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tables WHERE id = \? FOR UPDATE`).WithArgs("t1").
		WillReturnRows(tableRow("t1", "secA", "secA", true, 4, 4, seatedAt))
	mock.ExpectQuery(`FROM tables WHERE id = \? FOR UPDATE`).WithArgs("t2").
		WillReturnRows(tableRow("t2", "secB", "secB", false, 0, 6, nil))

	// Source frees, target seats the same party.
	mock.ExpectExec(`SET is_taken = \?`).
		WithArgs(false, 0, "secA", sqlmock.AnyArg(), "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET is_taken = \?`).
		WithArgs(true, 4, "secB", sqlmock.AnyArg(), "t2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Audit trail: exactly one entry flips to moved, exactly one new active
	// entry appears for the destination.
	mock.ExpectExec(`status = 'moved'`).WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO service_history`).
		WithArgs(sqlmock.AnyArg(), "t2", "Table t2", "secB", 4, sqlmock.AnyArg(), true, "active").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Credit transfer: the old section gives back the party, the new one
	// gains it.
	mock.ExpectQuery(`FROM sections WHERE id = \? FOR UPDATE`).WithArgs("secA").
		WillReturnRows(sectionRow("secA", 9))
	mock.ExpectExec(`UPDATE sections SET customers_served = \? WHERE id = \?`).
		WithArgs(5, "secA").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM sections WHERE id = \? FOR UPDATE`).WithArgs("secB").
		WillReturnRows(sectionRow("secB", 10))
	mock.ExpectExec(`UPDATE sections SET customers_served = \? WHERE id = \?`).
		WithArgs(14, "secB").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := jsonCtx(t, http.MethodPost, "/v1/tables/t1/move",
		`{"target_table_id":"t2","target_section_id":"secB"}`, "t1")
	require.NoError(t, h.Move(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entry_id":"t2-`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveInPlaceKeepsOriginalSection(t *testing.T) {
	t.Setenv("SEATING_EVENTS_ENABLED", "false")
	db, mock := newMockDB(t)
	h := NewServiceHandler(repository.NewTableRepo(db), repository.NewSectionRepo(db), repository.NewServiceEntryRepo(db))

	seatedAt := time.Date(2026, 8, 28, 19, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM tables t`).WithArgs("t1", "owner-1").
		WillReturnRows(tableRow("t1", "secA", "secA", true, 3, 6, seatedAt))
	mock.ExpectQuery(`FROM sections s`).WithArgs("secB", "owner-1").
		WillReturnRows(sectionRow("secB", 10))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tables WHERE id = \? FOR UPDATE`).WithArgs("t1").
		WillReturnRows(tableRow("t1", "secA", "secA", true, 3, 6, seatedAt))

	// keep_original_section wins over the requested secB, so the table is
	// only resized; its credited section never changes.
	mock.ExpectExec(`UPDATE tables SET current_party_size = \? WHERE id = \?`).
		WithArgs(5, "t1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`status = 'moved'`).WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO service_history`).
		WithArgs(sqlmock.AnyArg(), "t1", "Table t1", "secA", 5, sqlmock.AnyArg(), true, "active").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Same section, so the counter moves only by the size difference.
	mock.ExpectQuery(`FROM sections WHERE id = \? FOR UPDATE`).WithArgs("secA").
		WillReturnRows(sectionRow("secA", 7))
	mock.ExpectExec(`UPDATE sections SET customers_served = \? WHERE id = \?`).
		WithArgs(9, "secA").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := jsonCtx(t, http.MethodPost, "/v1/tables/t1/move",
		`{"target_section_id":"secB","keep_original_section":true,"new_party_size":5}`, "t1")
	require.NoError(t, h.Move(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteFreesTableWithoutTouchingCounters(t *testing.T) {
	t.Setenv("SEATING_EVENTS_ENABLED", "false")
	db, mock := newMockDB(t)
	h := NewServiceHandler(repository.NewTableRepo(db), repository.NewSectionRepo(db), repository.NewServiceEntryRepo(db))

	seatedAt := time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM tables t`).WithArgs("t1", "owner-1").
		WillReturnRows(tableRow("t1", "secA", "secA", true, 4, 4, seatedAt))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tables WHERE id = \? FOR UPDATE`).WithArgs("t1").
		WillReturnRows(tableRow("t1", "secA", "secA", true, 4, 4, seatedAt))
	mock.ExpectExec(`SET is_taken = \?`).
		WithArgs(false, 0, "secA", sqlmock.AnyArg(), "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`status = 'completed'`).WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// No section expectations: completing a service never moves a counter.
	mock.ExpectCommit()

	c, rec := jsonCtx(t, http.MethodPost, "/v1/tables/t1/complete", "", "t1")
	require.NoError(t, h.Complete(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
