package internal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lowcarbdev/callmatch/internal/phonenumber"
	_ "github.com/mattn/go-sqlite3"
)

// userDBs stores per-user database connections (keyed by user ID)
var userDBs = make(map[string]*sql.DB)
var userDBsMutex sync.RWMutex

const recordsSchema = `
	-- record_type: 1 = SMS, 2 = MMS, 3 = call
	-- min_match is the reversed dial key of address, see phonenumber.IndexKey
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_type INTEGER NOT NULL DEFAULT 1,
		address TEXT NOT NULL,
		min_match TEXT NOT NULL,
		body TEXT,
		type INTEGER NOT NULL,
		date INTEGER NOT NULL,
		read INTEGER DEFAULT 0,
		thread_id INTEGER,
		subject TEXT,
		contact_name TEXT,
		sender TEXT,
		content_type TEXT,
		addresses TEXT,
		duration INTEGER,
		presentation INTEGER,
		subscription_id TEXT,
		import_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_min_match ON records(min_match);
	CREATE INDEX IF NOT EXISTS idx_date ON records(date);
	CREATE INDEX IF NOT EXISTS idx_record_type_date ON records(record_type, date);

	-- Re-importing the same backup must not duplicate rows
	CREATE UNIQUE INDEX IF NOT EXISTS idx_record_unique ON records(record_type, address, date, type, COALESCE(body, ''), COALESCE(duration, 0));
`

// truncateString truncates a string to maxLen characters for logging
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// openDB opens a sqlite database with the pragmas every store uses
func openDB(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	// Set busy timeout for better concurrent access
	if _, err = conn.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if UseWALMode {
		if _, err = conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return conn, nil
}

func userDBPath(userID string) string {
	return filepath.Join(cfg.DBPathPrefix, fmt.Sprintf("callmatch_%s.db", userID))
}

// InitUserDB opens (creating if needed) the record store of a user and caches
// the connection
func InitUserDB(userID string, path string) error {
	userDB, err := openDB(path)
	if err != nil {
		return err
	}

	if _, err = userDB.Exec(recordsSchema); err != nil {
		userDB.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	userDBsMutex.Lock()
	if old, ok := userDBs[userID]; ok {
		old.Close()
	}
	userDBs[userID] = userDB
	userDBsMutex.Unlock()

	slog.Info("User database initialized", "user_id", userID, "path", path)
	return nil
}

// GetUserDB returns the cached record store of a user, opening it on first use
func GetUserDB(userID string) (*sql.DB, error) {
	userDBsMutex.RLock()
	userDB, exists := userDBs[userID]
	userDBsMutex.RUnlock()
	if exists {
		return userDB, nil
	}

	if err := InitUserDB(userID, userDBPath(userID)); err != nil {
		return nil, fmt.Errorf("failed to initialize user database: %w", err)
	}

	userDBsMutex.RLock()
	userDB = userDBs[userID]
	userDBsMutex.RUnlock()
	return userDB, nil
}

// CloseUserDBs closes every cached user connection
func CloseUserDBs() {
	userDBsMutex.Lock()
	defer userDBsMutex.Unlock()
	for id, conn := range userDBs {
		if err := conn.Close(); err != nil {
			slog.Warn("Failed to close user database", "user_id", id, "error", err)
		}
		delete(userDBs, id)
	}
}

// InsertMessage stores an SMS or MMS. It reports false when an identical
// record already exists.
func InsertMessage(userDB *sql.DB, msg *Message) (bool, error) {
	recordType := RecordSMS
	if msg.ContentType != "" {
		recordType = RecordMMS
	}

	result, err := userDB.Exec(`
		INSERT INTO records (
			record_type, address, min_match, body, type, date, read, thread_id,
			subject, contact_name, sender, content_type, addresses, import_id
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		recordType,
		msg.Address,
		phonenumber.IndexKey(msg.Address),
		msg.Body,
		msg.Type,
		msg.Date.Unix(),
		msg.Read,
		msg.ThreadID,
		msg.Subject,
		msg.ContactName,
		msg.Sender,
		msg.ContentType,
		strings.Join(msg.Addresses, ","),
		msg.ImportID,
	)
	if err != nil {
		slog.Debug("InsertMessage: Error inserting message", "error", err)
		return false, err
	}

	return storedID(result, &msg.ID)
}

// InsertCallLog stores a call. It reports false when an identical record
// already exists.
func InsertCallLog(userDB *sql.DB, call *CallLog) (bool, error) {
	result, err := userDB.Exec(`
		INSERT INTO records (record_type, address, min_match, type, date, duration, presentation, subscription_id, contact_name, import_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		RecordCall,
		call.Number,
		phonenumber.IndexKey(call.Number),
		call.Type,
		call.Date.Unix(),
		call.Duration,
		call.Presentation,
		call.SubscriptionID,
		call.ContactName,
		call.ImportID,
	)
	if err != nil {
		return false, err
	}

	return storedID(result, &call.ID)
}

func storedID(result sql.Result, id *int64) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if *id, err = result.LastInsertId(); err != nil {
		return false, err
	}
	return true, nil
}

func appendDateRange(query string, args []interface{}, startDate, endDate *time.Time) (string, []interface{}) {
	if startDate != nil {
		query += " AND date >= ?"
		args = append(args, startDate.Unix())
	}
	if endDate != nil {
		query += " AND date <= ?"
		args = append(args, endDate.Unix())
	}
	return query, args
}

// appendCandidates narrows a query to rows whose address may be equal to
// number. Keys shorter than MinMatch belong to short codes, vanity numbers and
// international numbers with a short national part. Those cannot be looked up
// by key, so such rows always stay candidates.
func appendCandidates(query string, args []interface{}, number string) (string, []interface{}) {
	key := phonenumber.IndexKey(number)
	if len(key) < phonenumber.MinMatch {
		return query, args
	}
	query += " AND (min_match = ? OR length(min_match) < ?)"
	return query, append(args, key, phonenumber.MinMatch)
}

// FindCallsByNumber returns the calls whose number is equal to number under
// phonenumber.Equal, oldest first
func FindCallsByNumber(userDB *sql.DB, number string, startDate, endDate *time.Time) ([]CallLog, error) {
	query := `
		SELECT id, address, duration, date, type,
		       COALESCE(presentation, 0), COALESCE(subscription_id, ''),
		       COALESCE(contact_name, ''), COALESCE(import_id, '')
		FROM records
		WHERE record_type = 3
	`
	args := []interface{}{}
	query, args = appendCandidates(query, args, number)
	query, args = appendDateRange(query, args, startDate, endDate)
	query += " ORDER BY date ASC"

	rows, err := userDB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := []CallLog{}
	for rows.Next() {
		var c CallLog
		var dateUnix int64
		if err := rows.Scan(&c.ID, &c.Number, &c.Duration, &dateUnix, &c.Type,
			&c.Presentation, &c.SubscriptionID, &c.ContactName, &c.ImportID); err != nil {
			return nil, err
		}
		if !phonenumber.Equal(c.Number, number) {
			continue
		}
		c.Date = time.Unix(dateUnix, 0)
		calls = append(calls, c)
	}

	return calls, rows.Err()
}

// FindMessagesByAddress returns the SMS and MMS exchanged with address or any
// number equal to it, oldest first
func FindMessagesByAddress(userDB *sql.DB, address string, startDate, endDate *time.Time) ([]Message, error) {
	query := `
		SELECT id, address, COALESCE(body, ''), type, date, read, COALESCE(thread_id, 0),
		       COALESCE(subject, ''), COALESCE(contact_name, ''), COALESCE(sender, ''),
		       COALESCE(content_type, ''), COALESCE(addresses, ''), COALESCE(import_id, '')
		FROM records
		WHERE record_type IN (1, 2)
	`
	args := []interface{}{}
	query, args = appendCandidates(query, args, address)
	query, args = appendDateRange(query, args, startDate, endDate)
	query += " ORDER BY date ASC"

	slog.Debug("FindMessagesByAddress: executing query", "address", address, "args", args)

	rows, err := userDB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var dateUnix int64
		var readInt int
		var addressesStr string
		if err := rows.Scan(&m.ID, &m.Address, &m.Body, &m.Type, &dateUnix, &readInt,
			&m.ThreadID, &m.Subject, &m.ContactName, &m.Sender, &m.ContentType,
			&addressesStr, &m.ImportID); err != nil {
			return nil, err
		}
		if !phonenumber.Equal(m.Address, address) {
			continue
		}
		m.Date = time.Unix(dateUnix, 0)
		m.Read = readInt == 1
		if addressesStr != "" {
			m.Addresses = strings.Split(addressesStr, ",")
		}

		slog.Debug("FindMessagesByAddress: message", "id", m.ID, "address", m.Address, "body", truncateString(m.Body, 50))
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// GetAddressSummaries returns one summary per distinct address as written in
// the backups, most recent first
func GetAddressSummaries(userDB *sql.DB, startDate, endDate *time.Time) ([]Conversation, error) {
	query := `
		SELECT
			address,
			MAX(COALESCE(contact_name, '')) as contact_name,
			(
				SELECT
					CASE
						WHEN record_type IN (1, 2) THEN COALESCE(body, '')
						WHEN type = 1 THEN 'Incoming call'
						WHEN type = 2 THEN 'Outgoing call'
						WHEN type = 3 THEN 'Missed call'
						WHEN type = 4 THEN 'Voicemail'
						WHEN type = 5 THEN 'Rejected call'
						WHEN type = 6 THEN 'Refused call'
						ELSE 'Call'
					END
				FROM records r2
				WHERE r2.address = records.address
				ORDER BY date DESC
				LIMIT 1
			) as last_message,
			MAX(date) as last_date,
			COUNT(*) as activity_count
		FROM records
		WHERE 1=1
	`
	args := []interface{}{}
	query, args = appendDateRange(query, args, startDate, endDate)
	query += `
		GROUP BY address
		ORDER BY last_date DESC
	`

	rows, err := userDB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []Conversation{}
	for rows.Next() {
		var c Conversation
		var lastDateUnix int64
		if err := rows.Scan(&c.Address, &c.ContactName, &c.LastMessage, &lastDateUnix, &c.MessageCount); err != nil {
			return nil, err
		}
		c.LastDate = time.Unix(lastDateUnix, 0)
		c.Addresses = []string{c.Address}
		c.Type = "conversation"
		summaries = append(summaries, c)
	}

	return summaries, rows.Err()
}

// GetConversations lists conversations, merging addresses that denote the
// same number when merge is set
func GetConversations(userDB *sql.DB, startDate, endDate *time.Time, merge bool) ([]Conversation, error) {
	summaries, err := GetAddressSummaries(userDB, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if !merge {
		return summaries, nil
	}
	return MergeConversations(summaries), nil
}

func formatCallType(callType int) string {
	switch callType {
	case 1:
		return "Incoming call"
	case 2:
		return "Outgoing call"
	case 3:
		return "Missed call"
	case 4:
		return "Voicemail"
	case 5:
		return "Rejected call"
	case 6:
		return "Refused call"
	default:
		return "Call"
	}
}

// GetDateRange returns the oldest and newest record dates
func GetDateRange(userDB *sql.DB) (time.Time, time.Time, error) {
	var minDate, maxDate sql.NullInt64
	err := userDB.QueryRow("SELECT MIN(date), MAX(date) FROM records").Scan(&minDate, &maxDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !minDate.Valid || !maxDate.Valid {
		return time.Time{}, time.Time{}, nil
	}
	return time.Unix(minDate.Int64, 0), time.Unix(maxDate.Int64, 0), nil
}
