package internal

import (
	"database/sql"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lowcarbdev/callmatch/internal/phonenumber"
)

type SMSEntry struct {
	Address     string `xml:"address,attr"`
	Date        string `xml:"date,attr"`
	Type        string `xml:"type,attr"`
	Body        string `xml:"body,attr"`
	Read        string `xml:"read,attr"`
	ThreadID    string `xml:"thread_id,attr"`
	Subject     string `xml:"subject,attr"`
	ContactName string `xml:"contact_name,attr"`
}

type MMSEntry struct {
	Address     string    `xml:"address,attr"`
	Date        string    `xml:"date,attr"`
	Type        string    `xml:"msg_box,attr"`
	Read        string    `xml:"read,attr"`
	ThreadID    string    `xml:"thread_id,attr"`
	Subject     string    `xml:"sub,attr"`
	ContentType string    `xml:"ct_t,attr"`
	ContactName string    `xml:"contact_name,attr"`
	Parts       []MMSPart `xml:"parts>part"`
	Addrs       []MMSAddr `xml:"addrs>addr"`
}

type MMSPart struct {
	ContentType string `xml:"ct,attr"`
	Text        string `xml:"text,attr"`
}

type MMSAddr struct {
	Address string `xml:"address,attr"`
	Type    string `xml:"type,attr"`
}

type CallEntry struct {
	Number         string `xml:"number,attr"`
	Duration       string `xml:"duration,attr"`
	Date           string `xml:"date,attr"`
	Type           string `xml:"type,attr"`
	Presentation   string `xml:"presentation,attr"`
	SubscriptionID string `xml:"subscription_id,attr"`
	ContactName    string `xml:"contact_name,attr"`
}

// mmsAddrFrom is the PDU address type of the sender of an MMS
const mmsAddrFrom = 137

type ParseResult struct {
	Messages []Message
	Calls    []CallLog
}

// backupVisitor receives every entry decoded from a backup file
type backupVisitor struct {
	count   func(total int)
	message func(Message)
	call    func(CallLog)
}

// walkBackup streams an SMS Backup & Restore file (an <smses> or a <calls>
// document) and hands each entry to v. Entries that fail to convert are
// logged and skipped; only malformed XML is an error.
func walkBackup(r io.Reader, v backupVisitor) error {
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		elem, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch elem.Name.Local {
		case "smses", "calls":
			for _, attr := range elem.Attr {
				if attr.Name.Local == "count" && v.count != nil {
					total, _ := strconv.Atoi(attr.Value)
					v.count(total)
				}
			}

		case "sms":
			var sms SMSEntry
			if err := decoder.DecodeElement(&sms, &elem); err != nil {
				return fmt.Errorf("decoding sms: %w", err)
			}
			msg, err := convertSMSEntry(sms)
			if err != nil {
				slog.Error("Error converting SMS", "error", err)
				continue
			}
			v.message(msg)

		case "mms":
			var mms MMSEntry
			if err := decoder.DecodeElement(&mms, &elem); err != nil {
				return fmt.Errorf("decoding mms: %w", err)
			}
			msg, err := convertMMSEntry(mms)
			if err != nil {
				slog.Error("Error converting MMS", "error", err)
				continue
			}
			v.message(msg)

		case "call":
			var call CallEntry
			if err := decoder.DecodeElement(&call, &elem); err != nil {
				return fmt.Errorf("decoding call: %w", err)
			}
			callLog, err := convertCallEntry(call)
			if err != nil {
				slog.Error("Error converting call", "error", err)
				continue
			}
			v.call(callLog)
		}
	}
}

// ParseBackup reads a whole backup into memory
func ParseBackup(r io.Reader) (ParseResult, error) {
	var result ParseResult
	err := walkBackup(r, backupVisitor{
		message: func(m Message) { result.Messages = append(result.Messages, m) },
		call:    func(c CallLog) { result.Calls = append(result.Calls, c) },
	})
	return result, err
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return time.Unix(ms/1000, 0), nil
}

func convertSMSEntry(sms SMSEntry) (Message, error) {
	date, err := parseMillis(sms.Date)
	if err != nil {
		return Message{}, err
	}

	msgType, _ := strconv.Atoi(sms.Type)
	threadID, _ := strconv.Atoi(sms.ThreadID)
	address := strings.TrimSpace(normalizeNullString(sms.Address))

	// For received SMS messages, the sender is the address
	var sender string
	if msgType == 1 {
		sender = address
	}

	return Message{
		Address:     address,
		Body:        sms.Body,
		Type:        msgType,
		Date:        date,
		Read:        sms.Read == "1",
		ThreadID:    threadID,
		Subject:     normalizeNullString(sms.Subject),
		ContactName: normalizeContactName(sms.ContactName),
		Sender:      sender,
	}, nil
}

func convertMMSEntry(mms MMSEntry) (Message, error) {
	date, err := parseMillis(mms.Date)
	if err != nil {
		return Message{}, err
	}

	msgType, _ := strconv.Atoi(mms.Type)
	threadID, _ := strconv.Atoi(mms.ThreadID)
	address := strings.TrimSpace(normalizeNullString(mms.Address))

	var raw []string
	var from string
	for _, addr := range mms.Addrs {
		a := strings.TrimSpace(normalizeNullString(addr.Address))
		if a == "" {
			continue
		}
		raw = append(raw, a)
		if t, _ := strconv.Atoi(addr.Type); t == mmsAddrFrom && from == "" {
			from = a
		}
	}
	// The same participant often appears once per role, spelled differently
	participants := UniqueNumbers(raw)

	var sender string
	if msgType == 1 {
		switch {
		case from != "":
			sender = from
		default:
			if match, ok := MatchSender(address, participants); ok {
				sender = match
			} else if len(participants) > 0 {
				sender = participants[0]
			}
		}
	}

	// Group MMS (3+ participants) is keyed on all of them
	primary := address
	if len(participants) >= 3 {
		primary = strings.Join(participants, ",")
	} else if primary == "" && len(participants) > 0 {
		primary = participants[0]
	}

	var body []string
	for _, part := range mms.Parts {
		if isSMILContentType(part.ContentType) || !isTextContentType(part.ContentType) {
			continue
		}
		if text := normalizeNullString(part.Text); text != "" {
			body = append(body, text)
		}
	}

	contentType := mms.ContentType
	if contentType == "" {
		contentType = "application/vnd.wap.multipart.related"
	}

	return Message{
		Address:     primary,
		Body:        strings.Join(body, " "),
		Type:        msgType,
		Date:        date,
		Read:        mms.Read == "1",
		ThreadID:    threadID,
		Subject:     normalizeNullString(mms.Subject),
		ContentType: contentType,
		ContactName: normalizeContactName(mms.ContactName),
		Sender:      sender,
		Addresses:   participants,
	}, nil
}

func convertCallEntry(call CallEntry) (CallLog, error) {
	date, err := parseMillis(call.Date)
	if err != nil {
		return CallLog{}, err
	}

	duration, _ := strconv.Atoi(call.Duration)
	callType, _ := strconv.Atoi(call.Type)
	presentation, _ := strconv.Atoi(call.Presentation)

	return CallLog{
		Number:         strings.TrimSpace(normalizeNullString(call.Number)),
		Duration:       duration,
		Date:           date,
		Type:           callType,
		Presentation:   presentation,
		SubscriptionID: normalizeNullString(call.SubscriptionID),
		ContactName:    normalizeContactName(call.ContactName),
	}, nil
}

// normalizeNullString converts the string "null" to an empty string
func normalizeNullString(s string) string {
	if strings.TrimSpace(strings.ToLower(s)) == "null" {
		return ""
	}
	return s
}

// normalizeContactName drops the placeholder the backup app writes for
// numbers without a contact
func normalizeContactName(s string) string {
	s = normalizeNullString(s)
	if s == "(Unknown)" {
		return ""
	}
	return s
}

// isTextContentType checks if a content type is text-based
func isTextContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "text/") && !isVCardContentType(ct)
}

// isSMILContentType checks if a content type is SMIL presentation markup
func isSMILContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct == "application/smil" || ct == "application/smil+xml"
}

func isVCardContentType(ct string) bool {
	return ct == "text/vcard" || ct == "text/x-vcard" || ct == "text/directory"
}

// UploadProgress tracks the progress of an ongoing import
type UploadProgress struct {
	ImportID          string    `json:"import_id"`
	TotalEntries      int       `json:"total_entries"`
	ProcessedMessages int       `json:"processed_messages"`
	ProcessedCalls    int       `json:"processed_calls"`
	Duplicates        int       `json:"duplicates"`
	Status            string    `json:"status"` // "parsing", "completed", "error"
	ErrorMessage      string    `json:"error_message,omitempty"`
	StartTime         time.Time `json:"start_time"`
}

var (
	uploadProgress     *UploadProgress
	uploadProgressLock sync.RWMutex
)

// GetUploadProgress returns a copy of the current import progress, or nil
func GetUploadProgress() *UploadProgress {
	uploadProgressLock.RLock()
	defer uploadProgressLock.RUnlock()

	if uploadProgress == nil {
		return nil
	}
	p := *uploadProgress
	return &p
}

func updateUploadProgress(fn func(p *UploadProgress)) {
	uploadProgressLock.Lock()
	defer uploadProgressLock.Unlock()
	if uploadProgress != nil {
		fn(uploadProgress)
	}
}

func failUploadProgress(importID string, err error) {
	uploadProgressLock.Lock()
	defer uploadProgressLock.Unlock()
	if uploadProgress == nil || uploadProgress.ImportID != importID {
		uploadProgress = &UploadProgress{ImportID: importID, StartTime: time.Now()}
	}
	uploadProgress.Status = "error"
	uploadProgress.ErrorMessage = err.Error()
}

// ClearUploadProgress clears the upload progress
func ClearUploadProgress() {
	uploadProgressLock.Lock()
	defer uploadProgressLock.Unlock()
	uploadProgress = nil
}

// ImportStats summarizes one import
type ImportStats struct {
	ImportID   string
	Messages   int
	Calls      int
	Duplicates int
}

// NewImportID returns a fresh identifier for an import batch
func NewImportID() string {
	return uuid.New().String()
}

// callExists reports whether the store already holds the same call, possibly
// logged under a differently written number
func callExists(userDB *sql.DB, call CallLog) (bool, error) {
	query := `
		SELECT address
		FROM records
		WHERE record_type = 3 AND type = ? AND COALESCE(duration, 0) = ? AND date BETWEEN ? AND ?
	`
	tolerance := int64(callDateTolerance / time.Second)
	args := []interface{}{call.Type, call.Duration, call.Date.Unix() - tolerance, call.Date.Unix() + tolerance}
	query, args = appendCandidates(query, args, call.Number)

	rows, err := userDB.Query(query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return false, err
		}
		if phonenumber.Equal(number, call.Number) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ImportBackup streams a backup into userDB, tagging every record with
// importID. A call that repeats one already imported, even under a different
// spelling of the number, is skipped.
func ImportBackup(userDB *sql.DB, r io.Reader, importID string) (ImportStats, error) {
	stats := ImportStats{ImportID: importID}

	uploadProgressLock.Lock()
	uploadProgress = &UploadProgress{
		ImportID:  importID,
		Status:    "parsing",
		StartTime: time.Now(),
	}
	uploadProgressLock.Unlock()

	seen := newCallIndex()
	var insertErr error

	err := walkBackup(r, backupVisitor{
		count: func(total int) {
			updateUploadProgress(func(p *UploadProgress) { p.TotalEntries += total })
		},
		message: func(m Message) {
			if insertErr != nil {
				return
			}
			m.ImportID = importID
			inserted, err := InsertMessage(userDB, &m)
			if err != nil {
				insertErr = fmt.Errorf("inserting message: %w", err)
				return
			}
			if inserted {
				stats.Messages++
			} else {
				stats.Duplicates++
			}
			updateUploadProgress(func(p *UploadProgress) {
				p.ProcessedMessages = stats.Messages
				p.Duplicates = stats.Duplicates
			})
		},
		call: func(c CallLog) {
			if insertErr != nil {
				return
			}
			c.ImportID = importID
			dup := seen.seen(c)
			if !dup {
				exists, err := callExists(userDB, c)
				if err != nil {
					insertErr = fmt.Errorf("checking call: %w", err)
					return
				}
				dup = exists
			}
			seen.add(c)
			if dup {
				slog.Debug("Skipping duplicate call", "number", c.Number, "call_type", formatCallType(c.Type), "date", c.Date)
				stats.Duplicates++
			} else {
				inserted, err := InsertCallLog(userDB, &c)
				if err != nil {
					insertErr = fmt.Errorf("inserting call: %w", err)
					return
				}
				if inserted {
					stats.Calls++
				} else {
					stats.Duplicates++
				}
			}
			updateUploadProgress(func(p *UploadProgress) {
				p.ProcessedCalls = stats.Calls
				p.Duplicates = stats.Duplicates
			})
		},
	})
	if err == nil {
		err = insertErr
	}
	if err != nil {
		failUploadProgress(importID, err)
		return stats, err
	}

	updateUploadProgress(func(p *UploadProgress) { p.Status = "completed" })
	return stats, nil
}

// SaveUploadedFile saves the uploaded file to a temporary location
func SaveUploadedFile(file io.Reader) (string, error) {
	uploadDir := filepath.Join(os.TempDir(), "callmatch-uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	tempFile, err := os.CreateTemp(uploadDir, "backup-*.xml")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	if _, err = io.Copy(tempFile, file); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return tempFile.Name(), nil
}

// ProcessUploadedFile imports a saved upload in the background and removes it
func ProcessUploadedFile(userID, importID, filePath string) {
	defer func() {
		if err := os.Remove(filePath); err != nil {
			slog.Warn("Failed to remove temp file", "path", filePath, "error", err)
		}
	}()

	slog.Info("Starting background import", "path", filePath, "user_id", userID, "import_id", importID)

	userDB, err := GetUserDB(userID)
	if err != nil {
		slog.Error("Error getting user database", "error", err)
		failUploadProgress(importID, fmt.Errorf("failed to get user database: %w", err))
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		slog.Error("Error opening file", "error", err)
		failUploadProgress(importID, fmt.Errorf("failed to open file: %w", err))
		return
	}
	defer file.Close()

	stats, err := ImportBackup(userDB, file, importID)
	if err != nil {
		slog.Error("Error importing file", "import_id", importID, "error", err)
		return
	}

	slog.Info("Completed import", "import_id", importID, "messages", stats.Messages, "calls", stats.Calls, "duplicates", stats.Duplicates)
}
