package internal

import (
	"strings"
	"testing"
	"time"
)

const sampleXML = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<?xml-stylesheet type="text/xsl" href="sms.xsl"?>
<smses count="2">
  <sms protocol="0" address="332" date="1285799668193" type="2" subject="null" body="Sample Message Sent from the phone" toa="null" sc_toa="null" service_center="null" read="1" status="-1" locked="0" readable_date="Sep 30, 2010 8:34:28 AM" contact_name="(Unknown)" />
  <sms protocol="0" address="4433221123" date="1289643415810" type="1" subject="null" body="Sample Message received by the phone" toa="null" sc_toa="null" service_center="null" read="0" status="-1" locked="0" readable_date="Nov 13, 2010 9:16:55 PM" contact_name="(Unknown)" />
</smses>`

const sampleMMSXML = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<smses count="1">
  <mms date="1285799670000" rr="null" sub="null" read="1" ct_t="application/vnd.wap.multipart.related" msg_box="1" address="+15552226543" m_type="132" text_only="1" contact_name="Alice">
    <parts>
      <part seq="-1" ct="application/smil" name="null" chset="null" text="&lt;smil&gt;&lt;/smil&gt;" />
      <part seq="0" ct="text/plain" name="null" chset="106" text="Group hello" />
    </parts>
    <addrs>
      <addr address="(555) 222-6543" type="137" charset="106" />
      <addr address="+15552226543" type="151" charset="106" />
      <addr address="+15551116565" type="151" charset="106" />
    </addrs>
  </mms>
</smses>`

const sampleCallsXML = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<calls count="3">
  <call number="+15551234567" duration="30" date="1285799668000" type="1" presentation="1" contact_name="Bob" />
  <call number="(555) 123-4567" duration="30" date="1285799669000" type="1" presentation="1" contact_name="(Unknown)" />
  <call number="5551234567" duration="30" date="1285799668000" type="2" presentation="1" contact_name="null" />
</calls>`

func TestSampleXMLParsing(t *testing.T) {
	result, err := ParseBackup(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("Failed to parse XML: %v", err)
	}

	if len(result.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(result.Messages))
	}

	msg1 := result.Messages[0]
	if msg1.Address != "332" {
		t.Errorf("Expected address '332', got '%s'", msg1.Address)
	}
	if msg1.Type != 2 {
		t.Errorf("Expected type 2 (sent), got %d", msg1.Type)
	}
	if !msg1.Read {
		t.Errorf("Expected message to be read (read=1)")
	}
	if msg1.Subject != "" || msg1.ContactName != "" {
		t.Errorf("Expected placeholder subject and contact to be dropped, got %q %q", msg1.Subject, msg1.ContactName)
	}
	if msg1.Sender != "" {
		t.Errorf("Expected no sender on a sent message, got %q", msg1.Sender)
	}
	// 1285799668193 ms = Sep 30, 2010 8:34:28 AM
	if !msg1.Date.Equal(time.Unix(1285799668, 0)) {
		t.Errorf("Expected date %v, got %v", time.Unix(1285799668, 0), msg1.Date)
	}

	// Addresses are stored as written; matching happens at query time
	msg2 := result.Messages[1]
	if msg2.Address != "4433221123" {
		t.Errorf("Expected address '4433221123', got '%s'", msg2.Address)
	}
	if msg2.Sender != "4433221123" {
		t.Errorf("Expected sender '4433221123', got '%s'", msg2.Sender)
	}
	if msg2.Read {
		t.Errorf("Expected message to be unread (read=0)")
	}

	if len(result.Calls) != 0 {
		t.Errorf("Expected 0 call logs, got %d", len(result.Calls))
	}
}

func TestMMSParticipantsAndSender(t *testing.T) {
	result, err := ParseBackup(strings.NewReader(sampleMMSXML))
	if err != nil {
		t.Fatalf("Failed to parse XML: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(result.Messages))
	}

	mms := result.Messages[0]
	if mms.Body != "Group hello" {
		t.Errorf("Expected SMIL part to be skipped, got body %q", mms.Body)
	}
	if mms.Sender != "(555) 222-6543" {
		t.Errorf("Expected sender from the 137 address, got %q", mms.Sender)
	}
	want := []string{"(555) 222-6543", "+15551116565"}
	if len(mms.Addresses) != len(want) {
		t.Fatalf("Expected participants %v, got %v", want, mms.Addresses)
	}
	for i := range want {
		if mms.Addresses[i] != want[i] {
			t.Errorf("Participant %d: expected %q, got %q", i, want[i], mms.Addresses[i])
		}
	}
	if mms.Address != "+15552226543" {
		t.Errorf("Expected two-party MMS to keep its address, got %q", mms.Address)
	}
}

func TestMMSSenderFallsBackToMatchingAddress(t *testing.T) {
	xml := strings.Replace(sampleMMSXML, `type="137"`, `type="130"`, 1)
	result, err := ParseBackup(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("Failed to parse XML: %v", err)
	}

	if got := result.Messages[0].Sender; got != "(555) 222-6543" {
		t.Errorf("Expected sender matched against the address, got %q", got)
	}
}

func TestCallsRootParsing(t *testing.T) {
	result, err := ParseBackup(strings.NewReader(sampleCallsXML))
	if err != nil {
		t.Fatalf("Failed to parse XML: %v", err)
	}
	if len(result.Calls) != 3 {
		t.Fatalf("Expected 3 calls, got %d", len(result.Calls))
	}
	if result.Calls[0].ContactName != "Bob" || result.Calls[1].ContactName != "" || result.Calls[2].ContactName != "" {
		t.Errorf("Unexpected contact names: %+v", result.Calls)
	}
	if result.Calls[0].Duration != 30 || result.Calls[0].Type != 1 {
		t.Errorf("Unexpected first call: %+v", result.Calls[0])
	}
}

func TestImportBackupDedupsCalls(t *testing.T) {
	userDB := openTestUserDB(t, "user-1")

	importID := NewImportID()
	stats, err := ImportBackup(userDB, strings.NewReader(sampleCallsXML), importID)
	if err != nil {
		t.Fatalf("ImportBackup failed: %v", err)
	}
	if stats.Calls != 2 || stats.Duplicates != 1 {
		t.Errorf("Expected 2 calls and 1 duplicate, got %+v", stats)
	}

	progress := GetUploadProgress()
	if progress == nil || progress.Status != "completed" || progress.ImportID != importID {
		t.Errorf("Expected completed progress for %s, got %+v", importID, progress)
	}
	if progress != nil && progress.TotalEntries != 3 {
		t.Errorf("Expected 3 total entries, got %d", progress.TotalEntries)
	}

	calls, err := FindCallsByNumber(userDB, "555-123-4567", nil, nil)
	if err != nil {
		t.Fatalf("FindCallsByNumber failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("Expected 2 stored calls, got %d", len(calls))
	}
	for _, c := range calls {
		if c.ImportID != importID {
			t.Errorf("Expected import id %s, got %s", importID, c.ImportID)
		}
	}

	// The same calls exported from another phone are all known already
	again, err := ImportBackup(userDB, strings.NewReader(sampleCallsXML), NewImportID())
	if err != nil {
		t.Fatalf("ImportBackup failed: %v", err)
	}
	if again.Calls != 0 || again.Duplicates != 3 {
		t.Errorf("Expected re-import to add nothing, got %+v", again)
	}
}

func TestImportBackupMessages(t *testing.T) {
	userDB := openTestUserDB(t, "user-1")

	stats, err := ImportBackup(userDB, strings.NewReader(sampleXML), NewImportID())
	if err != nil {
		t.Fatalf("ImportBackup failed: %v", err)
	}
	if stats.Messages != 2 {
		t.Errorf("Expected 2 messages, got %d", stats.Messages)
	}

	again, err := ImportBackup(userDB, strings.NewReader(sampleXML), NewImportID())
	if err != nil {
		t.Fatalf("ImportBackup failed: %v", err)
	}
	if again.Messages != 0 || again.Duplicates != 2 {
		t.Errorf("Expected re-import to skip both messages, got %+v", again)
	}

	messages, err := FindMessagesByAddress(userDB, "+1 443 322 1123", nil, nil)
	if err != nil {
		t.Fatalf("FindMessagesByAddress failed: %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("Expected 1 message for +1 443 322 1123, got %d", len(messages))
	}
}

func TestEmptyXML(t *testing.T) {
	emptyXML := `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<smses count="0">
</smses>`

	result, err := ParseBackup(strings.NewReader(emptyXML))
	if err != nil {
		t.Fatalf("Failed to parse empty XML: %v", err)
	}
	if len(result.Messages) != 0 || len(result.Calls) != 0 {
		t.Errorf("Expected empty result, got %d messages %d calls", len(result.Messages), len(result.Calls))
	}
}

func TestInvalidEntriesAreSkipped(t *testing.T) {
	invalidXML := `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<smses count="2">
  <sms protocol="0" address="123" date="notanumber" type="2" body="Test" />
  <sms protocol="0" address="456" date="1285799668193" type="2" body="Good" />
</smses>`

	result, err := ParseBackup(strings.NewReader(invalidXML))
	if err != nil {
		t.Fatalf("Parser should skip bad entries: %v", err)
	}
	if len(result.Messages) != 1 || result.Messages[0].Address != "456" {
		t.Errorf("Expected only the valid message, got %+v", result.Messages)
	}
}

func TestMalformedXML(t *testing.T) {
	if _, err := ParseBackup(strings.NewReader(`<smses><sms address="1"`)); err == nil {
		t.Error("Expected an error for truncated XML")
	}
}
