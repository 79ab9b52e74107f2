package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"page-scraper/models"
	"page-scraper/sink"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// CredentialsEnv holds service account JSON when no credentials file is given
const CredentialsEnv = "GOOGLE_SHEETS_CREDENTIALS"

// Write modes
const (
	ModeNew       = "new"       // a new sheet per run
	ModeOverwrite = "overwrite" // clear Sheet1 and write the run
	ModeAppend    = "append"    // add rows below the data in Sheet1
)

// maxSheetNameLen is the longest sheet title Google Sheets accepts
const maxSheetNameLen = 100

// Writer handles writing scrape sessions to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	mode          string
	log           *zap.Logger
}

// NewWriter creates a new Google Sheets writer from service account credentials
func NewWriter(ctx context.Context, spreadsheetID string, credentialsPath string, log *zap.Logger) (*Writer, error) {
	// Read credentials from file or environment variable
	var credsJSON []byte
	var err error

	if credentialsPath != "" {
		credsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			return nil, eris.Wrap(err, "sheets: read credentials file")
		}
	} else {
		// Trim whitespace and newlines that might be in the environment variable
		credsEnv := strings.TrimSpace(os.Getenv(CredentialsEnv))
		if credsEnv == "" {
			return nil, eris.Errorf("sheets: credentials not found: %s is empty or not set", CredentialsEnv)
		}
		credsJSON = []byte(credsEnv)
	}

	// Validate that it's a service account credentials file
	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, eris.Wrap(err, "sheets: invalid credentials JSON")
	}
	if creds["type"] != "service_account" {
		return nil, eris.Errorf("sheets: credentials must be a service account JSON file, got type: %v", creds["type"])
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}

	return NewWriterWithService(service, spreadsheetID, log), nil
}

// NewWriterWithService wraps an already configured Sheets service
func NewWriterWithService(service *sheets.Service, spreadsheetID string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.L()
	}
	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
		mode:          ModeNew,
		log:           log,
	}
}

// SetMode selects how Write stores a session. An empty mode means ModeNew.
func (w *Writer) SetMode(mode string) error {
	switch mode {
	case "":
		w.mode = ModeNew
	case ModeNew, ModeOverwrite, ModeAppend:
		w.mode = mode
	default:
		return eris.Errorf("sheets: unknown mode %q", mode)
	}
	return nil
}

// Write stores the session according to the writer's mode. It implements
// sink.Sink.
func (w *Writer) Write(ctx context.Context, session *models.Session) error {
	if session.Len() == 0 {
		return sink.ErrEmptySession
	}

	var err error
	switch w.mode {
	case ModeOverwrite:
		err = w.WriteSession(ctx, session, true)
	case ModeAppend:
		err = w.AppendSession(ctx, session)
	default:
		name := fmt.Sprintf("%s %s", session.Site, session.StartedAt.Format("2006-01-02 15-04-05"))
		metadata := fmt.Sprintf("pages=%d stop=%s", session.Pages, session.StopReason)
		_, _, err = w.CreateSheetAndWriteSession(ctx, name, session, metadata)
	}
	if err != nil {
		return &sink.WriteError{Sink: "sheets", Target: w.spreadsheetID, Err: err}
	}
	return nil
}

// WriteSession writes a session to the first sheet.
// If clearFirst is true, clears existing data before writing.
func (w *Writer) WriteSession(ctx context.Context, session *models.Session, clearFirst bool) error {
	if session.Len() == 0 {
		w.log.Info("no records to write")
		return nil
	}

	range_ := "Sheet1!A1"

	// Clear existing data if requested
	if clearFirst {
		_, err := w.service.Spreadsheets.Values.Clear(w.spreadsheetID, range_, &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		if err != nil {
			// Continue anyway
			w.log.Warn("failed to clear existing data", zap.Error(err))
		}
	}

	valueRange := &sheets.ValueRange{
		Values: append([][]interface{}{headerRow(session)}, valueRows(session)...),
	}
	_, err := w.service.Spreadsheets.Values.Update(w.spreadsheetID, range_, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return eris.Wrap(err, "sheets: write values")
	}

	w.log.Info("wrote records to google sheets", zap.Int("records", session.Len()))
	return nil
}

// AppendSession appends records below the existing data, without a header
func (w *Writer) AppendSession(ctx context.Context, session *models.Session) error {
	if session.Len() == 0 {
		w.log.Info("no records to append")
		return nil
	}

	// Find the last row with data in column A
	resp, err := w.service.Spreadsheets.Values.Get(w.spreadsheetID, "Sheet1!A:A").Context(ctx).Do()
	if err != nil {
		return eris.Wrap(err, "sheets: read existing data")
	}
	nextRow := len(resp.Values) + 1

	updateRange := fmt.Sprintf("Sheet1!A%d", nextRow)
	valueRange := &sheets.ValueRange{
		Values: valueRows(session),
	}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, updateRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return eris.Wrap(err, "sheets: append values")
	}

	w.log.Info("appended records to google sheets",
		zap.Int("records", session.Len()),
		zap.Int("start_row", nextRow),
	)
	return nil
}

// CreateSheetAndWriteSession creates a new sheet at the beginning of the
// spreadsheet and writes the session to it. A non-empty metadata string is
// written as a first row next to the site name.
// Returns the sheet name and sheet ID (gid) that was created.
func (w *Writer) CreateSheetAndWriteSession(ctx context.Context, sheetName string, session *models.Session, metadata string) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)
	if r := []rune(sheetName); len(r) > maxSheetNameLen {
		sheetName = string(r[:maxSheetNameLen])
	}

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: 0,
						// Index 0 is the zero value and would be dropped from the request
						ForceSendFields: []string{"Index"},
					},
				},
			},
		},
	}

	batchUpdateResp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, eris.Wrap(err, "sheets: create sheet")
	}

	var sheetID int64
	if len(batchUpdateResp.Replies) > 0 && batchUpdateResp.Replies[0].AddSheet != nil {
		sheetID = batchUpdateResp.Replies[0].AddSheet.Properties.SheetId
	}
	w.log.Info("created sheet", zap.String("sheet", sheetName), zap.Int64("sheet_id", sheetID))

	var values [][]interface{}
	if metadata != "" {
		values = append(values, []interface{}{"Site", session.Site, "Run", metadata})
	}
	values = append(values, headerRow(session))
	values = append(values, valueRows(session)...)

	range_ := fmt.Sprintf("'%s'!A1", sheetName)
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, range_, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, eris.Wrap(err, "sheets: write to sheet")
	}

	w.log.Info("wrote records to sheet", zap.Int("records", session.Len()), zap.String("sheet", sheetName))
	return sheetName, sheetID, nil
}

func headerRow(session *models.Session) []interface{} {
	names := session.FieldNames()
	row := make([]interface{}, len(names))
	for i, name := range names {
		row[i] = name
	}
	return row
}

// valueRows keeps numbers numeric so the sheet can aggregate them
func valueRows(session *models.Session) [][]interface{} {
	names := session.FieldNames()
	rows := make([][]interface{}, 0, session.Len())
	for _, record := range session.Records {
		row := make([]interface{}, len(names))
		for i, name := range names {
			v, ok := record.Get(name)
			switch {
			case !ok || v == nil:
				row[i] = ""
			default:
				if _, numeric := models.Float(v); numeric {
					row[i] = v
				} else {
					row[i] = models.FormatValue(v)
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ] :
	// and a quote would break the A1 range
	invalidChars := []string{"/", "\\", "?", "*", "[", "]", ":", "'"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// Handle various URL formats:
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	// Remove everything after / or ?
	if idx := strings.IndexAny(idPart, "/?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
