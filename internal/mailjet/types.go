package mailjet

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMissingDraftID is returned when a draft response carries no ID.
var ErrMissingDraftID = errors.New("mailjet: response has no draft ID")

// Config holds Mailjet API configuration
type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Timeout   time.Duration
}

// ========== Requests ==========

// CreateCampaignDraftRequest creates a campaign draft targeting a contact list.
type CreateCampaignDraftRequest struct {
	Subject        string `json:"Subject"`
	ContactsListID int    `json:"ContactsListID"`
	Locale         string `json:"Locale"`
	SenderEmail    string `json:"SenderEmail"`
	SenderName     string `json:"SenderName"`
	Title          string `json:"Title"`
	Sender         string `json:"Sender"`
}

// CreateCampaignDraftContentRequest attaches the body of a draft.
type CreateCampaignDraftContentRequest struct {
	DraftID  int64  `json:"-"`
	HTMLPart string `json:"Html-part"`
}

// Recipient is a test-send target.
type Recipient struct {
	Email string `json:"Email"`
}

// TestCampaignDraftRequest sends a draft to a handful of addresses.
type TestCampaignDraftRequest struct {
	DraftID    int64       `json:"-"`
	Recipients []Recipient `json:"Recipients"`
}

// SendCampaignDraftRequest dispatches a draft to its contact list.
type SendCampaignDraftRequest struct {
	DraftID int64 `json:"-"`
}

// ========== Responses ==========

// Response is the envelope of every Mailjet REST response.
type Response struct {
	Count int                      `json:"Count"`
	Total int                      `json:"Total"`
	Data  []map[string]interface{} `json:"Data"`
}

// DraftID returns Data[0].ID.
func (r *Response) DraftID() (int64, error) {
	if r == nil || len(r.Data) == 0 {
		return 0, ErrMissingDraftID
	}
	raw, ok := r.Data[0]["ID"]
	if !ok || raw == nil {
		return 0, ErrMissingDraftID
	}

	var id int64
	var err error
	switch v := raw.(type) {
	case json.Number:
		id, err = v.Int64()
	case float64:
		id = int64(v)
	case string:
		id, err = strconv.ParseInt(v, 10, 64)
	default:
		err = fmt.Errorf("unexpected type %T", raw)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingDraftID, err)
	}
	if id <= 0 {
		return 0, ErrMissingDraftID
	}
	return id, nil
}

// Status returns Data[0].Status, empty when absent.
func (r *Response) Status() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	if s, ok := r.Data[0]["Status"]; ok && s != nil {
		return fmt.Sprintf("%v", s)
	}
	return ""
}

// APIError is a non-2xx answer from Mailjet.
type APIError struct {
	StatusCode   int    `json:"StatusCode"`
	ErrorInfo    string `json:"ErrorInfo"`
	ErrorMessage string `json:"ErrorMessage"`
}

func (e *APIError) Error() string {
	if e.ErrorMessage != "" {
		return fmt.Sprintf("mailjet API error (status %d): %s", e.StatusCode, e.ErrorMessage)
	}
	return fmt.Sprintf("mailjet API error (status %d)", e.StatusCode)
}
