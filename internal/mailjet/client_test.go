package mailjet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		BaseURL:   server.URL + "/",
		APIKey:    "public",
		SecretKey: "private",
		Timeout:   5 * time.Second,
	})
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://api.mailjet.com/", APIKey: "k", SecretKey: "s"})

	if client.baseURL != "https://api.mailjet.com" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	hc, ok := client.httpClient.(*http.Client)
	if !ok {
		t.Fatalf("Expected *http.Client, got %T", client.httpClient)
	}
	if hc.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %s", hc.Timeout)
	}
}

func TestCreateCampaignDraft(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v3/REST/campaigndraft" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "public" || pass != "private" {
			t.Errorf("Missing or wrong basic auth: %q %q", user, pass)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["Subject"] != "[24] Weekly jobs letter" {
			t.Errorf("Unexpected Subject %v", body["Subject"])
		}
		if body["ContactsListID"] != float64(10234) {
			t.Errorf("Unexpected ContactsListID %v", body["ContactsListID"])
		}
		if body["Sender"] != "987" || body["SenderName"] != "Quentin from Jobbsy" {
			t.Errorf("Unexpected sender fields %v / %v", body["Sender"], body["SenderName"])
		}

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"Count":1,"Data":[{"ID":9007199254740993,"Status":"Draft"}],"Total":1}`)
	})

	resp, err := client.CreateCampaignDraft(context.Background(), CreateCampaignDraftRequest{
		Subject:        "[24] Weekly jobs letter",
		ContactsListID: 10234,
		Locale:         "en_US",
		SenderEmail:    "hello@jobbsy.dev",
		SenderName:     "Quentin from Jobbsy",
		Title:          "Weekly Symfony jobs 🚀",
		Sender:         "987",
	})
	if err != nil {
		t.Fatalf("CreateCampaignDraft failed: %v", err)
	}

	id, err := resp.DraftID()
	if err != nil {
		t.Fatalf("DraftID failed: %v", err)
	}
	// large ids must survive decoding without float rounding
	if id != 9007199254740993 {
		t.Errorf("Expected ID 9007199254740993, got %d", id)
	}
}

func TestCreateCampaignDraftContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/REST/campaigndraft/77/detailcontent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["Html-part"] != "<p>jobs</p>" {
			t.Errorf("Unexpected Html-part %v", body["Html-part"])
		}
		if _, ok := body["Text-part"]; ok {
			t.Error("Empty Text-part should be omitted")
		}
		io.WriteString(w, `{"Count":1,"Data":[{"Html-part":"<p>jobs</p>"}],"Total":1}`)
	})

	if _, err := client.CreateCampaignDraftContent(context.Background(), CreateCampaignDraftContentRequest{
		DraftID:  77,
		HTMLPart: "<p>jobs</p>",
	}); err != nil {
		t.Fatalf("CreateCampaignDraftContent failed: %v", err)
	}
}

func TestTestCampaignDraft(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/REST/campaigndraft/77/test" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var body TestCampaignDraftRequest
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Recipients) != 1 || body.Recipients[0].Email != "qa@jobbsy.dev" {
			t.Errorf("Unexpected recipients %+v", body.Recipients)
		}
		io.WriteString(w, `{"Count":1,"Data":[{"Status":"Programmed"}],"Total":1}`)
	})

	resp, err := client.TestCampaignDraft(context.Background(), TestCampaignDraftRequest{
		DraftID:    77,
		Recipients: []Recipient{{Email: "qa@jobbsy.dev"}},
	})
	if err != nil {
		t.Fatalf("TestCampaignDraft failed: %v", err)
	}
	if resp.Status() != "Programmed" {
		t.Errorf("Expected status Programmed, got %q", resp.Status())
	}
}

func TestSendCampaignDraft(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/REST/campaigndraft/77/send" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.ContentLength > 0 {
			t.Errorf("Expected empty body, got %d bytes", r.ContentLength)
		}
		w.WriteHeader(http.StatusCreated)
	})

	resp, err := client.SendCampaignDraft(context.Background(), SendCampaignDraftRequest{DraftID: 77})
	if err != nil {
		t.Fatalf("SendCampaignDraft failed: %v", err)
	}
	if len(resp.Data) != 0 {
		t.Errorf("Expected empty data, got %v", resp.Data)
	}
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"ErrorInfo":"","ErrorMessage":"API key authentication/authorization failure","StatusCode":401}`)
	})

	_, err := client.CreateCampaignDraft(context.Background(), CreateCampaignDraftRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Error() != "mailjet API error (status 401): API key authentication/authorization failure" {
		t.Errorf("Unexpected message %q", apiErr.Error())
	}
}

func TestAPIError_NoRetry(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "upstream unavailable")
	})

	_, err := client.SendCampaignDraft(context.Background(), SendCampaignDraftRequest{DraftID: 1})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Campaign calls must not be retried, got %d calls", calls)
	}
}

func TestResponse_DraftID(t *testing.T) {
	cases := []struct {
		name    string
		resp    *Response
		want    int64
		wantErr bool
	}{
		{"nil response", nil, 0, true},
		{"no data", &Response{}, 0, true},
		{"no ID", &Response{Data: []map[string]interface{}{{"Status": "Draft"}}}, 0, true},
		{"null ID", &Response{Data: []map[string]interface{}{{"ID": nil}}}, 0, true},
		{"zero ID", &Response{Data: []map[string]interface{}{{"ID": json.Number("0")}}}, 0, true},
		{"number", &Response{Data: []map[string]interface{}{{"ID": json.Number("42")}}}, 42, false},
		{"float", &Response{Data: []map[string]interface{}{{"ID": float64(43)}}}, 43, false},
		{"string", &Response{Data: []map[string]interface{}{{"ID": "44"}}}, 44, false},
		{"garbage", &Response{Data: []map[string]interface{}{{"ID": true}}}, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.resp.DraftID()
			if tc.wantErr {
				if !errors.Is(err, ErrMissingDraftID) {
					t.Errorf("Expected ErrMissingDraftID, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("Expected %d, got %d (%v)", tc.want, got, err)
			}
		})
	}
}
