package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestResponseToEntry(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		wantErr bool
	}{
		{
			name: "valid response with all headers",
			resp: &http.Response{
				StatusCode: 200,
				Header: http.Header{
					"Cache-Control": []string{"max-age=3600"},
					"Last-Modified": []string{time.Now().Add(-1 * time.Hour).Format(http.TimeFormat)},
					"ETag":          []string{`"abc123"`},
					"Content-Type":  []string{"application/json"},
				},
				Body: io.NopCloser(bytes.NewReader([]byte(`{"test": "data"}`))),
			},
			wantErr: false,
		},
		{
			name: "response without freshness headers",
			resp: &http.Response{
				StatusCode: 200,
				Header: http.Header{
					"Content-Type": []string{"application/json"},
				},
				Body: io.NopCloser(bytes.NewReader([]byte(`{"test": "data"}`))),
			},
			wantErr: false,
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(tt.resp, 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if entry == nil {
					t.Fatal("ResponseToEntry() returned nil entry")
				}

				// Verify body was read and restored
				if tt.resp != nil && tt.resp.Body != nil {
					body, _ := io.ReadAll(tt.resp.Body)
					if len(body) == 0 {
						t.Error("Response body was not restored")
					}
				}

				// Verify status code
				if entry.StatusCode != tt.resp.StatusCode {
					t.Errorf("StatusCode = %v, want %v", entry.StatusCode, tt.resp.StatusCode)
				}

				// Verify ETag
				expectedETag := tt.resp.Header.Get("ETag")
				if entry.ETag != expectedETag {
					t.Errorf("ETag = %v, want %v", entry.ETag, expectedETag)
				}

				// Verify expires was set (either from headers or fallback)
				if entry.Expires.IsZero() {
					t.Error("Expires time was not set")
				}
			}
		})
	}
}

func TestResponseToEntry_FallbackTTL(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader([]byte(`[]`))),
	}

	fallback := 2 * time.Minute
	entry, err := ResponseToEntry(resp, fallback)
	if err != nil {
		t.Fatalf("ResponseToEntry() error = %v", err)
	}

	expected := time.Now().Add(fallback)
	diff := entry.Expires.Sub(expected)
	if diff < -2*time.Second || diff > 2*time.Second {
		t.Errorf("Expires = %v, want approximately %v", entry.Expires, expected)
	}
}

func TestFreshnessFromHeaders(t *testing.T) {
	now := time.Now()
	futureTime := now.Add(1 * time.Hour)
	pastTime := now.Add(-1 * time.Hour)

	tests := []struct {
		name       string
		headers    http.Header
		wantOK     bool
		wantAround time.Time
		tolerance  time.Duration
	}{
		{
			name: "cache-control max-age",
			headers: http.Header{
				"Cache-Control": []string{"max-age=300"},
			},
			wantOK:     true,
			wantAround: now.Add(5 * time.Minute),
			tolerance:  2 * time.Second,
		},
		{
			name: "max-age wins over expires",
			headers: http.Header{
				"Cache-Control": []string{"public, max-age=60"},
				"Expires":       []string{futureTime.Format(http.TimeFormat)},
			},
			wantOK:     true,
			wantAround: now.Add(1 * time.Minute),
			tolerance:  2 * time.Second,
		},
		{
			name: "expires header only",
			headers: http.Header{
				"Expires": []string{futureTime.Format(http.TimeFormat)},
			},
			wantOK:     true,
			wantAround: futureTime,
			tolerance:  2 * time.Second,
		},
		{
			name: "expires in the past clamps to now",
			headers: http.Header{
				"Expires": []string{pastTime.Format(http.TimeFormat)},
			},
			wantOK:     true,
			wantAround: now,
			tolerance:  2 * time.Second,
		},
		{
			name:    "no freshness headers",
			headers: http.Header{},
			wantOK:  false,
		},
		{
			name: "invalid expires header",
			headers: http.Header{
				"Expires": []string{"not a valid date"},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FreshnessFromHeaders(tt.headers)
			if ok != tt.wantOK {
				t.Fatalf("FreshnessFromHeaders() ok = %v, want %v", ok, tt.wantOK)
			}

			if tt.wantOK {
				diff := got.Sub(tt.wantAround)
				if diff < -tt.tolerance || diff > tt.tolerance {
					t.Errorf("FreshnessFromHeaders() = %v, want approximately %v (diff: %v)",
						got, tt.wantAround, diff)
				}
			}
		})
	}
}

func TestParseMaxAge(t *testing.T) {
	tests := []struct {
		name         string
		cacheControl string
		want         time.Duration
		wantOK       bool
	}{
		{"simple max-age", "max-age=120", 2 * time.Minute, true},
		{"with other directives", "public, max-age=60, must-revalidate", time.Minute, true},
		{"empty value", "", 0, false},
		{"no max-age directive", "no-cache", 0, false},
		{"negative max-age", "max-age=-5", 0, false},
		{"garbage max-age", "max-age=abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseMaxAge(tt.cacheControl)
			if ok != tt.wantOK {
				t.Fatalf("parseMaxAge(%q) ok = %v, want %v", tt.cacheControl, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("parseMaxAge(%q) = %v, want %v", tt.cacheControl, got, tt.want)
			}
		})
	}
}

func TestEntryToResponse(t *testing.T) {
	entry := &CacheEntry{
		Data:       []byte(`{"cached": true}`),
		StatusCode: 200,
		Headers: http.Header{
			"Content-Type": []string{"application/json"},
		},
	}

	resp := EntryToResponse(entry)
	if resp == nil {
		t.Fatal("EntryToResponse() returned nil")
	}

	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != `{"cached": true}` {
		t.Errorf("Body = %s, want cached payload", body)
	}

	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", resp.Header.Get("Content-Type"))
	}

	if EntryToResponse(nil) != nil {
		t.Error("EntryToResponse(nil) should return nil")
	}
}

func TestShouldMakeConditionalRequest(t *testing.T) {
	tests := []struct {
		name  string
		entry *CacheEntry
		want  bool
	}{
		{
			name:  "nil entry",
			entry: nil,
			want:  false,
		},
		{
			name: "entry with ETag",
			entry: &CacheEntry{
				ETag: `"abc123"`,
			},
			want: true,
		},
		{
			name: "entry with Last-Modified",
			entry: &CacheEntry{
				LastModified: time.Now(),
			},
			want: true,
		},
		{
			name: "entry with both ETag and Last-Modified",
			entry: &CacheEntry{
				ETag:         `"abc123"`,
				LastModified: time.Now(),
			},
			want: true,
		},
		{
			name: "entry without ETag or Last-Modified",
			entry: &CacheEntry{
				Data: []byte("data"),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.want {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	tests := []struct {
		name       string
		entry      *CacheEntry
		wantHeader string
		wantValue  string
	}{
		{
			name: "add If-None-Match with ETag",
			entry: &CacheEntry{
				ETag: `"abc123"`,
			},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
		{
			name: "add If-Modified-Since with Last-Modified",
			entry: &CacheEntry{
				LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			},
			wantHeader: "If-Modified-Since",
			wantValue:  "Sun, 01 Jan 2023 12:00:00 GMT",
		},
		{
			name: "prefer ETag over Last-Modified",
			entry: &CacheEntry{
				ETag:         `"abc123"`,
				LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "https://example.com", nil)
			AddConditionalHeaders(req, tt.entry)

			if tt.wantHeader != "" {
				got := req.Header.Get(tt.wantHeader)
				if got != tt.wantValue {
					t.Errorf("Header %s = %v, want %v", tt.wantHeader, got, tt.wantValue)
				}
			}
		})
	}
}

func TestAddConditionalHeaders_NilInputs(t *testing.T) {
	// Should not panic with nil inputs
	AddConditionalHeaders(nil, &CacheEntry{ETag: "test"})
	AddConditionalHeaders(&http.Request{}, nil)
}
