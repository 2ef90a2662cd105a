package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cardscan/internal/config"
	"cardscan/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyCardResolved(context.Background(), "Charizard", "base1-4", "420.50"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(ctx context.Context, svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "card resolved",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyCardResolved(ctx, "Charizard", "base1-4", "420.50")
			},
			expectTitle:   "Cardscan - Card Resolved",
			expectMessage: "✅ Resolved: Charizard (base1-4)\nMarket: $420.50",
			expectTags:    "cardscan,resolve,completed",
		},
		{
			name: "card resolved without price",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyCardResolved(ctx, "Pikachu", "base1-58", "")
			},
			expectTitle:   "Cardscan - Card Resolved",
			expectMessage: "✅ Resolved: Pikachu (base1-58)",
			expectTags:    "cardscan,resolve,completed",
		},
		{
			name: "no match",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyNoMatch(ctx, 7, "/scans/0007.png")
			},
			expectTitle:   "Cardscan - No Match",
			expectMessage: "Could not match scan 7\nImage: /scans/0007.png\nManual review required",
			expectTags:    "cardscan,nomatch,review",
		},
		{
			name: "scan error",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyScanError(ctx, errors.New("catalog unreachable"), "resolve")
			},
			expectTitle:    "Cardscan - Error",
			expectMessage:  "❌ Error with resolve: catalog unreachable",
			expectTags:     "cardscan,error,alert",
			expectPriority: "high",
		},
		{
			name: "batch completed",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyBatchCompleted(ctx, 12, 0, 90*time.Second)
			},
			expectTitle:   "Cardscan - Batch Complete",
			expectMessage: "Batch complete: 12 scans processed in 1m30s",
			expectTags:    "cardscan,batch,completed",
		},
		{
			name: "batch completed with failures",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyBatchCompleted(ctx, 10, 2, 45*time.Second)
			},
			expectTitle:   "Cardscan - Batch Complete (with errors)",
			expectMessage: "Batch complete: 10 succeeded, 2 failed in 45s",
			expectTags:    "cardscan,batch,completed",
		},
		{
			name: "test notification",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.TestNotification(ctx)
			},
			expectTitle:    "Cardscan - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "cardscan,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(context.Background(), svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsClassToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event class: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Resolved = false
	cfg.Notifications.NoMatch = false
	cfg.Notifications.Errors = false
	cfg.Notifications.Batch = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyCardResolved(ctx, "Charizard", "base1-4", ""); err != nil {
		t.Fatalf("disabled resolved class returned error: %v", err)
	}
	if err := svc.NotifyNoMatch(ctx, 1, ""); err != nil {
		t.Fatalf("disabled no-match class returned error: %v", err)
	}
	if err := svc.NotifyScanError(ctx, errors.New("boom"), "process"); err != nil {
		t.Fatalf("disabled error class returned error: %v", err)
	}
	if err := svc.NotifyBatchCompleted(ctx, 1, 0, time.Second); err != nil {
		t.Fatalf("disabled batch class returned error: %v", err)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from failing ntfy endpoint")
	}
	if !strings.Contains(err.Error(), "ntfy returned 500") {
		t.Fatalf("unexpected error: %v", err)
	}
}
