package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/dojo-portal/internal/application"
)

func TestComposeExpiryReminder(t *testing.T) {
	t.Parallel()

	expiry := time.Date(2026, time.June, 4, 3, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		reminder application.ExpiryReminder
		subject  string
		greeting string
	}{
		{
			name:     "several days",
			reminder: application.ExpiryReminder{Email: "a@example.com", DisplayName: "Aiko", ExpiryDate: expiry, DaysLeft: 3},
			subject:  "Your dojo portal password expires in 3 days",
			greeting: "Hello Aiko,",
		},
		{
			name:     "one day",
			reminder: application.ExpiryReminder{Email: "a@example.com", ExpiryDate: expiry, DaysLeft: 1},
			subject:  "Your dojo portal password expires in 1 day",
			greeting: "Hello member,",
		},
		{
			name:     "today",
			reminder: application.ExpiryReminder{Email: "a@example.com", ExpiryDate: expiry, DaysLeft: 0},
			subject:  "Your dojo portal password expires today",
			greeting: "Hello member,",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			msg := ComposeExpiryReminder(tc.reminder)
			if msg.Subject != tc.subject {
				t.Fatalf("unexpected subject %q", msg.Subject)
			}
			if !strings.HasPrefix(msg.Text, tc.greeting) {
				t.Fatalf("unexpected greeting in %q", msg.Text)
			}
			if !strings.Contains(msg.Text, "2026-06-04 03:00 UTC") {
				t.Fatalf("expected expiry date in body, got %q", msg.Text)
			}
		})
	}
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	notifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := notifier.SendExpiryReminder(context.Background(), application.ExpiryReminder{UserID: "user-1", Email: "a@example.com", DaysLeft: 2})
	if err != nil {
		t.Fatalf("SendExpiryReminder failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"to":"a@example.com"`) {
		t.Fatalf("expected recipient in log, got %s", buf.String())
	}

	if err := notifier.SendExpiryReminder(context.Background(), application.ExpiryReminder{UserID: "user-2"}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestMailer(t *testing.T) {
	t.Parallel()

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()

		if _, err := NewMailer(MailgunConfig{Domain: "mg.example.com"}, nil); err == nil {
			t.Fatal("expected error for incomplete config")
		}
	})

	t.Run("posts the message to mailgun", func(t *testing.T) {
		t.Parallel()

		type request struct {
			path string
			to   string
		}
		var (
			mu       sync.Mutex
			received []request
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			received = append(received, request{path: r.URL.Path, to: r.FormValue("to")})
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"<20260601.1@mg.example.com>","message":"Queued. Thank you."}`))
		}))
		defer server.Close()

		for _, base := range []string{server.URL + "/v3", server.URL} {
			mailer, err := NewMailer(MailgunConfig{
				Domain:  "mg.example.com",
				APIKey:  "key-test",
				Sender:  "Dojo <noreply@mg.example.com>",
				APIBase: base,
			}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
			if err != nil {
				t.Fatalf("NewMailer(%q) failed: %v", base, err)
			}

			err = mailer.SendExpiryReminder(context.Background(), application.ExpiryReminder{
				UserID:   "user-1",
				Email:    "member@example.com",
				DaysLeft: 5,
			})
			if err != nil {
				t.Fatalf("SendExpiryReminder via %q failed: %v", base, err)
			}
		}

		mu.Lock()
		defer mu.Unlock()
		if len(received) != 2 {
			t.Fatalf("expected two requests, got %v", received)
		}
		for _, req := range received {
			if req.path != "/v3/mg.example.com/messages" || req.to != "member@example.com" {
				t.Fatalf("unexpected mailgun request %+v", req)
			}
		}
	})

	t.Run("api base gains a version", func(t *testing.T) {
		t.Parallel()

		tests := map[string]string{
			"https://api.eu.mailgun.net":    "https://api.eu.mailgun.net/v3",
			"https://api.eu.mailgun.net/":   "https://api.eu.mailgun.net/v3",
			"https://api.eu.mailgun.net/v4": "https://api.eu.mailgun.net/v4",
			"http://127.0.0.1:8080/v3/":     "http://127.0.0.1:8080/v3",
		}
		for in, want := range tests {
			if got := mailgunAPIBase(in); got != want {
				t.Errorf("mailgunAPIBase(%q) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("skips reminders without address", func(t *testing.T) {
		t.Parallel()

		mailer, err := NewMailer(MailgunConfig{Domain: "mg.example.com", APIKey: "key", Sender: "noreply@mg.example.com"}, nil)
		if err != nil {
			t.Fatalf("NewMailer failed: %v", err)
		}
		if err := mailer.SendExpiryReminder(context.Background(), application.ExpiryReminder{UserID: "user-1"}); !errors.Is(err, ErrNoRecipient) {
			t.Fatalf("expected ErrNoRecipient, got %v", err)
		}
	})
}
