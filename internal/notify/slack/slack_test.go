package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/acuity/internal/assessment"
	"github.com/linnemanlabs/acuity/internal/risk"
)

func TestSend_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	a := &assessment.Assessment{
		ID:         "01JN123",
		Status:     assessment.StatusComplete,
		PatientRef: "patient-42",
		Result: &risk.Result{
			Tier:           risk.TierCritical,
			Score:          0.95,
			Confidence:     0.95,
			Interval:       risk.Interval{Lower: 0.89, Upper: 1.0},
			TriggeredRules: []string{"safety_infant_fever"},
			RiskFactors:    []string{"fever at or above 38.0C in an infant under 3 months"},
		},
		Explanation: "Febrile young infant, emergency evaluation indicated.",
		Duration:    0.4,
		CompletedAt: time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	}

	if err := n.Send(context.Background(), a); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, factors, divider, narrative, divider, context = 9 blocks
	if len(blocks) != 9 {
		t.Errorf("blocks count = %d, want 9", len(blocks))
	}

	// Verify header contains the tier and the critical emoji
	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "CRITICAL") {
		t.Errorf("header text = %q, want to contain CRITICAL", headerText)
	}
	if !strings.Contains(headerText, "\U0001f6a8") {
		t.Error("header should contain the rotating light for critical tier")
	}
}

func TestSend_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.Send(context.Background(), &assessment.Assessment{}); err != nil {
		t.Fatalf("Send with empty URL should be no-op, got: %v", err)
	}
}

func TestSend_TruncatesLongNarrative(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	longNarrative := strings.Repeat("x", 4000)
	n := New(srv.URL)
	err := n.Send(context.Background(), &assessment.Assessment{
		ID:          "01JN456",
		Status:      assessment.StatusComplete,
		Explanation: longNarrative,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// header, divider, fields, divider, narrative, divider, context
	blocks := got["blocks"].([]any)
	narrativeSection := blocks[4].(map[string]any)
	text := narrativeSection["text"].(map[string]any)["text"].(string)

	if len(text) > maxNarrativeLen+len("*Narrative*\n\n") {
		t.Errorf("narrative text length = %d, expected <= %d", len(text), maxNarrativeLen+len("*Narrative*\n\n"))
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated narrative to end with ...")
	}
}

func TestSend_WebhookError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "channel_not_found", http.StatusNotFound)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.Send(context.Background(), &assessment.Assessment{ID: "01JN789"})
	if err == nil {
		t.Fatal("expected error for non-2xx webhook response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want to mention status 404", err)
	}
}

func TestTierEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier risk.Tier
		want string
	}{
		{risk.TierCritical, "\U0001f6a8"},
		{risk.TierHigh, "\U0001f534"},
		{risk.TierModerate, "\U0001f7e1"},
		{risk.TierLow, "\U0001f7e2"},
	}

	for _, tt := range tests {
		if got := tierEmoji(tt.tier); got != tt.want {
			t.Errorf("tierEmoji(%v) = %q, want %q", tt.tier, got, tt.want)
		}
	}
}

func TestBuildMessage_OmitsEmptySections(t *testing.T) {
	t.Parallel()

	a := &assessment.Assessment{
		ID:     "01JNABC",
		Status: assessment.StatusComplete,
		Result: &risk.Result{Tier: risk.TierLow},
	}

	msg := buildMessage(a)
	blocks := msg["blocks"].([]map[string]any)

	// header, divider, fields, divider, context - no factors, no narrative
	if len(blocks) != 5 {
		t.Errorf("blocks count = %d, want 5", len(blocks))
	}
}

func TestBuildMessage_FailedAssessment(t *testing.T) {
	t.Parallel()

	// a failed run has no verdict at all
	a := &assessment.Assessment{
		ID:         "01JNFAIL",
		Status:     assessment.StatusFailed,
		PatientRef: "patient-7",
	}

	msg := buildMessage(a)
	blocks := msg["blocks"].([]map[string]any)

	if len(blocks) != 5 {
		t.Fatalf("blocks count = %d, want 5", len(blocks))
	}

	header := blocks[0]["text"].(map[string]any)["text"].(string)
	if !strings.Contains(header, "Assessment Failed") {
		t.Errorf("header = %q, want Assessment Failed", header)
	}
	if strings.Contains(header, "risk") {
		t.Errorf("header = %q, should not carry a risk tier", header)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short, 10) = %q", got)
	}
	got := truncate(strings.Repeat("a", 20), 10)
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated = %q, want ... suffix", got)
	}
}
