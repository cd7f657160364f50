package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentiment(s string) *string { return &s }

func TestCheckCall(t *testing.T) {
	base := types.Call{ID: 4, EmployeeID: 7, Subject: "billing"}
	negative := base
	negative.Sentiment = sentiment(types.SentimentNegative)
	positive := base
	positive.Sentiment = sentiment(types.SentimentPositive)
	long := base
	long.Duration = int((25 * time.Minute).Seconds())

	tests := []struct {
		name     string
		previous types.Call
		current  types.Call
		rules    []string
	}{
		{"turned negative", positive, negative, []string{RuleSentimentNegative}},
		{"first sentiment negative", base, negative, []string{RuleSentimentNegative}},
		{"already negative", negative, negative, nil},
		{"positive", base, positive, nil},
		{"became long", base, long, []string{RuleCallLong}},
		{"already long", long, long, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rules []string
			for _, a := range CheckCall(tt.previous, tt.current) {
				rules = append(rules, a.Rule)
				assert.Equal(t, uint(4), a.CallID)
			}
			assert.Equal(t, tt.rules, rules)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5m30s", formatDuration(5*time.Minute+30*time.Second))
	assert.Equal(t, "1h15m", formatDuration(75*time.Minute))
}

func TestSlackNotifier(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL).Notify(context.Background(), Alert{
		Rule:     RuleSentimentNegative,
		Severity: SeverityCritical,
		CallID:   4,
		Message:  "Customer sentiment turned negative on call 4 (billing)",
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(body["text"].(string), "call 4"))
	assert.NotEmpty(t, body["blocks"])
}

func TestSlackNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL).Notify(context.Background(), Alert{Message: "x"})
	assert.Error(t, err)
}

type recordingNotifier struct {
	mu   sync.Mutex
	got  []Alert
	fail bool
}

func (r *recordingNotifier) Notify(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, a)
	if r.fail {
		return errors.New("webhook down")
	}
	return nil
}

func TestDispatcher(t *testing.T) {
	n := &recordingNotifier{fail: true}
	d := NewDispatcher(n, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, []Alert{{Rule: "a"}, {Rule: "b"}})
	cancel()
	d.Dispatch(ctx, nil)
	d.Wait()

	assert.Len(t, n.got, 2, "a failing notifier does not stop the batch")
}
