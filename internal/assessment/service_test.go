package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/acuity/internal/risk"
	"github.com/linnemanlabs/go-core/log"
)

// mockStore implements Store for testing. failGetCall/failPutCall name a
// single 1-based call number to fail, so a later call can still succeed.
type mockStore struct {
	mu          sync.Mutex
	byID        map[string]*Assessment
	seen        map[string]*Assessment
	putErr      error
	getErr      error
	getCalls    int
	putCalls    int
	failGetCall int
	failPutCall int
}

func newMockStore() *mockStore {
	return &mockStore{
		byID: make(map[string]*Assessment),
		seen: make(map[string]*Assessment),
	}
}

func (m *mockStore) Get(_ context.Context, id string) (*Assessment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	if m.failGetCall == m.getCalls {
		return nil, false, errors.New("store down")
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

func (m *mockStore) GetByFingerprint(_ context.Context, fp string) (*Assessment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	a, ok := m.seen[fp]
	if !ok {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

func (m *mockStore) Put(_ context.Context, a *Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		return m.putErr
	}
	if m.failPutCall == m.putCalls {
		return errors.New("store down")
	}
	cp := *a
	m.byID[a.ID] = &cp
	if a.Fingerprint != "" {
		m.seen[a.Fingerprint] = &cp
	}
	return nil
}

type mockExplainer struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (m *mockExplainer) Explain(_ context.Context, _ *Assessment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.text, m.err
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []*Assessment
}

func (m *mockNotifier) Send(_ context.Context, a *Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, a)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockNotifier) last() *Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

func newTestService(store Store, explainer Explainer, notifier Notifier) *Service {
	engine := risk.NewEngine(nil, log.Nop(), risk.EngineHooks{})
	return NewService(store, engine, log.Nop(), nil, explainer, notifier, time.Second)
}

// waitComplete polls the store until the assessment reaches a terminal status.
func waitComplete(t *testing.T, store Store, id string) *Assessment {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		a, ok, _ := store.Get(context.Background(), id)
		if ok && (a.Status == StatusComplete || a.Status == StatusFailed) {
			return a
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("assessment did not complete within deadline")
	return nil
}

func TestSubmit_DedupPending(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.seen["fp-1"] = &Assessment{ID: "existing", Fingerprint: "fp-1", Status: StatusPending}
	store.byID["existing"] = store.seen["fp-1"]

	svc := newTestService(store, nil, nil)

	sr, err := svc.Submit(context.Background(), "patient-1", "fp-1", &risk.Context{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !sr.Skipped {
		t.Error("expected duplicate pending to be skipped")
	}
	if sr.Reason != "duplicate" {
		t.Errorf("reason = %q, want %q", sr.Reason, "duplicate")
	}
}

func TestSubmit_DedupInProgress(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.seen["fp-2"] = &Assessment{ID: "existing", Fingerprint: "fp-2", Status: StatusInProgress}
	store.byID["existing"] = store.seen["fp-2"]

	svc := newTestService(store, nil, nil)

	sr, err := svc.Submit(context.Background(), "patient-2", "fp-2", &risk.Context{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !sr.Skipped {
		t.Error("expected duplicate in_progress to be skipped")
	}
}

func TestSubmit_AllowsReassessCompleted(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.seen["fp-done"] = &Assessment{ID: "old", Fingerprint: "fp-done", Status: StatusComplete}
	store.byID["old"] = store.seen["fp-done"]

	svc := newTestService(store, nil, nil)

	sr, err := svc.Submit(context.Background(), "patient-3", "fp-done", &risk.Context{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sr.Skipped {
		t.Error("expected completed fingerprint to allow reassessment")
	}
	if sr.ID == "" {
		t.Error("expected non-empty ID")
	}
}

func TestSubmit_NoFingerprintSkipsDedup(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store, nil, nil)

	first, err := svc.Submit(context.Background(), "patient-4", "", &risk.Context{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := svc.Submit(context.Background(), "patient-4", "", &risk.Context{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Skipped || second.Skipped {
		t.Error("expected unfingerprinted submissions to never dedup")
	}
	if first.ID == second.ID {
		t.Error("expected distinct IDs")
	}
}

func TestSubmit_StoreError(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.getErr = errors.New("db down")

	svc := newTestService(store, nil, nil)

	_, err := svc.Submit(context.Background(), "patient-5", "fp-err", &risk.Context{})
	if err == nil {
		t.Fatal("expected error from store")
	}
}

func TestGet_Passthrough(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	want := &Assessment{ID: "a-1", Fingerprint: "fp-1", Status: StatusComplete}
	store.byID["a-1"] = want

	svc := newTestService(store, nil, nil)

	got, ok, err := svc.Get(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected assessment to be found")
	}
	if got.ID != want.ID {
		t.Errorf("ID = %q, want %q", got.ID, want.ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store, nil, nil)

	_, ok, err := svc.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing ID")
	}
}

func TestSubmit_AsyncAssessmentCompletes(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	explainer := &mockExplainer{text: "mild febrile illness, manageable at home"}
	svc := newTestService(store, explainer, nil)

	c := &risk.Context{
		Symptoms:     []string{"fever"},
		Vitals:       map[string]float64{risk.VitalTemperature: 38.6},
		Demographics: risk.Demographics{AgeMonths: 30, WeightKG: 13},
	}
	sr, err := svc.Submit(context.Background(), "patient-async", "fp-async", c)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	a := waitComplete(t, store, sr.ID)
	if a.Result == nil {
		t.Fatal("expected a verdict on the completed assessment")
	}
	if a.Result.Tier != risk.TierLow {
		t.Errorf("tier = %v, want %v", a.Result.Tier, risk.TierLow)
	}
	if a.Explanation != explainer.text {
		t.Errorf("explanation = %q, want %q", a.Explanation, explainer.text)
	}
	if a.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
}

func TestSubmit_NotifiesOnCriticalVerdict(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, nil, notifier)

	// febrile young infant: safety override to critical
	c := &risk.Context{
		Symptoms:     []string{"fever"},
		Vitals:       map[string]float64{risk.VitalTemperature: 38.4},
		Demographics: risk.Demographics{AgeMonths: 2, WeightKG: 5},
	}
	sr, err := svc.Submit(context.Background(), "patient-notify", "fp-notify", c)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	a := waitComplete(t, store, sr.ID)
	if a.Result.Tier != risk.TierCritical {
		t.Fatalf("tier = %v, want %v", a.Result.Tier, risk.TierCritical)
	}
	if notifier.count() != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.count())
	}
}

func TestSubmit_NoNotifyOnLowAcuity(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	notifier := &mockNotifier{}
	svc := newTestService(store, nil, notifier)

	c := &risk.Context{
		Symptoms:     []string{"runny_nose"},
		Vitals:       map[string]float64{risk.VitalTemperature: 37.0, risk.VitalOxygenSat: 99},
		Demographics: risk.Demographics{AgeMonths: 48, WeightKG: 16},
	}
	sr, err := svc.Submit(context.Background(), "patient-quiet", "fp-quiet", c)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitComplete(t, store, sr.ID)
	if notifier.count() != 0 {
		t.Errorf("notifier calls = %d, want 0", notifier.count())
	}
}

func TestSubmit_ExplainerFailureTolerated(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	explainer := &mockExplainer{err: errors.New("provider unavailable")}
	svc := newTestService(store, explainer, nil)

	sr, err := svc.Submit(context.Background(), "patient-noexp", "fp-noexp", &risk.Context{
		Symptoms:     []string{"cough"},
		Demographics: risk.Demographics{AgeMonths: 24, WeightKG: 12},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	a := waitComplete(t, store, sr.ID)
	if a.Status != StatusComplete {
		t.Errorf("status = %q, want %q", a.Status, StatusComplete)
	}
	if a.Explanation != "" {
		t.Errorf("explanation = %q, want empty", a.Explanation)
	}
	if a.Result == nil {
		t.Error("expected verdict despite explainer failure")
	}
}

func TestSubmit_MarksFailedWhenFetchFails(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	// no fingerprint, so the first Get is the async fetch
	store.failGetCall = 1
	notifier := &mockNotifier{}
	svc := newTestService(store, nil, notifier)

	sr, err := svc.Submit(context.Background(), "patient-fail", "", &risk.Context{
		Symptoms:     []string{"cough"},
		Demographics: risk.Demographics{AgeMonths: 24, WeightKG: 12},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	a := waitComplete(t, store, sr.ID)
	if a.Status != StatusFailed {
		t.Errorf("status = %q, want %q", a.Status, StatusFailed)
	}
	if a.Result != nil {
		t.Error("expected no verdict on a failed assessment")
	}
	if a.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set on failure")
	}
	if notifier.count() != 1 {
		t.Fatalf("notifier calls = %d, want 1", notifier.count())
	}
	if got := notifier.last(); got.Status != StatusFailed {
		t.Errorf("notified status = %q, want %q", got.Status, StatusFailed)
	}
}

func TestSubmit_MarksFailedWhenStatusUpdateFails(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	// Put 1 is the pending record, Put 2 the in_progress transition
	store.failPutCall = 2
	notifier := &mockNotifier{}
	svc := newTestService(store, nil, notifier)

	sr, err := svc.Submit(context.Background(), "patient-fail2", "fp-fail2", &risk.Context{
		Symptoms:     []string{"cough"},
		Demographics: risk.Demographics{AgeMonths: 24, WeightKG: 12},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	a := waitComplete(t, store, sr.ID)
	if a.Status != StatusFailed {
		t.Errorf("status = %q, want %q", a.Status, StatusFailed)
	}
	if notifier.count() != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.count())
	}
}
