package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mcq-study/backend/internal/content"
	"github.com/mcq-study/backend/internal/identity"
	"github.com/mcq-study/backend/internal/progress"
	"github.com/mcq-study/backend/internal/quiz"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubContent serves fixed chapters.
type stubContent struct {
	chapters map[string]*content.Chapter
}

func (s stubContent) Manifest() []content.Summary {
	out := make([]content.Summary, 0, len(s.chapters))
	for _, ch := range s.chapters {
		out = append(out, content.Summary{ID: ch.ID, Title: ch.Title, QuestionCount: len(ch.Questions)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s stubContent) Chapter(id string) (*content.Chapter, error) {
	ch, ok := s.chapters[id]
	if !ok {
		return nil, fmt.Errorf("chapter %q: %w", id, content.ErrNotFound)
	}
	return ch, nil
}

func (s stubContent) BySubject(subject string) []content.Summary {
	var out []content.Summary
	for _, sum := range s.Manifest() {
		if content.SubjectOf(sum.ID) == subject {
			out = append(out, sum)
		}
	}
	return out
}

func (s stubContent) Subjects() []content.Subject {
	seen := map[string]bool{}
	var out []content.Subject
	for _, sum := range s.Manifest() {
		token := content.SubjectOf(sum.ID)
		if !seen[token] {
			seen[token] = true
			out = append(out, content.Subject{Token: token, Name: token})
		}
	}
	return out
}

func testChapter(id string, n int) *content.Chapter {
	ch := &content.Chapter{ID: id, Title: "Chapter " + id, Description: "test chapter"}
	for i := 1; i <= n; i++ {
		qid := fmt.Sprintf("%s-q%d", id, i)
		ch.Questions = append(ch.Questions, content.Question{
			ID:        qid,
			ChapterID: id,
			Text:      "Question " + qid,
			Options: []content.Option{
				{ID: qid + "-a", Text: "right answer", IsCorrect: true},
				{ID: qid + "-b", Text: "wrong answer"},
			},
		})
	}
	return ch
}

type testEnv struct {
	router   *gin.Engine
	sessions *progress.Synchronizer
	ledger   *progress.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ledger := progress.NewMemoryStore()
	sessions := progress.NewSynchronizer(progress.NewMemorySessionCache(), ledger)
	t.Cleanup(sessions.Flush)

	srv := NewServer(Options{
		Content: stubContent{chapters: map[string]*content.Chapter{
			"eti-1": testChapter("eti-1", 2),
			"mgt-2": testChapter("mgt-2", 1),
		}},
		Sessions: sessions,
		Ledger:   ledger,
		Saved:    progress.NewMemorySavedStore(),
		Auth: identity.StaticProvider{
			"user-token":  {UserID: "user-1", Name: "Ada", Email: "ada@example.com"},
			"other-token": {UserID: "user-2"},
			"admin-token": {UserID: "admin-1", Email: "admin@example.com", Admin: true},
		},
	})
	return &testEnv{
		router:   srv.Router([]string{"http://localhost:3000"}),
		sessions: sessions,
		ledger:   ledger,
	}
}

type reqOpts struct {
	token  string
	device string
	body   any
}

func (e *testEnv) do(t *testing.T, method, path string, opts reqOpts) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if opts.body != nil {
		raw, err := json.Marshal(opts.body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}
	if opts.device != "" {
		req.Header.Set("X-Device-ID", opts.device)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var v sessionView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding session view: %v\nbody: %s", err, w.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/healthz", reqOpts{}); w.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/readyz", reqOpts{}); w.Code != http.StatusOK {
		t.Errorf("GET /readyz = %d, want 200", w.Code)
	}
}

func TestContentEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/chapters", reqOpts{})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/chapters = %d", w.Code)
	}
	var list struct {
		Chapters []content.Summary `json:"chapters"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(list.Chapters) != 2 {
		t.Errorf("chapters = %d, want 2", len(list.Chapters))
	}

	if w := env.do(t, http.MethodGet, "/api/chapters/eti-1", reqOpts{}); w.Code != http.StatusOK {
		t.Errorf("GET /api/chapters/eti-1 = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/chapters/nope-1", reqOpts{}); w.Code != http.StatusNotFound {
		t.Errorf("GET /api/chapters/nope-1 = %d, want 404", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/subjects/eti/chapters", reqOpts{})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "eti-1") {
		t.Errorf("GET /api/subjects/eti/chapters = %d, body %s", w.Code, w.Body.String())
	}
}

func TestQuiz_RequiresDeviceScope(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{}); w.Code != http.StatusBadRequest {
		t.Errorf("anonymous without device header = %d, want 400", w.Code)
	}
	// A signed-in caller gets a per-user scope without the header.
	if w := env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{token: "user-token"}); w.Code != http.StatusOK {
		t.Errorf("signed-in without device header = %d, want 200", w.Code)
	}
}

func TestQuiz_FullWalk(t *testing.T) {
	env := newTestEnv(t)
	opts := reqOpts{device: "device-1"}

	// Fresh session on first contact.
	v := decodeView(t, env.do(t, http.MethodGet, "/api/quiz/eti-1", opts))
	if v.Phase != quiz.PhaseInProgress || v.Index != 0 || v.Total != 2 || v.Question == nil {
		t.Fatalf("initial view = %+v", v)
	}

	// Wrong-shaped submissions.
	if w := env.do(t, http.MethodPost, "/api/quiz/eti-1/answer", reqOpts{device: "device-1", body: map[string]string{}}); w.Code != http.StatusBadRequest {
		t.Errorf("answer without option_id = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/quiz/eti-1/answer", reqOpts{device: "device-1", body: map[string]string{"option_id": "bogus"}}); w.Code != http.StatusBadRequest {
		t.Errorf("answer with unknown option = %d, want 400", w.Code)
	}

	// Forward navigation needs an answer first.
	if w := env.do(t, http.MethodPost, "/api/quiz/eti-1/next", opts); w.Code != http.StatusConflict {
		t.Errorf("next before answering = %d, want 409", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/quiz/eti-1/previous", opts); w.Code != http.StatusConflict {
		t.Errorf("previous at start = %d, want 409", w.Code)
	}

	// Correct answer on q1.
	v = decodeView(t, env.do(t, http.MethodPost, "/api/quiz/eti-1/answer", reqOpts{device: "device-1", body: map[string]string{"option_id": "eti-1-q1-a"}}))
	if v.Score != 1 || v.Answer == nil || !v.Answer.Correct {
		t.Fatalf("after correct answer: %+v", v)
	}

	// Resubmission is locked for the whole session.
	if w := env.do(t, http.MethodPost, "/api/quiz/eti-1/answer", reqOpts{device: "device-1", body: map[string]string{"option_id": "eti-1-q1-b"}}); w.Code != http.StatusConflict {
		t.Errorf("resubmission = %d, want 409", w.Code)
	}

	// Advance, answer q2 wrong, complete.
	v = decodeView(t, env.do(t, http.MethodPost, "/api/quiz/eti-1/next", opts))
	if v.Index != 1 {
		t.Fatalf("after next: index = %d", v.Index)
	}
	v = decodeView(t, env.do(t, http.MethodPost, "/api/quiz/eti-1/answer", reqOpts{device: "device-1", body: map[string]string{"option_id": "eti-1-q2-b"}}))
	if v.Score != 1 {
		t.Fatalf("after wrong answer: score = %d", v.Score)
	}
	v = decodeView(t, env.do(t, http.MethodPost, "/api/quiz/eti-1/next", opts))
	if v.Phase != quiz.PhaseCompleted || v.Percentage != 50 {
		t.Fatalf("completed view = %+v", v)
	}

	// Session state survives between requests on the same device.
	v = decodeView(t, env.do(t, http.MethodGet, "/api/quiz/eti-1", opts))
	if v.Phase != quiz.PhaseCompleted || v.Score != 1 {
		t.Errorf("restored view = %+v", v)
	}

	// A different device starts clean.
	v = decodeView(t, env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{device: "device-2"}))
	if v.Phase != quiz.PhaseInProgress || v.Score != 0 {
		t.Errorf("other device view = %+v", v)
	}
}

func TestQuiz_Search(t *testing.T) {
	env := newTestEnv(t)
	opts := func(body any) reqOpts { return reqOpts{device: "device-1", body: body} }

	env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{device: "device-1"})

	v := decodeView(t, env.do(t, http.MethodPost, "/api/quiz/eti-1/search", opts(map[string]string{"query": "q2"})))
	if v.Total != 1 || v.Question == nil || v.Question.ID != "eti-1-q2" {
		t.Fatalf("filtered view = %+v", v)
	}

	// Clearing the query restores the full sequence.
	v = decodeView(t, env.do(t, http.MethodPost, "/api/quiz/eti-1/search", opts(map[string]string{"query": ""})))
	if v.Total != 2 {
		t.Errorf("cleared view total = %d, want 2", v.Total)
	}
}

func TestQuiz_ResetKeepsLedger(t *testing.T) {
	env := newTestEnv(t)
	answer := reqOpts{token: "user-token", device: "device-1", body: map[string]string{"option_id": "eti-1-q1-a"}}

	env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{token: "user-token", device: "device-1"})
	if w := env.do(t, http.MethodPost, "/api/quiz/eti-1/answer", answer); w.Code != http.StatusOK {
		t.Fatalf("answer = %d", w.Code)
	}
	env.sessions.Flush()

	v := decodeView(t, env.do(t, http.MethodPost, "/api/quiz/eti-1/reset", reqOpts{token: "user-token", device: "device-1"}))
	if v.Score != 0 || v.Index != 0 {
		t.Errorf("reset view = %+v", v)
	}

	// The permanent ledger keeps the answer.
	records, err := env.ledger.ByChapter(t.Context(), "user-1", "eti-1")
	if err != nil {
		t.Fatalf("ByChapter() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("ledger records = %d, want 1 after reset", len(records))
	}

	// The next visit starts fresh.
	v = decodeView(t, env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{token: "user-token", device: "device-1"}))
	if v.Score != 0 || v.Phase != quiz.PhaseInProgress {
		t.Errorf("post-reset view = %+v", v)
	}
}

func TestQuiz_OwnershipGuard(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{token: "user-token", device: "shared-device"})
	env.do(t, http.MethodPost, "/api/quiz/eti-1/answer", reqOpts{token: "user-token", device: "shared-device", body: map[string]string{"option_id": "eti-1-q1-a"}})

	// Another user on the same device gets a fresh session, not user-1's.
	v := decodeView(t, env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{token: "other-token", device: "shared-device"}))
	if v.Score != 0 || v.Index != 0 {
		t.Errorf("other user's view = %+v, want fresh session", v)
	}
}

func TestProgressEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/me/progress", reqOpts{}); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous progress = %d, want 401", w.Code)
	}

	env.do(t, http.MethodGet, "/api/quiz/eti-1", reqOpts{token: "user-token", device: "device-1"})
	env.do(t, http.MethodPost, "/api/quiz/eti-1/answer", reqOpts{token: "user-token", device: "device-1", body: map[string]string{"option_id": "eti-1-q1-a"}})
	env.sessions.Flush()

	w := env.do(t, http.MethodGet, "/api/me/progress", reqOpts{token: "user-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/me/progress = %d", w.Code)
	}
	var resp struct {
		Records []progress.Record `json:"records"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].QuestionID != "eti-1-q1" {
		t.Errorf("records = %+v", resp.Records)
	}

	w = env.do(t, http.MethodGet, "/api/me/progress/eti-1", reqOpts{token: "user-token"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "eti-1-q1") {
		t.Errorf("chapter progress = %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/me/progress/export", reqOpts{token: "user-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("export content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("export disposition = %q", cd)
	}
}

func TestSavedEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPut, "/api/me/saved/eti-1-q1?chapterId=eti-1", reqOpts{}); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous save = %d, want 401", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/me/saved/eti-1-q1", reqOpts{token: "user-token"}); w.Code != http.StatusBadRequest {
		t.Errorf("save without chapterId = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/me/saved/eti-1-q9?chapterId=eti-1", reqOpts{token: "user-token"}); w.Code != http.StatusNotFound {
		t.Errorf("save unknown question = %d, want 404", w.Code)
	}

	if w := env.do(t, http.MethodPut, "/api/me/saved/eti-1-q1?chapterId=eti-1", reqOpts{token: "user-token"}); w.Code != http.StatusOK {
		t.Fatalf("save = %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/me/saved/mgt-2-q1?chapterId=mgt-2", reqOpts{token: "user-token"}); w.Code != http.StatusOK {
		t.Fatalf("save = %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/me/saved", reqOpts{token: "user-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp struct {
		Questions   []content.Question                       `json:"questions"`
		Categorized map[string]map[string][]content.Question `json:"categorized"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Questions) != 2 {
		t.Errorf("saved questions = %d, want 2", len(resp.Questions))
	}
	if len(resp.Categorized["eti"]["1"]) != 1 || len(resp.Categorized["mgt"]["2"]) != 1 {
		t.Errorf("categorized = %+v", resp.Categorized)
	}
	// Snapshot carries the full question, not just the id.
	if resp.Questions[0].Text == "" || len(resp.Questions[0].Options) == 0 {
		t.Errorf("saved snapshot incomplete: %+v", resp.Questions[0])
	}

	if w := env.do(t, http.MethodDelete, "/api/me/saved/eti-1-q1", reqOpts{token: "user-token"}); w.Code != http.StatusOK {
		t.Fatalf("remove = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/me/saved", reqOpts{token: "user-token"})
	if strings.Contains(w.Body.String(), `"id":"eti-1-q1"`) {
		t.Errorf("removed question still listed: %s", w.Body.String())
	}
}

func TestAdminValidate(t *testing.T) {
	env := newTestEnv(t)
	doc := map[string]any{
		"chapterId":   "eti-9",
		"title":       "Draft chapter",
		"description": "work in progress",
		"questions": []map[string]any{{
			"id":   "eti-9-q1",
			"text": "Draft question?",
			"options": []map[string]any{
				{"id": "a", "text": "yes", "isCorrect": true},
				{"id": "b", "text": "no", "isCorrect": false},
			},
			// Missing explanation and tags, both required for eti chapters.
		}},
	}

	if w := env.do(t, http.MethodPost, "/api/admin/chapters/validate", reqOpts{body: doc}); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous validate = %d, want 401", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/admin/chapters/validate", reqOpts{token: "user-token", body: doc}); w.Code != http.StatusForbidden {
		t.Errorf("non-admin validate = %d, want 403", w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/admin/chapters/validate", reqOpts{token: "admin-token", body: doc})
	if w.Code != http.StatusOK {
		t.Fatalf("admin validate = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Valid  bool                      `json:"valid"`
		Issues []content.ValidationIssue `json:"issues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Valid || len(resp.Issues) == 0 {
		t.Errorf("validate = %+v, want explanation and tags issues", resp)
	}
}

func TestInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/api/chapters", reqOpts{token: "bogus"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bogus token = %d, want 401", w.Code)
	}
}
