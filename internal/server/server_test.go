package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quickscribe/internal/api"
	"quickscribe/internal/config"
	"quickscribe/internal/dispatch"
	"quickscribe/internal/gateway"
	"quickscribe/internal/jobs"
	"quickscribe/internal/rooms"
	"quickscribe/internal/storage"
	"quickscribe/internal/testsupport"
)

type stubWorker struct {
	dispatchErr error
	exists      bool
}

func (w *stubWorker) Dispatch(context.Context, *jobs.Job, string) error { return w.dispatchErr }
func (w *stubWorker) JobExists(context.Context, string) (bool, error) {
	return w.exists, nil
}

type fixture struct {
	server *httptest.Server
	cfg    *config.Config
	store  *jobs.Store
}

func newFixture(t *testing.T, workerClient gateway.WorkerClient) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	objects, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	registry := rooms.NewRegistry(nil)
	dispatcher := dispatch.New(store, registry, nil)
	gw := gateway.New(cfg, store, objects, workerClient, dispatcher, nil)
	srv := New(cfg, store, gw, dispatcher, registry, nil)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{server: ts, cfg: cfg, store: store}
}

func (f *fixture) uploadFile(t *testing.T, filename string) api.SubmitResponse {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, "fake-audio-bytes"); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.WriteField("language", "en"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	writer.Close()

	resp, err := http.Post(f.server.URL+"/api/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, data)
	}
	var submitted api.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return submitted
}

func (f *fixture) postCallback(t *testing.T, req api.CallbackRequest, token string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(req)
	httpReq, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/callback", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post callback: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func completedResult() *api.Result {
	return &api.Result{
		Segments: []api.Segment{{Start: 0, End: 2, Text: "hello world"}},
		Language: "en",
		Duration: 2,
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	resp, err := http.Get(f.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestUploadThenStatus(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	submitted := f.uploadFile(t, "meeting.mp3")
	if submitted.JobID == "" {
		t.Fatal("missing job id")
	}

	resp, err := http.Get(f.server.URL + "/api/status/" + submitted.JobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != string(jobs.StatusProcessing) {
		t.Errorf("status = %q, want processing", status.Status)
	}
}

func TestUploadWithCallerJobID(t *testing.T) {
	f := newFixture(t, &stubWorker{})

	post := func() *http.Response {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, _ := writer.CreateFormFile("file", "named.mp3")
		io.WriteString(part, "bytes")
		writer.WriteField("jobId", "batch-42")
		writer.Close()

		resp, err := http.Post(f.server.URL+"/api/upload", writer.FormDataContentType(), &body)
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var submitted api.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if submitted.JobID != "batch-42" {
		t.Errorf("job id = %q, want caller's id", submitted.JobID)
	}

	// Reusing the id is a conflict, not a silent overwrite.
	if dup := post(); dup.StatusCode != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", dup.StatusCode)
	}
}

func TestUploadWithoutFileRejected(t *testing.T) {
	f := newFixture(t, &stubWorker{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("language", "en"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	writer.Close()

	resp, err := http.Post(f.server.URL+"/api/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	all, err := f.store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("rejected upload left %d jobs in the store", len(all))
	}
}

func TestStatusUnknownJob(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	resp, err := http.Get(f.server.URL + "/api/status/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCallbackCompletesJob(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	submitted := f.uploadFile(t, "standup.mp3")

	resp := f.postCallback(t, api.CallbackRequest{
		JobID:  submitted.JobID,
		Status: string(jobs.StatusCompleted),
		Result: completedResult(),
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}

	statusResp, err := http.Get(f.server.URL + "/api/status/" + submitted.JobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer statusResp.Body.Close()
	var status api.StatusResponse
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != string(jobs.StatusCompleted) {
		t.Errorf("status = %q", status.Status)
	}
	if status.Result == nil || status.Result.Segments[0].Text != "hello world" {
		t.Errorf("result = %+v", status.Result)
	}
}

func TestCallbackUnknownJob(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	resp := f.postCallback(t, api.CallbackRequest{
		JobID:  "ghost",
		Status: string(jobs.StatusCompleted),
		Result: completedResult(),
	}, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCallbackDivergentDuplicate(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	submitted := f.uploadFile(t, "talk.mp3")

	first := api.CallbackRequest{JobID: submitted.JobID, Status: string(jobs.StatusCompleted), Result: completedResult()}
	if resp := f.postCallback(t, first, ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("first callback status = %d", resp.StatusCode)
	}

	divergent := first
	divergent.Result = &api.Result{Segments: []api.Segment{{Text: "different"}}}
	if resp := f.postCallback(t, divergent, ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("divergent callback status = %d, want 409", resp.StatusCode)
	}
}

func TestCallbackAuth(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	f.cfg.Worker.CallbackToken = "cb-secret"
	submitted := f.uploadFile(t, "guarded.mp3")

	req := api.CallbackRequest{JobID: submitted.JobID, Status: string(jobs.StatusCompleted), Result: completedResult()}
	if resp := f.postCallback(t, req, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}
	if resp := f.postCallback(t, req, "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", resp.StatusCode)
	}
	if resp := f.postCallback(t, req, "cb-secret"); resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", resp.StatusCode)
	}
}

func TestJobsEndpointAuth(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	f.cfg.Paths.APIToken = "op-secret"

	resp, err := http.Get(f.server.URL + "/api/jobs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, f.server.URL+"/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer op-secret")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", authed.StatusCode)
	}
}

func TestDispatchEndpointConflict(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	submitted := f.uploadFile(t, "already.mp3")

	resp, err := http.Post(f.server.URL+"/api/dispatch/"+submitted.JobID, "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestPresignNotAvailableOnLocalBackend(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	body := strings.NewReader(`{"filename":"x.mp3","filetype":"audio/mpeg"}`)
	resp, err := http.Post(f.server.URL+"/api/presign", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}

func TestChunkedUploadEndpoint(t *testing.T) {
	f := newFixture(t, &stubWorker{})

	first, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/upload/chunk", strings.NewReader("part-one-"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	first.Header.Set("X-Chunk-Index", "0")
	first.Header.Set("X-Filename", "long.mp3")
	resp, err := http.DefaultClient.Do(first)
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	uploadID := resp.Header.Get("X-Upload-ID")
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted || uploadID == "" {
		t.Fatalf("first chunk status = %d, upload id = %q", resp.StatusCode, uploadID)
	}

	last, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/upload/chunk", strings.NewReader("part-two"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	last.Header.Set("X-Chunk-Index", "1")
	last.Header.Set("X-Last-Chunk", "true")
	last.Header.Set("X-Upload-ID", uploadID)
	last.Header.Set("X-Filename", "long.mp3")
	finalResp, err := http.DefaultClient.Do(last)
	if err != nil {
		t.Fatalf("last chunk: %v", err)
	}
	defer finalResp.Body.Close()
	if finalResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(finalResp.Body)
		t.Fatalf("last chunk status = %d: %s", finalResp.StatusCode, data)
	}
	var submitted api.SubmitResponse
	if err := json.NewDecoder(finalResp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if submitted.JobID == "" {
		t.Error("missing job id on final chunk")
	}
}

func dialWS(t *testing.T, f *fixture, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) api.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var event api.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return event
}

func TestWebsocketLiveDelivery(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	submitted := f.uploadFile(t, "live.mp3")

	conn := dialWS(t, f, "/ws/"+submitted.JobID)

	resp := f.postCallback(t, api.CallbackRequest{
		JobID:  submitted.JobID,
		Status: string(jobs.StatusCompleted),
		Result: completedResult(),
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}

	event := readEvent(t, conn)
	if event.Type != api.EventTranscription {
		t.Errorf("event type = %q", event.Type)
	}
	if event.Data.JobID != submitted.JobID || event.Data.Status != string(jobs.StatusCompleted) {
		t.Errorf("event data = %+v", event.Data)
	}
}

func TestWebsocketReplayAfterReconnect(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	submitted := f.uploadFile(t, "reconnect.mp3")

	resp := f.postCallback(t, api.CallbackRequest{
		JobID:  submitted.JobID,
		Status: string(jobs.StatusCompleted),
		Result: completedResult(),
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}

	// Connecting after completion must replay the stored result.
	conn := dialWS(t, f, "/ws/"+submitted.JobID)
	event := readEvent(t, conn)
	if event.Data.JobID != submitted.JobID {
		t.Errorf("replayed event = %+v", event.Data)
	}
	if event.Data.Result == nil {
		t.Error("replay missing result")
	}
}

func TestWebsocketJoinMessage(t *testing.T) {
	f := newFixture(t, &stubWorker{})
	submitted := f.uploadFile(t, "joiner.mp3")

	conn := dialWS(t, f, "/ws")
	join, _ := json.Marshal(api.JoinMessage{Type: "join", JobID: submitted.JobID})
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		t.Fatalf("write join: %v", err)
	}

	// Give the join a moment to land before publishing.
	time.Sleep(100 * time.Millisecond)

	resp := f.postCallback(t, api.CallbackRequest{
		JobID:  submitted.JobID,
		Status: string(jobs.StatusCompleted),
		Result: completedResult(),
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}

	event := readEvent(t, conn)
	if event.Data.JobID != submitted.JobID {
		t.Errorf("event = %+v", event.Data)
	}
}

func TestUploadDispatchFailureStillRecordsJob(t *testing.T) {
	f := newFixture(t, &stubWorker{dispatchErr: errors.New("worker down")})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "doomed.mp3")
	io.WriteString(part, "bytes")
	writer.Close()

	resp, err := http.Post(f.server.URL+"/api/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	var submitted api.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if submitted.JobID == "" {
		t.Fatal("expected job id even on dispatch failure")
	}

	job, err := f.store.Get(context.Background(), submitted.JobID)
	if err != nil || job == nil {
		t.Fatalf("get job: %v, %v", job, err)
	}
	if job.Status != jobs.StatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
}
