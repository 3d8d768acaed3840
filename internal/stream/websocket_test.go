package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/assembly-coach/internal/assets"
	"github.com/ashureev/assembly-coach/internal/coach"
	"github.com/ashureev/assembly-coach/internal/detector"
	"github.com/ashureev/assembly-coach/internal/identity"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frameBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

type streamFixture struct {
	url string
	svc *coach.Service
	det *detector.Static
	mgr *Manager
}

func newStreamFixture(t *testing.T, cfg coach.Config) streamFixture {
	t.Helper()

	res, err := assets.NewURLResolver(assets.ImageRoute, "http://videos.test/")
	require.NoError(t, err)
	det := detector.NewStatic()
	m, err := coach.NewMachine(cfg, det, res)
	require.NoError(t, err)
	svc := coach.NewService(m, nil, nil)
	mgr := NewManager()

	r := chi.NewRouter()
	r.With(identity.Middleware).Get("/ws/frames", NewHandler(svc, mgr, "http://coach.test", false).ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return streamFixture{
		url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/frames",
		svc: svc,
		det: det,
		mgr: mgr,
	}
}

func (f streamFixture) dial(t *testing.T, ctx context.Context, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, f.url+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func readReply(t *testing.T, ctx context.Context, conn *websocket.Conn) reply {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)

	var rep reply
	require.NoError(t, json.Unmarshal(data, &rep))
	return rep
}

func TestStreamProcessesBinaryFrames(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := newStreamFixture(t, coach.Config{})
	conn := f.dial(t, ctx, "?task_id=t1")

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, frameBytes))
	rep := readReply(t, ctx, conn)
	require.Equal(t, "result", rep.Type)
	require.NotNil(t, rep.Result)
	assert.True(t, rep.Result.Advanced)
	assert.Equal(t, coach.StepInsertGreenWasher1, rep.Result.Step)

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, frameBytes))
	rep = readReply(t, ctx, conn)
	require.NotNil(t, rep.Result.Instruction.Speech)
	assert.Equal(t, "Insert the green washer into the left hole.", *rep.Result.Instruction.Speech)

	snap := f.svc.Snapshot()
	require.NotNil(t, snap.TaskID)
	assert.Equal(t, "t1", *snap.TaskID)
}

func TestStreamTaskMessageResetsSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := newStreamFixture(t, coach.Config{})
	conn := f.dial(t, ctx, "?task_id=first")

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, frameBytes))
	readReply(t, ctx, conn)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"task","task_id":"second"}`)))
	rep := readReply(t, ctx, conn)
	assert.Equal(t, "task", rep.Type)
	assert.Equal(t, "second", rep.TaskID)

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, frameBytes))
	rep = readReply(t, ctx, conn)
	require.NotNil(t, rep.Result)
	assert.True(t, rep.Result.Reset)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"task","task_id":"bad id!"}`)))
	rep = readReply(t, ctx, conn)
	assert.Equal(t, "invalid_task_id", rep.Error)
}

func TestStreamControlMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := newStreamFixture(t, coach.Config{})
	conn := f.dial(t, ctx, "")

	tests := []struct {
		in   string
		want reply
	}{
		{in: `{"type":"ping"}`, want: reply{Type: "pong"}},
		{in: `not json`, want: reply{Type: "error", Error: "invalid_message"}},
		{in: `{"type":"resize"}`, want: reply{Type: "error", Error: "unknown_type"}},
	}
	for _, tt := range tests {
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(tt.in)))
		assert.Equal(t, tt.want, readReply(t, ctx, conn), tt.in)
	}

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte{}))
	assert.Equal(t, reply{Type: "error", Error: "empty_frame"}, readReply(t, ctx, conn))
}

func TestStreamReportsDetectorFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := newStreamFixture(t, coach.Config{InitialStep: coach.StepFinalCheck})
	conn := f.dial(t, ctx, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, frameBytes))
	readReply(t, ctx, conn)

	f.det.Fail(errors.New("connection refused"))
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, frameBytes))
	rep := readReply(t, ctx, conn)
	assert.Equal(t, reply{Type: "error", Error: "detector_unavailable"}, rep)

	// The stream stays usable after a failed frame.
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readReply(t, ctx, conn).Type)
}

func TestStreamNewConnectionReplacesOld(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := newStreamFixture(t, coach.Config{})

	old := f.dial(t, ctx, "")
	require.NoError(t, old.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	readReply(t, ctx, old)

	current := f.dial(t, ctx, "")
	require.NoError(t, current.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	readReply(t, ctx, current)

	_, _, err := old.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := newStreamFixture(t, coach.Config{})

	_, resp, err := websocket.Dial(ctx, f.url, &websocket.DialOptions{
		HTTPHeader: map[string][]string{"Origin": {"http://evil.test"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
