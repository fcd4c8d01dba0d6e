package gateway

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"quickscribe/internal/jobs"
)

// ChunkInput is one piece of a sequential chunked upload. The first
// chunk may omit UploadID; the assigned id must accompany every later
// chunk. Last marks the final piece.
type ChunkInput struct {
	UploadID string
	Index    int
	Last     bool
	Reader   io.Reader
	SubmitInput
}

type uploadSession struct {
	file     *os.File
	filename string
	next     int
}

// uploadSessions holds in-flight chunked uploads spooled to disk.
type uploadSessions struct {
	mu       sync.Mutex
	dir      string
	sessions map[string]*uploadSession
}

func newUploadSessions(dataDir string) *uploadSessions {
	return &uploadSessions{
		dir:      filepath.Join(dataDir, "uploads"),
		sessions: make(map[string]*uploadSession),
	}
}

// Chunk appends one piece of a chunked upload. When the last chunk
// lands, the spooled file is submitted as a regular upload and the
// completed job is returned; otherwise only the upload id comes back.
func (g *Gateway) Chunk(ctx context.Context, input ChunkInput) (string, *jobs.Job, error) {
	if input.Reader == nil {
		return "", nil, fmt.Errorf("chunk: empty payload")
	}

	uploadID, session, err := g.uploads.append(input)
	if err != nil {
		return "", nil, err
	}
	if !input.Last {
		return uploadID, nil, nil
	}

	file, filename := g.uploads.take(uploadID, session)
	defer func() {
		name := file.Name()
		file.Close()
		_ = os.Remove(name)
	}()

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return uploadID, nil, fmt.Errorf("chunk: rewind spool: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		return uploadID, nil, fmt.Errorf("chunk: stat spool: %w", err)
	}

	submit := input.SubmitInput
	submit.Filename = filename
	submit.Reader = file
	submit.Size = info.Size()

	job, err := g.Submit(ctx, submit)
	if err != nil {
		return uploadID, nil, err
	}
	return uploadID, job, nil
}

func (s *uploadSessions) append(input ChunkInput) (string, *uploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploadID := input.UploadID
	session, ok := s.sessions[uploadID]
	if !ok {
		if uploadID != "" {
			return "", nil, fmt.Errorf("chunk: unknown upload %s", uploadID)
		}
		if input.Index != 0 {
			return "", nil, fmt.Errorf("chunk: upload must start at index 0, got %d", input.Index)
		}
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("chunk: ensure spool dir: %w", err)
		}
		uploadID = uuid.NewString()
		file, err := os.CreateTemp(s.dir, "spool-*")
		if err != nil {
			return "", nil, fmt.Errorf("chunk: create spool: %w", err)
		}
		session = &uploadSession{file: file, filename: input.Filename}
		s.sessions[uploadID] = session
	}

	if input.Index != session.next {
		return "", nil, fmt.Errorf("chunk: out of order, expected %d got %d", session.next, input.Index)
	}
	if _, err := io.Copy(session.file, input.Reader); err != nil {
		return "", nil, fmt.Errorf("chunk: write spool: %w", err)
	}
	session.next++
	return uploadID, session, nil
}

// take removes a finished session from the table. The caller owns the
// spool file afterwards.
func (s *uploadSessions) take(uploadID string, session *uploadSession) (*os.File, string) {
	s.mu.Lock()
	delete(s.sessions, uploadID)
	s.mu.Unlock()
	return session.file, session.filename
}
