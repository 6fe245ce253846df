package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"
)

// auditEntry is one line in the JSONL audit trail.
type auditEntry struct {
	Time      time.Time `json:"time"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	AccountID string    `json:"account_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Remote    string    `json:"remote"`
}

// auditRingSize bounds the in-memory tail kept for the admin endpoint.
const auditRingSize = 256

// AuditLog appends one JSON line per request to a file and keeps a bounded
// in-memory tail.
type AuditLog struct {
	mu   sync.Mutex
	file *os.File
	ring []auditEntry
}

// NewAuditLog opens (or creates) the JSONL file at path. An empty path keeps
// the audit trail memory-only.
func NewAuditLog(path string) (*AuditLog, error) {
	a := &AuditLog{}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, err
		}
		a.file = f
	}
	return a, nil
}

// Close releases the backing file.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *AuditLog) record(e auditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ring = append(a.ring, e)
	if len(a.ring) > auditRingSize {
		a.ring = a.ring[len(a.ring)-auditRingSize:]
	}
	if a.file != nil {
		line, err := json.Marshal(e)
		if err != nil {
			return
		}
		a.file.Write(append(line, '\n'))
	}
}

// Tail returns up to n most recent entries, newest last.
func (a *AuditLog) Tail(n int) []auditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 || n > len(a.ring) {
		n = len(a.ring)
	}
	out := make([]auditEntry, n)
	copy(out, a.ring[len(a.ring)-n:])
	return out
}

// audit wraps a handler so every mutating request is recorded with the
// authenticated caller.
func (h *Handler) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holder := &identityHolder{}
		r = r.WithContext(context.WithValue(r.Context(), identityHolderKey, holder))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if r.Method == http.MethodGet || h.auditLog == nil {
			return
		}
		entry := auditEntry{
			Time:   time.Now().UTC(),
			Method: r.Method,
			Path:   r.URL.Path,
			Status: rec.status,
			Remote: r.RemoteAddr,
		}
		if holder.set {
			entry.AccountID = holder.id.AccountID
			entry.Role = string(holder.id.Role)
		}
		h.auditLog.record(entry)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
