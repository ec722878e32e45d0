// Package processor is the server side of the file-drop protocol. It
// wires a folder watcher on the requests directory to the execution
// engine and writes correlated response files into the responses
// directory.
//
// Invariants the processor maintains:
//
//   - Exactly one response file is produced per consumed request file,
//     including for requests that fail to parse. A malformed file is
//     never silently dropped.
//   - The request file is deleted after processing whether execution
//     succeeded or failed, so no request is reprocessed.
//   - A request_id already present in the operation log is refused
//     rather than re-executed; this closes the crash window where a
//     request was executed but its file survived the restart.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/syncsys/syncsys/internal/config"
	"github.com/syncsys/syncsys/internal/engine"
	"github.com/syncsys/syncsys/internal/notify"
	"github.com/syncsys/syncsys/internal/store"
	"github.com/syncsys/syncsys/internal/watcher"
	"github.com/syncsys/syncsys/internal/wire"
)

// Processor executes requests arriving in the requests folder.
type Processor struct {
	cfg      *config.Config
	store    *store.Store
	engine   *engine.Engine
	notifier notify.Notifier // optional, may be nil
	logger   *slog.Logger

	responses string

	watcher *watcher.Watcher
	pool    *ants.Pool
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// New creates a processor. The notifier is optional; pass nil to run
// without notifications.
func New(cfg *config.Config, st *store.Store, notifier notify.Notifier, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := watcher.New(cfg.SharedFolder.Requests, watcher.Options{
		PollInterval: cfg.Processor.PollInterval.Std(),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &Processor{
		cfg:       cfg,
		store:     st,
		engine:    engine.New(st, logger),
		notifier:  notifier,
		logger:    logger.With("component", "processor"),
		responses: cfg.SharedFolder.Responses,
		watcher:   w,
	}, nil
}

// Start creates the responses folder, starts the execution pool and
// begins watching the requests folder.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	if err := os.MkdirAll(p.responses, 0o755); err != nil {
		return fmt.Errorf("create responses folder: %w", err)
	}

	pool, err := ants.NewPool(p.cfg.Processor.MaxConcurrentRequests, ants.WithPanicHandler(func(v any) {
		p.logger.Error("request handler panic", "panic", v)
	}))
	if err != nil {
		return fmt.Errorf("create execution pool: %w", err)
	}
	p.pool = pool

	if err := p.watcher.Start(p.onRequestFile); err != nil {
		p.pool.Release()
		return err
	}

	p.running = true
	p.logger.Info("processor started",
		"requests", p.cfg.SharedFolder.Requests,
		"responses", p.responses,
		"max_concurrent", p.cfg.Processor.MaxConcurrentRequests,
	)
	return nil
}

// Stop stops accepting new files, lets in-flight executions finish,
// then returns.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.watcher.Stop()
	p.wg.Wait()
	if err := p.pool.ReleaseTimeout(10 * time.Second); err != nil {
		p.logger.Warn("execution pool did not drain in time", "error", err)
	}
	p.logger.Info("processor stopped")
}

// onRequestFile is the watcher callback. Execution is queued behind
// the processor's own bounded pool; excess requests wait here behind
// the watcher's dispatch pool.
func (p *Processor) onRequestFile(path string) {
	p.wg.Add(1)
	if err := p.pool.Submit(func() {
		defer p.wg.Done()
		p.handle(path)
	}); err != nil {
		p.wg.Done()
		p.logger.Error("failed to queue request", "file", path, "error", err)
	}
}

// handle processes one request file end to end.
func (p *Processor) handle(path string) {
	ctx := context.Background()

	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Error("read request file", "file", path, "error", err)
		p.respondError(path, data, fmt.Sprintf("unreadable request file: %v", err))
		return
	}

	req, err := wire.DecodeRequest(data)
	if err != nil {
		p.logger.Error("malformed request file", "file", path, "error", err)
		p.respondError(path, data, err.Error())
		return
	}

	seen, err := p.store.SeenRequest(ctx, req.RequestID)
	if err != nil {
		p.logger.Error("operation log lookup failed", "request_id", req.RequestID, "error", err)
	}

	var result *wire.Result
	if seen {
		p.logger.Warn("duplicate request refused", "request_id", req.RequestID)
		result = &wire.Result{
			Status:    wire.StatusError,
			Error:     fmt.Sprintf("request %s already processed", req.RequestID),
			Timestamp: wire.Now(),
		}
	} else {
		result = p.engine.Execute(ctx, req)

		if result.Status == wire.StatusSuccess && p.notifier != nil && p.notifier.ShouldNotify(req) {
			if err := p.notifier.Notify(req, result); err != nil {
				// The transaction is committed; notification failures
				// are reported, never reversed.
				p.logger.Error("notification failed", "request_id", req.RequestID, "error", err)
			}
		}
	}

	resp := &wire.Response{
		RequestID:   req.RequestID,
		ClientID:    req.ClientID,
		Result:      *result,
		ProcessedAt: wire.Now(),
	}
	if err := p.writeResponse(resp); err != nil {
		// Fatal for this request only: log, still delete the request
		// file so it is not reprocessed.
		p.logger.Error("write response", "request_id", req.RequestID, "error", err)
	}

	p.deleteRequestFile(path)
	p.logger.Info("request processed", "request_id", req.RequestID, "status", resp.Result.Status)
}

// respondError emits an error response for a file that could not be
// decoded, using best-effort extracted IDs: body fields if the JSON is
// partially readable, filename-derived values otherwise.
func (p *Processor) respondError(path string, body []byte, msg string) {
	requestID, clientID := recoverIDs(path, body)

	resp := &wire.Response{
		RequestID: requestID,
		ClientID:  clientID,
		Result: wire.Result{
			Status:    wire.StatusError,
			Error:     msg,
			Timestamp: wire.Now(),
		},
		ProcessedAt: wire.Now(),
	}
	if err := p.writeResponse(resp); err != nil {
		p.logger.Error("write error response", "file", path, "error", err)
	}

	p.deleteRequestFile(path)
}

// recoverIDs extracts correlation IDs from a broken request: first
// from whatever fields of the body decode, then from the filename,
// then "unknown".
func recoverIDs(path string, body []byte) (requestID, clientID string) {
	var partial struct {
		RequestID string `json:"request_id"`
		ClientID  string `json:"client_id"`
	}
	_ = json.Unmarshal(body, &partial)
	requestID, clientID = partial.RequestID, partial.ClientID

	if requestID == "" || clientID == "" {
		if c, r, ok := wire.ParseFileName(filepath.Base(path)); ok {
			if requestID == "" {
				requestID = r
			}
			if clientID == "" {
				clientID = c
			}
		}
	}
	if requestID == "" {
		requestID = "unknown"
	}
	if clientID == "" {
		clientID = "unknown"
	}
	return requestID, clientID
}

// writeResponse writes the response envelope under the correlated
// filename. It tries an atomic publish (temp file + rename) first and
// falls back to a direct write on filesystems where rename across the
// share misbehaves; readers run their own completion check either way.
func (p *Processor) writeResponse(resp *wire.Response) error {
	data, err := wire.EncodeResponse(resp)
	if err != nil {
		return err
	}

	target := filepath.Join(p.responses, wire.FileName(resp.ClientID, resp.RequestID))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err == nil {
		if err := os.Rename(tmp, target); err == nil {
			return nil
		}
		_ = os.Remove(tmp)
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write response file: %w", err)
	}
	return nil
}

// deleteRequestFile removes a consumed request file. This runs whether
// execution succeeded or failed; a request is consumed exactly once.
func (p *Processor) deleteRequestFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Error("delete request file", "file", path, "error", err)
	}
}
