package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	engerrors "github.com/engramhq/engram/internal/errors"
)

// Plain command-protocol method names the remote key-value adapter speaks.
const (
	methodInit               = "init"
	methodSaveEpisode        = "saveEpisode"
	methodGetEpisode         = "getEpisode"
	methodDeleteEpisode      = "deleteEpisode"
	methodGetAllEpisodes     = "getAllEpisodes"
	methodListEpisodeIDs     = "listEpisodeIds"
	methodGetEpisodesSince   = "getEpisodesSince"
	methodAddToTagIndex      = "addToTagIndex"
	methodRemoveFromTagIndex = "removeFromTagIndex"
	methodGetByTag           = "getByTag"
	methodGetStats           = "getStats"
	methodLoadBM25Index      = "loadBM25Index"
	methodSaveBM25Index      = "saveBM25Index"
)

// rpcRequest is one frame of the plain command protocol: a method name, a
// JSON params payload, and a uuid correlation id. call opens a fresh
// connection per request and does not compare the response's id with it.
type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
	ID     string `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
	ID     string          `json:"id"`
}

type rpcError struct {
	Message string `json:"message"`
}

// Dialer opens a new connection to the remote store backend. Production
// code dials a TCP or unix socket address; tests substitute an in-memory
// pipe.
type Dialer func(ctx context.Context) (net.Conn, error)

// RemoteStore implements Store by speaking a plain request/response command
// protocol to a remote key-value backend over a Dialer. The core does not
// distinguish it from LocalStore — both satisfy the same Store interface.
type RemoteStore struct {
	dial    Dialer
	timeout time.Duration
}

// NewRemoteStore returns a RemoteStore that dials addr over TCP for each
// call, with the given per-call timeout.
func NewRemoteStore(addr string, timeout time.Duration) *RemoteStore {
	return &RemoteStore{
		dial: func(ctx context.Context) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, "tcp", addr)
		},
		timeout: timeout,
	}
}

// NewRemoteStoreWithDialer returns a RemoteStore using a caller-supplied
// Dialer, primarily for tests.
func NewRemoteStoreWithDialer(dial Dialer, timeout time.Duration) *RemoteStore {
	return &RemoteStore{dial: dial, timeout: timeout}
}

// call sends one request/response round trip and decodes the result into
// out (which may be nil if the caller ignores the result payload).
func (r *RemoteStore) call(ctx context.Context, method string, params, out any) error {
	conn, err := r.dial(ctx)
	if err != nil {
		return engerrors.TransportError("dial remote store: "+method, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if r.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(r.timeout))
	}

	req := rpcRequest{
		Method: method,
		Params: params,
		ID:     uuid.New().String(),
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return engerrors.TransportError("send remote request: "+method, err)
	}

	var resp rpcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return engerrors.TransportError("read remote response: "+method, err)
	}

	if resp.Error != nil {
		return engerrors.TransportError(fmt.Sprintf("remote store error (%s): %s", method, resp.Error.Message), nil)
	}

	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return engerrors.Malformed("decode remote result: "+method, err)
	}
	return nil
}

func (r *RemoteStore) Init(ctx context.Context) error {
	return r.call(ctx, methodInit, nil, nil)
}

func (r *RemoteStore) SaveEpisode(ctx context.Context, ep *Episode) error {
	return r.call(ctx, methodSaveEpisode, ep, nil)
}

func (r *RemoteStore) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	var ep *Episode
	if err := r.call(ctx, methodGetEpisode, map[string]string{"id": id}, &ep); err != nil {
		return nil, err
	}
	return ep, nil
}

func (r *RemoteStore) DeleteEpisode(ctx context.Context, id string) (bool, error) {
	var deleted bool
	if err := r.call(ctx, methodDeleteEpisode, map[string]string{"id": id}, &deleted); err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *RemoteStore) GetAllEpisodes(ctx context.Context) ([]*Episode, error) {
	var episodes []*Episode
	if err := r.call(ctx, methodGetAllEpisodes, nil, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

func (r *RemoteStore) ListEpisodeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.call(ctx, methodListEpisodeIDs, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *RemoteStore) GetEpisodesSince(ctx context.Context, sinceUnixMs int64) ([]*Episode, error) {
	var episodes []*Episode
	if err := r.call(ctx, methodGetEpisodesSince, map[string]int64{"since": sinceUnixMs}, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

func (r *RemoteStore) AddToTagIndex(ctx context.Context, ep *Episode) error {
	return r.call(ctx, methodAddToTagIndex, ep, nil)
}

func (r *RemoteStore) RemoveFromTagIndex(ctx context.Context, id string) error {
	return r.call(ctx, methodRemoveFromTagIndex, map[string]string{"id": id}, nil)
}

func (r *RemoteStore) GetByTag(ctx context.Context, tag string) ([]string, error) {
	var ids []string
	if err := r.call(ctx, methodGetByTag, map[string]string{"tag": tag}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *RemoteStore) GetStats(ctx context.Context) (*Stats, error) {
	var stats *Stats
	if err := r.call(ctx, methodGetStats, nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *RemoteStore) LoadBM25Index(ctx context.Context) (*BM25Index, error) {
	var idx *BM25Index
	if err := r.call(ctx, methodLoadBM25Index, nil, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (r *RemoteStore) SaveBM25Index(ctx context.Context, idx *BM25Index) error {
	return r.call(ctx, methodSaveBM25Index, idx, nil)
}

var _ Store = (*RemoteStore)(nil)
var _ IndexPersister = (*RemoteStore)(nil)
