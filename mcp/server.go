// Package mcp implements the Librarian MCP server: a static registry of
// tools, prompts and resources exposed over any number of JSON-RPC transport
// channels. Registration happens at startup; after serving begins the tables
// are read-only, so channels share them without locking in the hot path.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/mlziade/librarian/mcp/internal/protocol"
	"github.com/mlziade/librarian/mcp/transport"
	"github.com/mlziade/librarian/pkg/metricskey"
	"github.com/mlziade/librarian/schema"
)

var logger = xlog.NewPackageLogger("github.com/mlziade/librarian", "mcp")

type toolEntry struct {
	name        string
	description string
	inputSchema any
	call        func(ctx context.Context, args json.RawMessage) (*ToolResponse, error)
}

type promptEntry struct {
	name        string
	description string
	call        func(ctx context.Context, args json.RawMessage) (*PromptResponse, error)
}

type resourceEntry struct {
	uri         string
	name        string
	description string
	mimeType    string
	call        func() (*ResourceResponse, error)
}

// Server holds the tool, prompt and resource tables and serves them over one
// or more transports. Each transport gets its own protocol instance; the
// tables are shared read-only.
type Server struct {
	serverName    string
	serverVersion string

	mu        sync.RWMutex
	served    bool
	tools     map[string]*toolEntry
	prompts   map[string]*promptEntry
	resources map[string]*resourceEntry

	paginationLimit *int
}

// Option configures the server.
type Option func(*Server)

// WithName sets the server name reported in the initialize handshake.
func WithName(name string) Option {
	return func(s *Server) { s.serverName = name }
}

// WithVersion sets the server version reported in the initialize handshake.
func WithVersion(version string) Option {
	return func(s *Server) { s.serverVersion = version }
}

// WithPaginationLimit caps list responses at n items per page.
func WithPaginationLimit(n int) Option {
	return func(s *Server) { s.paginationLimit = &n }
}

// NewServer creates a server with empty registries.
func NewServer(opts ...Option) *Server {
	s := &Server{
		serverName:    "librarian",
		serverVersion: "1.0.0",
		tools:         make(map[string]*toolEntry),
		prompts:       make(map[string]*promptEntry),
		resources:     make(map[string]*resourceEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTool adds a tool to the registry. The handler must be
// `func([ctx,] args T) (*ToolResponse, error)` where T is a struct; its JSON
// schema is derived once here, not on each call. Returns an error after
// serving has started: the registry is read-only by then.
func (s *Server) RegisterTool(name string, description string, handler any) error {
	argType, invoke, err := reflectHandler(handler, reflect.TypeOf((*ToolResponse)(nil)))
	if err != nil {
		return errors.WithMessagef(err, "tool %q", name)
	}
	if argType == nil {
		return errors.Newf("tool %q: handler must accept an arguments struct", name)
	}

	sc, err := schema.New(argType)
	if err != nil {
		return errors.WithMessagef(err, "tool %q", name)
	}

	entry := &toolEntry{
		name:        name,
		description: description,
		inputSchema: sc.Parameters,
		call: func(ctx context.Context, args json.RawMessage) (*ToolResponse, error) {
			out, err := invoke(ctx, args)
			if err != nil {
				return nil, err
			}
			resp, _ := out.(*ToolResponse)
			return resp, nil
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.served {
		return errors.New("cannot register tools after serving started")
	}
	s.tools[name] = entry
	return nil
}

// RegisterPrompt adds a prompt to the registry. The handler may be
// `func() (*PromptResponse, error)` or accept a context and/or an arguments
// struct.
func (s *Server) RegisterPrompt(name string, description string, handler any) error {
	_, invoke, err := reflectHandler(handler, reflect.TypeOf((*PromptResponse)(nil)))
	if err != nil {
		return errors.WithMessagef(err, "prompt %q", name)
	}

	entry := &promptEntry{
		name:        name,
		description: description,
		call: func(ctx context.Context, args json.RawMessage) (*PromptResponse, error) {
			out, err := invoke(ctx, args)
			if err != nil {
				return nil, err
			}
			resp, _ := out.(*PromptResponse)
			return resp, nil
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.served {
		return errors.New("cannot register prompts after serving started")
	}
	s.prompts[name] = entry
	return nil
}

// RegisterResource adds a static resource to the registry.
func (s *Server) RegisterResource(uri string, name string, description string, mimeType string, handler func() (*ResourceResponse, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.served {
		return errors.New("cannot register resources after serving started")
	}
	s.resources[uri] = &resourceEntry{
		uri:         uri,
		name:        name,
		description: description,
		mimeType:    mimeType,
		call:        handler,
	}
	return nil
}

// Serve attaches the registry to one transport channel and starts it.
// Blocking transports do not return until the channel closes; call Serve from
// its own goroutine when running several channels concurrently.
func (s *Server) Serve(tr transport.Transport) error {
	s.mu.Lock()
	s.served = true
	s.mu.Unlock()

	proto := protocol.New()
	proto.OnError = func(err error) {
		logger.KV(xlog.WARNING, "reason", "transport", "err", err.Error())
	}

	proto.SetRequestHandler("initialize", s.handleInitialize)
	proto.SetRequestHandler("ping", s.handlePing)
	proto.SetRequestHandler("tools/list", s.handleListTools)
	proto.SetRequestHandler("tools/call", s.handleToolCalls)
	proto.SetRequestHandler("prompts/list", s.handleListPrompts)
	proto.SetRequestHandler("prompts/get", s.handleGetPrompt)
	proto.SetRequestHandler("resources/list", s.handleListResources)
	proto.SetRequestHandler("resources/read", s.handleReadResource)
	proto.SetNotificationHandler("notifications/initialized", func(*transport.BaseJSONRPCNotification) error {
		return nil
	})

	return proto.Connect(tr)
}

func (s *Server) handleInitialize(ctx context.Context, request *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	return InitializeResponse{
		ProtocolVersion: ProtocolVersion,
		Capabilities: map[string]any{
			"tools":     map[string]any{},
			"prompts":   map[string]any{},
			"resources": map[string]any{},
		},
		ServerInfo: ServerInfo{
			Name:    s.serverName,
			Version: s.serverVersion,
		},
	}, nil
}

func (s *Server) handlePing(ctx context.Context, request *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	return map[string]any{}, nil
}

func (s *Server) handleToolCalls(ctx context.Context, request *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	var params baseCallToolRequestParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return nil, protocol.ErrorCode(
			errors.Wrap(err, "failed to unmarshal arguments"),
			transport.ErrCodeInvalidParams)
	}

	s.mu.RLock()
	entry := s.tools[params.Name]
	s.mu.RUnlock()

	if entry == nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, params.Name)
		return nil, protocol.ErrorCode(
			errors.Newf("unknown tool: %s", params.Name),
			transport.ErrCodeMethodNotFound)
	}

	started := time.Now()
	resp, err := entry.call(ctx, params.Arguments)
	metricskey.PerfToolCall.MeasureSince(started, params.Name)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, params.Name)
		return nil, err
	}
	if resp.IsError {
		metricskey.StatsToolCallsFailed.IncrCounter(1, params.Name)
	} else {
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, params.Name)
	}
	return resp, nil
}

func (s *Server) handleListTools(ctx context.Context, request *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	page, next, err := paginate(names, request.Params, s.paginationLimit)
	if err != nil {
		return nil, err
	}

	res := ToolsResponse{NextCursor: next}
	s.mu.RLock()
	for _, name := range page {
		e := s.tools[name]
		res.Tools = append(res.Tools, ToolInfo{
			Name:        e.name,
			Description: e.description,
			InputSchema: e.inputSchema,
		})
	}
	s.mu.RUnlock()
	return res, nil
}

func (s *Server) handleListPrompts(ctx context.Context, request *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.prompts))
	for name := range s.prompts {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	page, next, err := paginate(names, request.Params, s.paginationLimit)
	if err != nil {
		return nil, err
	}

	res := ListPromptsResponse{NextCursor: next}
	s.mu.RLock()
	for _, name := range page {
		e := s.prompts[name]
		res.Prompts = append(res.Prompts, PromptInfo{
			Name:        e.name,
			Description: e.description,
		})
	}
	s.mu.RUnlock()
	return res, nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	var params baseGetPromptRequestParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return nil, protocol.ErrorCode(
			errors.Wrap(err, "failed to unmarshal arguments"),
			transport.ErrCodeInvalidParams)
	}

	s.mu.RLock()
	entry := s.prompts[params.Name]
	s.mu.RUnlock()

	if entry == nil {
		return nil, protocol.ErrorCode(
			errors.Newf("unknown prompt: %s", params.Name),
			transport.ErrCodeMethodNotFound)
	}
	return entry.call(ctx, params.Arguments)
}

func (s *Server) handleListResources(ctx context.Context, request *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	s.mu.RLock()
	uris := make([]string, 0, len(s.resources))
	for uri := range s.resources {
		uris = append(uris, uri)
	}
	s.mu.RUnlock()
	sort.Strings(uris)

	page, next, err := paginate(uris, request.Params, s.paginationLimit)
	if err != nil {
		return nil, err
	}

	res := ListResourcesResponse{NextCursor: next}
	s.mu.RLock()
	for _, uri := range page {
		e := s.resources[uri]
		res.Resources = append(res.Resources, ResourceInfo{
			Uri:         e.uri,
			Name:        e.name,
			Description: e.description,
			MimeType:    e.mimeType,
		})
	}
	s.mu.RUnlock()
	return res, nil
}

func (s *Server) handleReadResource(ctx context.Context, request *transport.BaseJSONRPCRequest, _ protocol.RequestHandlerExtra) (transport.JsonRpcBody, error) {
	var params readResourceRequestParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return nil, protocol.ErrorCode(
			errors.Wrap(err, "failed to unmarshal arguments"),
			transport.ErrCodeInvalidParams)
	}

	s.mu.RLock()
	entry := s.resources[params.Uri]
	s.mu.RUnlock()

	if entry == nil {
		return nil, protocol.ErrorCode(
			errors.Newf("unknown resource: %s", params.Uri),
			transport.ErrCodeMethodNotFound)
	}
	return entry.call()
}

// paginate slices the alphabetically sorted names into one page per the
// opaque base64 cursor carried in the request params. limit nil disables
// pagination.
func paginate(names []string, rawParams json.RawMessage, limit *int) (page []string, next *string, err error) {
	start := 0
	if len(rawParams) > 0 {
		var params listRequestParams
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return nil, nil, protocol.ErrorCode(
				errors.Wrap(err, "failed to unmarshal cursor"),
				transport.ErrCodeInvalidParams)
		}
		if params.Cursor != nil {
			decoded, err := base64.StdEncoding.DecodeString(*params.Cursor)
			if err != nil {
				return nil, nil, protocol.ErrorCode(
					errors.New("invalid cursor"),
					transport.ErrCodeInvalidParams)
			}
			start = sort.SearchStrings(names, string(decoded))
			if start >= len(names) || names[start] != string(decoded) {
				return nil, nil, protocol.ErrorCode(
					errors.New("invalid cursor"),
					transport.ErrCodeInvalidParams)
			}
		}
	}

	if limit == nil {
		return names[start:], nil, nil
	}

	end := start + *limit
	if end >= len(names) {
		return names[start:], nil, nil
	}
	cursor := base64.StdEncoding.EncodeToString([]byte(names[end]))
	return names[start:end], &cursor, nil
}

// reflectHandler validates a registration handler of shape
// `func([ctx,] [args T]) (*R, error)` and returns the argument struct type
// (nil when the handler takes none) plus an invoker that decodes raw JSON
// arguments and calls it. Reflection happens here once; dispatch is a plain
// function call.
func reflectHandler(handler any, retType reflect.Type) (reflect.Type, func(ctx context.Context, args json.RawMessage) (any, error), error) {
	fnVal := reflect.ValueOf(handler)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, nil, errors.New("handler must be a function")
	}
	if fnType.NumOut() != 2 ||
		fnType.Out(0) != retType ||
		fnType.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
		return nil, nil, errors.Newf("handler must return (%s, error)", retType)
	}

	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()
	hasCtx := fnType.NumIn() > 0 && fnType.In(0) == ctxType

	var argType reflect.Type
	switch fnType.NumIn() {
	case 0:
	case 1:
		if !hasCtx {
			argType = fnType.In(0)
		}
	case 2:
		if !hasCtx {
			return nil, nil, errors.New("handler with two arguments must take a context first")
		}
		argType = fnType.In(1)
	default:
		return nil, nil, errors.New("handler takes too many arguments")
	}
	if argType != nil && argType.Kind() != reflect.Struct {
		return nil, nil, errors.Newf("handler arguments must be a struct, got %s", argType)
	}

	invoke := func(ctx context.Context, args json.RawMessage) (any, error) {
		in := make([]reflect.Value, 0, 2)
		if hasCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		if argType != nil {
			argv := reflect.New(argType)
			if len(args) > 0 {
				if err := json.Unmarshal(args, argv.Interface()); err != nil {
					return nil, protocol.ErrorCode(
						errors.Wrap(err, "failed to unmarshal arguments"),
						transport.ErrCodeInvalidParams)
				}
			}
			in = append(in, argv.Elem())
		}

		out := fnVal.Call(in)
		if errVal := out[1].Interface(); errVal != nil {
			return nil, errVal.(error)
		}
		return out[0].Interface(), nil
	}
	return argType, invoke, nil
}
