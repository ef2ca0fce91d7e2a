// Package agent hosts the gNB management tools and dispatches invocations
// through the action log instrumenter, so every call is recorded with its
// inputs, outcome and duration.
package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/coffersTech/actionlog/internal/actionlog"
)

// Options locates the external collaborators the tools act on.
type Options struct {
	ConfDir      string // directory holding gNB .conf files
	ConfFile     string // default .conf file name within ConfDir
	StartScript  string // script that starts the gNB
	StopScript   string // script that stops the gNB
	ConfigScript string // script that dumps the running configuration as JSON
	LogsDir      string // directory the gNB writes its gnb_*.log files into
	DocsDir      string // knowledge base of extracted 3GPP documents
}

// Agent is the tool registry. Tools are wrapped by the instrumenter at
// registration, so dispatch itself stays trivial.
type Agent struct {
	opts Options
	inst *actionlog.Instrumenter

	mu    sync.RWMutex
	tools map[string]actionlog.ToolFunc
}

// New creates an agent with the built-in gNB tools registered.
func New(opts Options, inst *actionlog.Instrumenter) *Agent {
	a := &Agent{
		opts:  opts,
		inst:  inst,
		tools: make(map[string]actionlog.ToolFunc),
	}
	a.registerBuiltins()
	return a
}

// Register adds a tool under name, instrumented.
func (a *Agent) Register(name string, fn actionlog.ToolFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools[name] = a.inst.Tool(name, fn)
}

// Tools returns the registered tool names, sorted.
func (a *Agent) Tools() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke dispatches a tool call. An unknown tool is the caller's error and
// produces no record, since no operation ran.
func (a *Agent) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	a.mu.RLock()
	fn, ok := a.tools[name]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return fn(ctx, args)
}

func (a *Agent) registerBuiltins() {
	a.Register("update_gnb_bandwidth", a.updateBandwidth)
	a.Register("update_gnb_mcs", a.updateMCS)
	a.Register("update_config_field", a.updateConfigField)
	a.Register("get_gnb_config", a.getGNBConfig)
	a.Register("get_gnb_logs", a.getGNBLogs)
	a.Register("start_gnb", a.startGNB)
	a.Register("stop_gnb", a.stopGNB)
	a.Register("list_documents", a.listDocuments)
	a.Register("search_document", a.searchDocument)
}

// confPath resolves the .conf file a tool should edit. A bare filename in
// args or options is looked up under ConfDir; a path is used as-is.
func (a *Agent) confPath(args map[string]any) (string, error) {
	name := optStringArg(args, "config_file", a.opts.ConfFile)
	if name == "" {
		return "", fmt.Errorf("no configuration file specified")
	}
	path := name
	if !strings.Contains(name, string(os.PathSeparator)) {
		path = filepath.Join(a.opts.ConfDir, name)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("configuration file not found: %s", path)
	}
	return path, nil
}

func (a *Agent) updateBandwidth(ctx context.Context, args map[string]any) (any, error) {
	bandwidth, err := stringArg(args, "bandwidth")
	if err != nil {
		return nil, err
	}
	path, err := a.confPath(args)
	if err != nil {
		return nil, err
	}
	changes, err := UpdateBandwidth(path, bandwidth)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Updated %s to %s bandwidth. Restart the gNB to apply changes.", filepath.Base(path), bandwidth)
	for _, c := range changes {
		fmt.Fprintf(&b, "\n  %s: %s -> %s", c.Field, c.Old, c.New)
	}
	return b.String(), nil
}

func (a *Agent) updateConfigField(ctx context.Context, args map[string]any) (any, error) {
	field, err := stringArg(args, "field")
	if err != nil {
		return nil, err
	}
	value, err := stringArg(args, "value")
	if err != nil {
		return nil, err
	}
	path, err := a.confPath(args)
	if err != nil {
		return nil, err
	}
	changes, err := PatchFields(path, map[string]string{field: value})
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("parameter %s not found in %s", field, filepath.Base(path))
	}
	c := changes[0]
	return fmt.Sprintf("Updated %s: %s -> %s in %s", c.Field, c.Old, c.New, filepath.Base(path)), nil
}

func (a *Agent) updateMCS(ctx context.Context, args map[string]any) (any, error) {
	dlMCS, err := intArg(args, "dl_mcs")
	if err != nil {
		return nil, err
	}
	ulMCS, err := intArg(args, "ul_mcs")
	if err != nil {
		return nil, err
	}
	path, err := a.confPath(args)
	if err != nil {
		return nil, err
	}
	changes, err := UpdateMCS(path, dlMCS, ulMCS)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("no MCS parameters found in %s", filepath.Base(path))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Updated MCS parameters in %s. Restart the gNB to apply changes.", filepath.Base(path))
	for _, c := range changes {
		fmt.Fprintf(&b, "\n  %s: %s -> %s", c.Field, c.Old, c.New)
	}
	return b.String(), nil
}

func (a *Agent) getGNBConfig(ctx context.Context, args map[string]any) (any, error) {
	out, err := RunScript(ctx, a.opts.ConfigScript)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(out), nil
}

// Bounds on the get_gnb_logs lines argument. Out-of-range requests are
// clamped rather than rejected, matching how operators poke at a live run.
const (
	defaultLogLines = 100
	maxLogLines     = 1000
)

func (a *Agent) getGNBLogs(ctx context.Context, args map[string]any) (any, error) {
	lines := optIntArg(args, "lines", defaultLogLines)
	if lines < 1 {
		lines = defaultLogLines
	} else if lines > maxLogLines {
		lines = maxLogLines
	}
	path, err := LatestLogFile(a.opts.LogsDir)
	if err != nil {
		return nil, err
	}
	tail, err := TailLines(path, lines)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("=== %s (last %d lines) ===\n%s", filepath.Base(path), lines, tail), nil
}

func (a *Agent) startGNB(ctx context.Context, args map[string]any) (any, error) {
	return RunScript(ctx, a.opts.StartScript)
}

func (a *Agent) stopGNB(ctx context.Context, args map[string]any) (any, error) {
	return RunScript(ctx, a.opts.StopScript)
}

func (a *Agent) listDocuments(ctx context.Context, args map[string]any) (any, error) {
	return ListDocuments(a.opts.DocsDir)
}

func (a *Agent) searchDocument(ctx context.Context, args map[string]any) (any, error) {
	document, err := stringArg(args, "document")
	if err != nil {
		return nil, err
	}
	path, err := FindDocument(a.opts.DocsDir, document)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	text := string(data)

	if section := optStringArg(args, "section", ""); section != "" {
		return ExtractSection(text, section)
	}
	if keyword := optStringArg(args, "keyword", ""); keyword != "" {
		matches := SearchKeyword(text, keyword, 50)
		if len(matches) == 0 {
			return fmt.Sprintf("No matches for %q in %s", keyword, filepath.Base(path)), nil
		}
		return strings.Join(matches, "\n"), nil
	}
	return nil, fmt.Errorf("either section or keyword is required")
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

// intArg extracts a required integer argument. JSON bodies deliver numbers
// as float64, so both forms are accepted.
func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("argument %q must be a number", key)
}

// optIntArg extracts an optional integer argument with a default.
func optIntArg(args map[string]any, key string, def int) int {
	if n, err := intArg(args, key); err == nil {
		return n
	}
	return def
}

// optStringArg extracts an optional string argument with a default.
func optStringArg(args map[string]any, key, def string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}
