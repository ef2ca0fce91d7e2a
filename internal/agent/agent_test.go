package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/actionlog/internal/actionlog"
)

func newTestAgent(t *testing.T) (*Agent, string) {
	t.Helper()
	dir := t.TempDir()

	confPath := filepath.Join(dir, "gnb.conf")
	require.NoError(t, os.WriteFile(confPath, []byte(sampleConf), 0644))

	logPath := filepath.Join(dir, "actions.jsonl")
	appender := actionlog.NewAppender(logPath)
	inst := actionlog.NewInstrumenter(appender, "gnb")

	a := New(Options{
		ConfDir:  dir,
		ConfFile: "gnb.conf",
		DocsDir:  dir,
	}, inst)
	return a, logPath
}

func readActionLog(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestAgent_InvokeRecordsAction(t *testing.T) {
	a, logPath := newTestAgent(t)

	result, err := a.Invoke(context.Background(), "update_gnb_bandwidth", map[string]any{
		"bandwidth": "20MHz",
	})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "20MHz")
	assert.Contains(t, result.(string), "dl_carrierBandwidth: 106 -> 51")

	records := readActionLog(t, logPath)
	require.Len(t, records, 1)
	assert.Equal(t, "update_gnb_bandwidth", records[0]["tool"])
	assert.Equal(t, "ok", records[0]["status"])
	assert.Contains(t, records[0]["args"], "20MHz")
}

func TestAgent_InvokeFailureRecordsError(t *testing.T) {
	a, logPath := newTestAgent(t)

	_, err := a.Invoke(context.Background(), "update_gnb_bandwidth", map[string]any{
		"bandwidth": "40MHz",
	})
	require.Error(t, err)

	records := readActionLog(t, logPath)
	require.Len(t, records, 1)
	assert.Equal(t, "error", records[0]["status"])
	assert.Contains(t, records[0]["error"], "invalid bandwidth")
}

func TestAgent_UnknownTool(t *testing.T) {
	a, logPath := newTestAgent(t)

	_, err := a.Invoke(context.Background(), "no_such_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")

	// No operation ran, so nothing was recorded.
	_, statErr := os.Stat(logPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAgent_UpdateConfigField(t *testing.T) {
	a, _ := newTestAgent(t)

	result, err := a.Invoke(context.Background(), "update_config_field", map[string]any{
		"field": "ssb_SubcarrierOffset",
		"value": "12",
	})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "ssb_SubcarrierOffset: 0 -> 12")

	_, err = a.Invoke(context.Background(), "update_config_field", map[string]any{
		"field": "missing_param",
		"value": "1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAgent_UpdateMCS(t *testing.T) {
	a, logPath := newTestAgent(t)

	result, err := a.Invoke(context.Background(), "update_gnb_mcs", map[string]any{
		"dl_mcs": float64(16),
		"ul_mcs": float64(9),
	})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "dl_max_mcs: 28 -> 16")
	assert.Contains(t, result.(string), "ul_max_mcs: 28 -> 9")

	records := readActionLog(t, logPath)
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0]["status"])
}

func TestAgent_UpdateMCSRejectsOutOfRange(t *testing.T) {
	a, logPath := newTestAgent(t)

	_, err := a.Invoke(context.Background(), "update_gnb_mcs", map[string]any{
		"dl_mcs": float64(42),
		"ul_mcs": float64(9),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be between 0 and 28")

	records := readActionLog(t, logPath)
	require.Len(t, records, 1)
	assert.Equal(t, "error", records[0]["status"])
}

func TestAgent_GetGNBConfig(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "get_gnb_config.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho '{\"band\": 78, \"bandwidth\": \"20MHz\"}'\n"), 0755))

	logPath := filepath.Join(dir, "actions.jsonl")
	inst := actionlog.NewInstrumenter(actionlog.NewAppender(logPath), "gnb")
	a := New(Options{ConfigScript: script}, inst)

	result, err := a.Invoke(context.Background(), "get_gnb_config", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"band": 78, "bandwidth": "20MHz"}`, result)

	records := readActionLog(t, logPath)
	require.Len(t, records, 1)
	assert.Equal(t, "get_gnb_config", records[0]["tool"])
	assert.Equal(t, "ok", records[0]["status"])
}

func TestAgent_GetGNBLogs(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "gnb_2026-08-29_120000.log")
	newer := filepath.Join(dir, "gnb_2026-08-30_090000.log")
	require.NoError(t, os.WriteFile(older, []byte("old run line\n"), 0644))
	require.NoError(t, os.WriteFile(newer, []byte("line one\nline two\nline three\n"), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	logPath := filepath.Join(dir, "actions.jsonl")
	inst := actionlog.NewInstrumenter(actionlog.NewAppender(logPath), "gnb")
	a := New(Options{LogsDir: dir}, inst)

	result, err := a.Invoke(context.Background(), "get_gnb_logs", map[string]any{
		"lines": float64(2),
	})
	require.NoError(t, err)
	out := result.(string)
	assert.Contains(t, out, filepath.Base(newer))
	assert.Contains(t, out, "line two\nline three")
	assert.NotContains(t, out, "line one")
	assert.NotContains(t, out, "old run line")
}

func TestAgent_GetGNBLogsMissingDir(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "actions.jsonl")
	inst := actionlog.NewInstrumenter(actionlog.NewAppender(logPath), "gnb")
	a := New(Options{LogsDir: filepath.Join(dir, "absent")}, inst)

	_, err := a.Invoke(context.Background(), "get_gnb_logs", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log directory not found")
}

func TestAgent_SearchDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TS_38.331.txt"), []byte(sampleDoc), 0644))

	logPath := filepath.Join(dir, "actions.jsonl")
	inst := actionlog.NewInstrumenter(actionlog.NewAppender(logPath), "gnb")
	a := New(Options{DocsDir: dir}, inst)

	result, err := a.Invoke(context.Background(), "search_document", map[string]any{
		"document": "38.331",
		"section":  "5.3.3",
	})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "RRC connection establishment")

	_, err = a.Invoke(context.Background(), "search_document", map[string]any{
		"document": "38.331",
	})
	require.Error(t, err, "section or keyword is required")
}

func TestAgent_Tools(t *testing.T) {
	a, _ := newTestAgent(t)

	tools := a.Tools()
	assert.Contains(t, tools, "update_gnb_bandwidth")
	assert.Contains(t, tools, "update_gnb_mcs")
	assert.Contains(t, tools, "get_gnb_config")
	assert.Contains(t, tools, "get_gnb_logs")
	assert.Contains(t, tools, "start_gnb")
	assert.Contains(t, tools, "stop_gnb")
	assert.Contains(t, tools, "search_document")
	assert.IsIncreasing(t, tools)
}
