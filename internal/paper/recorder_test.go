package paper

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"perpbot-go/internal/execution"
)

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fills.jsonl")

	recorder, err := NewJSONLRecorder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	want := execution.Fill{TxID: "dry-1", Symbol: "ETH", Side: execution.Buy, Qty: 1, Price: 1000, ReduceOnly: true}
	recorder.Record(want)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded execution.Fill
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.TxID != want.TxID || decoded.Side != want.Side || !decoded.ReduceOnly {
		t.Fatalf("unexpected decoded fill %+v", decoded)
	}
}

func TestJSONLRecorderAfterClose(t *testing.T) {
	var buf bytes.Buffer
	recorder, err := NewJSONLRecorder(filepath.Join(t.TempDir(), "fills.jsonl"), zerolog.New(&buf))
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	_ = recorder.Close()
	recorder.Record(execution.Fill{TxID: "dry-2"})
	if !strings.Contains(buf.String(), "recorder closed") {
		t.Fatalf("expected warning, got %s", buf.String())
	}
	if _, err := NewJSONLRecorder("", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
