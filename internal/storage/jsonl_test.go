package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
)

func TestJsonlSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "decisions.jsonl")
	sink := NewJsonlSink(path)

	first := []model.FeeDecision{{Pool: "0xaa", FeeBps: 5, Tier: "low"}}
	second := []model.FeeDecision{
		{Pool: "0xaa", FeeBps: 60, Tier: "high", RiskScore: 255},
		{Pool: "0xbb", FeeBps: 20, Tier: "medium"},
	}

	if err := sink.PutDecisions(context.Background(), first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := sink.PutDecisions(context.Background(), second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var lines []model.FeeDecision
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var d model.FeeDecision
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			t.Fatalf("parse line: %v", err)
		}
		lines = append(lines, d)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[1].RiskScore != 255 || lines[1].Tier != "high" {
		t.Fatalf("second line mismatch: %+v", lines[1])
	}
}

func TestJsonlSinkEmptyBatchNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	sink := NewJsonlSink(path)

	if err := sink.PutDecisions(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty batch must not create the file")
	}
}
