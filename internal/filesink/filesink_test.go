package filesink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sanjarbek1024/Demo-project/pkg/records"
)

func TestReplace_WritesCSV(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "cleaned"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tbl := records.NewTable("id", "name", "amount", "is_vip", "created_at")
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tbl.Append(records.Record{"id": int64(1), "name": "alice", "amount": 10.5, "is_vip": true, "created_at": ts})
	tbl.Append(records.Record{"id": int64(2), "name": nil, "amount": float64(0), "is_vip": false, "created_at": nil})

	if err := s.Replace("users", tbl); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "users.csv"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2", len(lines))
	}
	if lines[0] != "id,name,amount,is_vip,created_at" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "1,alice,10.5,true,2026-01-02T03:04:05Z" {
		t.Fatalf("line 1 = %q", lines[1])
	}
	if lines[2] != "2,,0,false," {
		t.Fatalf("line 2 = %q", lines[2])
	}
}

func TestReplace_OverwritesPrevious(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	big := records.NewTable("id")
	for i := 0; i < 10; i++ {
		big.Append(records.Record{"id": int64(i)})
	}
	if err := s.Replace("t", big); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	small := records.NewTable("id")
	small.Append(records.Record{"id": int64(1)})
	if err := s.Replace("t", small); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "t.csv"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want full replacement", len(lines))
	}
}

func TestReplace_NoStrayTempFiles(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tbl := records.NewTable("id")
	tbl.Append(records.Record{"id": int64(1)})
	if err := s.Replace("t", tbl); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "t.csv" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Fatalf("dir contents = %v, want only t.csv", names)
	}
}

func TestNew_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "cleaned")
	if _, err := New(dir); err != nil {
		t.Fatalf("New: %v", err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
}
