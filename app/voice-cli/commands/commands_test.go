package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

type recordingKeys struct{ got []string }

func (r *recordingKeys) Select(_ context.Context, key string) error {
	r.got = append(r.got, key)
	return nil
}

func TestPromptSelectorReadsOneLinePerCall(t *testing.T) {
	var out bytes.Buffer
	keys := &recordingKeys{}
	sel := promptSelector(strings.NewReader("first\nsecond"), &out, newStyles(&out), keys)

	for i := 0; i < 2; i++ {
		if err := sel(context.Background()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if len(keys.got) != 2 || keys.got[0] != "first\n" || keys.got[1] != "second" {
		t.Errorf("selected = %q", keys.got)
	}
	if !strings.Contains(out.String(), "API key:") {
		t.Errorf("prompt missing: %q", out.String())
	}

	if err := sel(context.Background()); err == nil {
		t.Error("exhausted input should fail")
	}
}

func TestPrinterTurnsAndDone(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, newStyles(&out))

	p.OnState(voice.StateOpen, "")
	p.OnTurn(voice.Turn{User: " hi ", AI: "hello there"})
	p.OnTurn(voice.Turn{AI: "only model"})

	select {
	case <-p.Done():
		t.Fatal("done before close")
	default:
	}

	p.OnState(voice.StateError, voice.MsgSessionNetwork)
	p.OnState(voice.StateClosed, "")
	<-p.Done()

	got := out.String()
	for _, want := range []string{"Listening.", "You: hi", "DocuVoice: hello there", "DocuVoice: only model", voice.MsgSessionNetwork} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "You:") != 1 {
		t.Errorf("empty user text should not print:\n%s", got)
	}
}

func TestReadPDF(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	tests := []struct {
		name    string
		path    string
		max     int64
		wantErr bool
	}{
		{"ok", write("a.pdf", pdf), 0, false},
		{"upper ext", write("B.PDF", pdf), 1 << 20, false},
		{"wrong ext", write("a.txt", pdf), 0, true},
		{"not pdf", write("c.pdf", []byte("hello world")), 0, true},
		{"empty", write("d.pdf", nil), 0, true},
		{"too large", write("e.pdf", pdf), 4, true},
		{"missing", filepath.Join(dir, "nope.pdf"), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := readPDF(tt.path, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !bytes.Equal(data, pdf) {
				t.Errorf("data mismatch")
			}
		})
	}
}

func TestSaveToFileCreatesDirs(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "sum.md")
	if err := saveToFile(p, []byte("# s")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "# s" {
		t.Fatalf("read back %q, %v", b, err)
	}
	if err := saveToFile(filepath.Join(p, "x"), nil); err == nil {
		t.Error("writing under a file should fail")
	}
}
