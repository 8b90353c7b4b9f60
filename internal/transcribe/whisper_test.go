package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestWhisperCLITranscribes(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "whisper.sh", `#!/usr/bin/env bash
echo " hello there"
echo "[BLANK_AUDIO]"
echo "general kenobi "
`)

	cli := NewWhisperCLI(script, "", nil, time.Second, zerolog.Nop())
	text, err := cli.Transcribe(context.Background(), "/tmp/chunk.wav", "en")
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "hello there general kenobi" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestWhisperCLIPassesArguments(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "args.sh", "#!/usr/bin/env bash\necho \"$@\"\n")

	cli := NewWhisperCLI(script, "/models/base.bin", []string{"--threads", "4"}, time.Second, zerolog.Nop())
	text, err := cli.Transcribe(context.Background(), "/tmp/chunk.wav", "de")
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	for _, want := range []string{"--no-timestamps", "--model /models/base.bin", "--language de", "--threads 4", "/tmp/chunk.wav"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in args, got %q", want, text)
		}
	}
}

func TestWhisperCLIReportsFailureWithStderr(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'model not found' 1>&2\nexit 2\n")

	cli := NewWhisperCLI(script, "", nil, time.Second, zerolog.Nop())
	_, err := cli.Transcribe(context.Background(), "/tmp/chunk.wav", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected stderr in error, got: %v", err)
	}
}

func TestWhisperCLIHonorsTimeout(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "slow.sh", "#!/usr/bin/env bash\nsleep 30\n")

	cli := NewWhisperCLI(script, "", nil, 100*time.Millisecond, zerolog.Nop())
	start := time.Now()
	_, err := cli.Transcribe(context.Background(), "/tmp/chunk.wav", "")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"hello\nworld\n", "hello world"},
		{"\n\n  spaced  \n", "spaced"},
		{"[BLANK_AUDIO]\n", ""},
		{"keep\n [BLANK_AUDIO] \nthis\n", "keep this"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := extractText(tc.in); got != tc.want {
			t.Fatalf("extractText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
