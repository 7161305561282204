package shell

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pocketdb/pocketdb/lib/store/pstore"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "", want: nil},
		{line: "   ", want: nil},
		{line: "get foo", want: []string{"get", "foo"}},
		{line: "set  foo   42", want: []string{"set", "foo", "42"}},
		{line: `set msg "hello world"`, want: []string{"set", "msg", "hello world"}},
		{line: `set msg 'hello world'`, want: []string{"set", "msg", "hello world"}},
		{line: `set cfg '{"a": 1, "b": [2, 3]}'`, want: []string{"set", "cfg", `{"a": 1, "b": [2, 3]}`}},
		{line: `set msg "she said \"hi\""`, want: []string{"set", "msg", `she said "hi"`}},
		{line: `set path C:\\tmp`, want: []string{"set", "path", `C:\tmp`}},
		{line: `set msg 'a\b'`, want: []string{"set", "msg", `a\b`}},
		{line: `set msg ""`, want: []string{"set", "msg", ""}},
		{line: `set msg "unterminated`, wantErr: true},
		{line: `set msg 'unterminated`, wantErr: true},
		{line: `set msg trailing\`, wantErr: true},
	}

	for _, test := range tests {
		got, err := splitArgs(test.line)
		if test.wantErr {
			if err == nil {
				t.Errorf("splitArgs(%q) expected error, got %v", test.line, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitArgs(%q) returned error: %v", test.line, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("splitArgs(%q) = %v, want %v", test.line, got, test.want)
		}
	}
}

// runScript feeds a scripted session into a fresh shell over a fresh store
// and returns everything the shell wrote.
func runScript(t *testing.T, script string) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "shell-test")
	s := pstore.New(&pstore.Options{Name: name})
	t.Cleanup(func() {
		if err := s.Shutdown(); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	})

	var out bytes.Buffer
	sh := New(s, name, strings.NewReader(script), &out)
	if err := sh.Run(); err != nil {
		t.Fatalf("shell returned error: %v", err)
	}
	return out.String()
}

func TestShellSession(t *testing.T) {
	out := runScript(t, `set greeting "hello world"
set answer 42
get greeting
get answer
get missing fallback
keys
size
del answer
del answer
exists greeting
exit
`)

	for _, want := range []string{
		`set "greeting" => "hello world"`,
		`set "answer" => 42`,
		// command output lands on the prompt line, hence the "> " prefix
		"> \"hello world\"\n", // strings display in their JSON form
		"> 42\n",
		"> \"fallback\"\n",
		"answer\ngreeting\n(2 keys)",
		"> 2\n",
		`deleted "answer"`,
		`key "answer" not found`,
		"> true\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("session output missing %q\noutput:\n%s", want, out)
		}
	}
}

func TestShellErrorsKeepLoopAlive(t *testing.T) {
	out := runScript(t, `bogus
get
get missing
set ok 1
get ok
exit
`)

	for _, want := range []string{
		`Error: unknown command "bogus"`,
		"Error: usage: get <key> [default]",
		`Error: PocketDBError (code KeyNotFound): key "missing" not found`,
		"> 1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("session output missing %q\noutput:\n%s", want, out)
		}
	}
}

func TestShellSetWithTTL(t *testing.T) {
	out := runScript(t, `set session token 3600
stats
exit
`)

	if !strings.Contains(out, `set "session" => "token" (ttl 3600 seconds)`) {
		t.Errorf("ttl confirmation missing from output:\n%s", out)
	}
	if !strings.Contains(out, "ttl_keys  : 1") {
		t.Errorf("stats should report one ttl key, output:\n%s", out)
	}
}

func TestShellClearNeedsConfirmation(t *testing.T) {
	out := runScript(t, `set foo 1
clear
n
size
clear
y
size
exit
`)

	if !strings.Contains(out, "aborted") {
		t.Errorf("declined clear should print aborted, output:\n%s", out)
	}
	if !strings.Contains(out, "store cleared") {
		t.Errorf("confirmed clear should print store cleared, output:\n%s", out)
	}
	if !strings.Contains(out, "> 0\n") {
		t.Errorf("store should be empty after confirmed clear, output:\n%s", out)
	}
}

func TestShellSaveLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "session.pdb")

	out := runScript(t, `set foo bar
save `+file+`
del foo
load `+file+`
get foo
exit
`)

	for _, want := range []string{
		"saved to", "loaded from", "> \"bar\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("session output missing %q\noutput:\n%s", want, out)
		}
	}
}

func TestShellHistory(t *testing.T) {
	out := runScript(t, `set a 1
size
history
exit
`)

	for _, want := range []string{
		"   1  set a 1",
		"   2  size",
		"   3  history",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q\noutput:\n%s", want, out)
		}
	}
}

func TestShellEOFExits(t *testing.T) {
	// no trailing exit, reader just runs dry
	out := runScript(t, "set a 1\n")
	if !strings.Contains(out, `set "a" => 1`) {
		t.Errorf("command before EOF should have run, output:\n%s", out)
	}
}
