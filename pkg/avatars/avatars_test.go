package avatars

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestReplace_KeepsOnlyPNG(t *testing.T) {
	s := newTestStore(t)

	written, err := s.Replace("1234567890", []File{
		{Filename: "idle.png", Data: []byte("a")},
		{Filename: "notes.txt", Data: []byte("b")},
		{Filename: "talk.PNG", Data: []byte("c")},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("written=%v want the two png frames", written)
	}
}

func TestReplace_WipesPriorSet(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Replace("1234567890", []File{{Filename: "old.png", Data: []byte("x")}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if _, err := s.Replace("1234567890", []File{{Filename: "new.png", Data: []byte("y")}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	files, ok, err := s.List("1234567890")
	if err != nil || !ok {
		t.Fatalf("List: ok=%v err=%v", ok, err)
	}
	if len(files) != 1 || files[0].Filename != "new.png" {
		t.Fatalf("files=%v, prior upload survived", files)
	}
}

func TestList_NoUploads(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.List("1234567890")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if ok {
		t.Fatalf("ok=true for session with no uploads")
	}
}

func TestSessionDir_RejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"", "..", "../etc", "a/b", `a\b`} {
		if _, err := s.Replace(id, nil); err == nil {
			t.Fatalf("Replace(%q) accepted a path-escaping id", id)
		}
	}
}
