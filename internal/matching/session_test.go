package matching

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/felixgeelhaar/palabras/internal/content"
)

func words(prefix string, n int) []content.WordEntry {
	out := make([]content.WordEntry, n)
	for i := range out {
		out[i] = content.WordEntry{
			Spanish: fmt.Sprintf("%s-es-%d", prefix, i),
			Russian: fmt.Sprintf("%s-ru-%d", prefix, i),
		}
	}
	return out
}

func newSession(t *testing.T, n int) *Session {
	t.Helper()
	s, err := Start("unidad_1", "familia", words("fam", n), words("other", 4), rand.New(rand.NewPCG(7, 9)))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s
}

// rightFor finds the right card matching left card l
func rightFor(s *Session, l int) int {
	want := s.left[l].word
	for i, b := range s.right {
		if !b.retired && !b.decoy && b.word.Same(want) {
			return i
		}
	}
	return -1
}

func decoyIndex(s *Session) int {
	for i, b := range s.right {
		if b.decoy && !b.retired {
			return i
		}
	}
	return -1
}

// wrongRight finds a live genuine right card not matching left card l
func wrongRight(s *Session, l int) int {
	for i, b := range s.right {
		if !b.retired && !b.decoy && !b.word.Same(s.left[l].word) {
			return i
		}
	}
	return -1
}

func TestStart_Layout(t *testing.T) {
	s := newSession(t, 5)

	if len(s.LeftCards()) != 5 {
		t.Errorf("len(LeftCards()) = %d, want 5", len(s.LeftCards()))
	}
	if len(s.RightCards()) != 5+DecoyCount {
		t.Errorf("len(RightCards()) = %d, want %d", len(s.RightCards()), 5+DecoyCount)
	}

	decoys := 0
	for _, c := range s.RightCards() {
		if c.Decoy {
			decoys++
		}
	}
	if decoys != DecoyCount {
		t.Errorf("decoys = %d, want %d", decoys, DecoyCount)
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
}

func TestStart_Errors(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 1))

	if _, err := Start("u", "g", nil, words("o", 3), rnd); !errors.Is(err, ErrEmptyGroup) {
		t.Errorf("Start(no words) error = %v, want ErrEmptyGroup", err)
	}
	if _, err := Start("u", "g", words("g", 3), words("o", 1), rnd); !errors.Is(err, ErrNotEnoughDecoys) {
		t.Errorf("Start(one decoy) error = %v, want ErrNotEnoughDecoys", err)
	}

	// pool entries equal to group words do not count as decoys
	group := words("g", 3)
	pool := append(words("g", 3), words("o", 1)...)
	if _, err := Start("u", "g", group, pool, rnd); !errors.Is(err, ErrNotEnoughDecoys) {
		t.Errorf("Start(overlapping pool) error = %v, want ErrNotEnoughDecoys", err)
	}
}

func TestStartGroup(t *testing.T) {
	unit := &content.Unit{
		ID: "unidad_1",
		Groups: []content.Group{
			{Name: "familia", Words: words("fam", 4)},
			{Name: "colores", Words: words("col", 3)},
		},
	}
	rnd := rand.New(rand.NewPCG(3, 4))

	s, err := StartGroup(unit, "familia", rnd)
	if err != nil {
		t.Fatalf("StartGroup() error = %v", err)
	}
	for _, b := range s.right {
		if b.decoy && !containsWord(unit.Groups[1].Words, b.word) {
			t.Errorf("decoy %+v not from another group", b.word)
		}
	}

	if _, err := StartGroup(unit, "nope", rnd); !errors.Is(err, content.ErrGroupNotFound) {
		t.Errorf("StartGroup(nope) error = %v, want ErrGroupNotFound", err)
	}

	lonely := &content.Unit{ID: "u", Groups: []content.Group{{Name: "solo", Words: words("s", 3)}}}
	if _, err := StartGroup(lonely, "solo", rnd); !errors.Is(err, ErrNotEnoughDecoys) {
		t.Errorf("StartGroup(single group) error = %v, want ErrNotEnoughDecoys", err)
	}
}

func TestSelect_CorrectPair(t *testing.T) {
	s := newSession(t, 3)

	if _, ok := s.Select(Left, 0); ok {
		t.Fatal("one selection should not resolve")
	}
	if s.State() != StateOneSelected {
		t.Errorf("State() = %v, want one_selected", s.State())
	}

	r := rightFor(s, 0)
	res, ok := s.Select(Right, r)
	if !ok {
		t.Fatal("second selection should resolve")
	}
	if res.Outcome != OutcomeCorrect || !res.LeftRetired {
		t.Errorf("resolution = %+v, want correct", res)
	}
	if !s.left[0].retired || !s.right[r].retired {
		t.Error("both cards should be retired")
	}
	if s.Resolved() != 1 || s.Correct() != 1 {
		t.Errorf("Resolved() = %d, Correct() = %d, want 1, 1", s.Resolved(), s.Correct())
	}
}

func TestSelect_DecoyMiss(t *testing.T) {
	s := newSession(t, 3)

	d := decoyIndex(s)
	s.Select(Right, d)
	res, ok := s.Select(Left, 1)
	if !ok {
		t.Fatal("pair should resolve")
	}
	if res.Outcome != OutcomeDecoy {
		t.Errorf("Outcome = %v, want decoy", res.Outcome)
	}
	if res.LeftRetired || s.left[1].retired {
		t.Error("a decoy miss must not retire the left card")
	}
	if !s.right[d].retired {
		t.Error("the decoy should be retired")
	}
	if s.Resolved() != 0 {
		t.Errorf("Resolved() = %d, want 0 after a decoy", s.Resolved())
	}

	s.Settle()
	if _, ok := s.Select(Left, 1); ok {
		t.Error("single selection should not resolve")
	}
	if s.LeftCards()[1].Selected != true {
		t.Error("left card should be selectable again after a decoy miss")
	}
}

func TestSelect_GenuineMismatch(t *testing.T) {
	s := newSession(t, 3)

	wrong := wrongRight(s, 0)
	truth := rightFor(s, 0)
	s.Select(Left, 0)
	res, _ := s.Select(Right, wrong)

	if res.Outcome != OutcomeMismatch {
		t.Fatalf("Outcome = %v, want mismatch", res.Outcome)
	}
	if !s.left[0].retired {
		t.Error("mismatch should retire the left card")
	}
	if !s.right[truth].retired {
		t.Error("mismatch should retire the left card's true match")
	}
	if s.right[wrong].retired {
		t.Error("the clicked right card should stay on the board")
	}
	if len(res.RetiredRight) != 1 || res.RetiredRight[0] != truth {
		t.Errorf("RetiredRight = %v, want [%d]", res.RetiredRight, truth)
	}
	if s.Resolved() != 1 || s.Correct() != 0 {
		t.Errorf("Resolved() = %d, Correct() = %d, want 1, 0", s.Resolved(), s.Correct())
	}
}

func TestSelect_ReplacesSameSide(t *testing.T) {
	s := newSession(t, 3)

	s.Select(Left, 0)
	s.Select(Left, 2)
	if s.selLeft != 2 {
		t.Errorf("selected left = %d, want 2", s.selLeft)
	}

	res, _ := s.Select(Right, rightFor(s, 2))
	if res.Left != 2 || res.Outcome != OutcomeCorrect {
		t.Errorf("resolution = %+v, want correct on left 2", res)
	}
}

func TestSelect_IgnoredWhileSettling(t *testing.T) {
	s := newSession(t, 3)

	s.Select(Left, 0)
	s.Select(Right, rightFor(s, 0))
	if s.State() != StateSettling {
		t.Fatalf("State() = %v, want settling", s.State())
	}

	if _, ok := s.Select(Left, 1); ok {
		t.Error("click while settling should be ignored")
	}
	if s.selLeft != -1 {
		t.Error("click while settling should not select")
	}

	s.Settle()
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
}

func TestSelect_IgnoresRetiredAndOutOfRange(t *testing.T) {
	s := newSession(t, 3)

	s.Select(Left, 0)
	s.Select(Right, rightFor(s, 0))
	s.Settle()

	if _, ok := s.Select(Left, 0); ok || s.selLeft != -1 {
		t.Error("retired left card should not be selectable")
	}
	if _, ok := s.Select(Right, 99); ok || s.selRight != -1 {
		t.Error("out of range card should not be selectable")
	}
}

func TestSession_ResolvedCountInvariant(t *testing.T) {
	s := newSession(t, 6)

	steps := 0
	for !s.Done() {
		before := s.Resolved()
		l := -1
		for i, b := range s.left {
			if !b.retired {
				l = i
				break
			}
		}

		var res Resolution
		switch steps % 3 {
		case 0:
			s.Select(Left, l)
			res, _ = s.Select(Right, rightFor(s, l))
		case 1:
			if d := decoyIndex(s); d >= 0 {
				s.Select(Left, l)
				res, _ = s.Select(Right, d)
				break
			}
			fallthrough
		default:
			if w := wrongRight(s, l); w >= 0 {
				s.Select(Left, l)
				res, _ = s.Select(Right, w)
			} else {
				s.Select(Left, l)
				res, _ = s.Select(Right, rightFor(s, l))
			}
		}
		s.Settle()

		want := before + 1
		if res.Outcome == OutcomeDecoy {
			want = before
		}
		if s.Resolved() != want {
			t.Fatalf("step %d (%v): Resolved() = %d, want %d", steps, res.Outcome, s.Resolved(), want)
		}
		steps++
		if steps > 20 {
			t.Fatal("game did not terminate")
		}
	}

	if s.State() != StateTerminal {
		t.Errorf("State() = %v, want terminal", s.State())
	}
	if _, ok := s.Select(Left, 0); ok {
		t.Error("clicks after the end should be ignored")
	}
}

func TestSession_Score(t *testing.T) {
	s := newSession(t, 3)

	// two correct, one mismatch
	for i := 0; i < 2; i++ {
		s.Select(Left, i)
		s.Select(Right, rightFor(s, i))
		s.Settle()
	}
	s.Select(Left, 2)
	s.Select(Right, decoyIndex(s))
	s.Settle()
	if s.Done() {
		t.Fatal("a decoy miss should not finish the game")
	}
	s.Select(Left, 2)
	s.Select(Right, decoyIndex(s))
	s.Settle()

	// only genuine cards left; the last left card must resolve against its match
	s.Select(Left, 2)
	res, _ := s.Select(Right, rightFor(s, 2))
	if res.Outcome != OutcomeCorrect {
		t.Fatalf("Outcome = %v, want correct", res.Outcome)
	}

	if !s.Done() {
		t.Fatal("Done() = false")
	}
	if s.Score() != 100 {
		t.Errorf("Score() = %d, want 100", s.Score())
	}
}

func TestSession_ScoreWithMismatch(t *testing.T) {
	s := newSession(t, 3)

	s.Select(Left, 0)
	s.Select(Right, wrongRight(s, 0))
	s.Settle()
	for i := 1; i < 3; i++ {
		s.Select(Left, i)
		s.Select(Right, rightFor(s, i))
		s.Settle()
	}

	if !s.Done() {
		t.Fatal("Done() = false")
	}
	if s.Score() != 67 {
		t.Errorf("Score() = %d, want 67", s.Score())
	}
}
