package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
)

// sha256Hex returns the hex SHA-256 of s.
func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// leaves returns n distinct valid digests.
func leaves(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = sha256Hex(fmt.Sprintf("leaf-%d", i))
	}
	return out
}

const (
	digestX = "2d711642b726b04401627ca9fbac32f5c8530fb1903cc4db02258717921a4881"
	digestY = "a1fce4363854ff888cff4b8e7875d600c2682390412a8cf79b37d0b11148b0fa"
	digestZ = "594e519ae499312b29433b7dd8a97ff068defcba9755b6d5d00e84c524d67b06"
)

func TestBuildMerkleRoot_KnownVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		digests []string
		want    string
	}{
		{
			name:    "single leaf is its own root",
			digests: []string{digestX},
			want:    digestX,
		},
		{
			name:    "two leaves hash the concatenated hex strings",
			digests: []string{digestX, digestY},
			want:    "80d888481399c652ab6f09cdee09a96f9f7b665b7758a573275ca76a536e5e5f",
		},
		{
			name:    "three leaves duplicate the last one",
			digests: []string{digestX, digestY, digestZ},
			want:    "69bbe6b048f021d302f922c7fa937101660312bbe7677347b81c8c5fb01fbba3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildMerkleRoot(tt.digests)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("root = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildMerkleRoot_TwoLeavesMatchesDefinition(t *testing.T) {
	t.Parallel()

	a := sha256Hex("x")
	b := sha256Hex("y")
	if a != digestX || b != digestY {
		t.Fatalf("fixture digests drifted: %s %s", a, b)
	}

	got, err := BuildMerkleRoot([]string{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The pair is hashed over the UTF-8 bytes of the hex strings.
	if want := sha256Hex(a + b); got != want {
		t.Errorf("root = %s, want sha256(a_hex||b_hex) = %s", got, want)
	}

	// And explicitly not over the raw binary digests.
	rawA, _ := hex.DecodeString(a)
	rawB, _ := hex.DecodeString(b)
	raw := sha256.Sum256(append(rawA, rawB...))
	if got == hex.EncodeToString(raw[:]) {
		t.Error("root must not equal the hash of the concatenated binary digests")
	}
}

func TestBuildMerkleRoot_OddNodeDuplication(t *testing.T) {
	t.Parallel()

	d := leaves(3)
	a, b, c := d[0], d[1], d[2]

	got, err := BuildMerkleRoot(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := sha256Hex(sha256Hex(a+b) + sha256Hex(c+c))
	if got != want {
		t.Errorf("root([a,b,c]) = %s, want H(H(a+b)+H(c+c)) = %s", got, want)
	}

	padded, err := BuildMerkleRoot([]string{a, b, c, c})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != padded {
		t.Errorf("root([a,b,c]) = %s, root([a,b,c,c]) = %s; want equal", got, padded)
	}
}

func TestBuildMerkleRoot_FiveLeaves(t *testing.T) {
	t.Parallel()

	d := leaves(5)

	// Level 1: [H(0+1), H(2+3), H(4+4)] is odd and pads again.
	l1 := []string{sha256Hex(d[0] + d[1]), sha256Hex(d[2] + d[3]), sha256Hex(d[4] + d[4])}
	l2 := []string{sha256Hex(l1[0] + l1[1]), sha256Hex(l1[2] + l1[2])}
	want := sha256Hex(l2[0] + l2[1])

	got, err := BuildMerkleRoot(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("root = %s, want %s", got, want)
	}
}

func TestBuildMerkleRoot_Determinism(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 4, 7, 16, 33, 100} {
		t.Run(fmt.Sprintf("%d leaves", n), func(t *testing.T) {
			t.Parallel()

			d := leaves(n)
			first, err := BuildMerkleRoot(d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			second, err := BuildMerkleRoot(d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if first != second {
				t.Errorf("roots differ across calls: %s vs %s", first, second)
			}
			if len(first) != DigestLength {
				t.Errorf("root length = %d, want %d", len(first), DigestLength)
			}
			if first != strings.ToLower(first) {
				t.Errorf("root %s is not lowercase", first)
			}
		})
	}
}

func TestBuildMerkleRoot_OrderSensitivity(t *testing.T) {
	t.Parallel()

	d := leaves(3)
	reversed := slices.Clone(d)
	slices.Reverse(reversed)

	forward, err := BuildMerkleRoot(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backward, err := BuildMerkleRoot(reversed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forward == backward {
		t.Errorf("reversing the leaves did not change the root %s", forward)
	}

	swapped := []string{d[1], d[0], d[2]}
	swappedRoot, err := BuildMerkleRoot(swapped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forward == swappedRoot {
		t.Error("swapping the first two leaves did not change the root")
	}
}

func TestBuildMerkleRoot_CaseNormalization(t *testing.T) {
	t.Parallel()

	t.Run("uppercase single leaf is lowercased", func(t *testing.T) {
		t.Parallel()

		got, err := BuildMerkleRoot([]string{strings.ToUpper(digestX)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != digestX {
			t.Errorf("root = %s, want %s", got, digestX)
		}
	})

	t.Run("mixed case batch matches lowercase batch", func(t *testing.T) {
		t.Parallel()

		lower := leaves(4)
		mixed := []string{strings.ToUpper(lower[0]), lower[1], strings.ToUpper(lower[2]), lower[3]}

		want, err := BuildMerkleRoot(lower)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := BuildMerkleRoot(mixed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("mixed-case root = %s, want %s", got, want)
		}
	})
}

func TestBuildMerkleRoot_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	d := leaves(3)
	d[0] = strings.ToUpper(d[0])
	before := slices.Clone(d)

	// Spare capacity would expose an in-place append of the padding node.
	withCap := make([]string, len(d), len(d)+4)
	copy(withCap, d)

	if _, err := BuildMerkleRoot(withCap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(withCap, before) {
		t.Errorf("input modified: got %v, want %v", withCap, before)
	}
	if extra := withCap[:cap(withCap)][len(before)]; extra != "" {
		t.Errorf("input backing array written past len: %q", extra)
	}
}

func TestBuildMerkleRoot_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		digests []string
	}{
		{name: "nil slice", digests: nil},
		{name: "empty slice", digests: []string{}},
		{name: "short digest", digests: []string{"abc123"}},
		{name: "long digest", digests: []string{digestX + "00"}},
		{name: "non-hex characters", digests: []string{strings.Repeat("g", DigestLength)}},
		{name: "empty string element", digests: []string{digestX, ""}},
		{name: "malformed among valid", digests: []string{digestX, digestY, "not-a-digest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root, err := BuildMerkleRoot(tt.digests)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if root != "" {
				t.Errorf("expected empty root on error, got %q", root)
			}
		})
	}
}

func TestBuildMerkleRoot_ConcurrentUse(t *testing.T) {
	t.Parallel()

	d := leaves(10)
	want, err := BuildMerkleRoot(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = BuildMerkleRoot(d)
		}()
	}
	wg.Wait()

	for i, got := range results {
		if got != want {
			t.Errorf("goroutine %d: root = %s, want %s", i, got, want)
		}
	}
}

func TestNormalizeDigest(t *testing.T) {
	t.Parallel()

	got, err := NormalizeDigest("ABCDEF" + digestX[6:])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "abcdef" + digestX[6:]; got != want {
		t.Errorf("NormalizeDigest = %s, want %s", got, want)
	}

	if _, err := NormalizeDigest("xyz"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
