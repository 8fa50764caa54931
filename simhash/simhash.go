// Package simhash fingerprints page text so near-duplicate pages can be
// recognised across pagination.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Fingerprint computes a 64-bit SimHash of text over lowercased word
// bigrams, falling back to single words for one-word input.
func Fingerprint(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))
	switch len(words) {
	case 0:
		return 0
	case 1:
		return hashOf(words[0])
	}

	var vector [64]int
	for i := 0; i+1 < len(words); i++ {
		h := hashOf(words[i] + " " + words[i+1])
		for b := 0; b < 64; b++ {
			if h&(1<<uint(b)) != 0 {
				vector[b]++
			} else {
				vector[b]--
			}
		}
	}

	var fp uint64
	for b := 0; b < 64; b++ {
		if vector[b] > 0 {
			fp |= 1 << uint(b)
		}
	}
	return fp
}

func hashOf(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are within threshold bits of each other.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Set remembers fingerprints of pages already seen. The zero value is
// ready to use and treats only identical fingerprints as duplicates.
type Set struct {
	Threshold int
	prints    []uint64
}

// Seen reports whether fp is near a fingerprint already in the set and
// adds it when it is not. Empty text (fingerprint 0) is never a duplicate.
func (s *Set) Seen(fp uint64) bool {
	if fp == 0 {
		return false
	}
	for _, p := range s.prints {
		if Similar(p, fp, s.Threshold) {
			return true
		}
	}
	s.prints = append(s.prints, fp)
	return false
}
