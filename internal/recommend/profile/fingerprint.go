// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// fingerprintVersion is mixed into every fingerprint so that a change to the
// record layout invalidates all cached scores.
const fingerprintVersion = "v1"

// contribution is what one title added to a profile.
type contribution struct {
	titleID    string
	weight     float64
	collection string
	values     [4][]string // indexed like recommend.Factors
}

// fingerprint hashes contributions, which must be sorted by title ID. Two
// profiles share a fingerprint iff every title contributed the same effective
// weight to the same attribute values.
func fingerprint(kind recommend.Kind, contributions []contribution) string {
	h := sha256.New()
	write(h, fingerprintVersion)
	write(h, string(kind))
	for i := range contributions {
		c := &contributions[i]
		write(h, c.titleID)
		write(h, strconv.FormatFloat(c.weight, 'g', -1, 64))
		write(h, c.collection)
		for _, values := range c.values {
			write(h, strconv.Itoa(len(values)))
			for _, v := range values {
				write(h, v)
			}
		}
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// write appends a length-prefixed field so adjacent fields cannot collide.
func write(h hash.Hash, s string) {
	_, _ = h.Write([]byte(strconv.Itoa(len(s))))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(s))
}
