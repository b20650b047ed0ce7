//
// Copyright 2023 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package rand provides randomness sources for the noise mechanisms of the
// anonymization pipeline.
//
// Every noise-consuming operation takes an explicit *Source rather than
// drawing from a process-wide generator. Parallel workers must each hold
// their own Source (see Fork) so that noise drawn concurrently stays
// independent; correlated noise across attribute anonymizations would break
// the composition guarantee.
package rand

import (
	"bufio"
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math"
	"math/bits"
	mathrand "math/rand"
	"sync"

	log "github.com/golang/glog"
)

// Source produces the uniform random primitives the noise mechanisms
// consume. A Source is safe for use by a single goroutine; hand each worker
// its own via Fork.
type Source struct {
	mu sync.Mutex

	// Exactly one of buf and prng is set. buf reads buffered entropy from
	// crypto/rand; prng is a seeded deterministic generator.
	buf  io.Reader
	prng *mathrand.Rand
	seed int64

	bitBuf uint8
	bitPos int8
}

// NewSecureSource returns a Source backed by buffered reads from
// crypto/rand. This is the source production runs must use.
func NewSecureSource() *Source {
	return &Source{
		buf:    bufio.NewReaderSize(cryptorand.Reader, 65536),
		bitPos: math.MaxInt8,
	}
}

// NewSeededSource returns a deterministic Source for reproducible runs and
// tests. It is not suitable for releasing data: its output is predictable
// from the seed.
func NewSeededSource(seed int64) *Source {
	return &Source{
		prng:   mathrand.New(mathrand.NewSource(seed)),
		seed:   seed,
		bitPos: math.MaxInt8,
	}
}

// Fork derives an independent Source for worker i. Forking a secure source
// yields a fresh secure source; forking a seeded source yields a seeded
// source whose stream is a deterministic function of (seed, i).
func (s *Source) Fork(i int64) *Source {
	if s.prng == nil {
		return NewSecureSource()
	}
	return NewSeededSource(int64(splitmix64(uint64(s.seed) + uint64(i)*0x9e3779b97f4a7c15)))
}

// U64 returns a uniformly random uint64.
func (s *Source) U64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prng != nil {
		return s.prng.Uint64()
	}
	var r [8]uint8
	if _, err := io.ReadFull(s.buf, r[:]); err != nil {
		log.Fatalf("out of randomness, should never happen: %v", err)
	}
	return binary.LittleEndian.Uint64(r[:])
}

// U8 returns a uniformly random uint8.
func (s *Source) U8() uint8 {
	return uint8(s.U64())
}

// Sign returns +1.0 or -1.0 with equal probabilities.
func (s *Source) Sign() float64 {
	if s.Boolean() {
		return 1.0
	}
	return -1.0
}

// Boolean returns true or false with equal probability.
func (s *Source) Boolean() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bitPos > 7 { // Out of random bits.
		if s.prng != nil {
			s.bitBuf = uint8(s.prng.Uint64())
		} else {
			var r [1]uint8
			if _, err := io.ReadFull(s.buf, r[:]); err != nil {
				log.Fatalf("out of randomness, should never happen: %v", err)
			}
			s.bitBuf = r[0]
		}
		s.bitPos = 0
	}
	res := s.bitBuf&(1<<s.bitPos) > 0
	s.bitPos++
	return res
}

// I63n returns an integer from the set {0,...,n-1} uniformly at random.
// The value of n must be positive.
func (s *Source) I63n(n int64) int64 {
	largestMultipleOfN := (math.MaxInt64 / n) * n
	var positiveRandomInteger int64
	for {
		// Draw a random 64 bit sequence and set the sign bit to 0.
		positiveRandomInteger = int64(s.U64()) & 0x7fffffffffffffff
		if positiveRandomInteger < largestMultipleOfN {
			break
		}
	}
	return positiveRandomInteger % n
}

// Uniform returns a float64 from the interval (0,1] such that each float
// in the interval is returned with positive probability and the resulting
// distribution simulates a continuous uniform distribution on (0, 1].
func (s *Source) Uniform() float64 {
	i := s.U64() % (1 << 53)
	r := (1 + float64(i)/(1<<53)) / math.Pow(2, s.Geometric())
	// We want to avoid returning 0, since callers take the log of the output.
	if r == 0 {
		return 1
	}
	return r
}

// Geometric returns a float64 that counts the number of Bernoulli trials
// until the first success for a success probability of 0.5.
func (s *Source) Geometric() float64 {
	// 1 plus the number of leading zeros from an infinite stream of random
	// bits follows the desired geometric distribution.
	b := 1
	var r uint8
	for r == 0 {
		r = s.U8()
		b += bits.LeadingZeros8(r)
	}
	return float64(b)
}

// splitmix64 is the SplitMix64 output function; it decorrelates the per-fork
// seeds so that consecutive worker indices do not produce overlapping
// math/rand streams.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
