// Package adversarial generates mutated attack paths for exercising
// the Evolutionary Agent against an adapting opponent rather than a
// static fixture: an Attacker that favors paths which have slipped
// past the Coordinator before, and diversifies away from paths that
// got blocked.
package adversarial

import (
	"math/rand"
	"strings"
)

// #region mutation

type mutationKind int

const (
	mutationObfuscation mutationKind = iota
	mutationStructural
	mutationSemantic
)

// synonyms is the semantic-substitution table: segments that look
// different on the wire but mean the same thing to the service behind
// them, the way a real attacker probing for permissive matching would
// try.
var synonyms = map[string][]string{
	"payload": {"data", "body", "content", "load"},
	"user":    {"usr", "client", "account", "member"},
	"admin":   {"root", "sys", "manager", "superuser"},
	"login":   {"signin", "auth", "access", "verify"},
}

var structuralFillers = []string{"v1", "api", "dummy", "x"}

// MutatePath returns a variant of path chosen from one of three
// strategies: obfuscation (case variation or an encoding-like
// suffix on one segment), structural (inserting or duplicating a
// segment), and semantic (swapping a segment for a known synonym).
// The path is split on "/" (not the engine's "." separator), and the
// result always carries a leading "/".
func MutatePath(rng *rand.Rand, path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || (len(segs) == 1 && segs[0] == "") {
		return path
	}

	switch mutationKind(rng.Intn(3)) {
	case mutationObfuscation:
		idx := rng.Intn(len(segs))
		if rng.Float64() < 0.5 {
			segs[idx] = randomizeCase(rng, segs[idx])
		} else {
			segs[idx] += "%00"
		}
	case mutationStructural:
		if rng.Float64() < 0.5 {
			filler := structuralFillers[rng.Intn(len(structuralFillers))]
			at := rng.Intn(len(segs) + 1)
			segs = insertAt(segs, at, filler)
		} else {
			idx := rng.Intn(len(segs))
			segs = insertAt(segs, idx, segs[idx])
		}
	case mutationSemantic:
		idx := rng.Intn(len(segs))
		if alts, ok := synonyms[strings.ToLower(segs[idx])]; ok {
			segs[idx] = alts[rng.Intn(len(alts))]
		}
	}

	return "/" + strings.Join(segs, "/")
}

func randomizeCase(rng *rand.Rand, s string) string {
	b := []byte(s)
	for i, c := range b {
		if rng.Float64() < 0.5 {
			b[i] = byte(strings.ToUpper(string(c))[0])
		} else {
			b[i] = byte(strings.ToLower(string(c))[0])
		}
	}
	return string(b)
}

func insertAt(segs []string, at int, v string) []string {
	out := make([]string, 0, len(segs)+1)
	out = append(out, segs[:at]...)
	out = append(out, v)
	out = append(out, segs[at:]...)
	return out
}

// MutateFeatures perturbs a feature vector to blend in with benign
// traffic: anomaly is nudged down 5-15%, entropy jittered +/-10%.
// Frequency is left alone — an attacker can shape payload shape and
// timing, not how often the mesh has seen a path historically.
func MutateFeatures(rng *rand.Rand, anomaly, entropy float64) (mutatedAnomaly, mutatedEntropy float64) {
	mutatedAnomaly = anomaly * (0.85 + rng.Float64()*0.10)
	mutatedEntropy = entropy * (0.9 + rng.Float64()*0.2)
	return mutatedAnomaly, mutatedEntropy
}

// #endregion mutation

// #region attacker

// Attack is one probe the Attacker wants run through the Coordinator.
type Attack struct {
	Path      string
	Anomaly   float64
	Entropy   float64
	Frequency float64
}

// Attacker tracks which mutated paths have slipped past the
// Coordinator (successful) and which got suppressed (blocked), and
// biases future attacks accordingly: explore new mutations when
// recently blocked, exploit a known-successful path otherwise.
type Attacker struct {
	rng        *rand.Rand
	basePaths  []string
	successful map[string]bool
	blocked    map[string]bool
	epsilon    float64
}

// NewAttacker seeds an Attacker against the given base attack paths.
func NewAttacker(seed int64, basePaths []string) *Attacker {
	return &Attacker{
		rng:        rand.New(rand.NewSource(seed)),
		basePaths:  basePaths,
		successful: make(map[string]bool),
		blocked:    make(map[string]bool),
		epsilon:    0.3,
	}
}

// ChooseAttack selects the next path and feature vector to probe the
// Coordinator with. With probability epsilon (or when nothing has
// succeeded yet) it mutates a base or previously-successful path;
// otherwise it replays a known-successful path with freshly jittered
// features.
func (a *Attacker) ChooseAttack() Attack {
	const baseAnomaly, baseEntropy, baseFrequency = 0.9, 0.8, 0.3

	if a.rng.Float64() < a.epsilon || len(a.successful) == 0 {
		pool := append(append([]string{}, a.basePaths...), a.successfulPaths()...)
		base := pool[a.rng.Intn(len(pool))]
		anomaly, entropy := MutateFeatures(a.rng, baseAnomaly, baseEntropy)
		return Attack{
			Path:      MutatePath(a.rng, base),
			Anomaly:   anomaly,
			Entropy:   entropy,
			Frequency: baseFrequency,
		}
	}

	paths := a.successfulPaths()
	path := paths[a.rng.Intn(len(paths))]
	anomaly, entropy := MutateFeatures(a.rng, baseAnomaly, baseEntropy)
	return Attack{Path: path, Anomaly: anomaly, Entropy: entropy, Frequency: baseFrequency}
}

// Learn records whether a probe was suppressed (success = false,
// meaning the Coordinator blocked or observed it and the path didn't
// get through) or slipped past. A block raises epsilon, pushing the
// Attacker back toward exploring new mutations; a success decays it,
// letting the Attacker settle into exploiting what works.
func (a *Attacker) Learn(path string, success bool) {
	if success {
		a.successful[path] = true
		delete(a.blocked, path)
		a.epsilon = max(0.1, a.epsilon*0.95)
		return
	}
	a.blocked[path] = true
	delete(a.successful, path)
	a.epsilon = min(0.8, a.epsilon*1.05)
}

func (a *Attacker) successfulPaths() []string {
	out := make([]string, 0, len(a.successful))
	for p := range a.successful {
		out = append(out, p)
	}
	return out
}

// #endregion attacker
