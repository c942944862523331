package transcript

import (
	"strings"

	"github.com/google/uuid"
)

// Kind selects the similarity cutoff and the no-match policy for one
// class of candidate.
type Kind string

const (
	KindMember  Kind = "member"
	KindProject Kind = "project"
	KindTopic   Kind = "topic"
)

// Default ratio cutoffs per kind. Member names are higher-value and
// tend to be misspelled consistently; project and topic phrasing varies
// more but a false merge there costs less.
const (
	DefaultMemberCutoff  = 0.70
	DefaultProjectCutoff = 0.60
	DefaultTopicCutoff   = 0.70
)

const (
	OutcomeMatched    = "matched"
	OutcomeCreate     = "create"
	OutcomeUnresolved = "unresolved"
)

const (
	ReasonNoMatch   = "no_match"
	ReasonAmbiguous = "ambiguous"
)

// Record is one canonical entity in the snapshot the resolver works
// against. The snapshot is read once per resolution pass and passed in
// explicitly so resolution stays deterministic.
type Record struct {
	ID      uuid.UUID
	Name    string
	Aliases []string
}

// Outcome classifies a candidate: matched to an existing record, to be
// created (projects and topics only), or unresolved with a reason.
// BestScore and Nearest describe the closest record even when it did
// not clear the cutoff, so near-duplicate creations can be reported.
type Outcome struct {
	Class     string
	ID        uuid.UUID
	Name      string
	Reason    string
	BestScore float64
	Nearest   string
}

type Resolver struct {
	cutoffs map[Kind]float64
}

func NewResolver() *Resolver {
	return &Resolver{cutoffs: map[Kind]float64{
		KindMember:  DefaultMemberCutoff,
		KindProject: DefaultProjectCutoff,
		KindTopic:   DefaultTopicCutoff,
	}}
}

func (r *Resolver) SetCutoff(kind Kind, cutoff float64) {
	r.cutoffs[kind] = cutoff
}

func (r *Resolver) Cutoff(kind Kind) float64 {
	return r.cutoffs[kind]
}

// Resolve maps one candidate string against the snapshot. Cutoffs are
// boundary-inclusive. Members are never auto-created: a person must
// already be in the roster.
func (r *Resolver) Resolve(candidate string, kind Kind, records []Record) Outcome {
	normalized := Normalize(candidate)
	if normalized == "" {
		return Outcome{Class: OutcomeUnresolved, Name: candidate, Reason: ReasonNoMatch}
	}
	cutoff := r.cutoffs[kind]

	type scored struct {
		record Record
		score  float64
		exact  bool
	}

	var (
		best      []scored
		bestScore float64
		nearest   string
	)
	const eps = 1e-9

	for _, rec := range records {
		score := 0.0
		exact := false
		names := append([]string{rec.Name}, rec.Aliases...)
		for i, name := range names {
			s := similarityRatio(normalized, Normalize(name))
			if s > score {
				score = s
			}
			if i == 0 && strings.EqualFold(normalized, Normalize(name)) {
				exact = true
			}
		}
		if score > bestScore {
			bestScore = score
			nearest = rec.Name
		}
		if score+eps < cutoff {
			continue
		}
		best = append(best, scored{record: rec, score: score, exact: exact})
	}

	if len(best) == 0 {
		if kind == KindMember {
			return Outcome{Class: OutcomeUnresolved, Name: candidate, Reason: ReasonNoMatch, BestScore: bestScore, Nearest: nearest}
		}
		return Outcome{Class: OutcomeCreate, Name: normalized, BestScore: bestScore, Nearest: nearest}
	}

	// An exact case-insensitive full-name match beats any alias match.
	var exacts []scored
	for _, s := range best {
		if s.exact {
			exacts = append(exacts, s)
		}
	}
	if len(exacts) == 1 {
		e := exacts[0]
		return Outcome{Class: OutcomeMatched, ID: e.record.ID, Name: e.record.Name, BestScore: e.score}
	}
	if len(exacts) > 1 {
		return Outcome{Class: OutcomeUnresolved, Name: candidate, Reason: ReasonAmbiguous, BestScore: bestScore, Nearest: nearest}
	}

	top := best[0]
	tied := false
	for _, s := range best[1:] {
		if s.score > top.score+eps {
			top = s
			tied = false
		} else if s.score+eps >= top.score {
			tied = true
		}
	}
	if tied {
		return Outcome{Class: OutcomeUnresolved, Name: candidate, Reason: ReasonAmbiguous, BestScore: bestScore, Nearest: nearest}
	}
	return Outcome{Class: OutcomeMatched, ID: top.record.ID, Name: top.record.Name, BestScore: top.score}
}

var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true,
	"dr": true, "prof": true, "professor": true,
}

// Normalize case-folds a surface mention and strips the noise that
// transcripts add around names: parenthetical notes, honorifics,
// trailing punctuation, uneven whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Strip parenthetical notes like "sam (treasurer)".
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	s = b.String()

	fields := strings.Fields(s)
	out := fields[:0]
	for i, f := range fields {
		f = strings.Trim(f, ".,!?;:")
		if f == "" {
			continue
		}
		if i == 0 && honorifics[f] {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// similarityRatio is 1 - editDistance/maxLen, in [0, 1]. Two empty
// strings are identical.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(max)
}

func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
