package synthesis

import (
	"math"

	"github.com/dusk-indust/consolidate/internal/codeintel"
)

// Scorer computes the weighted quality score of a rendered document.
type Scorer struct {
	cfg      Config
	analyzer codeintel.Analyzer
}

// NewScorer returns a Scorer. A nil analyzer falls back to lexical analysis.
func NewScorer(cfg Config, analyzer codeintel.Analyzer) *Scorer {
	if analyzer == nil {
		analyzer = codeintel.LexicalAnalyzer{}
	}
	return &Scorer{cfg: cfg, analyzer: analyzer}
}

// Score recomputes every component and the total from scratch.
func (s *Scorer) Score(doc SynthesizedDocument, m MergedDocument, outputs []ContributorOutput) QualityScore {
	q := QualityScore{
		Completeness: s.completeness(doc),
		CodeQuality:  s.codeQuality(m),
		Clarity:      s.clarity(doc),
		Consensus:    s.consensus(outputs),
	}
	q.Total = s.total(q)
	return q
}

func (s *Scorer) total(q QualityScore) float64 {
	w := s.cfg.ScoreWeights
	sum := w.sum()
	if sum <= 0 {
		return 0
	}
	t := (w.Completeness*q.Completeness +
		w.CodeQuality*q.CodeQuality +
		w.Clarity*q.Clarity +
		w.Consensus*q.Consensus) / sum
	return clamp01(t)
}

// completeness is the fraction of required sections with real content.
// Patched sections do not count.
func (s *Scorer) completeness(doc SynthesizedDocument) float64 {
	var present int
	for _, id := range requiredSections {
		if sec, ok := doc.Section(id); ok && !sec.Empty && !sec.Placeholder {
			present++
		}
	}
	return float64(present) / float64(len(requiredSections))
}

// codeQuality averages per-block scores over at least MinCodeBlocks slots.
// Placeholder blocks never reach this point; they live in the appendix.
func (s *Scorer) codeQuality(m MergedDocument) float64 {
	var blocks []CodeBlock
	if m.Approach != nil {
		blocks = append(blocks, m.Approach.CodeBlocks...)
	}
	blocks = append(blocks, m.Code...)

	var sum float64
	for _, b := range blocks {
		sum += s.blockScore(b)
	}
	denom := math.Max(float64(len(blocks)), float64(s.cfg.MinCodeBlocks))
	if denom == 0 {
		return 0
	}
	return clamp01(sum / denom)
}

func (s *Scorer) blockScore(b CodeBlock) float64 {
	if b.IsPlaceholder {
		return 0
	}
	// Syntax errors surface as validator warnings, not here.
	r := s.analyzer.Analyze(b.Language, b.Content)
	score := 1.0 / 3
	if r.ErrorHandling {
		score += 1.0 / 3
	}
	if r.Documented {
		score += 1.0 / 3
	}
	return score
}

// clarity decays with the density of hedging markers per content section.
func (s *Scorer) clarity(doc SynthesizedDocument) float64 {
	var sections, markers int
	for _, id := range requiredSections {
		sec, ok := doc.Section(id)
		if !ok || sec.Empty || sec.Placeholder {
			continue
		}
		sections++
		markers += countAmbiguity(sec.Body)
	}
	if sections == 0 {
		return 0
	}
	return 1 / (1 + float64(markers)/float64(sections))
}

// consensus credits each expected role once: 1 for a structured
// contribution, 0.5 for an unstructured one, 0 when absent.
func (s *Scorer) consensus(outputs []ContributorOutput) float64 {
	if len(s.cfg.ExpectedRoles) == 0 {
		return 0
	}
	credit := make(map[Role]float64)
	for _, o := range outputs {
		c := 0.5
		if o.Structured() {
			c = 1
		}
		credit[o.Role] = math.Max(credit[o.Role], c)
	}
	var sum float64
	for _, r := range s.cfg.ExpectedRoles {
		sum += credit[r]
	}
	return sum / float64(len(s.cfg.ExpectedRoles))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
