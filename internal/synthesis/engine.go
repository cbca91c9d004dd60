package synthesis

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/codeintel"
)

// State is a step of the enhancement loop.
type State string

const (
	StateMerging    State = "merging"
	StateValidating State = "validating"
	StateScoring    State = "scoring"
	StateEnhancing  State = "enhancing"
	StateDone       State = "done"
	StateExhausted  State = "exhausted"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateExhausted
}

// Transition records one state change of the loop.
type Transition struct {
	From      State   `json:"from"`
	To        State   `json:"to"`
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason,omitempty"`
}

// Gaps lists what kept a document from being complete.
type Gaps struct {
	MissingContributors []Role      `json:"missingContributors"`
	MissingSections     []SectionID `json:"missingSections"`
	Issues              []Issue     `json:"issues"`
}

// ContributorSummary describes one parsed contribution.
type ContributorSummary struct {
	ID         string       `json:"id"`
	Role       Role         `json:"role"`
	Structured bool         `json:"structured"`
	Sections   []SectionKey `json:"sections"`
}

// Result is everything a run produces.
type Result struct {
	Document     SynthesizedDocument
	Contributors []ContributorSummary
	Score        QualityScore
	Gaps         Gaps
	Validation   ValidationResult
	Conflicts    []ConflictRecord
	Transitions  []Transition
	State        State
	Iterations   int
}

// Engine runs the synthesis pipeline. It holds configuration only and is
// safe for concurrent use by independent runs.
type Engine struct {
	cfg       Config
	title     string
	analyzer  codeintel.Analyzer
	logger    *zap.Logger
	progress  *ProgressReporter
	parser    *Parser
	resolver  *Resolver
	formatter *Formatter
	validator *Validator
	scorer    *Scorer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAnalyzer sets the code analyzer used for scoring and syntax warnings.
func WithAnalyzer(a codeintel.Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithTitle sets the document title.
func WithTitle(title string) Option {
	return func(e *Engine) { e.title = title }
}

// WithProgress emits every transition to pr.
func WithProgress(pr *ProgressReporter) Option {
	return func(e *Engine) { e.progress = pr }
}

// NewEngine builds an Engine from cfg.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		logger:   zap.NewNop(),
		analyzer: codeintel.LexicalAnalyzer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.parser = NewParser()
	e.resolver = NewResolver(cfg)
	e.formatter = NewFormatter(e.title, cfg)
	e.validator = NewValidator(cfg, e.analyzer)
	e.scorer = NewScorer(cfg, e.analyzer)
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// run carries the mutable state of one Synthesize call.
type run struct {
	e      *Engine
	res    Result
	state  State
	pass   int
	scored float64
}

func (r *run) to(next State, reason string) {
	t := Transition{From: r.state, To: next, Iteration: r.pass, Score: r.scored, Reason: reason}
	r.res.Transitions = append(r.res.Transitions, t)
	r.state = next
	r.e.logger.Debug("synthesis transition",
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.Int("iteration", t.Iteration),
		zap.Float64("score", t.Score),
		zap.String("reason", reason),
	)
	if r.e.progress != nil {
		r.e.progress.Emit(t)
	}
}

// Synthesize turns contributions into one document. It always returns a
// Result: missing contributors, unparsable text and low quality are reported
// in the result, never as errors. ctx only bounds the parse pool.
func (e *Engine) Synthesize(ctx context.Context, contributions []Contribution) Result {
	r := &run{e: e, state: StateMerging}

	outputs, err := e.parser.ParseAll(ctx, contributions, e.cfg.ParseWorkers)
	if err != nil {
		e.logger.Warn("parallel parse interrupted, parsing inline", zap.Error(err))
		outputs = make([]ContributorOutput, 0, len(contributions))
		for _, c := range contributions {
			outputs = append(outputs, e.parser.Parse(c))
		}
	}

	resolved := e.resolver.ResolveAll(DetectConflicts(outputs))
	for _, c := range resolved {
		e.logger.Info("conflict resolved",
			zap.String("field", string(c.FieldKey)),
			zap.String("policy", string(c.Policy)),
			zap.Int("candidates", len(c.Candidates)),
			zap.String("winner", c.Winner),
		)
	}
	merged := Merge(outputs, resolved, e.cfg)

	var (
		patches  = make(map[SectionID]bool)
		best     SynthesizedDocument
		bestVal  ValidationResult
		haveBest bool
		doc      SynthesizedDocument
		val      ValidationResult
	)
	for {
		doc = e.formatter.Render(merged, patches)
		r.to(StateValidating, "")
		val = e.validator.Validate(doc)

		r.to(StateScoring, "")
		doc.Score = e.scorer.Score(doc, merged, outputs)
		r.scored = doc.Score.Total

		// Ties go to the later document, which carries more patches.
		if !haveBest || doc.Score.Total >= best.Score.Total {
			best, bestVal, haveBest = doc, val, true
		}

		if doc.Score.Total >= e.cfg.QualityThreshold {
			r.to(StateDone, "")
			break
		}
		if r.pass >= e.cfg.RetryBudget {
			r.to(StateExhausted, "retry budget spent")
			doc, val = best, bestVal
			break
		}

		r.pass++
		var ids []string
		for _, id := range val.MissingSections {
			patches[id] = true
			ids = append(ids, string(id))
		}
		reason := "patching " + strings.Join(ids, ", ")
		if len(ids) == 0 {
			reason = "no patchable sections"
		}
		r.to(StateEnhancing, reason)
	}

	r.res.Document = doc
	r.res.Contributors = summarize(outputs)
	r.res.Score = doc.Score
	r.res.Validation = val
	r.res.Conflicts = merged.Conflicts
	r.res.State = r.state
	r.res.Iterations = r.pass
	r.res.Gaps = Gaps{
		MissingContributors: append([]Role(nil), merged.Missing...),
		MissingSections:     emptySections(doc),
		Issues:              append([]Issue(nil), val.Issues...),
	}

	e.logger.Info("synthesis finished",
		zap.String("state", string(r.state)),
		zap.Float64("total", doc.Score.Total),
		zap.Int("iterations", r.pass),
		zap.Int("contributors", len(outputs)),
	)
	return r.res
}

// emptySections lists required sections without contributor data, patched
// or not.
func emptySections(doc SynthesizedDocument) []SectionID {
	var out []SectionID
	for _, id := range requiredSections {
		if sec, ok := doc.Section(id); !ok || sec.Empty {
			out = append(out, id)
		}
	}
	return out
}

func summarize(outputs []ContributorOutput) []ContributorSummary {
	out := make([]ContributorSummary, 0, len(outputs))
	for _, o := range outputs {
		keys := make([]SectionKey, 0, len(o.ParsedSections))
		for k := range o.ParsedSections {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		out = append(out, ContributorSummary{
			ID:         o.ContributorID,
			Role:       o.Role,
			Structured: o.Structured(),
			Sections:   keys,
		})
	}
	return out
}
