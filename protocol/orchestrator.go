package protocol

import (
	"fmt"
	"time"

	"github.com/hybridhe/switchmin/logging"
)

// Phase is a state of the protocol machine. Transitions are strictly linear;
// the machine never moves backward and has no retry edges.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseContextReady
	PhaseKeysGenerated
	PhasePublished
	PhaseComputed
	PhaseReturned
	PhaseVerified
)

var phaseToString = [...]string{
	"INIT",
	"CONTEXT_READY",
	"KEYS_GENERATED",
	"PUBLISHED",
	"COMPUTED",
	"RETURNED",
	"VERIFIED",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseToString) {
		return "invalid"
	}
	return phaseToString[p]
}

// RunConfig configures a full protocol run. Publisher and worker get separate
// sessions, modeling two roles that share nothing but the artifact store.
type RunConfig struct {
	Params ParameterSet
	BaseGs []uint32
	Input  []float64
	Names  Names
	Store  Store

	NewPublisherSession func() Session
	NewWorkerSession    func() Session

	// Tolerance is passed to the verifier; zero selects its default.
	Tolerance float64

	Log *logging.Logger
}

// RunResult reports the last phase reached and, on full completion, the
// verification report.
type RunResult struct {
	Phase  Phase
	Report *Report
}

// Run drives one protocol run through the linear phase sequence
//
//	INIT -> CONTEXT_READY -> KEYS_GENERATED -> PUBLISHED -> COMPUTED ->
//	RETURNED -> VERIFIED
//
// Every failure is terminal: the returned result names the phase that was
// reached, and the error names the failing artifact or step. The only
// recovery is a fresh run.
func Run(cfg RunConfig) (*RunResult, error) {
	res := &RunResult{Phase: PhaseInit}

	if cfg.Store == nil || cfg.NewPublisherSession == nil || cfg.NewWorkerSession == nil {
		return res, fmt.Errorf("%w: store and session constructors are required", ErrConfiguration)
	}
	if len(cfg.BaseGs) == 0 {
		cfg.BaseGs = DefaultBaseGs()
	}
	if cfg.Names == (Names{}) {
		cfg.Names = DefaultNames()
	}

	pub := &Publisher{Session: cfg.NewPublisherSession(), Store: cfg.Store, Names: cfg.Names, Log: cfg.Log}
	wrk := &Worker{Session: cfg.NewWorkerSession(), Store: cfg.Store, Names: cfg.Names, BaseGs: cfg.BaseGs, Log: cfg.Log}

	step := func(to Phase, name string, f func() error) error {
		start := time.Now()
		if err := f(); err != nil {
			return fmt.Errorf("phase %s: %w", to, err)
		}
		res.Phase = to
		cfg.Log.Duration(name, start)
		cfg.Log.Printf("-> %s", to)
		return nil
	}

	cfg.Log.Section("Part 1: context and key generation, data encryption (publisher)")
	if err := step(PhaseContextReady, "context generation", func() error {
		return pub.InitContext(cfg.Params)
	}); err != nil {
		return res, err
	}
	if err := step(PhaseKeysGenerated, "key generation", func() error {
		return pub.GenerateAndEncrypt(cfg.Params, cfg.BaseGs, cfg.Input)
	}); err != nil {
		return res, err
	}

	cfg.Log.Section("Part 2: artifact publication (publisher)")
	if err := step(PhasePublished, "publication", pub.Publish); err != nil {
		return res, err
	}

	cfg.Log.Section("Part 3: artifact loading and argmin evaluation (worker)")
	if err := step(PhaseComputed, "load and compute", func() error {
		if err := wrk.Load(); err != nil {
			return err
		}
		return wrk.Compute(len(cfg.Input))
	}); err != nil {
		return res, err
	}
	if err := step(PhaseReturned, "result return", wrk.Return); err != nil {
		return res, err
	}

	cfg.Log.Section("Part 4: correctness verification (publisher)")
	ver := &Verifier{Session: pub.Session, Store: cfg.Store, Names: cfg.Names, Tolerance: cfg.Tolerance}
	if err := step(PhaseVerified, "verification", func() error {
		report, err := ver.Verify(cfg.Input, cfg.Params.OneHot)
		res.Report = report
		return err
	}); err != nil {
		return res, err
	}

	return res, nil
}
