// Package engine provides an in-process secret computation engine used to
// drive the ballot state machine. It keeps every secret in memory and is a
// trusted stand-in for a real multi-party engine: it offers no privacy, only
// the same contract (pending inputs, a computation producing declared
// outputs, declassification, threshold attestation and cleanup) delivered
// through asynchronous callbacks.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/registry"
	"github.com/vocdoni/secret-ballot/round"
	"github.com/vocdoni/secret-ballot/tally"
	"github.com/vocdoni/secret-ballot/types"
)

// eventsBufferSize is the capacity of the callback channel.
const eventsBufferSize = 64

// Config holds the engine parameters.
type Config struct {
	// Nodes are the attestation nodes, every one of them signs each
	// attestation request.
	Nodes []*ethereum.SignKeys
}

type variable struct {
	types.SecretVariable
	secret []byte
}

// Engine is the reference engine. All the methods are safe for concurrent
// use.
type Engine struct {
	conf Config

	mu           sync.RWMutex
	phase        types.Phase
	variables    []*variable
	pending      []*variable
	attestations []types.DataAttestation
	nextVarID    types.VarID
	nextAttID    types.AttestationID

	queueMu sync.Mutex
	queue   [][]round.Change
	notify  chan struct{}
	events  chan round.Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an idle engine with an empty registry.
func New(conf Config) (*Engine, error) {
	if len(conf.Nodes) == 0 {
		return nil, fmt.Errorf("at least one attestation node is required")
	}
	for i, n := range conf.Nodes {
		if n == nil || n.Private.D == nil {
			return nil, fmt.Errorf("attestation node %d has no private key", i)
		}
	}
	return &Engine{
		conf:      conf,
		phase:     types.PhaseIdle,
		nextVarID: 1,
		nextAttID: 1,
		notify:    make(chan struct{}, 1),
		events:    make(chan round.Message, eventsBufferSize),
	}, nil
}

// Start launches the worker executing the requests passed to Apply.
func (e *Engine) Start(ctx context.Context) error {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	if e.cancel != nil {
		return fmt.Errorf("engine already running")
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.worker()
	log.Infow("engine started", "nodes", len(e.conf.Nodes))
	return nil
}

// Stop halts the worker. Requests not yet executed are dropped.
func (e *Engine) Stop() {
	e.queueMu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.queueMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	e.wg.Wait()
	log.Infow("engine stopped")
}

// Events returns the channel where the engine delivers its callbacks. One
// callback is sent for every StartComputation, OpenVariables and Attest
// request, in the order the requests were applied.
func (e *Engine) Events() <-chan round.Message {
	return e.events
}

// Nodes returns the addresses of the attestation nodes.
func (e *Engine) Nodes() []common.Address {
	addrs := make([]common.Address, 0, len(e.conf.Nodes))
	for _, n := range e.conf.Nodes {
		addrs = append(addrs, n.Address())
	}
	return addrs
}

// Phase returns the current phase.
func (e *Engine) Phase() types.Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// View returns a snapshot of the registry. Secrets of unopened variables are
// never part of it.
func (e *Engine) View() *registry.View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	view := &registry.View{
		Phase:        e.phase,
		Variables:    make([]types.SecretVariable, 0, len(e.variables)),
		Pending:      make([]types.SecretVariable, 0, len(e.pending)),
		Attestations: make([]types.DataAttestation, 0, len(e.attestations)),
	}
	for _, v := range e.variables {
		view.Variables = append(view.Variables, v.public())
	}
	for _, v := range e.pending {
		view.Pending = append(view.Pending, v.public())
	}
	for _, a := range e.attestations {
		sigs := make([]types.Signature, len(a.Signatures))
		copy(sigs, a.Signatures)
		view.Attestations = append(view.Attestations, types.DataAttestation{
			ID:         a.ID,
			Data:       append(types.HexBytes(nil), a.Data...),
			Signatures: sigs,
		})
	}
	return view
}

func (v *variable) public() types.SecretVariable {
	sv := v.SecretVariable
	if sv.Data != nil {
		sv.Data = append(types.HexBytes{}, sv.Data...)
	}
	return sv
}

// Input registers the secret input of owner following def. The input stays
// pending until confirmed, which only happens while the engine is idle.
func (e *Engine) Input(owner common.Address, def types.InputDef, value []byte) (types.VarID, error) {
	if err := validateInput(def, value); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v := &variable{
		SecretVariable: types.SecretVariable{
			ID:       e.nextVarID,
			Owner:    owner,
			Metadata: def.Metadata,
		},
		secret: append([]byte(nil), value...),
	}
	e.nextVarID++
	e.pending = append(e.pending, v)
	e.confirmPending()
	return v.ID, nil
}

// validateInput checks that value carries exactly the declared bits.
func validateInput(def types.InputDef, value []byte) error {
	bits := def.TotalBits()
	if bits == 0 {
		return fmt.Errorf("input definition declares no bits")
	}
	if want := int((bits + 7) / 8); len(value) != want {
		return fmt.Errorf("input has %d bytes, expected %d", len(value), want)
	}
	if spare := bits % 8; spare != 0 && value[len(value)-1]>>spare != 0 {
		return fmt.Errorf("input exceeds %d bits", bits)
	}
	return nil
}

// confirmPending moves the pending inputs to the confirmed variables if the
// engine is idle, returning how many were confirmed.
func (e *Engine) confirmPending() int {
	if e.phase != types.PhaseIdle || len(e.pending) == 0 {
		return 0
	}
	n := len(e.pending)
	e.variables = append(e.variables, e.pending...)
	e.pending = nil
	log.Debugw("pending inputs confirmed", "count", n, "total", len(e.variables))
	return n
}

// Apply queues the requests issued by a transition. They are executed in
// order by the worker, AcceptInput is not accepted here since the secret is
// submitted by the input owner through Input. A computation moves the
// engine to the running phase before Apply returns, so the next view
// already reflects it.
func (e *Engine) Apply(changes []round.Change) error {
	for _, ch := range changes {
		if _, ok := ch.(round.AcceptInput); ok {
			return fmt.Errorf("inputs must be submitted with Input")
		}
	}
	if len(changes) == 0 {
		return nil
	}
	if err := e.reserveComputation(changes); err != nil {
		return err
	}
	e.queueMu.Lock()
	e.queue = append(e.queue, changes)
	e.queueMu.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
	return nil
}

// reserveComputation switches to the running phase if changes start a
// computation. Only one computation can run at a time.
func (e *Engine) reserveComputation(changes []round.Change) error {
	starts := 0
	for _, ch := range changes {
		if _, ok := ch.(round.StartComputation); ok {
			starts++
		}
	}
	if starts == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if starts > 1 || e.phase != types.PhaseIdle {
		return fmt.Errorf("computation requested in phase %s", e.phase)
	}
	e.phase = types.PhaseRunning
	return nil
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.notify:
		}
		for {
			e.queueMu.Lock()
			if len(e.queue) == 0 {
				e.queueMu.Unlock()
				break
			}
			changes := e.queue[0]
			e.queue = e.queue[1:]
			e.queueMu.Unlock()

			for _, ch := range changes {
				msg, err := e.execute(ch)
				if err != nil {
					log.Warnw("engine request failed", "request", fmt.Sprintf("%T", ch), "error", err.Error())
					continue
				}
				if msg == nil {
					continue
				}
				select {
				case e.events <- msg:
				case <-e.ctx.Done():
					return
				}
			}
		}
	}
}

// execute runs one request and returns the callback to deliver, if any.
func (e *Engine) execute(ch round.Change) (round.Message, error) {
	switch ch := ch.(type) {
	case round.StartComputation:
		return e.compute(ch.Outputs)
	case round.OpenVariables:
		return e.open(ch.IDs)
	case round.Attest:
		return e.attest(ch.Data)
	case round.OutputComplete:
		return nil, e.outputComplete(ch.Delete)
	default:
		return nil, fmt.Errorf("unsupported request %T", ch)
	}
}

// compute runs the counting computation over the confirmed votes and
// creates one output variable per declared metadata.
func (e *Engine) compute(outputs []types.VarMetadata) (round.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != types.PhaseRunning {
		return nil, fmt.Errorf("computation not reserved, phase is %s", e.phase)
	}

	var inputs [][]byte
	for _, v := range e.variables {
		if v.Metadata.Kind == types.VarKindVote {
			inputs = append(inputs, v.secret)
		}
	}
	count := tally.CountVotes(inputs)

	ids := make([]types.VarID, 0, len(outputs))
	for _, md := range outputs {
		if md.Kind != types.VarKindTallyResult {
			e.phase = types.PhaseIdle
			return nil, fmt.Errorf("no computation produces a %s output", md.Kind)
		}
		v := &variable{
			SecretVariable: types.SecretVariable{ID: e.nextVarID, Metadata: md},
			secret:         tally.EncodeCount(count),
		}
		e.nextVarID++
		e.variables = append(e.variables, v)
		ids = append(ids, v.ID)
	}
	e.phase = types.PhaseOutput
	log.Debugw("computation complete", "inputs", len(inputs), "outputs", len(ids))
	return round.ComputeComplete{Outputs: ids}, nil
}

// open declassifies the given variables.
func (e *Engine) open(ids []types.VarID) (round.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		v := e.variable(id)
		if v == nil {
			return nil, fmt.Errorf("variable %d not found", id)
		}
		v.Data = append(types.HexBytes{}, v.secret...)
	}
	return round.VariablesOpened{Opened: append([]types.VarID(nil), ids...)}, nil
}

func (e *Engine) variable(id types.VarID) *variable {
	for _, v := range e.variables {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// attest collects the signature of every node over data.
func (e *Engine) attest(data []byte) (round.Message, error) {
	sigs, err := signAll(e.ctx, e.conf.Nodes, data)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	att := types.DataAttestation{
		ID:         e.nextAttID,
		Data:       append(types.HexBytes(nil), data...),
		Signatures: sigs,
	}
	e.nextAttID++
	e.attestations = append(e.attestations, att)
	log.Debugw("data attested", "id", att.ID, "signatures", len(sigs))
	return round.AttestationComplete{ID: att.ID}, nil
}

// outputComplete deletes the given variables and returns to the idle phase,
// where inputs received meanwhile get confirmed.
func (e *Engine) outputComplete(ids []types.VarID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	del := make(map[types.VarID]bool, len(ids))
	for _, id := range ids {
		del[id] = true
	}
	kept := e.variables[:0]
	for _, v := range e.variables {
		if !del[v.ID] {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(e.variables); i++ {
		e.variables[i] = nil
	}
	e.variables = kept
	e.phase = types.PhaseIdle
	e.confirmPending()
	log.Debugw("output complete", "deleted", len(ids), "remaining", len(e.variables))
	return nil
}
